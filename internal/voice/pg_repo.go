package voice

import (
	"context"
	"database/sql"
	"errors"
)

type pgRepo struct {
	db *sql.DB
}

func NewPgRepo(db *sql.DB) Repo {
	return &pgRepo{db: db}
}

// InitSchema creates the registry tables when they do not exist yet.
func InitSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS cloned_models (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);

		CREATE TABLE IF NOT EXISTS voice_settings (
			id                 INT PRIMARY KEY,
			voice_kind         TEXT NOT NULL,
			prompt_processing  BOOLEAN NOT NULL,
			output_device_id   TEXT NOT NULL DEFAULT '',
			selected_cloned_id TEXT REFERENCES cloned_models(id) ON DELETE SET NULL
		);
	`)
	return err
}

func (r *pgRepo) GetSettings(ctx context.Context) (Settings, error) {
	var s Settings
	var selected sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT voice_kind, prompt_processing, output_device_id, selected_cloned_id
		FROM voice_settings
		WHERE id = 1
	`).Scan(&s.Kind, &s.PromptProcessing, &s.OutputDeviceID, &selected)
	if errors.Is(err, sql.ErrNoRows) {
		return DefaultSettings(), nil
	}
	if err != nil {
		return Settings{}, err
	}
	if selected.Valid {
		s.SelectedClonedID = &selected.String
	}
	return s, nil
}

func (r *pgRepo) SaveSettings(ctx context.Context, s Settings) error {
	var selected sql.NullString
	if s.SelectedClonedID != nil {
		selected = sql.NullString{String: *s.SelectedClonedID, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO voice_settings (id, voice_kind, prompt_processing, output_device_id, selected_cloned_id)
		VALUES (1, $1, $2, $3, $4)
		ON CONFLICT (id)
		DO UPDATE SET voice_kind = $1, prompt_processing = $2, output_device_id = $3, selected_cloned_id = $4
	`, s.Kind, s.PromptProcessing, s.OutputDeviceID, selected)
	return err
}

func (r *pgRepo) ListClonedModels(ctx context.Context) ([]ClonedModel, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, created_at
		FROM cloned_models
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var models []ClonedModel
	for rows.Next() {
		var m ClonedModel
		if err := rows.Scan(&m.ID, &m.Name, &m.CreatedAt); err != nil {
			return nil, err
		}
		models = append(models, m)
	}
	return models, rows.Err()
}

func (r *pgRepo) AddClonedModel(ctx context.Context, m ClonedModel) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO cloned_models (id, name, created_at)
		VALUES ($1, $2, $3)
	`, m.ID, m.Name, m.CreatedAt)
	return err
}

func (r *pgRepo) DeleteClonedModel(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM cloned_models WHERE id = $1
	`, id)
	return err
}
