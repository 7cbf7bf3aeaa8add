package voice

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"voice-mirror/internal/speech"
)

// minSampleSeconds is the floor for clone samples; anything shorter trains a
// useless model.
const minSampleSeconds = 2.0

type Registry struct {
	repo    Repo
	cloner  speech.Cloner
	archive SampleArchive // optional
	presets map[Kind]string
	log     *zap.Logger
	now     func() time.Time
}

func NewRegistry(repo Repo, cloner speech.Cloner, archive SampleArchive, maleModelID, femaleModelID string, log *zap.Logger) *Registry {
	return &Registry{
		repo:    repo,
		cloner:  cloner,
		archive: archive,
		presets: map[Kind]string{
			KindMale:   maleModelID,
			KindFemale: femaleModelID,
		},
		log: log,
		now: time.Now,
	}
}

func (r *Registry) IsPresetAvailable(k Kind) bool {
	return r.presets[k] != ""
}

// ResolveActiveModelID maps the persisted selection to a provider model id.
// An empty id means nothing is selectable for the current selection.
func (r *Registry) ResolveActiveModelID(ctx context.Context) (string, error) {
	s, err := r.repo.GetSettings(ctx)
	if err != nil {
		return "", fmt.Errorf("load settings: %w", err)
	}

	switch s.Kind {
	case KindCloned:
		if s.SelectedClonedID == nil {
			return "", nil
		}
		return *s.SelectedClonedID, nil
	case KindMale, KindFemale:
		return r.presets[s.Kind], nil
	default:
		return "", fmt.Errorf("unknown voice kind %q", s.Kind)
	}
}

func (r *Registry) PromptProcessingEnabled(ctx context.Context) (bool, error) {
	s, err := r.repo.GetSettings(ctx)
	if err != nil {
		return false, fmt.Errorf("load settings: %w", err)
	}
	return s.PromptProcessing, nil
}

func (r *Registry) Settings(ctx context.Context) (Settings, error) {
	return r.repo.GetSettings(ctx)
}

func (r *Registry) ClonedModels(ctx context.Context) ([]ClonedModel, error) {
	return r.repo.ListClonedModels(ctx)
}

// CreateClonedModel submits a sample to the cloning provider and, on success,
// records the new model and makes it the active selection. A failed submission
// leaves the registry untouched.
func (r *Registry) CreateClonedModel(ctx context.Context, sample []byte, transcript, name string) (ClonedModel, error) {
	if len(sample) == 0 {
		return ClonedModel{}, fmt.Errorf("empty audio sample")
	}
	if err := r.checkSampleDuration(sample); err != nil {
		return ClonedModel{}, err
	}

	res, err := r.cloner.CreateModel(ctx, sample, transcript)
	if err != nil {
		return ClonedModel{}, fmt.Errorf("clone voice: %w", err)
	}

	if r.archive != nil {
		key := "voice-samples/" + uuid.NewString() + ".webm"
		if _, err := r.archive.Store(ctx, key, sample, "audio/webm"); err != nil {
			r.log.Warn("failed to archive clone sample", zap.Error(err))
		}
	}

	if name == "" {
		name = "My Voice"
	}

	model := ClonedModel{
		ID:        res.ModelID,
		Name:      name,
		CreatedAt: r.now(),
	}
	if err := r.repo.AddClonedModel(ctx, model); err != nil {
		return ClonedModel{}, fmt.Errorf("save cloned model: %w", err)
	}

	s, err := r.repo.GetSettings(ctx)
	if err != nil {
		return ClonedModel{}, fmt.Errorf("load settings: %w", err)
	}
	s.Kind = KindCloned
	s.SelectedClonedID = &model.ID
	if err := r.repo.SaveSettings(ctx, s); err != nil {
		return ClonedModel{}, fmt.Errorf("save settings: %w", err)
	}

	return model, nil
}

// RemoveClonedModel deletes the entry. When the deleted model was selected the
// selection falls back to the first remaining cloned model, or to an available
// preset when none remain.
func (r *Registry) RemoveClonedModel(ctx context.Context, id string) error {
	// Selection has to be read before the delete: the storage layer nulls a
	// selected_cloned_id pointing at the deleted row.
	s, err := r.repo.GetSettings(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	wasSelected := s.SelectedClonedID != nil && *s.SelectedClonedID == id

	if err := r.repo.DeleteClonedModel(ctx, id); err != nil {
		return fmt.Errorf("delete cloned model: %w", err)
	}
	if !wasSelected {
		return nil
	}

	remaining, err := r.repo.ListClonedModels(ctx)
	if err != nil {
		return fmt.Errorf("list cloned models: %w", err)
	}

	if len(remaining) > 0 {
		s.SelectedClonedID = &remaining[0].ID
	} else {
		s.SelectedClonedID = nil
		if s.Kind == KindCloned {
			switch {
			case r.IsPresetAvailable(KindMale):
				s.Kind = KindMale
			case r.IsPresetAvailable(KindFemale):
				s.Kind = KindFemale
			}
		}
	}

	return r.repo.SaveSettings(ctx, s)
}

func (r *Registry) SetSelection(ctx context.Context, kind Kind, clonedID *string) error {
	if !kind.Valid() {
		return fmt.Errorf("unknown voice kind %q", kind)
	}
	if kind.IsPreset() && !r.IsPresetAvailable(kind) {
		return fmt.Errorf("preset voice %q is not configured", kind)
	}

	s, err := r.repo.GetSettings(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if kind == KindCloned && clonedID != nil {
		models, err := r.repo.ListClonedModels(ctx)
		if err != nil {
			return fmt.Errorf("list cloned models: %w", err)
		}
		found := false
		for _, m := range models {
			if m.ID == *clonedID {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("cloned model %q does not exist", *clonedID)
		}
		s.SelectedClonedID = clonedID
	}

	s.Kind = kind
	return r.repo.SaveSettings(ctx, s)
}

func (r *Registry) UpdateSettings(ctx context.Context, promptProcessing *bool, outputDeviceID *string) (Settings, error) {
	s, err := r.repo.GetSettings(ctx)
	if err != nil {
		return Settings{}, fmt.Errorf("load settings: %w", err)
	}

	if promptProcessing != nil {
		s.PromptProcessing = *promptProcessing
	}
	if outputDeviceID != nil {
		s.OutputDeviceID = *outputDeviceID
	}

	if err := r.repo.SaveSettings(ctx, s); err != nil {
		return Settings{}, fmt.Errorf("save settings: %w", err)
	}
	return s, nil
}

// checkSampleDuration probes the sample with ffprobe when available. Probe
// failures (no ffprobe on the host, unreadable container) skip the check.
func (r *Registry) checkSampleDuration(sample []byte) error {
	tmp, err := os.CreateTemp("", "clone-sample-*.webm")
	if err != nil {
		return nil
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(sample); err != nil {
		tmp.Close()
		return nil
	}
	tmp.Close()

	dur, err := speech.AudioDuration(filepath.Clean(tmp.Name()))
	if err != nil {
		r.log.Debug("ffprobe unavailable, skipping sample duration check", zap.Error(err))
		return nil
	}
	if dur < minSampleSeconds {
		return fmt.Errorf("sample too short: %.1fs, need at least %.0fs", dur, minSampleSeconds)
	}
	return nil
}
