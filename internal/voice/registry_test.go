package voice

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"voice-mirror/internal/speech"
)

type memRepo struct {
	settings Settings
	models   []ClonedModel
}

func newMemRepo() *memRepo {
	return &memRepo{settings: DefaultSettings()}
}

func (m *memRepo) GetSettings(ctx context.Context) (Settings, error) { return m.settings, nil }
func (m *memRepo) SaveSettings(ctx context.Context, s Settings) error {
	m.settings = s
	return nil
}
func (m *memRepo) ListClonedModels(ctx context.Context) ([]ClonedModel, error) {
	return append([]ClonedModel(nil), m.models...), nil
}
func (m *memRepo) AddClonedModel(ctx context.Context, model ClonedModel) error {
	m.models = append(m.models, model)
	return nil
}
func (m *memRepo) DeleteClonedModel(ctx context.Context, id string) error {
	out := m.models[:0]
	for _, model := range m.models {
		if model.ID != id {
			out = append(out, model)
		}
	}
	m.models = out
	if m.settings.SelectedClonedID != nil && *m.settings.SelectedClonedID == id {
		// mirrors ON DELETE SET NULL
		m.settings.SelectedClonedID = nil
	}
	return nil
}

type fakeCloner struct {
	result speech.CreateModelResult
	err    error
	calls  int
}

func (f *fakeCloner) CreateModel(ctx context.Context, audio []byte, transcript string) (speech.CreateModelResult, error) {
	f.calls++
	return f.result, f.err
}

func newTestRegistry(repo Repo, cloner speech.Cloner, maleID, femaleID string) *Registry {
	return NewRegistry(repo, cloner, nil, maleID, femaleID, zap.NewNop())
}

func TestIsPresetAvailable(t *testing.T) {
	r := newTestRegistry(newMemRepo(), &fakeCloner{}, "male-id", "")

	assert.True(t, r.IsPresetAvailable(KindMale))
	assert.False(t, r.IsPresetAvailable(KindFemale))
}

func TestResolveActiveModelID_Preset(t *testing.T) {
	repo := newMemRepo()
	r := newTestRegistry(repo, &fakeCloner{}, "abc123", "")

	require.NoError(t, r.SetSelection(context.Background(), KindMale, nil))

	id, err := r.ResolveActiveModelID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc123", id)
}

func TestResolveActiveModelID_ClonedNoneSelected(t *testing.T) {
	r := newTestRegistry(newMemRepo(), &fakeCloner{}, "", "")

	id, err := r.ResolveActiveModelID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "", id)
}

func TestSetSelection_UnconfiguredPresetRejected(t *testing.T) {
	r := newTestRegistry(newMemRepo(), &fakeCloner{}, "", "")

	err := r.SetSelection(context.Background(), KindFemale, nil)
	require.Error(t, err)
}

func TestCreateClonedModel_SelectsNewModel(t *testing.T) {
	repo := newMemRepo()
	cloner := &fakeCloner{result: speech.CreateModelResult{ModelID: "model-1", Status: "trained"}}
	r := newTestRegistry(repo, cloner, "", "")

	model, err := r.CreateClonedModel(context.Background(), []byte("sample"), "hello", "Test Voice")
	require.NoError(t, err)
	assert.Equal(t, "model-1", model.ID)
	assert.Equal(t, "Test Voice", model.Name)

	assert.Equal(t, KindCloned, repo.settings.Kind)
	require.NotNil(t, repo.settings.SelectedClonedID)
	assert.Equal(t, "model-1", *repo.settings.SelectedClonedID)

	id, err := r.ResolveActiveModelID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "model-1", id)
}

func TestCreateClonedModel_FailureDoesNotMutate(t *testing.T) {
	repo := newMemRepo()
	cloner := &fakeCloner{err: errors.New("provider down")}
	r := newTestRegistry(repo, cloner, "", "")

	_, err := r.CreateClonedModel(context.Background(), []byte("sample"), "", "")
	require.Error(t, err)

	assert.Empty(t, repo.models)
	assert.Nil(t, repo.settings.SelectedClonedID)
}

func TestCreateClonedModel_EmptySampleRejected(t *testing.T) {
	cloner := &fakeCloner{}
	r := newTestRegistry(newMemRepo(), cloner, "", "")

	_, err := r.CreateClonedModel(context.Background(), nil, "", "")
	require.Error(t, err)
	assert.Zero(t, cloner.calls)
}

func TestRemoveClonedModel_FallsBackToRemaining(t *testing.T) {
	repo := newMemRepo()
	cloner := &fakeCloner{}
	r := newTestRegistry(repo, cloner, "", "")

	cloner.result = speech.CreateModelResult{ModelID: "first"}
	_, err := r.CreateClonedModel(context.Background(), []byte("a"), "", "")
	require.NoError(t, err)
	cloner.result = speech.CreateModelResult{ModelID: "second"}
	_, err = r.CreateClonedModel(context.Background(), []byte("b"), "", "")
	require.NoError(t, err)

	require.NoError(t, r.RemoveClonedModel(context.Background(), "second"))

	require.NotNil(t, repo.settings.SelectedClonedID)
	assert.Equal(t, "first", *repo.settings.SelectedClonedID)
	assert.Equal(t, KindCloned, repo.settings.Kind)
}

func TestRemoveClonedModel_LastOneFallsBackToPreset(t *testing.T) {
	repo := newMemRepo()
	cloner := &fakeCloner{result: speech.CreateModelResult{ModelID: "only"}}
	r := newTestRegistry(repo, cloner, "male-id", "")

	_, err := r.CreateClonedModel(context.Background(), []byte("a"), "", "")
	require.NoError(t, err)

	require.NoError(t, r.RemoveClonedModel(context.Background(), "only"))

	assert.Nil(t, repo.settings.SelectedClonedID)
	assert.Equal(t, KindMale, repo.settings.Kind)
}

func TestRemoveClonedModel_LastOneNoPresets(t *testing.T) {
	repo := newMemRepo()
	cloner := &fakeCloner{result: speech.CreateModelResult{ModelID: "only"}}
	r := newTestRegistry(repo, cloner, "", "")

	_, err := r.CreateClonedModel(context.Background(), []byte("a"), "", "")
	require.NoError(t, err)

	require.NoError(t, r.RemoveClonedModel(context.Background(), "only"))

	assert.Nil(t, repo.settings.SelectedClonedID)
	assert.Equal(t, KindCloned, repo.settings.Kind)
}

func TestRemoveClonedModel_NotSelectedKeepsSelection(t *testing.T) {
	repo := newMemRepo()
	cloner := &fakeCloner{}
	r := newTestRegistry(repo, cloner, "", "")

	cloner.result = speech.CreateModelResult{ModelID: "first"}
	_, err := r.CreateClonedModel(context.Background(), []byte("a"), "", "")
	require.NoError(t, err)
	cloner.result = speech.CreateModelResult{ModelID: "second"}
	_, err = r.CreateClonedModel(context.Background(), []byte("b"), "", "")
	require.NoError(t, err)

	require.NoError(t, r.RemoveClonedModel(context.Background(), "first"))

	require.NotNil(t, repo.settings.SelectedClonedID)
	assert.Equal(t, "second", *repo.settings.SelectedClonedID)
}

func TestUpdateSettings(t *testing.T) {
	repo := newMemRepo()
	r := newTestRegistry(repo, &fakeCloner{}, "", "")

	off := false
	device := "speakers-2"
	s, err := r.UpdateSettings(context.Background(), &off, &device)
	require.NoError(t, err)

	assert.False(t, s.PromptProcessing)
	assert.Equal(t, "speakers-2", s.OutputDeviceID)
	assert.Equal(t, KindCloned, s.Kind)
}
