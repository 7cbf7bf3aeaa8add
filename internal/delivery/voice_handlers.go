package delivery

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"voice-mirror/internal/voice"
)

// VoiceHandler manages the durable voice registry: presets, cloned models and
// settings.
type VoiceHandler struct {
	registry  *voice.Registry
	maxUpload int64
	log       *zap.Logger
}

func NewVoiceHandler(registry *voice.Registry, maxUpload int64, log *zap.Logger) *VoiceHandler {
	return &VoiceHandler{
		registry:  registry,
		maxUpload: maxUpload,
		log:       log,
	}
}

// List returns everything a picker needs in one call: preset availability,
// cloned models and the current settings.
func (h *VoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	models, err := h.registry.ClonedModels(r.Context())
	if err != nil {
		h.log.Error("failed to list cloned models", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to load voices")
		return
	}
	settings, err := h.registry.Settings(r.Context())
	if err != nil {
		h.log.Error("failed to load voice settings", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to load voices")
		return
	}
	if models == nil {
		models = []voice.ClonedModel{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"presets": map[string]bool{
			string(voice.KindMale):   h.registry.IsPresetAvailable(voice.KindMale),
			string(voice.KindFemale): h.registry.IsPresetAvailable(voice.KindFemale),
		},
		"clonedModels": models,
		"settings":     settings,
	})
}

// CreateCloned submits a voice sample to the cloning provider and selects the
// new model on success.
func (h *VoiceHandler) CreateCloned(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		writeError(w, http.StatusBadRequest, "No audio provided")
		return
	}
	file, _, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No audio provided")
		return
	}
	defer file.Close()

	sample, err := io.ReadAll(io.LimitReader(file, h.maxUpload))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read audio: "+err.Error())
		return
	}

	model, err := h.registry.CreateClonedModel(
		r.Context(),
		sample,
		r.FormValue("transcription"),
		r.FormValue("name"),
	)
	if err != nil {
		h.log.Error("voice cloning failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to create voice model")
		return
	}

	writeJSON(w, http.StatusCreated, model)
}

// DeleteCloned removes a cloned model; the registry handles selection
// fallback when the deleted model was active.
func (h *VoiceHandler) DeleteCloned(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.registry.RemoveClonedModel(r.Context(), id); err != nil {
		h.log.Error("failed to delete cloned model", zap.String("model", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to delete voice model")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *VoiceHandler) SetSelection(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind     voice.Kind `json:"voiceModel"`
		ClonedID *string    `json:"clonedModelId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}

	if err := h.registry.SetSelection(r.Context(), req.Kind, req.ClonedID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	settings, err := h.registry.Settings(r.Context())
	if err != nil {
		h.log.Error("failed to reload voice settings", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to load settings")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (h *VoiceHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PromptProcessing *bool   `json:"promptProcessing"`
		OutputDeviceID   *string `json:"outputDeviceId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}

	settings, err := h.registry.UpdateSettings(r.Context(), req.PromptProcessing, req.OutputDeviceID)
	if err != nil {
		h.log.Error("failed to update voice settings", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to update settings")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}
