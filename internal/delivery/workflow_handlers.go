package delivery

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"voice-mirror/internal/voice"
	"voice-mirror/internal/workflow"
)

// WorkflowHandler drives the session pipeline over HTTP.
type WorkflowHandler struct {
	manager   *workflow.Manager
	registry  *voice.Registry
	maxUpload int64
	log       *zap.Logger
}

func NewWorkflowHandler(manager *workflow.Manager, registry *voice.Registry, maxUpload int64, log *zap.Logger) *WorkflowHandler {
	return &WorkflowHandler{
		manager:   manager,
		registry:  registry,
		maxUpload: maxUpload,
		log:       log,
	}
}

// CreateSession opens a new session seeded with the persisted voice selection.
func (h *WorkflowHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	o := h.manager.Create()

	if s, err := h.registry.Settings(r.Context()); err != nil {
		h.log.Warn("failed to seed session selection", zap.Error(err))
	} else {
		sel := workflow.Selection{Kind: s.Kind}
		if s.Kind == voice.KindCloned && s.SelectedClonedID != nil {
			sel.ClonedID = *s.SelectedClonedID
		}
		o.SetVoiceSelection(sel)
	}

	writeJSON(w, http.StatusCreated, o.Snapshot())
}

func (h *WorkflowHandler) session(w http.ResponseWriter, r *http.Request) (*workflow.Orchestrator, bool) {
	id := chi.URLParam(r, "id")
	o, ok := h.manager.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Session not found")
		return nil, false
	}
	return o, true
}

func (h *WorkflowHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	o, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, o.Snapshot())
}

func (h *WorkflowHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.manager.Remove(id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *WorkflowHandler) StartRecording(w http.ResponseWriter, r *http.Request) {
	o, ok := h.session(w, r)
	if !ok {
		return
	}
	o.StartRecording()
	writeJSON(w, http.StatusOK, o.Snapshot())
}

// StopRecording accepts the captured audio and runs transcription inline. A
// 409 means a newer recording superseded this one mid-flight.
func (h *WorkflowHandler) StopRecording(w http.ResponseWriter, r *http.Request) {
	o, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		writeError(w, http.StatusBadRequest, "No audio file provided")
		return
	}
	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No audio file provided")
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(io.LimitReader(file, h.maxUpload))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read audio: "+err.Error())
		return
	}

	err = o.StopRecording(r.Context(), audio, header.Header.Get("Content-Type"))
	switch {
	case errors.Is(err, workflow.ErrNotRecording):
		writeError(w, http.StatusConflict, "Session is not recording")
		return
	case errors.Is(err, workflow.ErrSuperseded):
		writeError(w, http.StatusConflict, "Recording was superseded by a newer one")
		return
	case err != nil:
		h.log.Error("stop recording failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to process recording")
		return
	}

	writeJSON(w, http.StatusOK, o.Snapshot())
}

// Synthesize ensures the mirrored audio exists for the current transcript and
// voice, then reports the session state. The audio itself is fetched from the
// audio/mirrored endpoint.
func (h *WorkflowHandler) Synthesize(w http.ResponseWriter, r *http.Request) {
	o, ok := h.session(w, r)
	if !ok {
		return
	}

	err := o.EnsureSynthesis(r.Context())
	switch {
	case errors.Is(err, workflow.ErrNotReady):
		writeError(w, http.StatusConflict, "Session has no transcribed recording")
		return
	case errors.Is(err, workflow.ErrNoTranscript):
		writeError(w, http.StatusConflict, "Transcription is missing")
		return
	case errors.Is(err, workflow.ErrNoVoiceModel):
		writeError(w, http.StatusConflict, "No voice model selected")
		return
	case errors.Is(err, workflow.ErrSuperseded):
		writeError(w, http.StatusConflict, "Synthesis was superseded by a newer recording")
		return
	case err != nil:
		h.log.Error("synthesis failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to generate speech")
		return
	}

	writeJSON(w, http.StatusOK, o.Snapshot())
}

// SetVoice persists the selection in the registry and mirrors it into the
// session, releasing the cached synthesis when the value changed.
func (h *WorkflowHandler) SetVoice(w http.ResponseWriter, r *http.Request) {
	o, ok := h.session(w, r)
	if !ok {
		return
	}

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

	sel := workflow.Selection{Kind: req.Kind}
	if req.Kind == voice.KindCloned {
		if req.ClonedID != nil {
			sel.ClonedID = *req.ClonedID
		} else if s, err := h.registry.Settings(r.Context()); err == nil && s.SelectedClonedID != nil {
			sel.ClonedID = *s.SelectedClonedID
		}
	}
	o.SetVoiceSelection(sel)

	writeJSON(w, http.StatusOK, o.Snapshot())
}

func (h *WorkflowHandler) OriginalAudio(w http.ResponseWriter, r *http.Request) {
	o, ok := h.session(w, r)
	if !ok {
		return
	}

	data, contentType, found := o.OriginalAudio()
	if !found {
		writeError(w, http.StatusNotFound, "No recording available")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(data)))
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(data)
}

func (h *WorkflowHandler) MirroredAudio(w http.ResponseWriter, r *http.Request) {
	o, ok := h.session(w, r)
	if !ok {
		return
	}

	data, found := o.MirroredAudio()
	if !found {
		writeError(w, http.StatusNotFound, "No synthesized audio available")
		return
	}

	writeAudio(w, data)
}
