package delivery

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"voice-mirror/internal/speech"
)

// SpeechHandler exposes the raw provider-proxy endpoints.
type SpeechHandler struct {
	svc       *speech.Service
	maxUpload int64
	log       *zap.Logger
}

func NewSpeechHandler(svc *speech.Service, maxUpload int64, log *zap.Logger) *SpeechHandler {
	return &SpeechHandler{
		svc:       svc,
		maxUpload: maxUpload,
		log:       log,
	}
}

func (h *SpeechHandler) readAudioForm(r *http.Request) ([]byte, string, error) {
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		return nil, "", fmt.Errorf("invalid multipart: %w", err)
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		return nil, "", err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUpload))
	if err != nil {
		return nil, "", fmt.Errorf("read audio: %w", err)
	}
	return data, header.Filename, nil
}

func (h *SpeechHandler) Transcribe(w http.ResponseWriter, r *http.Request) {
	audio, filename, err := h.readAudioForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "No audio file provided")
		return
	}

	text, err := h.svc.Transcribe(r.Context(), audio, filename)
	if err != nil {
		h.log.Error("transcription failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to transcribe audio")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

func (h *SpeechHandler) RefineTranscript(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
		writeError(w, http.StatusBadRequest, "Text is required")
		return
	}

	res, err := h.svc.Refine(r.Context(), req.Text)
	if err != nil {
		h.log.Error("transcript refinement failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to process transcript")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"processedText":   res.Text,
		"originalLength":  res.OriginalLength,
		"processedLength": res.ProcessedLength,
	})
}

func (h *SpeechHandler) Synthesize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text    string `json:"text"`
		ModelID string `json:"modelId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "Text is required")
		return
	}
	if req.ModelID == "" {
		writeError(w, http.StatusBadRequest, "Model ID is required")
		return
	}

	audio, err := h.svc.Synthesize(r.Context(), req.Text, req.ModelID)
	if err != nil {
		h.log.Error("synthesis failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to generate speech")
		return
	}

	writeAudio(w, audio)
}

func (h *SpeechHandler) CreateVoiceModel(w http.ResponseWriter, r *http.Request) {
	audio, _, err := h.readAudioForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "No audio provided")
		return
	}
	transcription := r.FormValue("transcription")

	res, err := h.svc.CreateModel(r.Context(), audio, transcription)
	if err != nil {
		h.log.Error("voice model creation failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to create voice model")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"modelId": res.ModelID,
		"status":  res.Status,
	})
}

func writeAudio(w http.ResponseWriter, audio []byte) {
	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(audio)))
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Content-Disposition", `inline; filename="tts-audio.mp3"`)
	w.Write(audio)
}
