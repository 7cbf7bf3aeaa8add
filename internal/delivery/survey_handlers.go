package delivery

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"voice-mirror/internal/survey"
)

// SurveyHandler serves the feedback form and the admin dashboard aggregates.
type SurveyHandler struct {
	svc *survey.Service
	log *zap.Logger
}

func NewSurveyHandler(svc *survey.Service, log *zap.Logger) *SurveyHandler {
	return &SurveyHandler{svc: svc, log: log}
}

func (h *SurveyHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Rating              int    `json:"rating"`
		EaseOfUse           *int   `json:"easeOfUse"`
		PositiveFeedback    string `json:"positiveFeedback"`
		ImprovementFeedback string `json:"improvementFeedback"`
		RecordingTimes      []int  `json:"recordingTimes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}

	id, err := h.svc.Submit(r.Context(), req.Rating, req.EaseOfUse, req.PositiveFeedback, req.ImprovementFeedback, req.RecordingTimes)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *SurveyHandler) List(w http.ResponseWriter, r *http.Request) {
	var limit int64
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	surveys, err := h.svc.ListAll(r.Context(), limit)
	if err != nil {
		h.log.Error("failed to list surveys", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to load surveys")
		return
	}
	if surveys == nil {
		surveys = []survey.Survey{}
	}
	writeJSON(w, http.StatusOK, surveys)
}

func (h *SurveyHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s, err := h.svc.GetByID(r.Context(), id)
	if errors.Is(err, survey.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Survey not found")
		return
	}
	if err != nil {
		h.log.Error("failed to load survey", zap.String("survey", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to load survey")
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *SurveyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.svc.DeleteByID(r.Context(), id); err != nil {
		h.log.Error("failed to delete survey", zap.String("survey", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to delete survey")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Stats returns the dashboard aggregates in one payload.
func (h *SurveyHandler) Stats(w http.ResponseWriter, r *http.Request) {
	avg, err := h.svc.AverageRating(r.Context())
	if err != nil {
		h.log.Error("failed to compute average rating", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to compute stats")
		return
	}
	hist, err := h.svc.RatingHistogram(r.Context())
	if err != nil {
		h.log.Error("failed to compute rating histogram", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to compute stats")
		return
	}
	durations, err := h.svc.RecordingDurationStats(r.Context())
	if err != nil {
		h.log.Error("failed to compute duration stats", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to compute stats")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"averageRating":      avg,
		"ratingHistogram":    hist,
		"recordingDurations": durations,
	})
}
