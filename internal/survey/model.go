package survey

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("survey not found")

// maxRecordingTimes caps how many recent recording durations a response keeps.
const maxRecordingTimes = 5

// Survey is one submitted feedback response. Immutable once stored, except
// for admin deletion.
type Survey struct {
	ID                  string    `json:"id"`
	Rating              int       `json:"rating"`
	EaseOfUse           *int      `json:"easeOfUse"`
	PositiveFeedback    string    `json:"positiveFeedback"`
	ImprovementFeedback string    `json:"improvementFeedback"`
	RecordingTimes      []int     `json:"recordingTimes"`
	CreatedAt           time.Time `json:"createdAt"`
}

// DurationStats summarizes all recording durations across responses.
// HasData distinguishes "no recordings at all" from a zero-length minimum.
type DurationStats struct {
	HasData bool    `json:"hasData"`
	Count   int     `json:"count"`
	Min     int     `json:"min"`
	Max     int     `json:"max"`
	Avg     float64 `json:"avg"`
}
