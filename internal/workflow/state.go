package workflow

import "voice-mirror/internal/voice"

// Step is the single authoritative position of a session in the
// record → transcribe → synthesize pipeline.
type Step string

const (
	StepIdle         Step = "idle"
	StepRecording    Step = "recording"
	StepTranscribing Step = "transcribing"
	StepReady        Step = "ready"
	StepSynthesizing Step = "synthesizing"
)

// Recording is one captured audio buffer. Duration is wall-clock whole
// seconds between start and stop.
type Recording struct {
	Data            []byte
	ContentType     string
	DurationSeconds int
}

// Transcript holds the verbatim transcription and, when refinement ran and
// succeeded, the cleaned version. Synthesis uses Refined when present.
type Transcript struct {
	Raw     string
	Refined string
}

func (t *Transcript) ForSynthesis() string {
	if t == nil {
		return ""
	}
	if t.Refined != "" {
		return t.Refined
	}
	return t.Raw
}

// Synthesis is the cached TTS output for the current (transcript, voice) pair.
type Synthesis struct {
	Audio   []byte
	ModelID string
}

// Selection is the session's view of the active voice. Synthesis is
// invalidated whenever it changes to a different value.
type Selection struct {
	Kind     voice.Kind `json:"voiceModel"`
	ClonedID string     `json:"clonedModelId,omitempty"`
}

// Snapshot is the read-only session state served to clients.
type Snapshot struct {
	ID                string    `json:"sessionId"`
	Step              Step      `json:"step"`
	HasRecording      bool      `json:"hasRecording"`
	DurationSeconds   int       `json:"durationSeconds"`
	Transcript        string    `json:"transcript"`
	RefinedTranscript string    `json:"refinedTranscript,omitempty"`
	Selection         Selection `json:"selection"`
	HasSynthesis      bool      `json:"hasSynthesis"`
	LastError         string    `json:"lastError,omitempty"`
	RecentDurations   []int     `json:"recentDurations"`
}
