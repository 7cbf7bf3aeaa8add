package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"voice-mirror/internal/speech"
)

// maxRecentDurations caps the recording-time history attached to surveys.
const maxRecentDurations = 5

var (
	ErrNotRecording = errors.New("session is not recording")
	ErrNotReady     = errors.New("session has no transcribed recording")
	ErrSuperseded   = errors.New("superseded by a newer recording")
	ErrNoVoiceModel = errors.New("no voice model selected")
	ErrNoTranscript = errors.New("transcription is missing")
)

// Voices is the orchestrator's view of the voice registry.
type Voices interface {
	ResolveActiveModelID(ctx context.Context) (string, error)
	PromptProcessingEnabled(ctx context.Context) (bool, error)
}

// Orchestrator drives one session through the pipeline. All state lives
// behind the mutex; provider calls run unlocked and their completions are
// guarded by the pass id so a stale response never lands on a newer pass.
type Orchestrator struct {
	mu sync.Mutex

	id        string
	step      Step
	passID    uint64
	startedAt time.Time

	recording  *Recording
	transcript *Transcript
	selection  Selection
	synthesis  *Synthesis
	lastError  string
	recent     []int

	stt    speech.Transcriber
	refine speech.Refiner
	tts    speech.Synthesizer
	voices Voices

	log *zap.Logger
	now func() time.Time
}

func newOrchestrator(id string, stt speech.Transcriber, refine speech.Refiner, tts speech.Synthesizer, voices Voices, log *zap.Logger) *Orchestrator {
	return &Orchestrator{
		id:     id,
		step:   StepIdle,
		stt:    stt,
		refine: refine,
		tts:    tts,
		voices: voices,
		log:    log.With(zap.String("session", id)),
		now:    time.Now,
	}
}

func (o *Orchestrator) ID() string { return o.id }

// StartRecording enters the recording step from any state. Prior artifacts
// are superseded: in-flight provider calls from the previous pass will find
// a bumped pass id and drop their results.
func (o *Orchestrator) StartRecording() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.passID++
	o.step = StepRecording
	o.startedAt = o.now()
	o.recording = nil
	o.transcript = nil
	o.synthesis = nil
	o.lastError = ""
}

// StopRecording finalizes the recording and immediately transcribes it.
// The step advances to Ready whether transcription succeeded or not; a
// failure leaves the transcript empty and records a user-visible error.
func (o *Orchestrator) StopRecording(ctx context.Context, audio []byte, contentType string) error {
	o.mu.Lock()
	if o.step != StepRecording {
		o.mu.Unlock()
		return ErrNotRecording
	}
	if contentType == "" {
		contentType = "audio/webm"
	}

	duration := int(o.now().Sub(o.startedAt).Seconds())
	if duration < 0 {
		duration = 0
	}

	o.recording = &Recording{
		Data:            audio,
		ContentType:     contentType,
		DurationSeconds: duration,
	}
	o.pushRecent(duration)
	o.step = StepTranscribing
	pass := o.passID
	o.mu.Unlock()

	text, err := o.stt.Transcribe(ctx, audio, "recording.webm")

	o.mu.Lock()
	defer o.mu.Unlock()

	if pass != o.passID {
		o.log.Debug("dropping stale transcription result", zap.Uint64("pass", pass))
		return ErrSuperseded
	}

	o.step = StepReady
	if err != nil {
		o.log.Error("transcription failed", zap.Error(err))
		o.lastError = "Transcription failed. Please try recording again."
		return nil
	}

	o.transcript = &Transcript{Raw: text}
	o.lastError = ""
	return nil
}

// SetVoiceSelection updates the session's active voice. Setting the same
// value again keeps the cached synthesis; a different value releases it so
// the next playback regenerates against the new voice.
func (o *Orchestrator) SetVoiceSelection(sel Selection) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if sel == o.selection {
		return
	}
	o.selection = sel
	o.synthesis = nil
}

// EnsureSynthesis produces the mirrored audio for the current transcript and
// voice. A cached result is reused only when it was generated for the model
// the registry resolves to right now. Refinement runs first when enabled; its
// failure is non-fatal and falls back to the raw transcript.
func (o *Orchestrator) EnsureSynthesis(ctx context.Context) error {
	o.mu.Lock()
	if o.step != StepReady {
		o.mu.Unlock()
		return ErrNotReady
	}
	if o.transcript == nil || o.transcript.Raw == "" {
		o.mu.Unlock()
		return ErrNoTranscript
	}
	pass := o.passID
	sel := o.selection
	raw := o.transcript.Raw
	refined := o.transcript.Refined
	o.step = StepSynthesizing
	o.mu.Unlock()

	modelID, err := o.voices.ResolveActiveModelID(ctx)
	if err == nil && modelID == "" {
		err = ErrNoVoiceModel
	}
	if err != nil {
		return o.finishSynthesis(pass, sel, nil, "", err)
	}

	o.mu.Lock()
	if pass != o.passID {
		o.mu.Unlock()
		return ErrSuperseded
	}
	if sel != o.selection {
		o.step = StepReady
		o.mu.Unlock()
		return ErrSuperseded
	}
	if o.synthesis != nil && o.synthesis.ModelID == modelID {
		o.step = StepReady
		o.mu.Unlock()
		return nil
	}
	o.mu.Unlock()

	if refined == "" {
		enabled, perr := o.voices.PromptProcessingEnabled(ctx)
		if perr != nil {
			o.log.Warn("failed to read refinement setting", zap.Error(perr))
		}
		if enabled {
			res, rerr := o.refine.Refine(ctx, raw)
			if rerr != nil {
				o.log.Warn("transcript refinement failed, using raw text", zap.Error(rerr))
			} else {
				refined = res.Text
				o.mu.Lock()
				if pass == o.passID && o.transcript != nil {
					o.transcript.Refined = refined
				}
				o.mu.Unlock()
			}
		}
	}

	text := raw
	if refined != "" {
		text = refined
	}

	audio, err := o.tts.Synthesize(ctx, text, modelID)
	return o.finishSynthesis(pass, sel, audio, modelID, err)
}

func (o *Orchestrator) finishSynthesis(pass uint64, sel Selection, audio []byte, modelID string, err error) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if pass != o.passID {
		o.log.Debug("dropping stale synthesis result", zap.Uint64("pass", pass))
		return ErrSuperseded
	}
	// A voice change while the call was in flight means this audio belongs to
	// the old selection. Drop it rather than serve it under the new voice.
	if sel != o.selection {
		o.step = StepReady
		o.log.Debug("dropping synthesis result for a superseded voice selection", zap.Uint64("pass", pass))
		return ErrSuperseded
	}

	o.step = StepReady
	if err != nil {
		o.log.Error("synthesis failed", zap.Error(err))
		o.lastError = "Failed to generate speech. Please try again."
		return fmt.Errorf("synthesize: %w", err)
	}

	// Release the previous result before installing the new one.
	o.synthesis = nil
	o.synthesis = &Synthesis{Audio: audio, ModelID: modelID}
	o.lastError = ""
	return nil
}

func (o *Orchestrator) OriginalAudio() ([]byte, string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.recording == nil {
		return nil, "", false
	}
	return o.recording.Data, o.recording.ContentType, true
}

func (o *Orchestrator) MirroredAudio() ([]byte, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.synthesis == nil {
		return nil, false
	}
	return o.synthesis.Audio, true
}

func (o *Orchestrator) RecentDurations() []int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]int(nil), o.recent...)
}

func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	snap := Snapshot{
		ID:              o.id,
		Step:            o.step,
		Selection:       o.selection,
		HasSynthesis:    o.synthesis != nil,
		LastError:       o.lastError,
		RecentDurations: append([]int(nil), o.recent...),
	}
	if o.recording != nil {
		snap.HasRecording = true
		snap.DurationSeconds = o.recording.DurationSeconds
	}
	if o.transcript != nil {
		snap.Transcript = o.transcript.Raw
		snap.RefinedTranscript = o.transcript.Refined
	}
	return snap
}

func (o *Orchestrator) pushRecent(duration int) {
	o.recent = append(o.recent, duration)
	if len(o.recent) > maxRecentDurations {
		o.recent = o.recent[len(o.recent)-maxRecentDurations:]
	}
}
