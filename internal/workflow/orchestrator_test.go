package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"voice-mirror/internal/speech"
	"voice-mirror/internal/voice"
)

type fakeSTT struct {
	text    string
	err     error
	calls   int
	started chan struct{}
	release chan struct{}
}

func (f *fakeSTT) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	f.calls++
	if f.started != nil {
		close(f.started)
	}
	if f.release != nil {
		<-f.release
	}
	return f.text, f.err
}

type fakeRefiner struct {
	text  string
	err   error
	calls int
}

func (f *fakeRefiner) Refine(ctx context.Context, text string) (speech.RefineResult, error) {
	f.calls++
	if f.err != nil {
		return speech.RefineResult{}, f.err
	}
	return speech.RefineResult{Text: f.text, OriginalLength: len(text), ProcessedLength: len(f.text)}, nil
}

type fakeTTS struct {
	audio     []byte
	err       error
	calls     int
	lastText  string
	lastModel string
	started   chan struct{}
	release   chan struct{}
}

func (f *fakeTTS) Synthesize(ctx context.Context, text, modelID string) ([]byte, error) {
	f.calls++
	f.lastText = text
	f.lastModel = modelID
	if f.started != nil {
		close(f.started)
	}
	if f.release != nil {
		<-f.release
	}
	return f.audio, f.err
}

type fakeVoices struct {
	modelID string
	refine  bool
}

func (f *fakeVoices) ResolveActiveModelID(ctx context.Context) (string, error) {
	return f.modelID, nil
}

func (f *fakeVoices) PromptProcessingEnabled(ctx context.Context) (bool, error) {
	return f.refine, nil
}

type testClock struct {
	t time.Time
}

func (c *testClock) Now() time.Time          { return c.t }
func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestOrchestrator(stt speech.Transcriber, refine speech.Refiner, tts speech.Synthesizer, voices Voices) (*Orchestrator, *testClock) {
	o := newOrchestrator("test-session", stt, refine, tts, voices, zap.NewNop())
	clock := &testClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	o.now = clock.Now
	return o, clock
}

func TestRecordingDurationIsWallClockSeconds(t *testing.T) {
	o, clock := newTestOrchestrator(&fakeSTT{text: "hi"}, &fakeRefiner{}, &fakeTTS{}, &fakeVoices{})

	o.StartRecording()
	clock.Advance(10*time.Second + 400*time.Millisecond)
	require.NoError(t, o.StopRecording(context.Background(), []byte("audio"), "audio/webm"))

	snap := o.Snapshot()
	assert.Equal(t, 10, snap.DurationSeconds)
	assert.Equal(t, []int{10}, snap.RecentDurations)
}

func TestTranscriptionSuccessKeepsServiceTextVerbatim(t *testing.T) {
	o, _ := newTestOrchestrator(&fakeSTT{text: "  hello, World "}, &fakeRefiner{}, &fakeTTS{}, &fakeVoices{})

	o.StartRecording()
	require.NoError(t, o.StopRecording(context.Background(), []byte("audio"), ""))

	snap := o.Snapshot()
	assert.Equal(t, StepReady, snap.Step)
	assert.Equal(t, "  hello, World ", snap.Transcript)
	assert.Empty(t, snap.LastError)
}

func TestTranscriptionFailureLeavesTranscriptEmpty(t *testing.T) {
	o, _ := newTestOrchestrator(&fakeSTT{err: errors.New("boom")}, &fakeRefiner{}, &fakeTTS{}, &fakeVoices{})

	o.StartRecording()
	require.NoError(t, o.StopRecording(context.Background(), []byte("audio"), ""))

	snap := o.Snapshot()
	assert.Equal(t, StepReady, snap.Step)
	assert.Empty(t, snap.Transcript)
	assert.NotEmpty(t, snap.LastError)
}

func TestStopWithoutStartIsRejected(t *testing.T) {
	o, _ := newTestOrchestrator(&fakeSTT{}, &fakeRefiner{}, &fakeTTS{}, &fakeVoices{})

	err := o.StopRecording(context.Background(), []byte("audio"), "")
	assert.ErrorIs(t, err, ErrNotRecording)
}

func TestSynthesisUsesRawTextAndSelectedModel(t *testing.T) {
	tts := &fakeTTS{audio: []byte("mp3")}
	o, _ := newTestOrchestrator(&fakeSTT{text: "hello world"}, &fakeRefiner{}, tts, &fakeVoices{modelID: "abc123"})

	o.StartRecording()
	require.NoError(t, o.StopRecording(context.Background(), []byte("audio"), ""))
	require.NoError(t, o.EnsureSynthesis(context.Background()))

	assert.Equal(t, 1, tts.calls)
	assert.Equal(t, "hello world", tts.lastText)
	assert.Equal(t, "abc123", tts.lastModel)
	assert.True(t, o.Snapshot().HasSynthesis)

	// Cached: a second call must not hit the provider again.
	require.NoError(t, o.EnsureSynthesis(context.Background()))
	assert.Equal(t, 1, tts.calls)
}

func TestVoiceChangeInvalidatesSynthesis(t *testing.T) {
	tts := &fakeTTS{audio: []byte("mp3")}
	o, _ := newTestOrchestrator(&fakeSTT{text: "hi"}, &fakeRefiner{}, tts, &fakeVoices{modelID: "abc123"})

	o.StartRecording()
	require.NoError(t, o.StopRecording(context.Background(), []byte("audio"), ""))
	o.SetVoiceSelection(Selection{Kind: voice.KindMale})
	require.NoError(t, o.EnsureSynthesis(context.Background()))
	require.True(t, o.Snapshot().HasSynthesis)

	// Same value: cache stays.
	o.SetVoiceSelection(Selection{Kind: voice.KindMale})
	assert.True(t, o.Snapshot().HasSynthesis)

	// Different value: cache released.
	o.SetVoiceSelection(Selection{Kind: voice.KindFemale})
	assert.False(t, o.Snapshot().HasSynthesis)

	require.NoError(t, o.EnsureSynthesis(context.Background()))
	assert.Equal(t, 2, tts.calls)
}

func TestVoiceChangeDuringSynthesisDropsResult(t *testing.T) {
	tts := &fakeTTS{audio: []byte("old-voice-audio"), started: make(chan struct{}), release: make(chan struct{})}
	o, _ := newTestOrchestrator(&fakeSTT{text: "hi"}, &fakeRefiner{}, tts, &fakeVoices{modelID: "model-a"})

	o.StartRecording()
	require.NoError(t, o.StopRecording(context.Background(), []byte("audio"), ""))
	o.SetVoiceSelection(Selection{Kind: voice.KindMale})

	done := make(chan error, 1)
	go func() { done <- o.EnsureSynthesis(context.Background()) }()

	// Switch voices while the provider call is in flight.
	<-tts.started
	o.SetVoiceSelection(Selection{Kind: voice.KindFemale})
	close(tts.release)

	assert.ErrorIs(t, <-done, ErrSuperseded)

	snap := o.Snapshot()
	assert.Equal(t, StepReady, snap.Step)
	assert.False(t, snap.HasSynthesis)
	_, ok := o.MirroredAudio()
	assert.False(t, ok)
}

func TestCachedSynthesisRegeneratesWhenResolvedModelChanges(t *testing.T) {
	tts := &fakeTTS{audio: []byte("audio-a")}
	voices := &fakeVoices{modelID: "model-a"}
	o, _ := newTestOrchestrator(&fakeSTT{text: "hi"}, &fakeRefiner{}, tts, voices)

	o.StartRecording()
	require.NoError(t, o.StopRecording(context.Background(), []byte("audio"), ""))
	require.NoError(t, o.EnsureSynthesis(context.Background()))
	require.Equal(t, 1, tts.calls)
	require.Equal(t, "model-a", tts.lastModel)

	// The registry now resolves to a different model (selection changed
	// through the settings surface, not through this session).
	voices.modelID = "model-b"
	tts.audio = []byte("audio-b")

	require.NoError(t, o.EnsureSynthesis(context.Background()))
	assert.Equal(t, 2, tts.calls)
	assert.Equal(t, "model-b", tts.lastModel)

	audio, ok := o.MirroredAudio()
	require.True(t, ok)
	assert.Equal(t, []byte("audio-b"), audio)
}

func TestRefinementFeedsSynthesis(t *testing.T) {
	refiner := &fakeRefiner{text: "hello world"}
	tts := &fakeTTS{audio: []byte("mp3")}
	o, _ := newTestOrchestrator(&fakeSTT{text: "um, hello world"}, refiner, tts, &fakeVoices{modelID: "m1", refine: true})

	o.StartRecording()
	require.NoError(t, o.StopRecording(context.Background(), []byte("audio"), ""))
	require.NoError(t, o.EnsureSynthesis(context.Background()))

	assert.Equal(t, 1, refiner.calls)
	assert.Equal(t, "hello world", tts.lastText)
	assert.Equal(t, "hello world", o.Snapshot().RefinedTranscript)
}

func TestRefinementFailureFallsBackToRaw(t *testing.T) {
	refiner := &fakeRefiner{err: errors.New("llm down")}
	tts := &fakeTTS{audio: []byte("mp3")}
	o, _ := newTestOrchestrator(&fakeSTT{text: "um, hello"}, refiner, tts, &fakeVoices{modelID: "m1", refine: true})

	o.StartRecording()
	require.NoError(t, o.StopRecording(context.Background(), []byte("audio"), ""))
	require.NoError(t, o.EnsureSynthesis(context.Background()))

	assert.Equal(t, "um, hello", tts.lastText)
	assert.True(t, o.Snapshot().HasSynthesis)
}

func TestSynthesisFailureIsRecoverable(t *testing.T) {
	tts := &fakeTTS{err: errors.New("tts down")}
	o, _ := newTestOrchestrator(&fakeSTT{text: "hi"}, &fakeRefiner{}, tts, &fakeVoices{modelID: "m1"})

	o.StartRecording()
	require.NoError(t, o.StopRecording(context.Background(), []byte("audio"), ""))
	require.Error(t, o.EnsureSynthesis(context.Background()))

	snap := o.Snapshot()
	assert.Equal(t, StepReady, snap.Step)
	assert.False(t, snap.HasSynthesis)
	assert.NotEmpty(t, snap.LastError)

	// Retry works without re-recording.
	tts.err = nil
	tts.audio = []byte("mp3")
	require.NoError(t, o.EnsureSynthesis(context.Background()))
	assert.True(t, o.Snapshot().HasSynthesis)
	assert.Empty(t, o.Snapshot().LastError)
}

func TestNoVoiceModelSelected(t *testing.T) {
	o, _ := newTestOrchestrator(&fakeSTT{text: "hi"}, &fakeRefiner{}, &fakeTTS{}, &fakeVoices{modelID: ""})

	o.StartRecording()
	require.NoError(t, o.StopRecording(context.Background(), []byte("audio"), ""))

	err := o.EnsureSynthesis(context.Background())
	require.Error(t, err)
	assert.NotEmpty(t, o.Snapshot().LastError)
}

func TestStaleSynthesisDoesNotOverwriteNewPass(t *testing.T) {
	tts := &fakeTTS{audio: []byte("stale"), started: make(chan struct{}), release: make(chan struct{})}
	o, _ := newTestOrchestrator(&fakeSTT{text: "hi"}, &fakeRefiner{}, tts, &fakeVoices{modelID: "m1"})

	o.StartRecording()
	require.NoError(t, o.StopRecording(context.Background(), []byte("audio"), ""))

	done := make(chan error, 1)
	go func() { done <- o.EnsureSynthesis(context.Background()) }()

	// Wait until the provider call is in flight, then supersede it.
	<-tts.started
	o.StartRecording()
	close(tts.release)

	assert.ErrorIs(t, <-done, ErrSuperseded)

	snap := o.Snapshot()
	assert.Equal(t, StepRecording, snap.Step)
	assert.False(t, snap.HasSynthesis)
}

func TestStaleTranscriptionDoesNotOverwriteNewPass(t *testing.T) {
	stt := &fakeSTT{text: "stale text", started: make(chan struct{}), release: make(chan struct{})}
	o, _ := newTestOrchestrator(stt, &fakeRefiner{}, &fakeTTS{}, &fakeVoices{})

	o.StartRecording()

	done := make(chan error, 1)
	go func() { done <- o.StopRecording(context.Background(), []byte("audio"), "") }()

	<-stt.started
	o.StartRecording()
	close(stt.release)

	assert.ErrorIs(t, <-done, ErrSuperseded)
	assert.Empty(t, o.Snapshot().Transcript)
}

func TestRecentDurationsKeepLastFive(t *testing.T) {
	o, clock := newTestOrchestrator(&fakeSTT{text: "hi"}, &fakeRefiner{}, &fakeTTS{}, &fakeVoices{})

	for i := 1; i <= 7; i++ {
		o.StartRecording()
		clock.Advance(time.Duration(i) * time.Second)
		require.NoError(t, o.StopRecording(context.Background(), []byte("audio"), ""))
	}

	assert.Equal(t, []int{3, 4, 5, 6, 7}, o.RecentDurations())
}

func TestStartRecordingResetsArtifacts(t *testing.T) {
	tts := &fakeTTS{audio: []byte("mp3")}
	o, _ := newTestOrchestrator(&fakeSTT{text: "hi"}, &fakeRefiner{}, tts, &fakeVoices{modelID: "m1"})

	o.StartRecording()
	require.NoError(t, o.StopRecording(context.Background(), []byte("audio"), ""))
	require.NoError(t, o.EnsureSynthesis(context.Background()))

	o.StartRecording()

	snap := o.Snapshot()
	assert.Equal(t, StepRecording, snap.Step)
	assert.False(t, snap.HasRecording)
	assert.Empty(t, snap.Transcript)
	assert.False(t, snap.HasSynthesis)
	assert.Empty(t, snap.LastError)
}
