package speech

import "context"

// RefineResult carries the cleaned transcript together with the length
// bookkeeping the refinement endpoint reports back.
type RefineResult struct {
	Text            string
	OriginalLength  int
	ProcessedLength int
}

// CreateModelResult is the outcome of a voice-cloning submission.
type CreateModelResult struct {
	ModelID string
	Status  string
}

type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

type Refiner interface {
	Refine(ctx context.Context, text string) (RefineResult, error)
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text, modelID string) ([]byte, error)
}

type Cloner interface {
	CreateModel(ctx context.Context, audio []byte, transcript string) (CreateModelResult, error)
}
