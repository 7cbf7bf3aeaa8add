package speech

import (
	"context"
)

// === Single service for the whole speech surface (STT, cleanup, TTS, cloning) ===

type Service struct {
	stt    Transcriber
	refine Refiner
	tts    Synthesizer
	cloner Cloner
}

func NewService(stt Transcriber, refine Refiner, tts Synthesizer, cloner Cloner) *Service {
	return &Service{
		stt:    stt,
		refine: refine,
		tts:    tts,
		cloner: cloner,
	}
}

func (s *Service) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	return s.stt.Transcribe(ctx, audio, filename)
}

func (s *Service) Refine(ctx context.Context, text string) (RefineResult, error) {
	return s.refine.Refine(ctx, text)
}

func (s *Service) Synthesize(ctx context.Context, text, modelID string) ([]byte, error) {
	return s.tts.Synthesize(ctx, text, modelID)
}

func (s *Service) CreateModel(ctx context.Context, audio []byte, transcript string) (CreateModelResult, error) {
	return s.cloner.CreateModel(ctx, audio, transcript)
}
