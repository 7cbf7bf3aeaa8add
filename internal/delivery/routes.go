package delivery

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"
)

func RegisterRoutes(
	r chi.Router,
	hSpeech *SpeechHandler,
	hWorkflow *WorkflowHandler,
	hVoice *VoiceHandler,
	hSurvey *SurveyHandler,
	ratePerMinute int,
	log *zap.Logger,
) {
	r.Use(RecoverMiddleware(log))

	// --- provider proxies (rate limited, they spend provider credits) ---
	r.Group(func(pr chi.Router) {
		pr.Use(httprate.LimitByIP(ratePerMinute, time.Minute))

		pr.Post("/transcribe", hSpeech.Transcribe)
		pr.Post("/refine-transcript", hSpeech.RefineTranscript)
		pr.Post("/synthesize", hSpeech.Synthesize)
		pr.Post("/create-voice-model", hSpeech.CreateVoiceModel)
	})

	// --- sessions ---
	r.Post("/session", hWorkflow.CreateSession)
	r.Get("/session/{id}", hWorkflow.GetSession)
	r.Delete("/session/{id}", hWorkflow.DeleteSession)
	r.Post("/session/{id}/recording/start", hWorkflow.StartRecording)
	r.Post("/session/{id}/recording/stop", hWorkflow.StopRecording)
	r.Post("/session/{id}/synthesize", hWorkflow.Synthesize)
	r.Put("/session/{id}/voice", hWorkflow.SetVoice)
	r.Get("/session/{id}/audio/original", hWorkflow.OriginalAudio)
	r.Get("/session/{id}/audio/mirrored", hWorkflow.MirroredAudio)

	// --- voices ---
	r.Get("/voices", hVoice.List)
	r.Post("/voices/cloned", hVoice.CreateCloned)
	r.Delete("/voices/cloned/{id}", hVoice.DeleteCloned)
	r.Put("/voices/selection", hVoice.SetSelection)
	r.Patch("/voices/settings", hVoice.UpdateSettings)

	// --- surveys ---
	r.Post("/surveys", hSurvey.Submit)
	r.Get("/surveys", hSurvey.List)
	r.Get("/surveys/stats", hSurvey.Stats)
	r.Get("/surveys/{id}", hSurvey.Get)
	r.Delete("/surveys/{id}", hSurvey.Delete)
}
