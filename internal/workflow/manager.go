package workflow

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"voice-mirror/internal/speech"
)

// Manager owns the live sessions. Sessions are in-memory only and die with
// the process.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Orchestrator

	stt    speech.Transcriber
	refine speech.Refiner
	tts    speech.Synthesizer
	voices Voices
	log    *zap.Logger
}

func NewManager(stt speech.Transcriber, refine speech.Refiner, tts speech.Synthesizer, voices Voices, log *zap.Logger) *Manager {
	return &Manager{
		sessions: make(map[string]*Orchestrator),
		stt:      stt,
		refine:   refine,
		tts:      tts,
		voices:   voices,
		log:      log,
	}
}

func (m *Manager) Create() *Orchestrator {
	o := newOrchestrator(uuid.NewString(), m.stt, m.refine, m.tts, m.voices, m.log)

	m.mu.Lock()
	m.sessions[o.ID()] = o
	m.mu.Unlock()

	return o
}

func (m *Manager) Get(id string) (*Orchestrator, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	o, ok := m.sessions[id]
	return o, ok
}

func (m *Manager) Remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}
