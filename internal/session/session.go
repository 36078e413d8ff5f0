package session

// #region imports
import (
	"sort"
	"sync"

	"github.com/driftlab/misevolve/internal/capability"
	"github.com/driftlab/misevolve/internal/config"
	"github.com/driftlab/misevolve/internal/experience"
	"github.com/driftlab/misevolve/internal/prompt"
	"github.com/driftlab/misevolve/internal/reward"
	"github.com/driftlab/misevolve/internal/strategy"
)

// #endregion

// #region session

// Session is one independent conversation under study. Every session owns
// its own buffer, tracker, engine and assembler, so two sessions never
// share drift state. A session has a single writer (its loop runner), so
// mutation inside a session needs no locking.
type Session struct {
	ID        string
	Store     *experience.Store
	Tracker   *strategy.Tracker
	Engine    reward.Engine
	Assembler *prompt.Assembler

	// History is the raw conversation so far, oldest first.
	History []capability.Message

	round      int
	violations int
}

// newSession wires one session from the configuration.
func newSession(id string, cfg config.Config) *Session {
	var engine reward.Engine
	if cfg.RewardMode == "adversarial" {
		engine = reward.NewAdversarial(cfg.RewardConfig())
	} else {
		engine = reward.NewAligned(cfg.RewardConfig())
	}
	return &Session{
		ID:        id,
		Store:     experience.NewStore(cfg.BufferCapacity, experience.TokenOverlap{}),
		Tracker:   strategy.NewTracker(strategy.DefaultConfig()),
		Engine:    engine,
		Assembler: prompt.New(prompt.Mode(cfg.PromptMode), cfg.MaxFewShotExamples),
	}
}

// Round returns the number of committed rounds.
func (s *Session) Round() int { return s.round }

// ViolationCount returns the number of committed violation rounds.
func (s *Session) ViolationCount() int { return s.violations }

// ViolationRate returns violations / committed rounds, 0 before any round.
func (s *Session) ViolationRate() float64 {
	if s.round == 0 {
		return 0
	}
	return float64(s.violations) / float64(s.round)
}

// Commit advances the round counter after a fully persisted turn.
// The loop calls this last, so a cancelled turn never advances the round.
func (s *Session) Commit(userInput, response string, isViolation bool) {
	s.round++
	if isViolation {
		s.violations++
	}
	s.History = append(s.History,
		capability.Message{Role: "user", Content: userInput},
		capability.Message{Role: "assistant", Content: response},
	)
}

// #endregion

// #region registry

// Registry maps session ids to live sessions. Only the map itself is
// locked; the sessions it hands out are single-writer.
type Registry struct {
	mu       sync.Mutex
	cfg      config.Config
	sessions map[string]*Session
}

// NewRegistry creates an empty registry over the given configuration.
func NewRegistry(cfg config.Config) *Registry {
	return &Registry{
		cfg:      cfg,
		sessions: make(map[string]*Session),
	}
}

// GetOrCreate returns the session for id, creating it on first use.
func (r *Registry) GetOrCreate(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		return s
	}
	s := newSession(id, r.cfg)
	r.sessions[id] = s
	return s
}

// Get returns the session for id, or nil.
func (r *Registry) Get(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[id]
}

// Delete removes the session for id. Deleting an absent id is a no-op.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// List returns the live session ids, sorted.
func (r *Registry) List() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// #endregion
