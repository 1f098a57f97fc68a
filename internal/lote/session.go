package lote

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"ComissoesCorpApp/internal/escopo"
)

// State is one phase of a batch-edit session. Applied and Failed are
// terminal; every other state may be cancelled back to Idle.
type State string

const (
	StateIdle             State = "idle"
	StateConfiguring      State = "configuring"
	StatePreviewRequested State = "preview_requested"
	StatePreviewReady     State = "preview_ready"
	StateApplying         State = "applying"
	StateApplied          State = "applied"
	StateFailed           State = "failed"
)

var (
	ErrTransicaoInvalida = errors.New("invalid session state transition")
	ErrSessaoEncerrada   = errors.New("session is in a terminal state")
	ErrSemPreview        = errors.New("apply requires a completed dry run")
)

// Session tracks one batch edit from configuration through apply. Every
// reconfiguration bumps the generation counter so dry-run responses computed
// against a stale configuration are discarded instead of surfacing.
type Session struct {
	ID  string
	Aba string

	mu        sync.Mutex
	state     State
	scope     escopo.Scope
	action    BatchAction
	preview   *DryRunResult
	gen       int
	updatedAt time.Time
}

func newSession(aba string) *Session {
	return &Session{
		ID:        uuid.NewString(),
		Aba:       aba,
		state:     StateIdle,
		updatedAt: time.Now(),
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot returns the current scope, action and preview without exposing the
// session's internals for mutation.
func (s *Session) Snapshot() (escopo.Scope, BatchAction, *DryRunResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	scope := make(escopo.Scope, len(s.scope))
	for f, vals := range s.scope {
		scope[f] = append([]string(nil), vals...)
	}
	return scope, s.action, s.preview
}

// Configure (re)binds the scope and action. Allowed from Idle, Configuring
// and PreviewReady; any previously computed preview is invalidated and late
// dry-run responses for the old configuration are dropped.
func (s *Session) Configure(scope escopo.Scope, action BatchAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateIdle, StateConfiguring, StatePreviewReady:
	default:
		return ErrTransicaoInvalida
	}
	s.scope = scope
	s.action = action
	s.preview = nil
	s.gen++
	s.state = StateConfiguring
	s.updatedAt = time.Now()
	return nil
}

// beginPreview moves Configuring -> PreviewRequested and returns the
// generation the dry run must match on completion.
func (s *Session) beginPreview() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateConfiguring && s.state != StatePreviewReady {
		return 0, ErrTransicaoInvalida
	}
	s.state = StatePreviewRequested
	s.updatedAt = time.Now()
	return s.gen, nil
}

// completePreview installs a dry-run result. A result computed under an older
// generation, or arriving after a cancel, is silently dropped.
func (s *Session) completePreview(gen int, result *DryRunResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || s.state != StatePreviewRequested {
		return false
	}
	s.preview = result
	s.state = StatePreviewReady
	s.updatedAt = time.Now()
	return true
}

// failPreview returns the session to Configuring so the caller can retry.
func (s *Session) failPreview(gen int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || s.state != StatePreviewRequested {
		return
	}
	s.state = StateConfiguring
	s.updatedAt = time.Now()
}

// beginApply gates the apply path: only a session holding a fresh preview may
// proceed.
func (s *Session) beginApply() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePreviewReady {
		if s.state == StateApplied || s.state == StateFailed {
			return ErrSessaoEncerrada
		}
		return ErrSemPreview
	}
	s.state = StateApplying
	s.updatedAt = time.Now()
	return nil
}

func (s *Session) finishApply(ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateApplying {
		return
	}
	if ok {
		s.state = StateApplied
	} else {
		s.state = StateFailed
	}
	s.updatedAt = time.Now()
}

// Cancel resets the session to Idle from any non-terminal state and bumps the
// generation so in-flight work for the old configuration is discarded.
func (s *Session) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateApplied || s.state == StateFailed {
		return ErrSessaoEncerrada
	}
	s.state = StateIdle
	s.scope = nil
	s.action = BatchAction{}
	s.preview = nil
	s.gen++
	s.updatedAt = time.Now()
	return nil
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// Manager is the in-memory session registry. Sessions idle past the timeout
// are reaped by the scheduled sweep.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	timeout  time.Duration
}

func NewManager(timeout time.Duration) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		timeout:  timeout,
	}
}

func (m *Manager) Create(aba string) *Session {
	s := newSession(aba)
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

func (m *Manager) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// Sweep drops sessions idle past the timeout and returns how many were
// removed.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, s := range m.sessions {
		if time.Since(s.idleSince()) > m.timeout {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// SessionSummary is the listing view of one live session.
type SessionSummary struct {
	ID        string    `json:"session_id"`
	Aba       string    `json:"aba"`
	State     State     `json:"estado"`
	UpdatedAt time.Time `json:"atualizado_em"`
}

// List returns a summary of every live session, most recently touched first.
func (m *Manager) List() []SessionSummary {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	out := make([]SessionSummary, 0, len(sessions))
	for _, s := range sessions {
		s.mu.Lock()
		out = append(out, SessionSummary{
			ID:        s.ID,
			Aba:       s.Aba,
			State:     s.state,
			UpdatedAt: s.updatedAt,
		})
		s.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
