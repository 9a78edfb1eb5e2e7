package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/codescanai/codescan/internal/analyzer"
	"github.com/codescanai/codescan/internal/models"
	"github.com/codescanai/codescan/internal/services"
)

// analysisTimeout bounds one background analysis run.
const analysisTimeout = 90 * time.Second

// Manager owns the live sessions. Events are applied through the reducer
// under a per-session lock; analyses run in background goroutines and
// report back as Complete/Fail events carrying the Seq captured at start,
// so a run that was superseded cannot clobber newer state.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*entry

	scanner *services.IncrementalScanner
	logger  *slog.Logger
	ttl     time.Duration
	done    chan struct{}
	stop    sync.Once
}

type entry struct {
	mu      sync.Mutex
	state   State
	touched time.Time
}

// NewManager creates the manager and starts its idle-session sweeper.
// Call Stop on shutdown.
func NewManager(scanner *services.IncrementalScanner, ttl time.Duration, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		sessions: make(map[string]*entry),
		scanner:  scanner,
		logger:   logger,
		ttl:      ttl,
		done:     make(chan struct{}),
	}
	go m.sweep()
	return m
}

// Create opens a fresh idle session and returns its id and state.
func (m *Manager) Create() (string, State) {
	id := uuid.New().String()
	state := State{
		Phase:     PhaseIdle,
		UpdatedAt: time.Now(),
	}

	m.mu.Lock()
	m.sessions[id] = &entry{state: state, touched: time.Now()}
	m.mu.Unlock()

	return id, state
}

// Get returns the current state of a session.
func (m *Manager) Get(id string) (State, error) {
	e, err := m.lookup(id)
	if err != nil {
		return State{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return snapshot(e.state), nil
}

// Apply runs ev through the reducer. When the event starts an analysis,
// the run is launched in the background and its completion is fenced by
// the Seq assigned here.
func (m *Manager) Apply(id string, ev Event) (State, error) {
	e, err := m.lookup(id)
	if err != nil {
		return State{}, err
	}

	e.mu.Lock()
	next, err := Reduce(e.state, ev)
	if err != nil {
		e.mu.Unlock()
		return State{}, err
	}
	e.state = next
	e.touched = time.Now()

	_, isStart := ev.(StartAnalysis)
	seq, code, language := next.Seq, next.Code, next.Language
	out := snapshot(next)
	e.mu.Unlock()

	if isStart {
		go m.runAnalysis(id, seq, code, language)
	}
	return out, nil
}

// runAnalysis performs one background analysis and reports the outcome as
// a fenced completion event.
func (m *Manager) runAnalysis(id string, seq uint64, code, language string) {
	ctx, cancel := context.WithTimeout(context.Background(), analysisTimeout)
	defer cancel()

	scan, err := m.scanner.Scan(ctx, analyzer.Request{Code: code, Language: language})
	if err != nil {
		_, msg := models.PublicError(err)
		m.logger.Error("session analysis failed", "session", id, "seq", seq, "error", err)
		m.deliver(id, FailAnalysis{Seq: seq, Message: msg})
		return
	}
	m.deliver(id, CompleteAnalysis{Seq: seq, Result: scan.Result})
}

// deliver applies a completion event, tolerating sessions that were swept
// while the analysis ran.
func (m *Manager) deliver(id string, ev Event) {
	e, err := m.lookup(id)
	if err != nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	next, err := Reduce(e.state, ev)
	if err != nil {
		// Completion events never error in the reducer.
		m.logger.Error("failed to deliver session event", "session", id, "error", err)
		return
	}
	e.state = next
	e.touched = time.Now()
}

// Stop terminates the sweeper. Safe to call more than once.
func (m *Manager) Stop() {
	m.stop.Do(func() { close(m.done) })
}

func (m *Manager) lookup(id string) (*entry, error) {
	m.mu.RLock()
	e, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, models.ErrSessionNotFound
	}
	return e, nil
}

// sweep drops sessions idle longer than the ttl.
func (m *Manager) sweep() {
	if m.ttl <= 0 {
		return
	}
	interval := m.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-m.ttl)
			m.mu.Lock()
			for id, e := range m.sessions {
				if e.touched.Before(cutoff) {
					delete(m.sessions, id)
				}
			}
			m.mu.Unlock()
		}
	}
}

// snapshot copies state so callers cannot mutate the stored result.
func snapshot(s State) State {
	s.Result = s.Result.Clone()
	return s
}
