package workbench

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/sqlscribe/sqlscribe/internal/nl2sql"
)

type State string

const (
	StateIdle       State = "idle"
	StateRequesting State = "requesting"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

var (
	ErrInputRequired   = errors.New("query and schema are required")
	ErrCompileInFlight = errors.New("a compile is already in flight for this session")
	ErrSessionNotFound = errors.New("session not found")
)

type Compiler interface {
	Compile(ctx context.Context, query, schema string) (nl2sql.CompilationResult, error)
}

// Snapshot is a consistent copy of a session. At most one of Result and
// Error is set, and neither is set while State is requesting.
type Snapshot struct {
	ID         string                    `json:"id"`
	Query      string                    `json:"query"`
	Schema     string                    `json:"schema"`
	State      State                     `json:"state"`
	Result     *nl2sql.CompilationResult `json:"result,omitempty"`
	Error      string                    `json:"error,omitempty"`
	ErrorKind  nl2sql.Kind               `json:"error_kind,omitempty"`
	CanCompile bool                      `json:"can_compile"`
	Attempts   int                       `json:"attempts"`
	UpdatedAt  time.Time                 `json:"updated_at"`
}

type Session struct {
	id       string
	compiler Compiler
	now      func() time.Time

	mu        sync.Mutex
	query     string
	schema    string
	state     State
	result    *nl2sql.CompilationResult
	errText   string
	errKind   nl2sql.Kind
	attempts  int
	updatedAt time.Time
}

func newSession(id string, compiler Compiler, query, schema string, now func() time.Time) *Session {
	return &Session{
		id:        id,
		compiler:  compiler,
		now:       now,
		query:     query,
		schema:    schema,
		state:     StateIdle,
		updatedAt: now(),
	}
}

func (s *Session) ID() string {
	return s.id
}

// SetInput replaces the query and/or schema. A nil pointer leaves that input
// unchanged. Editing never touches the current result or error.
func (s *Session) SetInput(query, schema *string) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if query != nil {
		s.query = *query
	}
	if schema != nil {
		s.schema = *schema
	}
	s.updatedAt = s.now()
	return s.snapshotLocked()
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) CanCompile() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canCompileLocked()
}

// Compile runs one attempt. It is rejected without contacting the service when
// an input is empty or another attempt is still in flight. Once started, the
// attempt runs to completion even if ctx is cancelled.
func (s *Session) Compile(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	if s.state == StateRequesting {
		snapshot := s.snapshotLocked()
		s.mu.Unlock()
		return snapshot, ErrCompileInFlight
	}
	if !hasInput(s.query, s.schema) {
		snapshot := s.snapshotLocked()
		s.mu.Unlock()
		return snapshot, ErrInputRequired
	}
	query, schema := s.query, s.schema
	s.state = StateRequesting
	s.result = nil
	s.errText = ""
	s.errKind = ""
	s.attempts++
	s.updatedAt = s.now()
	s.mu.Unlock()

	result, err := s.compiler.Compile(context.WithoutCancel(ctx), query, schema)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateFailed
		s.errText = nl2sql.UserMessage(err)
		s.errKind = nl2sql.KindOf(err)
	} else {
		s.state = StateSucceeded
		s.result = &result
	}
	s.updatedAt = s.now()
	return s.snapshotLocked(), err
}

func (s *Session) idle(now time.Time, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state != StateRequesting && now.Sub(s.updatedAt) > ttl
}

func (s *Session) canCompileLocked() bool {
	return s.state != StateRequesting && hasInput(s.query, s.schema)
}

func (s *Session) snapshotLocked() Snapshot {
	snapshot := Snapshot{
		ID:         s.id,
		Query:      s.query,
		Schema:     s.schema,
		State:      s.state,
		Error:      s.errText,
		ErrorKind:  s.errKind,
		CanCompile: s.canCompileLocked(),
		Attempts:   s.attempts,
		UpdatedAt:  s.updatedAt,
	}
	if s.result != nil {
		copied := *s.result
		copied.LexicalTokens = append([]string(nil), s.result.LexicalTokens...)
		snapshot.Result = &copied
	}
	return snapshot
}

func hasInput(query, schema string) bool {
	return strings.TrimSpace(query) != "" && strings.TrimSpace(schema) != ""
}
