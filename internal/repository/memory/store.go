package memory

import (
	"context"
	"sync"
	"time"

	"github.com/cmlabs-hris/lms-backend-go/internal/domain/audit"
	"github.com/cmlabs-hris/lms-backend-go/internal/domain/leave"
	"github.com/cmlabs-hris/lms-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/lms-backend-go/internal/domain/workflow"
	"github.com/cmlabs-hris/lms-backend-go/internal/pkg/database"
	"github.com/google/uuid"
)

// Store is an in-memory backing for every repository interface. It exists
// for engine tests and local development; the transactional guarantees are
// approximated by snapshot and restore around RunInTx.
type Store struct {
	mu sync.Mutex
	// txMu serializes transactions so snapshot/restore stays consistent.
	txMu sync.Mutex

	users       map[uuid.UUID]user.User
	leaveTypes  map[uuid.UUID]leave.LeaveType
	policies    map[uuid.UUID]leave.LeavePolicy
	balances    map[uuid.UUID]leave.LeaveBalance
	requests    map[uuid.UUID]leave.LeaveRequest
	dates       map[uuid.UUID]leave.LeaveRequestDate
	comments    map[uuid.UUID]leave.Comment
	workflows   map[uuid.UUID]workflow.Configuration
	steps       map[uuid.UUID]workflow.Step
	logs        []audit.Log

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		users:      make(map[uuid.UUID]user.User),
		leaveTypes: make(map[uuid.UUID]leave.LeaveType),
		policies:   make(map[uuid.UUID]leave.LeavePolicy),
		balances:   make(map[uuid.UUID]leave.LeaveBalance),
		requests:   make(map[uuid.UUID]leave.LeaveRequest),
		dates:      make(map[uuid.UUID]leave.LeaveRequestDate),
		comments:   make(map[uuid.UUID]leave.Comment),
		workflows:  make(map[uuid.UUID]workflow.Configuration),
		steps:      make(map[uuid.UUID]workflow.Step),
		now:        time.Now,
	}
}

// SetClock overrides the store's notion of now. Tests use it for
// deterministic timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

type storeState struct {
	users      map[uuid.UUID]user.User
	leaveTypes map[uuid.UUID]leave.LeaveType
	policies   map[uuid.UUID]leave.LeavePolicy
	balances   map[uuid.UUID]leave.LeaveBalance
	requests   map[uuid.UUID]leave.LeaveRequest
	dates      map[uuid.UUID]leave.LeaveRequestDate
	comments   map[uuid.UUID]leave.Comment
	workflows  map[uuid.UUID]workflow.Configuration
	steps      map[uuid.UUID]workflow.Step
	logs       []audit.Log
}

func copyMap[K comparable, V any](src map[K]V) map[K]V {
	dst := make(map[K]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func (s *Store) snapshot() storeState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return storeState{
		users:      copyMap(s.users),
		leaveTypes: copyMap(s.leaveTypes),
		policies:   copyMap(s.policies),
		balances:   copyMap(s.balances),
		requests:   copyMap(s.requests),
		dates:      copyMap(s.dates),
		comments:   copyMap(s.comments),
		workflows:  copyMap(s.workflows),
		steps:      copyMap(s.steps),
		logs:       append([]audit.Log(nil), s.logs...),
	}
}

func (s *Store) restore(state storeState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = state.users
	s.leaveTypes = state.leaveTypes
	s.policies = state.policies
	s.balances = state.balances
	s.requests = state.requests
	s.dates = state.dates
	s.comments = state.comments
	s.workflows = state.workflows
	s.steps = state.steps
	s.logs = state.logs
}

// RunInTx mirrors the database unit of work: all writes inside fn are kept
// on success and discarded on error or panic.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	state := s.snapshot()

	defer func() {
		if p := recover(); p != nil {
			s.restore(state)
			panic(p)
		}
	}()

	if err := fn(ctx); err != nil {
		s.restore(state)
		return err
	}
	return nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > database.MaxQueryLimit {
		return database.MaxQueryLimit
	}
	return limit
}
