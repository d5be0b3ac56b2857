package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/burrowworks/rabbithole/db"
	"go.uber.org/zap"
)

var ErrSessionNotFound = errors.New("session not found")

// Repository is the narrow persistence surface the store needs. db.SearchRepository
// implements it over MongoDB. FindOneByID returns db.ErrNotFound for a
// missing document; any other error is an infrastructure failure.
type Repository interface {
	FindOneByID(ctx context.Context, id string) (*db.SearchModel, error)
	Save(ctx context.Context, model db.SearchModel) error
	FindRecentSuccessful(ctx context.Context, limit int64) ([]db.SearchModel, error)
}

// Store owns the append-only turn history of every exploration session. It is
// the sole writer; appends to one session are serialized so sequence indexes
// are assigned race-free, while different sessions proceed in parallel.
type Store struct {
	repo Repository

	mu          sync.Mutex
	appendLocks map[string]*sessionLock
}

// sessionLock is refcounted so its map entry can be dropped once no append
// for that session is in flight.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func NewStore(repo Repository) *Store {
	return &Store{
		repo:        repo,
		appendLocks: make(map[string]*sessionLock),
	}
}

// StartSession persists a new session whose first turn is the root query and
// the given answer. The model's identity, mode and request metadata must be
// set by the caller.
func (s *Store) StartSession(ctx context.Context, model *db.SearchModel, answer db.AnswerModel) (*db.SearchModel, error) {
	model.Status = db.StatusSuccess
	model.CreatedOn = time.Now().UnixMilli()
	model.Turns = []db.TurnModel{{
		Query:         model.Query,
		Answer:        answer,
		SequenceIndex: 0,
	}}

	if err := s.repo.Save(ctx, *model); err != nil {
		logger.Error("Failed to save new session", zap.String("searchId", model.ID), zap.Error(err))
		return nil, err
	}

	return model, nil
}

// AppendTurn adds one turn to an existing session. This is the only mutation
// a session ever sees: the turn gets SequenceIndex len(turns) and nothing is
// edited or removed. At most one append per session id is in flight at a time.
func (s *Store) AppendTurn(ctx context.Context, id, query string, answer db.AnswerModel) (*db.SearchModel, error) {
	unlock := s.lockSession(id)
	defer unlock()

	model, err := s.findSession(ctx, id)
	if err != nil {
		return nil, err
	}

	model.Turns = append(model.Turns, db.TurnModel{
		Query:         query,
		Answer:        answer,
		SequenceIndex: len(model.Turns),
	})

	if err := s.repo.Save(ctx, *model); err != nil {
		logger.Error("Failed to append turn", zap.String("searchId", id), zap.Error(err))
		return nil, err
	}

	return model, nil
}

// RecordFailure persists a terminal error record for a query that never
// produced a turn. This is an audit record, not a resumable session.
func (s *Store) RecordFailure(ctx context.Context, model *db.SearchModel, cause error) error {
	model.Status = db.StatusError
	model.Error = cause.Error()
	model.CreatedOn = time.Now().UnixMilli()
	model.Turns = []db.TurnModel{}

	if err := s.repo.Save(ctx, *model); err != nil {
		logger.Error("Failed to save error record", zap.String("query", model.Query), zap.Error(err))
		return err
	}

	return nil
}

func (s *Store) FindByID(ctx context.Context, id string) (*db.SearchModel, error) {
	return s.findSession(ctx, id)
}

// findSession translates the repository's missing-document sentinel into
// ErrSessionNotFound and passes infrastructure failures through unchanged.
func (s *Store) findSession(ctx context.Context, id string) (*db.SearchModel, error) {
	model, err := s.repo.FindOneByID(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if model == nil {
		return nil, ErrSessionNotFound
	}
	return model, nil
}

func (s *Store) FindRecentSuccessful(ctx context.Context, limit int64) ([]db.SearchModel, error) {
	return s.repo.FindRecentSuccessful(ctx, limit)
}

func (s *Store) lockSession(id string) func() {
	s.mu.Lock()
	lock, ok := s.appendLocks[id]
	if !ok {
		lock = &sessionLock{}
		s.appendLocks[id] = lock
	}
	lock.refs++
	s.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()

		s.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(s.appendLocks, id)
		}
		s.mu.Unlock()
	}
}
