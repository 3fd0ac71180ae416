package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	internaldb "github.com/admbtski/miglee-sub001/internal/db"
	dbstore "github.com/admbtski/miglee-sub001/internal/db/dbstore"
	"github.com/admbtski/miglee-sub001/internal/db/mapper"
	"github.com/admbtski/miglee-sub001/internal/domain"
)

var _ domain.MembershipStore = (*MembershipStore)(nil)

// MembershipStore runs membership transitions on the write pool. The pool
// holds one connection and begins transactions IMMEDIATE, so each unit
// observes every previously committed write and no other writer interleaves.
type MembershipStore struct {
	db *sql.DB
	q  *dbstore.Queries
}

// NewMembershipStore creates a MembershipStore over the write pool.
func NewMembershipStore(writeDB *sql.DB) *MembershipStore {
	return &MembershipStore{db: writeDB, q: dbstore.New(writeDB)}
}

// InTx runs fn inside one transaction and commits when fn returns nil.
// Lock contention on begin or commit is reported as a TransientConflictError.
func (s *MembershipStore) InTx(ctx context.Context, fn func(tx domain.MembershipTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapDBError(err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(&membershipTx{q: s.q.WithTx(tx)}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return mapDBError(err)
	}
	return nil
}

type membershipTx struct {
	q *dbstore.Queries
}

func (t *membershipTx) LoadGroup(ctx context.Context, groupID string) (domain.GroupKind, error) {
	row, err := t.q.GetGroup(ctx, groupID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound("groupId", "group %q not found", groupID)
	}
	if err != nil {
		return nil, mapDBError(err)
	}
	return mapper.GroupFromDB(row), nil
}

func (t *membershipTx) FindMembership(ctx context.Context, groupID, userID string) (*domain.Membership, error) {
	row, err := t.q.GetMembership(ctx, dbstore.GetMembershipParams{GroupID: groupID, UserID: userID})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapDBError(err)
	}
	return mapper.MembershipFromDB(row), nil
}

func (t *membershipTx) CountJoined(ctx context.Context, groupID string) (int, error) {
	n, err := t.q.CountJoined(ctx, groupID)
	if err != nil {
		return 0, mapDBError(err)
	}
	return int(n), nil
}

func (t *membershipTx) UpsertMembership(ctx context.Context, m *domain.Membership) (*domain.Membership, error) {
	now := time.Now().UTC()

	if m.Version == 0 {
		if m.ID == "" {
			m.ID = domain.NewID()
		}
		row, err := t.q.InsertMembership(ctx, mapper.InsertMembershipParamsToDB(m, now))
		if err != nil {
			// A concurrent first write for the same (group, user) won.
			if internaldb.IsUniqueViolation(err) {
				return nil, &domain.TransientConflictError{Err: err}
			}
			return nil, mapDBError(err)
		}
		return mapper.MembershipFromDB(row), nil
	}

	n, err := t.q.UpdateMembership(ctx, mapper.UpdateMembershipParamsToDB(m, now))
	if err != nil {
		return nil, mapDBError(err)
	}
	if n == 0 {
		return nil, &domain.TransientConflictError{Err: errVersionMoved}
	}
	row, err := t.q.GetMembershipByID(ctx, m.ID)
	if err != nil {
		return nil, mapDBError(err)
	}
	return mapper.MembershipFromDB(row), nil
}

func (t *membershipTx) EnqueueEvent(ctx context.Context, e domain.TransitionCommitted) error {
	if e.ID == "" {
		e.ID = domain.NewID()
	}
	return mapDBError(t.q.InsertEvent(ctx, mapper.EventToDB(e)))
}
