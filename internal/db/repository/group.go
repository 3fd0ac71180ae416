package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	dbstore "github.com/admbtski/miglee-sub001/internal/db/dbstore"
	"github.com/admbtski/miglee-sub001/internal/db/mapper"
	"github.com/admbtski/miglee-sub001/internal/domain"
)

var _ domain.GroupRepository = (*GroupRepo)(nil)

type GroupRepo struct {
	db *sql.DB
	q  *dbstore.Queries
}

func NewGroupRepo(writeDB *sql.DB) *GroupRepo {
	return &GroupRepo{db: writeDB, q: dbstore.New(writeDB)}
}

// Create inserts the group and its JOINED owner membership atomically.
func (r *GroupRepo) Create(ctx context.Context, req domain.CreateGroupRequest) (*domain.Group, *domain.Membership, error) {
	if err := req.Validate(); err != nil {
		return nil, nil, err
	}
	now := time.Now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, mapDBError(err)
	}
	defer tx.Rollback() //nolint:errcheck

	qtx := r.q.WithTx(tx)
	g, err := qtx.CreateGroup(ctx, mapper.CreateGroupParamsToDB(domain.NewID(), req, now))
	if err != nil {
		return nil, nil, mapDBError(err)
	}

	owner := &domain.Membership{
		ID:       domain.NewID(),
		GroupID:  g.ID,
		UserID:   req.OwnerID,
		Role:     domain.RoleOwner,
		Status:   domain.StatusJoined,
		JoinedAt: &now,
	}
	m, err := qtx.InsertMembership(ctx, mapper.InsertMembershipParamsToDB(owner, now))
	if err != nil {
		return nil, nil, mapDBError(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, mapDBError(err)
	}
	return mapper.GroupFromDB(g), mapper.MembershipFromDB(m), nil
}

func (r *GroupRepo) GetByID(ctx context.Context, id string) (*domain.Group, error) {
	row, err := r.q.GetGroup(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound("groupId", "group %q not found", id)
	}
	if err != nil {
		return nil, mapDBError(err)
	}
	return mapper.GroupFromDB(row), nil
}

// Cancel sets canceledAt once. Cancelling twice is a no-op.
func (r *GroupRepo) Cancel(ctx context.Context, id string, at time.Time) error {
	n, err := r.q.CancelGroup(ctx, at.UTC(), id)
	if err != nil {
		return mapDBError(err)
	}
	if n == 0 {
		_, err = r.GetByID(ctx, id)
		return err
	}
	return nil
}

// SoftDelete sets deletedAt once. Deleting twice is a no-op.
func (r *GroupRepo) SoftDelete(ctx context.Context, id string, at time.Time) error {
	n, err := r.q.SoftDeleteGroup(ctx, at.UTC(), id)
	if err != nil {
		return mapDBError(err)
	}
	if n == 0 {
		_, err = r.GetByID(ctx, id)
		return err
	}
	return nil
}
