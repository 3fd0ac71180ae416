package repository

import (
	"context"
	"database/sql"
	"errors"

	dbstore "github.com/admbtski/miglee-sub001/internal/db/dbstore"
	"github.com/admbtski/miglee-sub001/internal/db/mapper"
	"github.com/admbtski/miglee-sub001/internal/domain"
)

var _ domain.MembershipQueries = (*MembershipQueryRepo)(nil)

// MembershipQueryRepo serves membership reads from the read pool.
type MembershipQueryRepo struct {
	q *dbstore.Queries
}

// NewMembershipQueryRepo creates a MembershipQueryRepo.
func NewMembershipQueryRepo(readDB *sql.DB) *MembershipQueryRepo {
	return &MembershipQueryRepo{q: dbstore.New(readDB)}
}

func (r *MembershipQueryRepo) GetMembership(ctx context.Context, groupID, userID string) (*domain.Membership, error) {
	row, err := r.q.GetMembership(ctx, dbstore.GetMembershipParams{GroupID: groupID, UserID: userID})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound("userId", "no membership for user %q in group %q", userID, groupID)
	}
	if err != nil {
		return nil, mapDBError(err)
	}
	return mapper.MembershipFromDB(row), nil
}

func (r *MembershipQueryRepo) ListMembers(ctx context.Context, groupID string, status *domain.Status, page domain.PageRequest) ([]domain.Membership, int64, error) {
	var filter sql.NullString
	if status != nil {
		filter = sql.NullString{String: string(*status), Valid: true}
	}

	total, err := r.q.CountMembers(ctx, dbstore.CountMembersParams{GroupID: groupID, Status: filter})
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.q.ListMembersPaginated(ctx, dbstore.ListMembersPaginatedParams{
		GroupID: groupID,
		Status:  filter,
		Limit:   int64(page.Limit()),
		Offset:  int64(page.Offset()),
	})
	if err != nil {
		return nil, 0, err
	}

	return mapper.MembershipsFromDB(rows), total, nil
}

func (r *MembershipQueryRepo) ListPrivileged(ctx context.Context, groupID string) ([]domain.Membership, error) {
	rows, err := r.q.ListPrivileged(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return mapper.MembershipsFromDB(rows), nil
}
