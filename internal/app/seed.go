package app

import (
	"context"
	"fmt"
	"time"

	"github.com/admbtski/miglee-sub001/internal/domain"
	"github.com/admbtski/miglee-sub001/internal/service/membership"
)

// Demo principals created by SeedDemo.
const (
	DemoOwner     = "demo-owner"
	DemoModerator = "demo-moderator"
	DemoMember    = "demo-member"
	DemoApplicant = "demo-applicant"
	DemoInvitee   = "demo-invitee"
)

// SeedDemo creates a demo group with one membership in each interesting
// state and returns the group. Every step goes through the facade, so the
// seeded rows carry real events and notifications.
func SeedDemo(ctx context.Context, svc *membership.Service, now time.Time) (*domain.Group, error) {
	capacity := 5
	g, _, err := svc.CreateGroup(ctx, DemoOwner, domain.CreateGroupRequest{
		Flavor:          domain.FlavorEvent,
		Title:           "Demo meetup",
		MinParticipants: 2,
		MaxParticipants: &capacity,
		JoinMode:        domain.JoinModeRequest,
		StartAt:         now.Add(7 * 24 * time.Hour),
	})
	if err != nil {
		return nil, fmt.Errorf("create demo group: %w", err)
	}

	steps := []struct {
		name string
		run  func() error
	}{
		{"moderator requests", func() error { _, err := svc.RequestJoin(ctx, DemoModerator, g.ID); return err }},
		{"owner approves moderator", func() error { _, err := svc.Approve(ctx, DemoOwner, g.ID, DemoModerator); return err }},
		{"owner promotes moderator", func() error {
			_, err := svc.ChangeRole(ctx, DemoOwner, g.ID, DemoModerator, domain.RoleModerator)
			return err
		}},
		{"member requests", func() error { _, err := svc.RequestJoin(ctx, DemoMember, g.ID); return err }},
		{"moderator approves member", func() error { _, err := svc.Approve(ctx, DemoModerator, g.ID, DemoMember); return err }},
		{"applicant requests", func() error { _, err := svc.RequestJoin(ctx, DemoApplicant, g.ID); return err }},
		{"moderator invites", func() error { _, err := svc.Invite(ctx, DemoModerator, g.ID, DemoInvitee); return err }},
	}
	for _, s := range steps {
		if err := s.run(); err != nil {
			return nil, fmt.Errorf("seed %s: %w", s.name, err)
		}
	}
	return g, nil
}
