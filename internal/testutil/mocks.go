// Package testutil provides shared mock implementations of domain interfaces
// for use in tests across the codebase. This follows the Go convention of a
// shared test utility package (like net/http/httptest).
package testutil

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/admbtski/miglee-sub001/internal/domain"
)

// FixedClock returns a domain.Clock that always reports t.
func FixedClock(t time.Time) domain.Clock {
	return func() time.Time { return t }
}

// === Membership Store Fake ===

// ErrSimulatedConflict is the cause carried by injected transient conflicts.
var ErrSimulatedConflict = errors.New("simulated serialization failure")

// FakeStore implements domain.MembershipStore in memory. Transactions are
// serialized by a mutex and applied only on successful commit.
type FakeStore struct {
	mu      sync.Mutex
	groups  map[string]domain.Group
	members map[string]domain.Membership
	seq     int

	// TransientFailures makes the next N commits fail with a transient conflict.
	TransientFailures int
	// OnInjectedConflict runs when an injected conflict fires; put commits a
	// membership directly, simulating a concurrent writer.
	OnInjectedConflict func(put func(m domain.Membership))
	// FailWith, when set, is returned by InTx before fn runs.
	FailWith error

	Attempts int
	Events   []domain.TransitionCommitted
}

// NewFakeStore creates an empty FakeStore.
func NewFakeStore() *FakeStore {
	return &FakeStore{
		groups:  make(map[string]domain.Group),
		members: make(map[string]domain.Membership),
	}
}

func memberKey(groupID, userID string) string { return groupID + "|" + userID }

// AddGroup seeds a group.
func (s *FakeStore) AddGroup(g domain.Group) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[g.ID] = g
}

// UpdateGroup mutates a seeded group in place.
func (s *FakeStore) UpdateGroup(id string, fn func(g *domain.Group)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.groups[id]
	fn(&g)
	s.groups[id] = g
}

// Put seeds a membership at version 1 unless m.Version is set.
func (s *FakeStore) Put(m domain.Membership) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putLocked(m)
}

func (s *FakeStore) putLocked(m domain.Membership) {
	if m.ID == "" {
		s.seq++
		m.ID = "m-seed-" + strconv.Itoa(s.seq)
	}
	if m.Version == 0 {
		m.Version = 1
	}
	s.members[memberKey(m.GroupID, m.UserID)] = *m.Clone()
}

// Get returns a copy of the committed membership, or nil.
func (s *FakeStore) Get(groupID, userID string) *domain.Membership {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[memberKey(groupID, userID)]
	if !ok {
		return nil
	}
	return m.Clone()
}

// CountJoined returns the committed JOINED count for a group.
func (s *FakeStore) CountJoined(groupID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.members {
		if m.GroupID == groupID && m.Status == domain.StatusJoined {
			n++
		}
	}
	return n
}

// InTx implements domain.MembershipStore.
func (s *FakeStore) InTx(_ context.Context, fn func(tx domain.MembershipTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Attempts++
	if s.FailWith != nil {
		return s.FailWith
	}

	tx := &fakeTx{s: s, members: make(map[string]domain.Membership, len(s.members))}
	for k, v := range s.members {
		tx.members[k] = v
	}
	if err := fn(tx); err != nil {
		return err
	}
	if s.TransientFailures > 0 {
		s.TransientFailures--
		if s.OnInjectedConflict != nil {
			s.OnInjectedConflict(s.putLocked)
		}
		return &domain.TransientConflictError{Err: ErrSimulatedConflict}
	}
	s.members = tx.members
	s.Events = append(s.Events, tx.events...)
	return nil
}

type fakeTx struct {
	s       *FakeStore
	members map[string]domain.Membership
	events  []domain.TransitionCommitted
}

func (t *fakeTx) LoadGroup(_ context.Context, groupID string) (domain.GroupKind, error) {
	g, ok := t.s.groups[groupID]
	if !ok {
		return nil, domain.ErrNotFound("groupId", "group %q not found", groupID)
	}
	return &g, nil
}

func (t *fakeTx) FindMembership(_ context.Context, groupID, userID string) (*domain.Membership, error) {
	m, ok := t.members[memberKey(groupID, userID)]
	if !ok {
		return nil, nil
	}
	return m.Clone(), nil
}

func (t *fakeTx) CountJoined(_ context.Context, groupID string) (int, error) {
	n := 0
	for _, m := range t.members {
		if m.GroupID == groupID && m.Status == domain.StatusJoined {
			n++
		}
	}
	return n, nil
}

func (t *fakeTx) UpsertMembership(_ context.Context, m *domain.Membership) (*domain.Membership, error) {
	key := memberKey(m.GroupID, m.UserID)
	stored, exists := t.members[key]
	next := *m.Clone()
	now := time.Now().UTC()

	if m.Version == 0 {
		if exists {
			return nil, &domain.TransientConflictError{Err: ErrSimulatedConflict}
		}
		if next.ID == "" {
			next.ID = domain.NewID()
		}
		next.Version = 1
		next.CreatedAt = now
	} else {
		if !exists || stored.Version != m.Version {
			return nil, &domain.TransientConflictError{Err: ErrSimulatedConflict}
		}
		next.Version = stored.Version + 1
	}
	next.UpdatedAt = now
	t.members[key] = next
	return next.Clone(), nil
}

func (t *fakeTx) EnqueueEvent(_ context.Context, e domain.TransitionCommitted) error {
	t.events = append(t.events, e)
	return nil
}

// === Dispatcher / Publisher Recorders ===

// RecordingDispatcher collects dispatched events.
type RecordingDispatcher struct {
	mu     sync.Mutex
	Events []domain.TransitionCommitted
}

// Dispatch implements membership.Dispatcher.
func (d *RecordingDispatcher) Dispatch(_ context.Context, e domain.TransitionCommitted) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Events = append(d.Events, e)
}

// Count returns the number of dispatched events.
func (d *RecordingDispatcher) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.Events)
}

// Last returns the most recent event, or nil.
func (d *RecordingDispatcher) Last() *domain.TransitionCommitted {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.Events) == 0 {
		return nil
	}
	e := d.Events[len(d.Events)-1]
	return &e
}

// RecordingPublisher implements domain.Publisher for testing.
type RecordingPublisher struct {
	mu        sync.Mutex
	PublishFn func(ctx context.Context, n domain.Notification) error
	Published []domain.Notification
}

// Publish implements the interface method for testing.
func (p *RecordingPublisher) Publish(ctx context.Context, n domain.Notification) error {
	if p.PublishFn != nil {
		if err := p.PublishFn(ctx, n); err != nil {
			return err
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Published = append(p.Published, n)
	return nil
}

// Recipients returns the recipients of every recorded notification.
func (p *RecordingPublisher) Recipients() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.Published))
	for i, n := range p.Published {
		out[i] = n.RecipientID
	}
	return out
}

// === Repository Mocks ===

// MockMembershipQueries implements domain.MembershipQueries for testing.
type MockMembershipQueries struct {
	GetMembershipFn  func(ctx context.Context, groupID, userID string) (*domain.Membership, error)
	ListMembersFn    func(ctx context.Context, groupID string, status *domain.Status, page domain.PageRequest) ([]domain.Membership, int64, error)
	ListPrivilegedFn func(ctx context.Context, groupID string) ([]domain.Membership, error)
}

// GetMembership implements the interface method for testing.
func (m *MockMembershipQueries) GetMembership(ctx context.Context, groupID, userID string) (*domain.Membership, error) {
	if m.GetMembershipFn != nil {
		return m.GetMembershipFn(ctx, groupID, userID)
	}
	panic("unexpected call to MockMembershipQueries.GetMembership")
}

// ListMembers implements the interface method for testing.
func (m *MockMembershipQueries) ListMembers(ctx context.Context, groupID string, status *domain.Status, page domain.PageRequest) ([]domain.Membership, int64, error) {
	if m.ListMembersFn != nil {
		return m.ListMembersFn(ctx, groupID, status, page)
	}
	panic("unexpected call to MockMembershipQueries.ListMembers")
}

// ListPrivileged implements the interface method for testing.
func (m *MockMembershipQueries) ListPrivileged(ctx context.Context, groupID string) ([]domain.Membership, error) {
	if m.ListPrivilegedFn != nil {
		return m.ListPrivilegedFn(ctx, groupID)
	}
	panic("unexpected call to MockMembershipQueries.ListPrivileged")
}

// MockGroupRepo implements domain.GroupRepository for testing.
type MockGroupRepo struct {
	CreateFn     func(ctx context.Context, req domain.CreateGroupRequest) (*domain.Group, *domain.Membership, error)
	GetByIDFn    func(ctx context.Context, id string) (*domain.Group, error)
	CancelFn     func(ctx context.Context, id string, at time.Time) error
	SoftDeleteFn func(ctx context.Context, id string, at time.Time) error
}

// Create implements the interface method for testing.
func (m *MockGroupRepo) Create(ctx context.Context, req domain.CreateGroupRequest) (*domain.Group, *domain.Membership, error) {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, req)
	}
	panic("unexpected call to MockGroupRepo.Create")
}

// GetByID implements the interface method for testing.
func (m *MockGroupRepo) GetByID(ctx context.Context, id string) (*domain.Group, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	panic("unexpected call to MockGroupRepo.GetByID")
}

// Cancel implements the interface method for testing.
func (m *MockGroupRepo) Cancel(ctx context.Context, id string, at time.Time) error {
	if m.CancelFn != nil {
		return m.CancelFn(ctx, id, at)
	}
	panic("unexpected call to MockGroupRepo.Cancel")
}

// SoftDelete implements the interface method for testing.
func (m *MockGroupRepo) SoftDelete(ctx context.Context, id string, at time.Time) error {
	if m.SoftDeleteFn != nil {
		return m.SoftDeleteFn(ctx, id, at)
	}
	panic("unexpected call to MockGroupRepo.SoftDelete")
}

// MockEventOutbox implements domain.EventOutbox for testing.
type MockEventOutbox struct {
	mu                sync.Mutex
	ListUndeliveredFn func(ctx context.Context, maxAttempts, limit int) ([]domain.TransitionCommitted, error)
	Delivered         []string
	Failed            map[string]string
}

// MarkDelivered implements the interface method for testing.
func (m *MockEventOutbox) MarkDelivered(_ context.Context, eventID string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Delivered = append(m.Delivered, eventID)
	return nil
}

// MarkFailed implements the interface method for testing.
func (m *MockEventOutbox) MarkFailed(_ context.Context, eventID string, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Failed == nil {
		m.Failed = make(map[string]string)
	}
	m.Failed[eventID] = reason
	return nil
}

// ListUndelivered implements the interface method for testing.
func (m *MockEventOutbox) ListUndelivered(ctx context.Context, maxAttempts, limit int) ([]domain.TransitionCommitted, error) {
	if m.ListUndeliveredFn != nil {
		return m.ListUndeliveredFn(ctx, maxAttempts, limit)
	}
	panic("unexpected call to MockEventOutbox.ListUndelivered")
}

// DeliveredIDs returns a copy of the delivered event ids.
func (m *MockEventOutbox) DeliveredIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Delivered...)
}

// FailedReason returns the recorded failure reason for eventID.
func (m *MockEventOutbox) FailedReason(eventID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.Failed[eventID]
	return r, ok
}
