package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/groomhub/notify-engine/internal/domain"
	"github.com/groomhub/notify-engine/internal/provider"
	"github.com/groomhub/notify-engine/internal/repository"
	"github.com/groomhub/notify-engine/internal/settings"
)

type fakeAttemptRepo struct {
	mu        sync.Mutex
	attempts  map[string]*domain.NotificationAttempt
	createErr error
}

func newFakeAttemptRepo() *fakeAttemptRepo {
	return &fakeAttemptRepo{attempts: make(map[string]*domain.NotificationAttempt)}
}

func (r *fakeAttemptRepo) Create(_ context.Context, a *domain.NotificationAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	stored := *a
	r.attempts[a.ID] = &stored
	return nil
}

func (r *fakeAttemptRepo) GetByID(_ context.Context, id string) (*domain.NotificationAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.attempts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *a
	return &copied, nil
}

func (r *fakeAttemptRepo) List(_ context.Context, _ repository.AttemptListParams) ([]domain.NotificationAttempt, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.NotificationAttempt, 0, len(r.attempts))
	for _, a := range r.attempts {
		out = append(out, *a)
	}
	return out, int64(len(out)), nil
}

func (r *fakeAttemptRepo) UpdateStatus(_ context.Context, id string, status domain.AttemptStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.attempts[id]
	if !ok {
		return domain.ErrNotFound
	}
	a.Status = status
	return nil
}

func (r *fakeAttemptRepo) SetProviderMessageID(_ context.Context, id string, providerMsgID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.attempts[id]
	if !ok {
		return domain.ErrNotFound
	}
	a.ProviderMessageID = &providerMsgID
	return nil
}

type fakeRetryRepo struct {
	mu      sync.Mutex
	entries map[string]*domain.RetryEntry
}

func newFakeRetryRepo() *fakeRetryRepo {
	return &fakeRetryRepo{entries: make(map[string]*domain.RetryEntry)}
}

func (r *fakeRetryRepo) Create(_ context.Context, e *domain.RetryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *e
	r.entries[e.ID] = &stored
	return nil
}

func (r *fakeRetryRepo) GetByID(_ context.Context, id string) (*domain.RetryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *e
	return &copied, nil
}

func (r *fakeRetryRepo) GetByAttemptID(_ context.Context, attemptID string) (*domain.RetryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.AttemptID == attemptID {
			copied := *e
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeRetryRepo) GetDue(_ context.Context, now time.Time, limit int) ([]domain.RetryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	due := make([]domain.RetryEntry, 0)
	for _, e := range r.entries {
		if !e.NextRetryAt.After(now) && e.RetryCount < domain.MaxRetries {
			due = append(due, *e)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if !due[i].NextRetryAt.Equal(due[j].NextRetryAt) {
			return due[i].NextRetryAt.Before(due[j].NextRetryAt)
		}
		return due[i].CreatedAt.Before(due[j].CreatedAt)
	})
	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (r *fakeRetryRepo) List(_ context.Context, _ int) ([]domain.RetryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.RetryEntry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, *e)
	}
	return out, nil
}

func (r *fakeRetryRepo) Reschedule(_ context.Context, id string, retryCount int, nextRetryAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return domain.ErrNotFound
	}
	e.RetryCount = retryCount
	e.NextRetryAt = nextRetryAt
	return nil
}

func (r *fakeRetryRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.entries, id)
	return nil
}

func (r *fakeRetryRepo) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

type fakeConnectionRepo struct {
	mu          sync.Mutex
	connections map[string]*domain.ProviderConnection
}

func newFakeConnectionRepo(conns ...*domain.ProviderConnection) *fakeConnectionRepo {
	r := &fakeConnectionRepo{connections: make(map[string]*domain.ProviderConnection)}
	for _, c := range conns {
		stored := *c
		r.connections[c.ID] = &stored
	}
	return r
}

func (r *fakeConnectionRepo) GetByID(_ context.Context, id string) (*domain.ProviderConnection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.connections[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *c
	return &copied, nil
}

func (r *fakeConnectionRepo) GetActiveByChannel(_ context.Context, channel domain.Channel) (*domain.ProviderConnection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.connections {
		if c.Channel == channel && c.State == domain.ConnectionActive {
			copied := *c
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeConnectionRepo) List(_ context.Context) ([]domain.ProviderConnection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.ProviderConnection, 0, len(r.connections))
	for _, c := range r.connections {
		out = append(out, *c)
	}
	return out, nil
}

func (r *fakeConnectionRepo) IncrementFailures(_ context.Context, id string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.connections[id]
	if !ok {
		return 0, domain.ErrNotFound
	}
	c.ConsecutiveFailures++
	return c.ConsecutiveFailures, nil
}

func (r *fakeConnectionRepo) ResetFailures(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.connections[id]
	if !ok {
		return domain.ErrNotFound
	}
	c.ConsecutiveFailures = 0
	return nil
}

func (r *fakeConnectionRepo) Pause(_ context.Context, id string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.connections[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if c.State != domain.ConnectionActive {
		return false, nil
	}
	c.State = domain.ConnectionPaused
	c.PausedAt = &at
	return true, nil
}

func (r *fakeConnectionRepo) Resume(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.connections[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if c.State != domain.ConnectionPaused {
		return false, nil
	}
	c.State = domain.ConnectionActive
	c.ConsecutiveFailures = 0
	c.PausedAt = nil
	return true, nil
}

type fakeTrackingRepo struct {
	mu    sync.Mutex
	links map[string]*domain.TrackingLink
}

func newFakeTrackingRepo() *fakeTrackingRepo {
	return &fakeTrackingRepo{links: make(map[string]*domain.TrackingLink)}
}

func (r *fakeTrackingRepo) Create(_ context.Context, l *domain.TrackingLink) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *l
	r.links[l.ID] = &stored
	return nil
}

func (r *fakeTrackingRepo) GetByID(_ context.Context, id string) (*domain.TrackingLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.links[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *l
	return &copied, nil
}

func (r *fakeTrackingRepo) MarkClicked(_ context.Context, id string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.links[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if l.ClickedAt != nil {
		return false, nil
	}
	l.ClickedAt = &at
	return true, nil
}

func (r *fakeTrackingRepo) LatestUnlinked(_ context.Context, customerID string, since, until time.Time) (*domain.TrackingLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var best *domain.TrackingLink
	for _, l := range r.links {
		if l.CustomerID != customerID || l.BookingID != nil {
			continue
		}
		if l.CreatedAt.Before(since) || l.CreatedAt.After(until) {
			continue
		}
		if best == nil || l.CreatedAt.After(best.CreatedAt) {
			best = l
		}
	}
	if best == nil {
		return nil, domain.ErrNotFound
	}
	copied := *best
	return &copied, nil
}

func (r *fakeTrackingRepo) LinkBooking(_ context.Context, id string, bookingID string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.links[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if l.BookingID != nil {
		return false, nil
	}
	l.BookingID = &bookingID
	l.LinkedAt = &at
	return true, nil
}

type fakeCustomerRepo struct {
	mu        sync.Mutex
	customers map[string]*domain.Customer
}

func newFakeCustomerRepo(customers ...*domain.Customer) *fakeCustomerRepo {
	r := &fakeCustomerRepo{customers: make(map[string]*domain.Customer)}
	for _, c := range customers {
		stored := *c
		r.customers[c.ID] = &stored
	}
	return r
}

func (r *fakeCustomerRepo) GetByID(_ context.Context, id string) (*domain.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.customers[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *c
	return &copied, nil
}

func (r *fakeCustomerRepo) DueForReminder(_ context.Context, asOf time.Time, limit int) ([]domain.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	due := make([]domain.Customer, 0)
	for _, c := range r.customers {
		if c.DueForReminder(asOf) {
			due = append(due, *c)
		}
		if len(due) == limit {
			break
		}
	}
	return due, nil
}

func (r *fakeCustomerRepo) TouchReminderSent(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.customers[id]
	if !ok {
		return domain.ErrNotFound
	}
	c.LastReminderAt = &at
	return nil
}

type fakeCounter struct {
	mu      sync.Mutex
	counts  map[string]int64
	incrErr error
}

func newFakeCounter() *fakeCounter {
	return &fakeCounter{counts: make(map[string]int64)}
}

func (c *fakeCounter) Incr(_ context.Context, day string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.incrErr != nil {
		return 0, c.incrErr
	}
	c.counts[day]++
	return c.counts[day], nil
}

func (c *fakeCounter) Get(_ context.Context, day string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[day], nil
}

type fakeProvider struct {
	mu     sync.Mutex
	sendFn func(ctx context.Context, attempt *domain.NotificationAttempt) (*provider.ProviderResponse, error)
	calls  int
}

var _ provider.Provider = (*fakeProvider)(nil)

func (p *fakeProvider) Send(ctx context.Context, attempt *domain.NotificationAttempt) (*provider.ProviderResponse, error) {
	p.mu.Lock()
	p.calls++
	fn := p.sendFn
	p.mu.Unlock()
	if fn == nil {
		return &provider.ProviderResponse{StatusCode: 200, MessageID: "msg-1"}, nil
	}
	return fn(ctx, attempt)
}

func (p *fakeProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type fakeLimiter struct {
	mu    sync.Mutex
	waits int
}

func (l *fakeLimiter) Allow(_ context.Context, _ string) (bool, error) { return true, nil }

func (l *fakeLimiter) Wait(_ context.Context, _ string) error {
	l.mu.Lock()
	l.waits++
	l.mu.Unlock()
	return nil
}

type staticSource struct {
	values settings.Values
	err    error
}

func (s *staticSource) Load(_ context.Context) (settings.Values, error) {
	if s.err != nil {
		return settings.Values{}, s.err
	}
	return s.values, nil
}

func newTestSettings(values settings.Values) *settings.Cache {
	cache, err := settings.NewCache(&staticSource{values: values}, time.Minute, nil)
	if err != nil {
		panic(err)
	}
	return cache
}

type fakeResender struct {
	mu    sync.Mutex
	fn    func(ctx context.Context, attemptID string) error
	calls []string
}

func (r *fakeResender) Resend(ctx context.Context, attemptID string) error {
	r.mu.Lock()
	r.calls = append(r.calls, attemptID)
	fn := r.fn
	r.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(ctx, attemptID)
}
