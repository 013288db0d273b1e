package quota

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/sakif/stepwise/internal/apperror"
	"github.com/sakif/stepwise/internal/identity"
	"github.com/sakif/stepwise/internal/model"
)

// =========================================================================
// FAKES
// =========================================================================

type fakeDirectory struct {
	subs    []identity.Subscription
	subsErr error
	meta    identity.Metadata
	metaErr error

	subsCalls, metaCalls int
}

func (f *fakeDirectory) ListSubscriptions(ctx context.Context, userID string) ([]identity.Subscription, error) {
	f.subsCalls++
	return f.subs, f.subsErr
}

func (f *fakeDirectory) GetPublicMetadata(ctx context.Context, userID string) (identity.Metadata, error) {
	f.metaCalls++
	return f.meta, f.metaErr
}

type fakeOracle struct {
	plan Plan
	err  error
}

func (f fakeOracle) ResolvePlan(ctx context.Context, id identity.Identity) (Plan, error) {
	return f.plan, f.err
}

// fakeStore counts solutions at fixed timestamps.
type fakeStore struct {
	users     map[string]*model.User
	createdAt []time.Time
	countErr  error
	since     time.Time
}

func (f *fakeStore) GetByExternalID(ctx context.Context, externalID string) (*model.User, error) {
	u, ok := f.users[externalID]
	if !ok {
		return nil, apperror.UserNotFound(externalID)
	}
	return u, nil
}

func (f *fakeStore) CreateIfAbsent(ctx context.Context, user *model.User) (bool, error) {
	return false, errors.New("not used")
}

func (f *fakeStore) CreateNumbered(ctx context.Context, s *model.Solution) error {
	return errors.New("not used")
}

func (f *fakeStore) CountSince(ctx context.Context, userID int64, since time.Time) (int, error) {
	f.since = since
	if f.countErr != nil {
		return 0, f.countErr
	}
	n := 0
	for _, ts := range f.createdAt {
		if !ts.Before(since) {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) ListByExternalID(ctx context.Context, externalID string) ([]model.Solution, error) {
	return nil, errors.New("not used")
}

func (f *fakeStore) GetByProblemNumber(ctx context.Context, externalID string, number int) (*model.Solution, error) {
	return nil, errors.New("not used")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newStore(createdAt ...time.Time) *fakeStore {
	return &fakeStore{
		users:     map[string]*model.User{"user_1": {ID: 1, ExternalID: "user_1"}},
		createdAt: createdAt,
	}
}

// =========================================================================
// PLAN TABLE
// =========================================================================

func TestMatchTag(t *testing.T) {
	tests := []struct {
		tag    string
		want   Plan
		wantOK bool
	}{
		{"Max Plan", PlanMax, true},
		{"max", PlanMax, true},
		{"  MAX  ", PlanMax, true},
		{"Pro Plan", PlanPro, true},
		{"pro plan", PlanPro, true},
		{"PRO", PlanPro, true},
		{"free", "", false},
		{"", "", false},
		{"professional", "", false},
	}
	for _, tt := range tests {
		got, ok := MatchTag(tt.tag)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("MatchTag(%q) = (%q, %v), want (%q, %v)", tt.tag, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name  string
		plan  Plan
		count int
		want  Usage
	}{
		{"free fresh", PlanFree, 0, Usage{PlanFree, 0, 2, 2, true}},
		{"free one used", PlanFree, 1, Usage{PlanFree, 1, 2, 1, true}},
		{"free exhausted", PlanFree, 2, Usage{PlanFree, 2, 2, 0, false}},
		{"free over", PlanFree, 5, Usage{PlanFree, 5, 2, 0, false}},
		{"pro", PlanPro, 7, Usage{PlanPro, 7, 8, 1, true}},
		{"pro exhausted", PlanPro, 8, Usage{PlanPro, 8, 8, 0, false}},
		{"max", PlanMax, 1000, Usage{PlanMax, 1000, Unlimited, Unlimited, true}},
		{"unknown plan uses free limit", Plan("gold"), 2, Usage{Plan("gold"), 2, 2, 0, false}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compute(tt.plan, tt.count); got != tt.want {
				t.Errorf("Compute(%q, %d) = %+v, want %+v", tt.plan, tt.count, got, tt.want)
			}
		})
	}
}

func TestMonthStart(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*60*60)
	now := time.Date(2026, time.March, 17, 23, 59, 0, 0, loc)

	got := MonthStart(now)
	want := time.Date(2026, time.March, 1, 0, 0, 0, 0, loc)
	if !got.Equal(want) || got.Location() != loc {
		t.Errorf("MonthStart() = %v, want %v", got, want)
	}
}

// =========================================================================
// ORACLE PRECEDENCE
// =========================================================================

func TestProviderOracle(t *testing.T) {
	tests := []struct {
		name          string
		plans         []string
		dir           *fakeDirectory
		want          Plan
		wantSubsCalls int
		wantMetaCalls int
	}{
		{
			name:  "entitlement max beats pro subscription",
			plans: []string{"max"},
			dir: &fakeDirectory{subs: []identity.Subscription{
				{Status: "active", PlanName: "Pro Plan"},
			}},
			want: PlanMax,
		},
		{
			name:  "entitlement display name",
			plans: []string{"Pro Plan"},
			dir:   &fakeDirectory{},
			want:  PlanPro,
		},
		{
			name:  "both entitlements resolve to max",
			plans: []string{"pro", "Max Plan"},
			dir:   &fakeDirectory{},
			want:  PlanMax,
		},
		{
			name: "active subscription",
			dir: &fakeDirectory{subs: []identity.Subscription{
				{Status: "active", PlanName: "pro plan"},
			}},
			want:          PlanPro,
			wantSubsCalls: 1,
		},
		{
			name: "trialing subscription by slug",
			dir: &fakeDirectory{subs: []identity.Subscription{
				{Status: "trialing", PlanName: "Max (annual)", PlanSlug: "max"},
			}},
			want:          PlanMax,
			wantSubsCalls: 1,
		},
		{
			name: "max subscription listed after pro still wins",
			dir: &fakeDirectory{subs: []identity.Subscription{
				{Status: "active", PlanName: "Pro Plan"},
				{Status: "active", PlanName: "Max Plan"},
			}},
			want:          PlanMax,
			wantSubsCalls: 1,
		},
		{
			name: "canceled subscription ignored, metadata used",
			dir: &fakeDirectory{
				subs: []identity.Subscription{{Status: "canceled", PlanName: "Max Plan"}},
				meta: identity.Metadata{Plan: "pro"},
			},
			want:          PlanPro,
			wantSubsCalls: 1,
			wantMetaCalls: 1,
		},
		{
			name:          "nothing matches",
			dir:           &fakeDirectory{meta: identity.Metadata{Plan: "enterprise"}},
			want:          PlanFree,
			wantSubsCalls: 1,
			wantMetaCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewProviderOracle(tt.dir)
			got, err := o.ResolvePlan(context.Background(), identity.Identity{ID: "user_1", Plans: tt.plans})
			if err != nil {
				t.Fatalf("ResolvePlan() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ResolvePlan() = %q, want %q", got, tt.want)
			}
			if tt.dir.subsCalls != tt.wantSubsCalls || tt.dir.metaCalls != tt.wantMetaCalls {
				t.Errorf("provider calls = (subs %d, meta %d), want (%d, %d)",
					tt.dir.subsCalls, tt.dir.metaCalls, tt.wantSubsCalls, tt.wantMetaCalls)
			}
		})
	}
}

func TestProviderOracle_PropagatesErrors(t *testing.T) {
	boom := errors.New("provider down")

	_, err := NewProviderOracle(&fakeDirectory{subsErr: boom}).
		ResolvePlan(context.Background(), identity.Identity{ID: "user_1"})
	if !errors.Is(err, boom) {
		t.Errorf("subscription failure: error = %v, want %v", err, boom)
	}

	_, err = NewProviderOracle(&fakeDirectory{metaErr: boom}).
		ResolvePlan(context.Background(), identity.Identity{ID: "user_1"})
	if !errors.Is(err, boom) {
		t.Errorf("metadata failure: error = %v, want %v", err, boom)
	}
}

// =========================================================================
// RESOLVER
// =========================================================================

func TestResolve_CountsOnlyThisMonth(t *testing.T) {
	now := time.Date(2026, time.May, 10, 12, 0, 0, 0, time.Local)
	store := newStore(
		time.Date(2026, time.April, 30, 23, 59, 0, 0, time.Local), // last month
		time.Date(2026, time.May, 1, 0, 0, 0, 0, time.Local),      // exactly at the boundary
		time.Date(2026, time.May, 9, 8, 0, 0, 0, time.Local),
	)
	r := NewResolver(fakeOracle{plan: PlanFree}, store, store, discardLogger(), WithClock(func() time.Time { return now }))

	got, err := r.Resolve(context.Background(), identity.Identity{ID: "user_1"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	want := Usage{Plan: PlanFree, UsageCount: 2, Limit: 2, Remaining: 0, CanSolve: false}
	if got != want {
		t.Errorf("Resolve() = %+v, want %+v", got, want)
	}
	if !store.since.Equal(time.Date(2026, time.May, 1, 0, 0, 0, 0, time.Local)) {
		t.Errorf("window start = %v, want May 1st local midnight", store.since)
	}
}

func TestResolve_MaxIsAlwaysAllowed(t *testing.T) {
	now := time.Now()
	store := newStore(now, now, now, now, now)
	r := NewResolver(fakeOracle{plan: PlanMax}, store, store, discardLogger())

	got, err := r.Resolve(context.Background(), identity.Identity{ID: "user_1"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !got.CanSolve || got.Remaining != Unlimited || got.Limit != Unlimited {
		t.Errorf("Resolve() = %+v, want unlimited and allowed", got)
	}
}

func TestResolve_Errors(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name   string
		id     identity.Identity
		oracle PlanOracle
		store  *fakeStore
		want   error
	}{
		{"no identity", identity.Identity{}, fakeOracle{plan: PlanPro}, newStore(), apperror.ErrUnauthenticated},
		{"unsynced identity", identity.Identity{ID: "user_unknown"}, fakeOracle{plan: PlanPro}, newStore(), apperror.ErrNotFound},
		{"oracle failure", identity.Identity{ID: "user_1"}, fakeOracle{err: boom}, newStore(), boom},
		{"count failure", identity.Identity{ID: "user_1"}, fakeOracle{plan: PlanPro}, &fakeStore{
			users:    map[string]*model.User{"user_1": {ID: 1}},
			countErr: boom,
		}, boom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(tt.oracle, tt.store, tt.store, discardLogger())
			_, err := r.Resolve(context.Background(), tt.id)
			if !errors.Is(err, tt.want) {
				t.Errorf("Resolve() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestPlanForDisplay_Degrades(t *testing.T) {
	store := newStore()

	tests := []struct {
		name   string
		id     identity.Identity
		oracle PlanOracle
		want   Plan
	}{
		{"anonymous", identity.Identity{}, fakeOracle{plan: PlanMax}, PlanFree},
		{"oracle error", identity.Identity{ID: "user_1"}, fakeOracle{err: errors.New("down")}, PlanFree},
		{"resolved", identity.Identity{ID: "user_1"}, fakeOracle{plan: PlanPro}, PlanPro},
		// No directory row needed to display a plan.
		{"unsynced identity", identity.Identity{ID: "user_new"}, fakeOracle{plan: PlanMax}, PlanMax},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(tt.oracle, store, store, discardLogger())
			if got := r.PlanForDisplay(context.Background(), tt.id); got != tt.want {
				t.Errorf("PlanForDisplay() = %q, want %q", got, tt.want)
			}
		})
	}
}
