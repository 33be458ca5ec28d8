package resolve

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/ppiankov/trackrecord/internal/model"
)

// memStore is an in-memory subject store for resolver tests
type memStore struct {
	mu       sync.Mutex
	byHandle map[string]*model.TrackedSubject
	creates  int
}

func newMemStore() *memStore {
	return &memStore{byHandle: make(map[string]*model.TrackedSubject)}
}

func (s *memStore) GetSubjectByHandle(ctx context.Context, handle string) (*model.TrackedSubject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byHandle[handle], nil
}

func (s *memStore) CreateSubject(ctx context.Context, subject *model.TrackedSubject) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	subject.ID = uuid.NewString()
	s.byHandle[subject.Handle] = subject
	s.creates++
	return nil
}

func (s *memStore) ListSubjects(ctx context.Context) ([]model.TrackedSubject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.TrackedSubject
	for _, v := range s.byHandle {
		out = append(out, *v)
	}
	return out, nil
}

func TestHandle(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Jane Analyst", "jane_analyst"},
		{"  Dr. J. Smith-Jones  ", "dr_j_smithjones"},
		{"CNBC's Jim Cramer!", "cnbcs_jim_cramer"},
		{"ALLCAPS", "allcaps"},
	}
	for _, c := range cases {
		if got := Handle(c.in); got != c.want {
			t.Errorf("Handle(%q) = %q, want %q", c.in, got, c.want)
		}
	}

	long := Handle("a very long name that keeps going and going far beyond any sensible handle limit")
	if len(long) > MaxHandleLength {
		t.Errorf("Expected handle capped at %d, got %d", MaxHandleLength, len(long))
	}
}

func TestResolve_ExactAndHandleMatch(t *testing.T) {
	store := newMemStore()
	r := New(store)
	ctx := context.Background()

	created, isNew, err := r.ResolveOrCreate(ctx, "Jane Analyst", "Chief Economist", "BigBank", model.CategoryEconomy)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !isNew {
		t.Fatal("Expected a new subject")
	}

	// Exact match, case-insensitive
	if got := r.Resolve("jane analyst"); got == nil || got.ID != created.ID {
		t.Error("Expected case-insensitive exact match")
	}
	// Handle-form match
	if got := r.Resolve("Jane  Analyst"); got == nil {
		t.Error("Expected handle-normalized match")
	}
}

func TestResolve_SubstringFallback(t *testing.T) {
	store := newMemStore()
	r := New(store)
	ctx := context.Background()

	created, _, err := r.ResolveOrCreate(ctx, "Jerome Powell", "Chair", "Federal Reserve", model.CategoryEconomy)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Partial name contained in the cached name
	if got := r.Resolve("Powell"); got == nil || got.ID != created.ID {
		t.Error("Expected containment match on partial name")
	}
	// Cached name contained in a longer incoming string
	if got := r.Resolve("Fed Chair Jerome Powell"); got == nil || got.ID != created.ID {
		t.Error("Expected containment match on extended name")
	}
	if got := r.Resolve("Janet Yellen"); got != nil {
		t.Error("Expected no match for an unrelated name")
	}
}

func TestResolveOrCreate_HandleCollisionReuses(t *testing.T) {
	store := newMemStore()
	r := New(store)
	ctx := context.Background()

	first, _, err := r.ResolveOrCreate(ctx, "Jim Cramer", "", "CNBC", model.CategoryMarkets)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// A fresh resolver (cold cache) must find the store-level handle and
	// reuse it instead of duplicating.
	r2 := New(store)
	second, isNew, err := r2.ResolveOrCreate(ctx, "jim cramer", "", "", model.CategoryMarkets)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if isNew {
		t.Error("Expected collision to reuse the existing subject")
	}
	if second.ID != first.ID {
		t.Errorf("Expected same identity, got %s vs %s", second.ID, first.ID)
	}
	if store.creates != 1 {
		t.Errorf("Expected exactly one create, got %d", store.creates)
	}
}

func TestWarm_SeedsCacheFromStore(t *testing.T) {
	store := newMemStore()
	seeded := &model.TrackedSubject{Name: "Cathie Wood", Handle: Handle("Cathie Wood")}
	_ = store.CreateSubject(context.Background(), seeded)

	r := New(store)
	if got := r.Resolve("Cathie Wood"); got != nil {
		t.Fatal("Expected cold cache to miss")
	}
	if err := r.Warm(context.Background()); err != nil {
		t.Fatalf("warm: %v", err)
	}
	if got := r.Resolve("Cathie Wood"); got == nil {
		t.Error("Expected warm cache to hit")
	}
}

func TestDomainsFor(t *testing.T) {
	if tags := DomainsFor(model.CategoryCrypto); len(tags) == 0 || tags[0] != "crypto" {
		t.Errorf("Unexpected crypto tags: %v", tags)
	}
	if tags := DomainsFor(model.CategoryOther); len(tags) != 1 || tags[0] != "general" {
		t.Errorf("Expected generic tag for unmapped category, got %v", tags)
	}
}
