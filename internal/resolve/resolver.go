package resolve

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/ppiankov/trackrecord/internal/model"
)

// MaxHandleLength caps derived handles
const MaxHandleLength = 50

// Store is the slice of persistence the resolver needs
type Store interface {
	// GetSubjectByHandle returns nil when no subject owns the handle
	GetSubjectByHandle(ctx context.Context, handle string) (*model.TrackedSubject, error)
	// CreateSubject inserts a new subject and its zeroed metrics record
	CreateSubject(ctx context.Context, subject *model.TrackedSubject) error
	// ListSubjects returns all tracked subjects
	ListSubjects(ctx context.Context) ([]model.TrackedSubject, error)
}

// Resolver maps free-text person names to canonical tracked subjects.
// Its cache is process-local and advisory: seeded from the store at
// startup, write-through on create, and a miss only falls through to
// creation, never to incorrect results.
type Resolver struct {
	store Store
	cache *gocache.Cache // lookup key -> *model.TrackedSubject
}

// New creates a resolver over the given store. Call Warm before the
// first pipeline run to seed the cache.
func New(store Store) *Resolver {
	return &Resolver{
		store: store,
		cache: gocache.New(gocache.NoExpiration, 10*time.Minute),
	}
}

// Warm seeds the cache from the persistent store
func (r *Resolver) Warm(ctx context.Context) error {
	subjects, err := r.store.ListSubjects(ctx)
	if err != nil {
		return fmt.Errorf("list subjects: %w", err)
	}
	for i := range subjects {
		r.remember(&subjects[i])
	}
	return nil
}

func (r *Resolver) remember(s *model.TrackedSubject) {
	r.cache.Set(nameKey(s.Name), s, gocache.NoExpiration)
	r.cache.Set(handleKey(s.Handle), s, gocache.NoExpiration)
}

func nameKey(name string) string {
	return "name:" + strings.ToLower(strings.TrimSpace(name))
}

func handleKey(handle string) string {
	return "handle:" + strings.ToLower(handle)
}

// Resolve maps a name to a known subject, or nil when unmatched.
// Exact case-insensitive match on cached names and handles first, then
// the permissive substring fallback.
func (r *Resolver) Resolve(name string) *model.TrackedSubject {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil
	}

	if v, found := r.cache.Get(nameKey(trimmed)); found {
		return v.(*model.TrackedSubject)
	}
	if v, found := r.cache.Get(handleKey(Handle(trimmed))); found {
		return v.(*model.TrackedSubject)
	}

	// Fallback: permissive containment over the cached index
	lower := strings.ToLower(trimmed)
	for key, item := range r.cache.Items() {
		if !strings.HasPrefix(key, "name:") {
			continue
		}
		cached := strings.TrimPrefix(key, "name:")
		if looseMatch(lower, cached) {
			return item.Object.(*model.TrackedSubject)
		}
	}

	return nil
}

// ResolveOrCreate resolves the name, creating a new tracked subject when
// unmatched. Returns the subject and whether it was newly created.
func (r *Resolver) ResolveOrCreate(ctx context.Context, name, title, affiliation string, category model.Category) (*model.TrackedSubject, bool, error) {
	if s := r.Resolve(name); s != nil {
		return s, false, nil
	}

	handle := Handle(name)

	// Handle collision means the same logical identity under a different
	// spelling: the existing subject wins, logged upstream as a merge.
	if existing, err := r.store.GetSubjectByHandle(ctx, handle); err != nil {
		return nil, false, fmt.Errorf("check handle %q: %w", handle, err)
	} else if existing != nil {
		r.remember(existing)
		return existing, false, nil
	}

	subject := &model.TrackedSubject{
		ID:          uuid.New().String(),
		Name:        strings.TrimSpace(name),
		Handle:      handle,
		Title:       title,
		Affiliation: affiliation,
		Domains:     DomainsFor(category),
		CreatedAt:   time.Now().UTC(),
	}
	if err := r.store.CreateSubject(ctx, subject); err != nil {
		return nil, false, fmt.Errorf("create subject %q: %w", name, err)
	}

	r.remember(subject)
	return subject, true, nil
}

// Handle derives a canonical handle: strip non-alphanumerics, lowercase,
// spaces to underscores, truncated.
func Handle(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		}
	}
	handle := b.String()
	// Collapse runs of underscores left by stripped punctuation
	for strings.Contains(handle, "__") {
		handle = strings.ReplaceAll(handle, "__", "_")
	}
	handle = strings.Trim(handle, "_")
	if len(handle) > MaxHandleLength {
		handle = handle[:MaxHandleLength]
	}
	return handle
}

// defaultDomains maps claim categories to subject domain tags
var defaultDomains = map[model.Category][]string{
	model.CategoryEconomy:  {"macro", "economy"},
	model.CategoryPolitics: {"politics", "elections"},
	model.CategoryTech:     {"tech", "ai"},
	model.CategoryCrypto:   {"crypto", "markets"},
	model.CategoryMarkets:  {"markets", "stocks"},
	model.CategorySports:   {"sports"},
	model.CategoryScience:  {"science"},
	model.CategoryCulture:  {"culture", "media"},
}

// DomainsFor maps a category to default domain tags; unmapped categories
// get a single generic tag.
func DomainsFor(category model.Category) []string {
	if tags, ok := defaultDomains[category]; ok {
		out := make([]string, len(tags))
		copy(out, tags)
		return out
	}
	return []string{"general"}
}
