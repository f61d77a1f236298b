package integration

import (
	"context"
	"sync"
	"time"

	"github.com/valter-silva-au/ditto/internal/core"
	"github.com/valter-silva-au/ditto/pkg/models"
)

type cacheEntry[T any] struct {
	value   T
	fetched time.Time
}

// CachedDirectory keeps reference data from another directory for a TTL.
// A zero TTL disables caching, so every command sees fresh data. Failed
// lookups are never cached.
type CachedDirectory struct {
	next core.ReferenceDirectory
	ttl  time.Duration
	now  func() time.Time

	mu       sync.Mutex
	teams    map[string]cacheEntry[[]models.Team]
	users    map[string]cacheEntry[[]models.User]
	projects map[string]cacheEntry[[]models.Project]
	cycles   map[string]cacheEntry[[]models.Cycle]
	labels   map[string]cacheEntry[[]models.Label]
}

// NewCachedDirectory wraps next with a TTL cache.
func NewCachedDirectory(next core.ReferenceDirectory, ttl time.Duration) *CachedDirectory {
	return &CachedDirectory{
		next:     next,
		ttl:      ttl,
		now:      time.Now,
		teams:    make(map[string]cacheEntry[[]models.Team]),
		users:    make(map[string]cacheEntry[[]models.User]),
		projects: make(map[string]cacheEntry[[]models.Project]),
		cycles:   make(map[string]cacheEntry[[]models.Cycle]),
		labels:   make(map[string]cacheEntry[[]models.Label]),
	}
}

// Invalidate drops everything cached.
func (d *CachedDirectory) Invalidate() {
	d.mu.Lock()
	defer d.mu.Unlock()
	clear(d.teams)
	clear(d.users)
	clear(d.projects)
	clear(d.cycles)
	clear(d.labels)
}

// InvalidatingCreator creates issues through another creator and drops the
// cached reference data whenever a create fails. A rejected create usually
// means the cache named a team, cycle or label the tracker no longer has;
// the next command is then validated against fresh data.
type InvalidatingCreator struct {
	next  core.IssueCreator
	cache *CachedDirectory
}

// NewInvalidatingCreator wraps next so that its failures invalidate cache.
func NewInvalidatingCreator(next core.IssueCreator, cache *CachedDirectory) *InvalidatingCreator {
	return &InvalidatingCreator{next: next, cache: cache}
}

func (c *InvalidatingCreator) CreateIssue(ctx context.Context, in models.CreateIssueInput) (*models.CreatedIssue, error) {
	issue, err := c.next.CreateIssue(ctx, in)
	if err != nil {
		c.cache.Invalidate()
		return nil, err
	}
	return issue, nil
}

func (d *CachedDirectory) Teams(ctx context.Context) ([]models.Team, error) {
	return cached(d, d.teams, "", func() ([]models.Team, error) { return d.next.Teams(ctx) })
}

func (d *CachedDirectory) Projects(ctx context.Context, teamID string) ([]models.Project, error) {
	return cached(d, d.projects, teamID, func() ([]models.Project, error) { return d.next.Projects(ctx, teamID) })
}

func (d *CachedDirectory) ActiveCycles(ctx context.Context, teamID string) ([]models.Cycle, error) {
	return cached(d, d.cycles, teamID, func() ([]models.Cycle, error) { return d.next.ActiveCycles(ctx, teamID) })
}

func (d *CachedDirectory) Users(ctx context.Context) ([]models.User, error) {
	return cached(d, d.users, "", func() ([]models.User, error) { return d.next.Users(ctx) })
}

func (d *CachedDirectory) Labels(ctx context.Context, teamID string) ([]models.Label, error) {
	return cached(d, d.labels, teamID, func() ([]models.Label, error) { return d.next.Labels(ctx, teamID) })
}

// cached serves key from m while fresh, fetching under the lock otherwise
// so concurrent callers share one request.
func cached[T any](d *CachedDirectory, m map[string]cacheEntry[T], key string, fetch func() (T, error)) (T, error) {
	if d.ttl <= 0 {
		return fetch()
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if e, ok := m[key]; ok && now.Sub(e.fetched) < d.ttl {
		return e.value, nil
	}
	v, err := fetch()
	if err != nil {
		var zero T
		return zero, err
	}
	m[key] = cacheEntry[T]{value: v, fetched: now}
	return v, nil
}
