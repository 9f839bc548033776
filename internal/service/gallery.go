package service

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

// GallerySource loads every enrolled identity with its embeddings
type GallerySource interface {
	AllEmbeddings(ctx context.Context) ([]domain.Identity, error)
}

// CachedGallery keeps the enrolled identities in memory for ttl so that a
// session evaluating once per poll does not hit the database every time.
// A ttl of zero disables caching.
type CachedGallery struct {
	source GallerySource
	ttl    time.Duration
	clock  clockwork.Clock

	mu         sync.RWMutex
	identities []domain.Identity
	loadedAt   time.Time
	valid      bool
	// generation muda a cada Invalidate; carga iniciada antes não é gravada
	generation uint64
}

func NewCachedGallery(source GallerySource, ttl time.Duration, clock clockwork.Clock) *CachedGallery {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &CachedGallery{
		source: source,
		ttl:    ttl,
		clock:  clock,
	}
}

func (g *CachedGallery) AllEmbeddings(ctx context.Context) ([]domain.Identity, error) {
	if g.ttl <= 0 {
		return g.source.AllEmbeddings(ctx)
	}

	g.mu.RLock()
	if g.valid && g.clock.Since(g.loadedAt) < g.ttl {
		identities := g.identities
		g.mu.RUnlock()
		return identities, nil
	}
	generation := g.generation
	g.mu.RUnlock()

	identities, err := g.source.AllEmbeddings(ctx)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	if g.generation == generation {
		g.identities = identities
		g.loadedAt = g.clock.Now()
		g.valid = true
	}
	g.mu.Unlock()

	return identities, nil
}

// Invalidate drops the cached snapshot; the next read reloads it
func (g *CachedGallery) Invalidate() {
	g.mu.Lock()
	g.valid = false
	g.identities = nil
	g.generation++
	g.mu.Unlock()
}
