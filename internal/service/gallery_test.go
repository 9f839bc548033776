package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

func TestCachedGallery(t *testing.T) {
	ctx := context.Background()
	snapshot := []domain.Identity{{ExternalID: "a"}}

	t.Run("serves cached snapshot within ttl", func(t *testing.T) {
		clock := clockwork.NewFakeClock()
		source := new(MockEmbeddingRepository)
		source.On("AllEmbeddings", ctx).Return(snapshot, nil).Once()

		g := NewCachedGallery(source, 30*time.Second, clock)
		for i := 0; i < 3; i++ {
			got, err := g.AllEmbeddings(ctx)
			require.NoError(t, err)
			assert.Equal(t, snapshot, got)
			clock.Advance(5 * time.Second)
		}
		source.AssertExpectations(t)
	})

	t.Run("reloads after ttl", func(t *testing.T) {
		clock := clockwork.NewFakeClock()
		source := new(MockEmbeddingRepository)
		source.On("AllEmbeddings", ctx).Return(snapshot, nil).Twice()

		g := NewCachedGallery(source, 30*time.Second, clock)
		_, _ = g.AllEmbeddings(ctx)
		clock.Advance(30 * time.Second)
		_, _ = g.AllEmbeddings(ctx)
		source.AssertExpectations(t)
	})

	t.Run("invalidate forces reload", func(t *testing.T) {
		source := new(MockEmbeddingRepository)
		source.On("AllEmbeddings", ctx).Return(snapshot, nil).Twice()

		g := NewCachedGallery(source, time.Hour, clockwork.NewFakeClock())
		_, _ = g.AllEmbeddings(ctx)
		g.Invalidate()
		_, _ = g.AllEmbeddings(ctx)
		source.AssertExpectations(t)
	})

	t.Run("zero ttl disables caching", func(t *testing.T) {
		source := new(MockEmbeddingRepository)
		source.On("AllEmbeddings", ctx).Return(snapshot, nil).Times(3)

		g := NewCachedGallery(source, 0, nil)
		for i := 0; i < 3; i++ {
			_, _ = g.AllEmbeddings(ctx)
		}
		source.AssertExpectations(t)
	})

	t.Run("errors are not cached", func(t *testing.T) {
		source := new(MockEmbeddingRepository)
		source.On("AllEmbeddings", ctx).Return(nil, errors.New("db down")).Once()
		source.On("AllEmbeddings", ctx).Return(snapshot, nil).Once()

		g := NewCachedGallery(source, time.Hour, clockwork.NewFakeClock())
		_, err := g.AllEmbeddings(ctx)
		require.Error(t, err)

		got, err := g.AllEmbeddings(ctx)
		require.NoError(t, err)
		assert.Equal(t, snapshot, got)
	})
}

// gatedSource holds the first load until release is closed
type gatedSource struct {
	started chan struct{}
	release chan struct{}
	calls   atomic.Int32
	loads   [][]domain.Identity
}

func (s *gatedSource) AllEmbeddings(ctx context.Context) ([]domain.Identity, error) {
	n := s.calls.Add(1)
	if n == 1 {
		close(s.started)
		<-s.release
	}
	return s.loads[min(int(n), len(s.loads))-1], nil
}

func TestCachedGallery_InvalidateDuringLoad(t *testing.T) {
	ctx := context.Background()
	before := []domain.Identity{{ExternalID: "a"}}
	after := []domain.Identity{{ExternalID: "a"}, {ExternalID: "b"}}

	source := &gatedSource{
		started: make(chan struct{}),
		release: make(chan struct{}),
		loads:   [][]domain.Identity{before, after},
	}
	g := NewCachedGallery(source, time.Hour, clockwork.NewFakeClock())

	done := make(chan []domain.Identity, 1)
	go func() {
		got, _ := g.AllEmbeddings(ctx)
		done <- got
	}()

	<-source.started
	// cadastro termina enquanto a carga antiga está em voo
	g.Invalidate()
	close(source.release)

	// quem pediu antes recebe o que leu, mas o cache não guarda
	assert.Equal(t, before, <-done)

	got, err := g.AllEmbeddings(ctx)
	require.NoError(t, err)
	assert.Equal(t, after, got)
	assert.Equal(t, int32(2), source.calls.Load())

	// a carga nova vale até o ttl
	_, _ = g.AllEmbeddings(ctx)
	assert.Equal(t, int32(2), source.calls.Load())
}
