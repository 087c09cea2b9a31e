package book

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/oddsarb/internal/domain"
)

type fakeFetcher struct {
	snap  domain.BookSnapshot
	err   error
	calls int
}

func (f *fakeFetcher) FetchBook(_ context.Context, tokenID string) (domain.BookSnapshot, error) {
	f.calls++
	if f.err != nil {
		return domain.BookSnapshot{}, f.err
	}
	s := f.snap
	s.TokenID = tokenID
	return s, nil
}

func validSnap() domain.BookSnapshot {
	return domain.BookSnapshot{
		Asks: []domain.PriceLevel{{Price: 0.45, Size: 100}},
		Bids: []domain.PriceLevel{{Price: 0.44, Size: 80}},
	}
}

func newService(f Fetcher, ttl time.Duration) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(NewMemoryCache(ttl), f, logger)
}

func TestGetBookCachesWithinTTL(t *testing.T) {
	f := &fakeFetcher{snap: validSnap()}
	s := newService(f, time.Minute)

	first, err := s.GetBook(context.Background(), "tok")
	require.NoError(t, err)
	second, err := s.GetBook(context.Background(), "tok")
	require.NoError(t, err)

	assert.Equal(t, 1, f.calls)
	assert.Equal(t, first, second)
}

func TestGetBookRefetchesAfterExpiry(t *testing.T) {
	f := &fakeFetcher{snap: validSnap()}
	s := newService(f, 10*time.Millisecond)

	_, err := s.GetBook(context.Background(), "tok")
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	_, err = s.GetBook(context.Background(), "tok")
	require.NoError(t, err)

	assert.Equal(t, 2, f.calls)
}

func TestGetBookEmptyTokenID(t *testing.T) {
	f := &fakeFetcher{snap: validSnap()}
	s := newService(f, time.Minute)

	_, err := s.GetBook(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Zero(t, f.calls)
}

func TestGetBookFetchErrorDoesNotEvict(t *testing.T) {
	f := &fakeFetcher{snap: validSnap()}
	s := newService(f, 10*time.Millisecond)

	cached, err := s.GetBook(context.Background(), "tok")
	require.NoError(t, err)

	// Expire the entry, then make the upstream fail.
	time.Sleep(20 * time.Millisecond)
	f.err = errors.New("upstream down")
	_, err = s.GetBook(context.Background(), "tok")
	require.Error(t, err)

	// Upstream recovers: the next call succeeds with a fresh fetch.
	f.err = nil
	snap, err := s.GetBook(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, cached.Asks, snap.Asks)
}

func TestGetBookRejectsOneSidedBook(t *testing.T) {
	f := &fakeFetcher{snap: domain.BookSnapshot{Asks: []domain.PriceLevel{{Price: 0.5, Size: 1}}}}
	s := newService(f, time.Minute)

	_, err := s.GetBook(context.Background(), "tok")
	assert.ErrorIs(t, err, domain.ErrInvalidBook)
}

func TestMemoryCacheMiss(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	_, err := c.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
