package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"BartWatch/internal/domain/models"
	drepo "BartWatch/internal/domain/repository"
)

// FeedPoller fetches every configured station once per cycle.
type FeedPoller struct {
	feed     drepo.DepartureFeed
	stations []string
	timeout  time.Duration
}

// NewFeedPoller sorts and deduplicates stationIDs so each cycle polls in a fixed order.
func NewFeedPoller(feed drepo.DepartureFeed, stationIDs []string, timeout time.Duration) *FeedPoller {
	seen := make(map[string]struct{}, len(stationIDs))
	ids := make([]string, 0, len(stationIDs))
	for _, id := range stationIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return &FeedPoller{feed: feed, stations: ids, timeout: timeout}
}

// Stations returns the polling order.
func (p *FeedPoller) Stations() []string {
	out := make([]string, len(p.stations))
	copy(out, p.stations)
	return out
}

type pollResult struct {
	feeds []StationFeed
	err   error
}

// Poll fetches all stations within the poller timeout. The fetch runs in its own
// goroutine so an adapter that ignores ctx still cannot hold the caller past the bound.
// Adapter errors are returned unmodified; there is no retry here.
func (p *FeedPoller) Poll(ctx context.Context) ([]StationFeed, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	done := make(chan pollResult, 1)
	go func() {
		feeds := make([]StationFeed, 0, len(p.stations))
		for _, id := range p.stations {
			groups, err := p.feed.Fetch(ctx, id)
			if err != nil {
				done <- pollResult{err: err}
				return
			}
			feeds = append(feeds, StationFeed{StationID: id, Groups: groups})
		}
		done <- pollResult{feeds: feeds}
	}()

	select {
	case r := <-done:
		if r.err != nil && errors.Is(r.err, context.DeadlineExceeded) && ctx.Err() != nil {
			return nil, fmt.Errorf("%w after %s: %w", models.ErrFeedTimeout, p.timeout, r.err)
		}
		return r.feeds, r.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", models.ErrFeedTimeout, p.timeout)
		}
		return nil, ctx.Err()
	}
}
