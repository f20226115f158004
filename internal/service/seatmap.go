package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rajuswesust/GetMyShow/internal/model"
)

// SeatLister is the read-side slice of the seat store the seat map needs.
type SeatLister interface {
	ListByShow(ctx context.Context, showID uint64) ([]model.SeatInventory, error)
}

// SeatView is one entry of the public seat map.  Lock metadata is
// deliberately absent: clients only learn whether a seat can be picked.
type SeatView struct {
	SeatID     uint64 `json:"seat_id"`
	Label      string `json:"label"`
	SeatType   string `json:"seat_type"`
	PriceCents uint32 `json:"price_cents"`
	Status     string `json:"status"`
}

// SeatMapService serves the per-show seat map, caching the rendered view in
// Redis.  Every seat transition invalidates the show's entry, so the cache
// only ever lags behind a write by the request that raced it.  A nil Redis
// client degrades to uncached reads.
type SeatMapService struct {
	seats SeatLister
	rdb   *redis.Client
	ttl   time.Duration
}

// NewSeatMapService builds the seat-map read path.  rdb may be nil.
func NewSeatMapService(seats SeatLister, rdb *redis.Client, ttl time.Duration) *SeatMapService {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &SeatMapService{seats: seats, rdb: rdb, ttl: ttl}
}

func seatMapKey(showID uint64) string { return fmt.Sprintf("seatmap:%d", showID) }

// GetSeatMap returns the seat map for a show, from cache when possible.
func (s *SeatMapService) GetSeatMap(ctx context.Context, showID uint64) ([]SeatView, error) {
	if s.rdb != nil {
		if raw, err := s.rdb.Get(ctx, seatMapKey(showID)).Bytes(); err == nil {
			var cached []SeatView
			if json.Unmarshal(raw, &cached) == nil {
				return cached, nil
			}
		}
	}

	rows, err := s.seats.ListByShow(ctx, showID)
	if err != nil {
		return nil, err
	}
	views := make([]SeatView, 0, len(rows))
	for _, inv := range rows {
		views = append(views, SeatView{
			SeatID:     inv.SeatID,
			Label:      inv.Label,
			SeatType:   inv.SeatType,
			PriceCents: inv.PriceCents,
			Status:     string(inv.Status),
		})
	}

	if s.rdb != nil {
		if raw, err := json.Marshal(views); err == nil {
			if err := s.rdb.Set(ctx, seatMapKey(showID), raw, s.ttl).Err(); err != nil {
				log.Printf("seatmap: cache set for show %d: %v", showID, err)
			}
		}
	}
	return views, nil
}

// Invalidate drops the cached seat map of a show.  Called after every seat
// transition; failures are logged only, the TTL bounds staleness anyway.
func (s *SeatMapService) Invalidate(ctx context.Context, showID uint64) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, seatMapKey(showID)).Err(); err != nil {
		log.Printf("seatmap: cache invalidate for show %d: %v", showID, err)
	}
}
