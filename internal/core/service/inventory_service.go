package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/oldiebutgoldie/marketplace/internal/core/domain"
	"github.com/oldiebutgoldie/marketplace/internal/metrics"
	"github.com/oldiebutgoldie/marketplace/internal/port"
)

var ErrDuplicateRequest = errors.New("duplicate request")

type InventoryService struct {
	store   port.InventoryStore
	cache   port.CacheRepository
	catalog port.CatalogClient
	queue   *EventQueue
	logger  zerolog.Logger
}

func NewInventoryService(store port.InventoryStore, cache port.CacheRepository, catalog port.CatalogClient, queue *EventQueue, logger zerolog.Logger) *InventoryService {
	return &InventoryService{
		store:   store,
		cache:   cache,
		catalog: catalog,
		queue:   queue,
		logger:  logger,
	}
}

// Reserve decrements stock atomically, or fails without side effects.
// The request key is claimed before the store transaction and released
// again on failure, so retrying a failed request with the same key
// behaves like a first attempt.
func (s *InventoryService) Reserve(ctx context.Context, requestID, itemID string, quantity int) (*domain.Reservation, error) {
	if quantity < 1 {
		return nil, domain.ErrInvalidQuantity
	}

	idempotencyKey := "reserve:" + requestID
	ok, err := s.cache.SetIdempotency(ctx, idempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("idempotency check: %w", err)
	}
	if !ok {
		metrics.ReservationsTotal.WithLabelValues("duplicate").Inc()
		return nil, ErrDuplicateRequest
	}

	res, err := s.store.Reserve(ctx, itemID, quantity)
	if err != nil {
		if relErr := s.cache.ReleaseIdempotency(ctx, idempotencyKey); relErr != nil {
			s.logger.Warn().Err(relErr).Str("request_id", requestID).Msg("failed to release idempotency key")
		}
		metrics.ReservationsTotal.WithLabelValues(outcomeOf(err)).Inc()
		return nil, err
	}

	if err := s.cache.SetStock(ctx, itemID, res.NewStock); err != nil {
		s.logger.Warn().Err(err).Str("item_id", itemID).Msg("failed to mirror stock")
	}
	if err := s.cache.InvalidateItem(ctx, itemID); err != nil {
		s.logger.Warn().Err(err).Str("item_id", itemID).Msg("failed to invalidate item cache")
	}

	metrics.ReservationsTotal.WithLabelValues("success").Inc()
	s.emit(domain.Event{
		ID:         uuid.NewString(),
		Type:       domain.EventItemReserved,
		ItemID:     itemID,
		OccurredAt: time.Now(),
	})
	return res, nil
}

func (s *InventoryService) GetItem(ctx context.Context, itemID string) (*domain.InventoryItem, error) {
	if item, err := s.cache.GetItem(ctx, itemID); err != nil {
		s.logger.Debug().Err(err).Str("item_id", itemID).Msg("item cache read failed")
	} else if item != nil {
		return item, nil
	}

	item, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.CacheItem(ctx, item); err != nil {
		s.logger.Debug().Err(err).Str("item_id", itemID).Msg("item cache write failed")
	}
	return item, nil
}

// ImportFromCatalog creates an item hydrated from the external catalog.
// Catalog data fills display metadata only; stock and price come from
// the caller.
func (s *InventoryService) ImportFromCatalog(ctx context.Context, releaseID int64, price decimal.Decimal, condition string, stock int) (*domain.InventoryItem, error) {
	if releaseID <= 0 || stock < 0 {
		return nil, domain.ErrInvalidQuantity
	}

	rel, err := s.catalog.GetRelease(ctx, releaseID)
	if err != nil {
		return nil, fmt.Errorf("catalog lookup: %w", err)
	}

	status := domain.ItemStatusActive
	if stock == 0 {
		status = domain.ItemStatusSoldOut
	}

	now := time.Now()
	item := &domain.InventoryItem{
		ID: uuid.NewString(),
		Metadata: domain.ItemMetadata{
			Title:   rel.Title,
			Artist:  rel.Artist,
			Year:    rel.Year,
			Country: rel.Country,
			Genres:  rel.Genres,
			Styles:  rel.Styles,
			Format:  rel.Format,
		},
		Reference: domain.CatalogRef{
			DiscogsReleaseID: rel.ID,
			DiscogsURL:       rel.URL,
		},
		Stock:     stock,
		Price:     price,
		Condition: condition,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.CreateItem(ctx, item); err != nil {
		return nil, err
	}

	if err := s.cache.CacheItem(ctx, item); err != nil {
		s.logger.Debug().Err(err).Str("item_id", item.ID).Msg("item cache write failed")
	}
	s.emit(domain.Event{
		ID:         uuid.NewString(),
		Type:       domain.EventItemImported,
		ItemID:     item.ID,
		OccurredAt: now,
	})
	return item, nil
}

func (s *InventoryService) emit(evt domain.Event) {
	if !s.queue.Enqueue(evt) {
		metrics.EventsDropped.Inc()
		s.logger.Warn().Str("type", string(evt.Type)).Msg("event queue full, dropping event")
	}
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, domain.ErrOutOfStock):
		return "conflict"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrNotYourTurn), errors.Is(err, domain.ErrNotParticipant):
		return "forbidden"
	case errors.Is(err, domain.ErrTradeClosed):
		return "closed"
	case errors.Is(err, domain.ErrUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
