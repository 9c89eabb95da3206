package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/oldiebutgoldie/marketplace/internal/core/domain"
	"github.com/oldiebutgoldie/marketplace/internal/metrics"
	"github.com/oldiebutgoldie/marketplace/internal/port"
)

type TradeService struct {
	store   port.TradeStore
	cache   port.CacheRepository
	queue   *EventQueue
	adminID string
	logger  zerolog.Logger
}

// NewTradeService wires the negotiation workflow. adminID is the
// identity trades default to when no receiver is named.
func NewTradeService(store port.TradeStore, cache port.CacheRepository, queue *EventQueue, adminID string, logger zerolog.Logger) *TradeService {
	return &TradeService{
		store:   store,
		cache:   cache,
		queue:   queue,
		adminID: adminID,
		logger:  logger,
	}
}

func (s *TradeService) Create(ctx context.Context, senderID, receiverID string, m domain.Manifest) (*domain.Trade, error) {
	if receiverID == "" {
		receiverID = s.adminID
	}

	t, err := domain.NewTrade(uuid.NewString(), senderID, receiverID, m)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateTrade(ctx, t); err != nil {
		return nil, err
	}

	s.emit(domain.EventTradeCreated, t.ID, senderID)
	return t, nil
}

func (s *TradeService) Get(ctx context.Context, tradeID string) (*domain.Trade, error) {
	return s.store.GetTrade(ctx, tradeID)
}

func (s *TradeService) ListBySender(ctx context.Context, senderID string) ([]domain.Trade, error) {
	return s.store.ListTradesBySender(ctx, senderID)
}

func (s *TradeService) Counter(ctx context.Context, tradeID, callerID string, m domain.Manifest) (*domain.Trade, error) {
	t, err := s.store.CounterTrade(ctx, tradeID, callerID, m)
	if err != nil {
		return nil, err
	}

	s.emit(domain.EventTradeCountered, t.ID, callerID)
	return t, nil
}

// Resolve accepts the current manifest and consumes stock for every
// requested item in one transaction. On success the stock mirrors for
// the touched items are dropped so reads refetch committed state.
func (s *TradeService) Resolve(ctx context.Context, tradeID, callerID string) (*domain.Trade, error) {
	t, err := s.store.ResolveTrade(ctx, tradeID, callerID)
	if err != nil {
		metrics.TradeResolutionsTotal.WithLabelValues(outcomeOf(err)).Inc()
		return nil, err
	}

	for _, itemID := range t.Manifest.RequestedItems {
		if err := s.cache.InvalidateItem(ctx, itemID); err != nil {
			s.logger.Warn().Err(err).Str("item_id", itemID).Msg("failed to invalidate item cache")
		}
	}

	metrics.TradeResolutionsTotal.WithLabelValues("success").Inc()
	s.emit(domain.EventTradeCompleted, t.ID, callerID)
	return t, nil
}

func (s *TradeService) Cancel(ctx context.Context, tradeID, callerID string) (*domain.Trade, error) {
	t, err := s.store.CancelTrade(ctx, tradeID, callerID)
	if err != nil {
		return nil, err
	}

	s.emit(domain.EventTradeCancelled, t.ID, callerID)
	return t, nil
}

func (s *TradeService) emit(typ domain.EventType, tradeID, actor string) {
	evt := domain.Event{
		ID:         uuid.NewString(),
		Type:       typ,
		TradeID:    tradeID,
		Actor:      actor,
		OccurredAt: time.Now(),
	}
	if !s.queue.Enqueue(evt) {
		metrics.EventsDropped.Inc()
		s.logger.Warn().Str("type", string(typ)).Str("trade_id", tradeID).Msg("event queue full, dropping event")
	}
}
