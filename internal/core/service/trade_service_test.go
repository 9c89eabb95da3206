package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/oldiebutgoldie/marketplace/internal/core/domain"
)

// Mock TradeStore with an item table, mimicking the real adapter's
// all-or-nothing resolve.
type mockTradeStore struct {
	mu     sync.Mutex
	trades map[string]*domain.Trade
	items  map[string]*domain.InventoryItem
}

func newMockTradeStore() *mockTradeStore {
	return &mockTradeStore{
		trades: make(map[string]*domain.Trade),
		items:  make(map[string]*domain.InventoryItem),
	}
}

func (m *mockTradeStore) addItem(id string, stock int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	status := domain.ItemStatusActive
	if stock == 0 {
		status = domain.ItemStatusSoldOut
	}
	m.items[id] = &domain.InventoryItem{ID: id, Stock: stock, Status: status}
}

func (m *mockTradeStore) itemStock(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[id].Stock
}

func cloneTrade(t *domain.Trade) *domain.Trade {
	clone := *t
	clone.History = append([]domain.Manifest(nil), t.History...)
	return &clone
}

func (m *mockTradeStore) CreateTrade(ctx context.Context, t *domain.Trade) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades[t.ID] = cloneTrade(t)
	return nil
}

func (m *mockTradeStore) GetTrade(ctx context.Context, tradeID string) (*domain.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trades[tradeID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneTrade(t), nil
}

func (m *mockTradeStore) ListTradesBySender(ctx context.Context, senderID string) ([]domain.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Trade
	for _, t := range m.trades {
		if t.SenderID == senderID {
			out = append(out, *cloneTrade(t))
		}
	}
	return out, nil
}

func (m *mockTradeStore) CounterTrade(ctx context.Context, tradeID, callerID string, manifest domain.Manifest) (*domain.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trades[tradeID]
	if !ok {
		return nil, domain.ErrNotFound
	}

	clone := cloneTrade(t)
	if err := clone.Counter(callerID, manifest); err != nil {
		return nil, err
	}
	m.trades[tradeID] = clone
	return cloneTrade(clone), nil
}

func (m *mockTradeStore) ResolveTrade(ctx context.Context, tradeID, callerID string) (*domain.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trades[tradeID]
	if !ok {
		return nil, domain.ErrNotFound
	}

	clone := cloneTrade(t)
	if err := clone.Accept(callerID); err != nil {
		return nil, err
	}

	// Stage all decrements first so a late failure leaves no trace
	staged := make(map[string]int)
	for _, itemID := range clone.Manifest.RequestedItems {
		item, ok := m.items[itemID]
		if !ok {
			return nil, &domain.StockError{ItemID: itemID, Err: domain.ErrNotFound}
		}
		if item.Stock-staged[itemID] < 1 {
			return nil, &domain.StockError{ItemID: itemID, Err: domain.ErrOutOfStock}
		}
		staged[itemID]++
	}
	for id, n := range staged {
		m.items[id].Stock -= n
		m.items[id].Status = m.items[id].StatusAfter(m.items[id].Stock)
	}

	clone.Complete()
	m.trades[tradeID] = clone
	return cloneTrade(clone), nil
}

func (m *mockTradeStore) CancelTrade(ctx context.Context, tradeID, callerID string) (*domain.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trades[tradeID]
	if !ok {
		return nil, domain.ErrNotFound
	}

	clone := cloneTrade(t)
	if err := clone.Cancel(callerID); err != nil {
		return nil, err
	}
	m.trades[tradeID] = clone
	return cloneTrade(clone), nil
}

func testManifest(requested ...string) domain.Manifest {
	return domain.Manifest{
		OfferedItems:   []string{"offered-1"},
		RequestedItems: requested,
		CashAdjustment: decimal.NewFromInt(5),
	}
}

func newTradeService(store *mockTradeStore) (*TradeService, *mockCache, *EventQueue) {
	cache := newMockCache()
	queue := NewEventQueue(256)
	return NewTradeService(store, cache, queue, "admin", zerolog.Nop()), cache, queue
}

func TestCreate_DefaultsReceiverToAdmin(t *testing.T) {
	store := newMockTradeStore()
	svc, _, queue := newTradeService(store)

	tr, err := svc.Create(context.Background(), "sender", "", testManifest("item-a"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if tr.ReceiverID != "admin" {
		t.Errorf("expected admin receiver, got %s", tr.ReceiverID)
	}
	if tr.Status != domain.TradeStatusPending || tr.CurrentTurn != "admin" {
		t.Errorf("expected pending with admin's turn, got %s/%s", tr.Status, tr.CurrentTurn)
	}
	if len(queue.Events()) != 1 {
		t.Errorf("expected 1 queued event, got %d", len(queue.Events()))
	}
}

func TestCreate_SenderIsAdmin(t *testing.T) {
	store := newMockTradeStore()
	svc, _, _ := newTradeService(store)

	_, err := svc.Create(context.Background(), "admin", "", testManifest("item-a"))
	if !errors.Is(err, domain.ErrInvalidParticipants) {
		t.Errorf("expected ErrInvalidParticipants, got %v", err)
	}
}

func TestCounter_TurnEnforcement(t *testing.T) {
	store := newMockTradeStore()
	svc, _, _ := newTradeService(store)

	tr, err := svc.Create(context.Background(), "sender", "receiver", testManifest("item-a"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// Sender opened, so the receiver must act first
	_, err = svc.Counter(context.Background(), tr.ID, "sender", testManifest("item-b"))
	if !errors.Is(err, domain.ErrNotYourTurn) {
		t.Fatalf("expected ErrNotYourTurn, got %v", err)
	}

	updated, err := svc.Counter(context.Background(), tr.ID, "receiver", testManifest("item-b"))
	if err != nil {
		t.Fatalf("counter failed: %v", err)
	}
	if updated.CurrentTurn != "sender" {
		t.Errorf("expected turn flipped to sender, got %s", updated.CurrentTurn)
	}
	if len(updated.History) != 1 {
		t.Errorf("expected 1 history entry, got %d", len(updated.History))
	}
}

func TestResolve_ConsumesStock(t *testing.T) {
	store := newMockTradeStore()
	store.addItem("item-a", 2)
	svc, cache, _ := newTradeService(store)
	cache.SetStock(context.Background(), "item-a", 2)

	tr, err := svc.Create(context.Background(), "sender", "receiver", testManifest("item-a"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	resolved, err := svc.Resolve(context.Background(), tr.ID, "receiver")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	if resolved.Status != domain.TradeStatusCompleted {
		t.Errorf("expected completed, got %s", resolved.Status)
	}
	if store.itemStock("item-a") != 1 {
		t.Errorf("expected stock 1, got %d", store.itemStock("item-a"))
	}
	if _, ok, _ := cache.GetStock(context.Background(), "item-a"); ok {
		t.Error("expected stock mirror invalidated after resolve")
	}
}

func TestResolve_AtomicRollback(t *testing.T) {
	store := newMockTradeStore()
	store.addItem("item-a", 1)
	store.addItem("item-b", 0)
	svc, _, _ := newTradeService(store)

	tr, err := svc.Create(context.Background(), "sender", "receiver", testManifest("item-a", "item-b"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	_, err = svc.Resolve(context.Background(), tr.ID, "receiver")
	var stockErr *domain.StockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected StockError, got %v", err)
	}
	if stockErr.ItemID != "item-b" || !errors.Is(stockErr.Err, domain.ErrOutOfStock) {
		t.Errorf("expected conflict on item-b, got %+v", stockErr)
	}

	if store.itemStock("item-a") != 1 {
		t.Errorf("item-a must be untouched after rollback, got %d", store.itemStock("item-a"))
	}
	after, _ := svc.Get(context.Background(), tr.ID)
	if after.Status != domain.TradeStatusPending {
		t.Errorf("trade must keep prior state after rollback, got %s", after.Status)
	}
}

func TestResolve_WrongTurn(t *testing.T) {
	store := newMockTradeStore()
	store.addItem("item-a", 1)
	svc, _, _ := newTradeService(store)

	tr, _ := svc.Create(context.Background(), "sender", "receiver", testManifest("item-a"))

	_, err := svc.Resolve(context.Background(), tr.ID, "sender")
	if !errors.Is(err, domain.ErrNotYourTurn) {
		t.Errorf("expected ErrNotYourTurn, got %v", err)
	}
	if store.itemStock("item-a") != 1 {
		t.Error("stock must be untouched on a turn violation")
	}
}

func TestCancel_BlocksFurtherTransitions(t *testing.T) {
	store := newMockTradeStore()
	store.addItem("item-a", 1)
	svc, _, _ := newTradeService(store)

	tr, _ := svc.Create(context.Background(), "sender", "receiver", testManifest("item-a"))

	if _, err := svc.Cancel(context.Background(), tr.ID, "sender"); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	if _, err := svc.Resolve(context.Background(), tr.ID, "receiver"); !errors.Is(err, domain.ErrTradeClosed) {
		t.Errorf("expected ErrTradeClosed, got %v", err)
	}
	if _, err := svc.Counter(context.Background(), tr.ID, "receiver", testManifest("item-b")); !errors.Is(err, domain.ErrTradeClosed) {
		t.Errorf("expected ErrTradeClosed, got %v", err)
	}
}

func TestListBySender(t *testing.T) {
	store := newMockTradeStore()
	svc, _, _ := newTradeService(store)

	svc.Create(context.Background(), "alice", "bob", testManifest("item-a"))
	svc.Create(context.Background(), "alice", "carol", testManifest("item-b"))
	svc.Create(context.Background(), "dave", "bob", testManifest("item-c"))

	trades, err := svc.ListBySender(context.Background(), "alice")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(trades) != 2 {
		t.Errorf("expected 2 trades for alice, got %d", len(trades))
	}
}
