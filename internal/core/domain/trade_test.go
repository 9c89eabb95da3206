package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func manifest(requested ...string) Manifest {
	return Manifest{
		OfferedItems:   []string{"offered-1"},
		RequestedItems: requested,
		CashAdjustment: decimal.NewFromInt(10),
	}
}

func newTestTrade(t *testing.T) *Trade {
	t.Helper()
	tr, err := NewTrade("trade-1", "sender", "receiver", manifest("item-a"))
	if err != nil {
		t.Fatalf("NewTrade failed: %v", err)
	}
	return tr
}

func TestNewTrade_InitialState(t *testing.T) {
	tr := newTestTrade(t)

	if tr.Status != TradeStatusPending {
		t.Errorf("expected pending, got %s", tr.Status)
	}
	if tr.CurrentTurn != "receiver" {
		t.Errorf("expected receiver to move first, got %s", tr.CurrentTurn)
	}
	if len(tr.History) != 0 {
		t.Errorf("expected empty history, got %d entries", len(tr.History))
	}
}

func TestNewTrade_RejectsSameParticipants(t *testing.T) {
	_, err := NewTrade("trade-1", "user", "user", manifest("item-a"))
	if !errors.Is(err, ErrInvalidParticipants) {
		t.Errorf("expected ErrInvalidParticipants, got %v", err)
	}

	_, err = NewTrade("trade-1", "", "receiver", manifest("item-a"))
	if !errors.Is(err, ErrInvalidParticipants) {
		t.Errorf("expected ErrInvalidParticipants, got %v", err)
	}
}

func TestNewTrade_RejectsEmptyItemID(t *testing.T) {
	_, err := NewTrade("trade-1", "sender", "receiver", manifest(""))
	if !errors.Is(err, ErrInvalidManifest) {
		t.Errorf("expected ErrInvalidManifest, got %v", err)
	}
}

func TestCounter_FlipsTurnAndAppendsHistory(t *testing.T) {
	tr := newTestTrade(t)
	original := tr.Manifest

	if err := tr.Counter("receiver", manifest("item-b")); err != nil {
		t.Fatalf("counter failed: %v", err)
	}

	if tr.Status != TradeStatusCounterOffer {
		t.Errorf("expected counter_offer, got %s", tr.Status)
	}
	if tr.CurrentTurn != "sender" {
		t.Errorf("expected turn to flip to sender, got %s", tr.CurrentTurn)
	}
	if len(tr.History) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(tr.History))
	}
	if tr.History[0].RequestedItems[0] != original.RequestedItems[0] {
		t.Error("history should hold the superseded manifest")
	}
	if tr.Manifest.RequestedItems[0] != "item-b" {
		t.Error("manifest should be replaced wholesale")
	}
}

func TestCounter_NotYourTurn(t *testing.T) {
	tr := newTestTrade(t)

	err := tr.Counter("sender", manifest("item-b"))
	if !errors.Is(err, ErrNotYourTurn) {
		t.Errorf("expected ErrNotYourTurn, got %v", err)
	}
	if len(tr.History) != 0 {
		t.Error("failed counter must not mutate history")
	}
	if tr.Status != TradeStatusPending {
		t.Error("failed counter must not mutate status")
	}
}

func TestCounter_SamePartyTwice(t *testing.T) {
	tr := newTestTrade(t)

	if err := tr.Counter("receiver", manifest("item-b")); err != nil {
		t.Fatalf("first counter failed: %v", err)
	}
	err := tr.Counter("receiver", manifest("item-c"))
	if !errors.Is(err, ErrNotYourTurn) {
		t.Errorf("expected ErrNotYourTurn for consecutive counter, got %v", err)
	}
}

func TestCounter_AlternationIsUnbounded(t *testing.T) {
	tr := newTestTrade(t)
	parties := []string{"receiver", "sender"}

	rounds := 10
	for i := 0; i < rounds; i++ {
		if err := tr.Counter(parties[i%2], manifest("item-b")); err != nil {
			t.Fatalf("counter %d failed: %v", i, err)
		}
	}

	if len(tr.History) != rounds {
		t.Errorf("expected history length %d, got %d", rounds, len(tr.History))
	}
	// First entry is the opening manifest, later entries follow proposal order
	if tr.History[0].RequestedItems[0] != "item-a" {
		t.Error("history order must match chronological proposal order")
	}
}

func TestCounter_Stranger(t *testing.T) {
	tr := newTestTrade(t)

	err := tr.Counter("stranger", manifest("item-b"))
	if !errors.Is(err, ErrNotParticipant) {
		t.Errorf("expected ErrNotParticipant, got %v", err)
	}
}

func TestAccept_RequiresTurn(t *testing.T) {
	tr := newTestTrade(t)

	if err := tr.Accept("sender"); !errors.Is(err, ErrNotYourTurn) {
		t.Errorf("expected ErrNotYourTurn, got %v", err)
	}
	if err := tr.Accept("receiver"); err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	if tr.Status != TradeStatusAccepted {
		t.Errorf("expected accepted, got %s", tr.Status)
	}
}

func TestAccept_ClosedTrade(t *testing.T) {
	tr := newTestTrade(t)
	if err := tr.Cancel("sender"); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	if err := tr.Accept("receiver"); !errors.Is(err, ErrTradeClosed) {
		t.Errorf("expected ErrTradeClosed, got %v", err)
	}
}

func TestCancel_EitherParticipant(t *testing.T) {
	for _, caller := range []string{"sender", "receiver"} {
		tr := newTestTrade(t)
		if err := tr.Cancel(caller); err != nil {
			t.Errorf("cancel by %s failed: %v", caller, err)
		}
		if tr.Status != TradeStatusCancelled {
			t.Errorf("expected cancelled, got %s", tr.Status)
		}
	}
}

func TestCancel_Terminal(t *testing.T) {
	tr := newTestTrade(t)
	if err := tr.Cancel("sender"); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	if err := tr.Cancel("receiver"); !errors.Is(err, ErrTradeClosed) {
		t.Errorf("expected ErrTradeClosed, got %v", err)
	}
	if err := tr.Counter("receiver", manifest("item-b")); !errors.Is(err, ErrTradeClosed) {
		t.Errorf("expected ErrTradeClosed, got %v", err)
	}
}

func TestComplete_IsTerminal(t *testing.T) {
	tr := newTestTrade(t)
	if err := tr.Accept("receiver"); err != nil {
		t.Fatalf("accept failed: %v", err)
	}
	tr.Complete()

	if tr.Status != TradeStatusCompleted {
		t.Errorf("expected completed, got %s", tr.Status)
	}
	if !tr.Terminal() {
		t.Error("completed trade must be terminal")
	}
	if err := tr.Cancel("sender"); !errors.Is(err, ErrTradeClosed) {
		t.Errorf("expected ErrTradeClosed after completion, got %v", err)
	}
}
