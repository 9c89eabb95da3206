package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TradeStatus string

const (
	TradeStatusPending      TradeStatus = "pending"
	TradeStatusCounterOffer TradeStatus = "counter_offer"
	TradeStatusAccepted     TradeStatus = "accepted"
	TradeStatusCompleted    TradeStatus = "completed"
	TradeStatusCancelled    TradeStatus = "cancelled"
)

// Manifest is the concrete proposal inside a trade. Counters replace it
// wholesale; it is never patched field by field.
type Manifest struct {
	OfferedItems   []string        `json:"offered_items"`
	RequestedItems []string        `json:"requested_items"`
	CashAdjustment decimal.Decimal `json:"cash_adjustment"`
}

func (m Manifest) Validate() error {
	for _, id := range m.OfferedItems {
		if id == "" {
			return ErrInvalidManifest
		}
	}
	for _, id := range m.RequestedItems {
		if id == "" {
			return ErrInvalidManifest
		}
	}
	return nil
}

// Trade is a two-party negotiation over a manifest. CurrentTurn names
// the single participant authorized to counter or accept next; History
// is the append-only sequence of superseded manifests.
type Trade struct {
	ID          string      `json:"id"`
	SenderID    string      `json:"sender_id"`
	ReceiverID  string      `json:"receiver_id"`
	Manifest    Manifest    `json:"manifest"`
	History     []Manifest  `json:"negotiation_history"`
	Status      TradeStatus `json:"status"`
	CurrentTurn string      `json:"current_turn"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// NewTrade opens a negotiation. The receiver moves first: they can
// counter the opening manifest or accept it as-is.
func NewTrade(id, senderID, receiverID string, m Manifest) (*Trade, error) {
	if senderID == "" || receiverID == "" || senderID == receiverID {
		return nil, ErrInvalidParticipants
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	return &Trade{
		ID:          id,
		SenderID:    senderID,
		ReceiverID:  receiverID,
		Manifest:    m,
		Status:      TradeStatusPending,
		CurrentTurn: receiverID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (t *Trade) IsParticipant(id string) bool {
	return id == t.SenderID || id == t.ReceiverID
}

func (t *Trade) Terminal() bool {
	return t.Status == TradeStatusCompleted || t.Status == TradeStatusCancelled
}

func (t *Trade) open() bool {
	return t.Status == TradeStatusPending || t.Status == TradeStatusCounterOffer
}

// Counter replaces the manifest with a new proposal, archives the old
// one, and hands the turn to the other participant. Two consecutive
// counters by the same party are rejected regardless of timing.
func (t *Trade) Counter(callerID string, m Manifest) error {
	if !t.open() {
		return ErrTradeClosed
	}
	if !t.IsParticipant(callerID) {
		return ErrNotParticipant
	}
	if callerID != t.CurrentTurn {
		return ErrNotYourTurn
	}
	if err := m.Validate(); err != nil {
		return err
	}

	t.History = append(t.History, t.Manifest)
	t.Manifest = m
	t.Status = TradeStatusCounterOffer
	t.CurrentTurn = t.otherParty(callerID)
	t.UpdatedAt = time.Now()
	return nil
}

// Accept marks the current manifest as agreed. Only the participant
// holding the turn may accept; completion happens when the stock
// decrements commit alongside it.
func (t *Trade) Accept(callerID string) error {
	if !t.open() {
		return ErrTradeClosed
	}
	if !t.IsParticipant(callerID) {
		return ErrNotParticipant
	}
	if callerID != t.CurrentTurn {
		return ErrNotYourTurn
	}

	t.Status = TradeStatusAccepted
	t.UpdatedAt = time.Now()
	return nil
}

// Complete is the terminal transition after the manifest's stock has
// been consumed. Irreversible.
func (t *Trade) Complete() {
	t.Status = TradeStatusCompleted
	t.UpdatedAt = time.Now()
}

// Cancel closes the negotiation. Either participant may cancel while
// the trade is non-terminal.
func (t *Trade) Cancel(callerID string) error {
	if !t.open() {
		return ErrTradeClosed
	}
	if !t.IsParticipant(callerID) {
		return ErrNotParticipant
	}

	t.Status = TradeStatusCancelled
	t.UpdatedAt = time.Now()
	return nil
}

func (t *Trade) otherParty(id string) string {
	if id == t.SenderID {
		return t.ReceiverID
	}
	return t.SenderID
}
