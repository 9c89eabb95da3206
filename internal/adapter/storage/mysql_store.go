package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/oldiebutgoldie/marketplace/internal/core/domain"
)

// MySQLStore is the transactional store for inventory and trades. Every
// mutation runs inside a single transaction with row locks, so stock can
// never go negative and a resolve either commits all of its decrements
// together with the status flip or none of them.
type MySQLStore struct {
	db *sql.DB
}

func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

func (s *MySQLStore) Reserve(ctx context.Context, itemID string, quantity int) (*domain.Reservation, error) {
	if quantity < 1 {
		return nil, domain.ErrInvalidQuantity
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, classify(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback()

	stock, status, err := lockItem(ctx, tx, itemID)
	if err != nil {
		return nil, err
	}
	if stock < quantity {
		return nil, domain.ErrOutOfStock
	}

	newStock := stock - quantity
	newStatus := statusAfter(status, newStock)

	if _, err := tx.ExecContext(ctx, `
		UPDATE inventory SET stock = ?, status = ?, updated_at = NOW(3)
		WHERE id = ?`,
		newStock, newStatus, itemID,
	); err != nil {
		return nil, classify(fmt.Errorf("update stock: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return nil, classify(fmt.Errorf("commit: %w", err))
	}

	return &domain.Reservation{
		ItemID:    itemID,
		Quantity:  quantity,
		NewStock:  newStock,
		NewStatus: newStatus,
	}, nil
}

func (s *MySQLStore) GetItem(ctx context.Context, itemID string) (*domain.InventoryItem, error) {
	var (
		item         domain.InventoryItem
		metadataJSON []byte
		refJSON      []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, metadata, reference, stock, price, item_condition, status, created_at, updated_at
		FROM inventory WHERE id = ?`, itemID,
	).Scan(&item.ID, &metadataJSON, &refJSON, &item.Stock, &item.Price,
		&item.Condition, &item.Status, &item.CreatedAt, &item.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, classify(fmt.Errorf("query item: %w", err))
	}

	if err := json.Unmarshal(metadataJSON, &item.Metadata); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	if err := json.Unmarshal(refJSON, &item.Reference); err != nil {
		return nil, fmt.Errorf("decode reference: %w", err)
	}
	return &item, nil
}

func (s *MySQLStore) CreateItem(ctx context.Context, item *domain.InventoryItem) error {
	metadataJSON, err := json.Marshal(item.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	refJSON, err := json.Marshal(item.Reference)
	if err != nil {
		return fmt.Errorf("encode reference: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO inventory (id, metadata, reference, stock, price, item_condition, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, metadataJSON, refJSON, item.Stock, item.Price,
		item.Condition, item.Status, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return classify(fmt.Errorf("insert item: %w", err))
	}
	return nil
}

func (s *MySQLStore) CreateTrade(ctx context.Context, t *domain.Trade) error {
	manifestJSON, historyJSON, err := encodeTrade(t)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO trades (id, sender_id, receiver_id, manifest, history, status, current_turn, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.SenderID, t.ReceiverID, manifestJSON, historyJSON,
		t.Status, t.CurrentTurn, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return classify(fmt.Errorf("insert trade: %w", err))
	}
	return nil
}

func (s *MySQLStore) GetTrade(ctx context.Context, tradeID string) (*domain.Trade, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, sender_id, receiver_id, manifest, history, status, current_turn, created_at, updated_at
		FROM trades WHERE id = ?`, tradeID)
	return scanTrade(row)
}

func (s *MySQLStore) ListTradesBySender(ctx context.Context, senderID string) ([]domain.Trade, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sender_id, receiver_id, manifest, history, status, current_turn, created_at, updated_at
		FROM trades WHERE sender_id = ? ORDER BY created_at DESC`, senderID)
	if err != nil {
		return nil, classify(fmt.Errorf("query trades: %w", err))
	}
	defer rows.Close()

	var trades []domain.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		trades = append(trades, *t)
	}
	return trades, rows.Err()
}

func (s *MySQLStore) CounterTrade(ctx context.Context, tradeID, callerID string, m domain.Manifest) (*domain.Trade, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, classify(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback()

	t, err := lockTrade(ctx, tx, tradeID)
	if err != nil {
		return nil, err
	}
	if err := t.Counter(callerID, m); err != nil {
		return nil, err
	}
	if err := persistTrade(ctx, tx, t); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, classify(fmt.Errorf("commit: %w", err))
	}
	return t, nil
}

func (s *MySQLStore) ResolveTrade(ctx context.Context, tradeID, callerID string) (*domain.Trade, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, classify(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback()

	t, err := lockTrade(ctx, tx, tradeID)
	if err != nil {
		return nil, err
	}
	if err := t.Accept(callerID); err != nil {
		return nil, err
	}

	// One unit per requested item, in manifest order. Reads inside the
	// transaction observe earlier decrements, so duplicate ids contend
	// for the same stock. First failure aborts everything.
	for _, itemID := range t.Manifest.RequestedItems {
		stock, status, err := lockItem(ctx, tx, itemID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, &domain.StockError{ItemID: itemID, Err: domain.ErrNotFound}
		}
		if err != nil {
			return nil, err
		}
		if stock < 1 {
			return nil, &domain.StockError{ItemID: itemID, Err: domain.ErrOutOfStock}
		}

		newStock := stock - 1
		if _, err := tx.ExecContext(ctx, `
			UPDATE inventory SET stock = ?, status = ?, updated_at = NOW(3)
			WHERE id = ?`,
			newStock, statusAfter(status, newStock), itemID,
		); err != nil {
			return nil, classify(fmt.Errorf("update stock: %w", err))
		}
	}

	t.Complete()
	if err := persistTrade(ctx, tx, t); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, classify(fmt.Errorf("commit: %w", err))
	}
	return t, nil
}

func (s *MySQLStore) CancelTrade(ctx context.Context, tradeID, callerID string) (*domain.Trade, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, classify(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback()

	t, err := lockTrade(ctx, tx, tradeID)
	if err != nil {
		return nil, err
	}
	if err := t.Cancel(callerID); err != nil {
		return nil, err
	}
	if err := persistTrade(ctx, tx, t); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, classify(fmt.Errorf("commit: %w", err))
	}
	return t, nil
}

func lockItem(ctx context.Context, tx *sql.Tx, itemID string) (int, domain.ItemStatus, error) {
	var (
		stock  int
		status domain.ItemStatus
	)
	err := tx.QueryRowContext(ctx,
		`SELECT stock, status FROM inventory WHERE id = ? FOR UPDATE`, itemID,
	).Scan(&stock, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, "", domain.ErrNotFound
	}
	if err != nil {
		return 0, "", classify(fmt.Errorf("lock item: %w", err))
	}
	return stock, status, nil
}

func lockTrade(ctx context.Context, tx *sql.Tx, tradeID string) (*domain.Trade, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT id, sender_id, receiver_id, manifest, history, status, current_turn, created_at, updated_at
		FROM trades WHERE id = ? FOR UPDATE`, tradeID)
	return scanTrade(row)
}

func persistTrade(ctx context.Context, tx *sql.Tx, t *domain.Trade) error {
	manifestJSON, historyJSON, err := encodeTrade(t)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE trades SET manifest = ?, history = ?, status = ?, current_turn = ?, updated_at = ?
		WHERE id = ?`,
		manifestJSON, historyJSON, t.Status, t.CurrentTurn, t.UpdatedAt, t.ID,
	)
	if err != nil {
		return classify(fmt.Errorf("update trade: %w", err))
	}
	return nil
}

func encodeTrade(t *domain.Trade) ([]byte, []byte, error) {
	manifestJSON, err := json.Marshal(t.Manifest)
	if err != nil {
		return nil, nil, fmt.Errorf("encode manifest: %w", err)
	}
	history := t.History
	if history == nil {
		history = []domain.Manifest{}
	}
	historyJSON, err := json.Marshal(history)
	if err != nil {
		return nil, nil, fmt.Errorf("encode history: %w", err)
	}
	return manifestJSON, historyJSON, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrade(row rowScanner) (*domain.Trade, error) {
	var (
		t            domain.Trade
		manifestJSON []byte
		historyJSON  []byte
	)
	err := row.Scan(&t.ID, &t.SenderID, &t.ReceiverID, &manifestJSON, &historyJSON,
		&t.Status, &t.CurrentTurn, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, classify(fmt.Errorf("scan trade: %w", err))
	}

	if err := json.Unmarshal(manifestJSON, &t.Manifest); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if err := json.Unmarshal(historyJSON, &t.History); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return &t, nil
}

func statusAfter(status domain.ItemStatus, newStock int) domain.ItemStatus {
	if status == domain.ItemStatusArchived {
		return status
	}
	if newStock == 0 {
		return domain.ItemStatusSoldOut
	}
	return status
}

// classify maps driver-level contention (deadlock, lock wait timeout)
// to ErrUnavailable so callers can tell "retry as-is" from hard failures.
func classify(err error) error {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case 1205, 1213:
			return fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
		}
	}
	return err
}
