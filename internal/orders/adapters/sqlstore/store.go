// Package sqlstore persists orders through database/sql. The same queries
// serve SQLite and PostgreSQL; placeholders are rebound per dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"

	"github.com/dejobratic/orderflow/internal/database"
	"github.com/dejobratic/orderflow/internal/orders/domain"
	"github.com/dejobratic/orderflow/internal/orders/ports"
)

const pgUniqueViolation = "23505"

const (
	selectOrder = `
		SELECT order_id, mobile, raw_message, status, created_at_utc, fulfilled_at_utc, total_pence
		FROM orders
		WHERE order_id = ?`

	selectLines = `
		SELECT sku, qty, unit_price_pence, line_total_pence
		FROM order_lines
		WHERE order_id = ?
		ORDER BY sku ASC`

	selectPendingOrders = `
		SELECT order_id, mobile, raw_message, status, created_at_utc, fulfilled_at_utc, total_pence
		FROM orders
		WHERE status = ?
		ORDER BY mobile ASC, created_at_utc ASC, order_id ASC`

	selectPendingLines = `
		SELECT l.order_id, l.sku, l.qty, l.unit_price_pence, l.line_total_pence
		FROM order_lines l
		JOIN orders o ON o.order_id = l.order_id
		WHERE o.status = ?
		ORDER BY l.order_id ASC, l.sku ASC`

	insertOrder = `
		INSERT INTO orders (order_id, mobile, raw_message, status, created_at_utc, fulfilled_at_utc, total_pence)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	insertLine = `
		INSERT INTO order_lines (order_id, sku, qty, unit_price_pence, line_total_pence)
		VALUES (?, ?, ?, ?, ?)`

	fulfillPending = `
		UPDATE orders
		SET status = ?, fulfilled_at_utc = ?
		WHERE order_id = ? AND status = ?`
)

// Store is the SQL-backed OrderRepository.
type Store struct {
	db *database.DB
}

// New wraps an open database. Call InitSchema before first use.
func New(db *database.DB) *Store {
	return &Store{db: db}
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// InitSchema applies the embedded migrations for the store's dialect.
func (s *Store) InitSchema(_ context.Context) error {
	if err := s.db.Migrate(); err != nil {
		return dbError("init schema", err)
	}
	return nil
}

// Create inserts the order and its lines in one transaction.
func (s *Store) Create(ctx context.Context, order domain.Order) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return dbError("begin create", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var one int
	err = tx.QueryRowContext(ctx, s.rebind("SELECT 1 FROM orders WHERE order_id = ?"), order.ID).Scan(&one)
	switch {
	case err == nil:
		return ports.ErrAlreadyExists
	case !errors.Is(err, sql.ErrNoRows):
		return dbError("check order exists", err)
	}

	_, err = tx.ExecContext(ctx, s.rebind(insertOrder),
		order.ID,
		order.Mobile,
		order.RawMessage,
		string(order.Status),
		domain.FormatTimestamp(order.CreatedAt),
		formatOptional(order.FulfilledAt),
		order.TotalPence,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ports.ErrAlreadyExists
		}
		return dbError("insert order", err)
	}

	for _, line := range order.Items {
		_, err = tx.ExecContext(ctx, s.rebind(insertLine),
			order.ID, line.SKU, line.Qty, line.UnitPricePence, line.LineTotalPence)
		if err != nil {
			return dbError("insert order line", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return dbError("commit create", err)
	}
	return nil
}

// Get loads an order with its lines.
func (s *Store) Get(ctx context.Context, id string) (*domain.Order, error) {
	return s.load(ctx, s.db, id)
}

// ListOutstandingByMobile returns pending orders grouped by mobile.
func (s *Store) ListOutstandingByMobile(ctx context.Context) ([]ports.MobileOrders, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, dbError("begin list", err)
	}
	defer tx.Rollback()

	orders, err := s.scanOrders(ctx, tx, selectPendingOrders, string(domain.StatusPending))
	if err != nil {
		return nil, err
	}

	lines, err := s.scanPendingLines(ctx, tx)
	if err != nil {
		return nil, err
	}

	groups := []ports.MobileOrders{}
	for _, order := range orders {
		order.Items = lines[order.ID]
		if n := len(groups); n > 0 && groups[n-1].Mobile == order.Mobile {
			groups[n-1].Orders = append(groups[n-1].Orders, order)
			continue
		}
		groups = append(groups, ports.MobileOrders{Mobile: order.Mobile, Orders: []domain.Order{order}})
	}

	if err := tx.Commit(); err != nil {
		return nil, dbError("commit list", err)
	}
	return groups, nil
}

// Fulfill transitions a pending order to FULFILLED in one transaction.
func (s *Store) Fulfill(ctx context.Context, id string, fulfilledAt time.Time) (_ *domain.Order, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, dbError("begin fulfill", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, s.rebind(fulfillPending),
		string(domain.StatusFulfilled), domain.FormatTimestamp(fulfilledAt), id, string(domain.StatusPending))
	if err != nil {
		return nil, dbError("update order status", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, dbError("rows affected", err)
	}

	if affected == 0 {
		var status string
		err = tx.QueryRowContext(ctx, s.rebind("SELECT status FROM orders WHERE order_id = ?"), id).Scan(&status)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ports.ErrNotFound
		case err != nil:
			return nil, dbError("check order status", err)
		default:
			return nil, ports.ErrAlreadyFulfilled
		}
	}

	order, err := s.load(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, dbError("commit fulfill", err)
	}
	return order, nil
}

func (s *Store) load(ctx context.Context, q querier, id string) (*domain.Order, error) {
	orders, err := s.scanOrders(ctx, q, selectOrder, id)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, ports.ErrNotFound
	}
	order := orders[0]

	rows, err := q.QueryContext(ctx, s.rebind(selectLines), id)
	if err != nil {
		return nil, dbError("query order lines", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line domain.OrderLine
		if err := rows.Scan(&line.SKU, &line.Qty, &line.UnitPricePence, &line.LineTotalPence); err != nil {
			return nil, dbError("scan order line", err)
		}
		order.Items = append(order.Items, line)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("iterate order lines", err)
	}

	return &order, nil
}

func (s *Store) scanOrders(ctx context.Context, q querier, query string, arg any) ([]domain.Order, error) {
	rows, err := q.QueryContext(ctx, s.rebind(query), arg)
	if err != nil {
		return nil, dbError("query orders", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var (
			order       domain.Order
			status      string
			createdAt   string
			fulfilledAt sql.NullString
		)
		if err := rows.Scan(&order.ID, &order.Mobile, &order.RawMessage, &status,
			&createdAt, &fulfilledAt, &order.TotalPence); err != nil {
			return nil, dbError("scan order", err)
		}

		order.Status = domain.OrderStatus(status)
		if order.CreatedAt, err = domain.ParseTimestamp(createdAt); err != nil {
			return nil, dbError("decode created_at_utc", err)
		}
		if fulfilledAt.Valid {
			ts, err := domain.ParseTimestamp(fulfilledAt.String)
			if err != nil {
				return nil, dbError("decode fulfilled_at_utc", err)
			}
			order.FulfilledAt = &ts
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("iterate orders", err)
	}

	return orders, nil
}

func (s *Store) scanPendingLines(ctx context.Context, q querier) (map[string][]domain.OrderLine, error) {
	rows, err := q.QueryContext(ctx, s.rebind(selectPendingLines), string(domain.StatusPending))
	if err != nil {
		return nil, dbError("query pending lines", err)
	}
	defer rows.Close()

	lines := make(map[string][]domain.OrderLine)
	for rows.Next() {
		var (
			orderID string
			line    domain.OrderLine
		)
		if err := rows.Scan(&orderID, &line.SKU, &line.Qty, &line.UnitPricePence, &line.LineTotalPence); err != nil {
			return nil, dbError("scan pending line", err)
		}
		lines[orderID] = append(lines[orderID], line)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("iterate pending lines", err)
	}

	return lines, nil
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (s *Store) rebind(query string) string {
	if s.db.Driver != database.DriverPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return false
}

func formatOptional(ts *time.Time) any {
	if ts == nil {
		return nil
	}
	return domain.FormatTimestamp(*ts)
}

func dbError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ports.ErrDatabase, err)
}
