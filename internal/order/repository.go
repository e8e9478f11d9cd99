package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

type Repository interface {
	GetOrder(ctx context.Context, orderID uint) (*Order, error)
	CreatePayment(ctx context.Context, p *Payment) error
	GetPaymentByHash(ctx context.Context, hash string) (*Payment, error)
	SetPaymentInvoice(ctx context.Context, paymentID uint, invoiceID string) error

	// MarkPaymentPaid flips the payment to paid and credits the order in one
	// transaction. It reports false when the payment was already paid.
	MarkPaymentPaid(ctx context.Context, paymentID, orderID uint, amount decimal.Decimal) (bool, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetOrder(ctx context.Context, orderID uint) (*Order, error) {
	var o Order
	err := r.db.QueryRowContext(ctx, `
		SELECT id, hash, user_id, currency, amount, paid_amount, status, created_at, updated_at
		FROM orders
		WHERE id = $1
	`, orderID).Scan(
		&o.ID, &o.Hash, &o.UserID, &o.Currency, &o.Amount, &o.PaidAmount,
		&o.Status, &o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	if o.Items, err = r.getOrderItems(ctx, o.ID); err != nil {
		return nil, err
	}
	if o.Subtotals, err = r.getOrderSubtotals(ctx, o.ID); err != nil {
		return nil, err
	}

	return &o, nil
}

func (r *repository) getOrderItems(ctx context.Context, orderID uint) ([]OrderItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, code, name, count, price
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.Code, &it.Name, &it.Count, &it.Price); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *repository) getOrderSubtotals(ctx context.Context, orderID uint) ([]Subtotal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT title, price
		FROM order_subtotals
		WHERE order_id = $1
		ORDER BY position, id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order subtotals: %w", err)
	}
	defer rows.Close()

	var subtotals []Subtotal
	for rows.Next() {
		var s Subtotal
		if err := rows.Scan(&s.Title, &s.Price); err != nil {
			return nil, err
		}
		subtotals = append(subtotals, s)
	}
	return subtotals, rows.Err()
}

func (r *repository) CreatePayment(ctx context.Context, p *Payment) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO payments (order_id, hash, amount)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, p.OrderID, p.Hash, p.Amount).Scan(&p.ID, &p.CreatedAt)
}

func (r *repository) GetPaymentByHash(ctx context.Context, hash string) (*Payment, error) {
	var (
		p         Payment
		invoiceID sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, order_id, hash, amount, received_amount, paid, invoice_id, paid_at, created_at
		FROM payments
		WHERE hash = $1
	`, hash).Scan(
		&p.ID, &p.OrderID, &p.Hash, &p.Amount, &p.ReceivedAmount,
		&p.Paid, &invoiceID, &p.PaidAt, &p.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}

	p.InvoiceID = invoiceID.String
	return &p, nil
}

func (r *repository) SetPaymentInvoice(ctx context.Context, paymentID uint, invoiceID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE payments SET invoice_id = $2 WHERE id = $1
	`, paymentID, invoiceID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrPaymentNotFound
	}
	return nil
}

func (r *repository) MarkPaymentPaid(
	ctx context.Context,
	paymentID uint,
	orderID uint,
	amount decimal.Decimal,
) (bool, error) {

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE payments
		SET paid = TRUE, received_amount = $2, paid_at = now()
		WHERE id = $1 AND paid = FALSE
	`, paymentID, amount)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	res, err = tx.ExecContext(ctx, `
		UPDATE orders
		SET paid_amount = paid_amount + $2,
			status = CASE WHEN paid_amount + $2 >= amount THEN $3 ELSE status END,
			updated_at = now()
		WHERE id = $1
	`, orderID, amount, StatusPaid)
	if err != nil {
		return false, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return false, ErrOrderNotFound
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}
