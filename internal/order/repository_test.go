package order

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (Repository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db), mock
}

func TestRepository_GetOrder(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("Success", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectQuery(`SELECT id, hash, user_id, currency, amount, paid_amount, status, created_at, updated_at\s+FROM orders`).
			WithArgs(uint(5)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "hash", "user_id", "currency", "amount", "paid_amount", "status", "created_at", "updated_at"}).
				AddRow(5, "ordhash", 3, "UAH", "250.50", "0", "pending", now, now))
		mock.ExpectQuery(`FROM order_items`).
			WithArgs(uint(5)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "code", "name", "count", "price"}).
				AddRow(1, 5, "SKU-1", "Coffee", 2, "100.25"))
		mock.ExpectQuery(`FROM order_subtotals`).
			WithArgs(uint(5)).
			WillReturnRows(sqlmock.NewRows([]string{"title", "price"}).
				AddRow("Delivery", "50"))

		o, err := repo.GetOrder(ctx, 5)
		require.NoError(t, err)
		assert.Equal(t, uint(5), o.ID)
		assert.Equal(t, "ordhash", o.Hash)
		assert.Equal(t, uint(3), o.UserID)
		assert.Equal(t, StatusPending, o.Status)
		assert.True(t, decimal.RequireFromString("250.50").Equal(o.Amount))
		require.Len(t, o.Items, 1)
		assert.Equal(t, "SKU-1", o.Items[0].Code)
		assert.Equal(t, 2, o.Items[0].Count)
		require.Len(t, o.Subtotals, 1)
		assert.Equal(t, "Delivery", o.Subtotals[0].Title)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectQuery(`FROM orders`).WithArgs(uint(9)).WillReturnError(sql.ErrNoRows)

		o, err := repo.GetOrder(ctx, 9)
		assert.Nil(t, o)
		assert.ErrorIs(t, err, ErrOrderNotFound)
	})

	t.Run("ItemsError", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectQuery(`FROM orders`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "hash", "user_id", "currency", "amount", "paid_amount", "status", "created_at", "updated_at"}).
				AddRow(5, "ordhash", 3, "UAH", "10", "0", "pending", now, now))
		mock.ExpectQuery(`FROM order_items`).WillReturnError(errors.New("db down"))

		_, err := repo.GetOrder(ctx, 5)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load order items")
	})
}

func TestRepository_CreatePayment(t *testing.T) {
	repo, mock := newMockRepo(t)
	p := &Payment{OrderID: 5, Hash: "abc123", Amount: decimal.RequireFromString("99.99")}
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO payments \(order_id, hash, amount\)`).
		WithArgs(p.OrderID, p.Hash, p.Amount).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(11, now))

	require.NoError(t, repo.CreatePayment(context.Background(), p))
	assert.Equal(t, uint(11), p.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetPaymentByHash(t *testing.T) {
	ctx := context.Background()
	cols := []string{"id", "order_id", "hash", "amount", "received_amount", "paid", "invoice_id", "paid_at", "created_at"}

	t.Run("Success", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery(`FROM payments\s+WHERE hash = \$1`).
			WithArgs("abc123").
			WillReturnRows(sqlmock.NewRows(cols).
				AddRow(11, 5, "abc123", "99.99", "0", false, nil, nil, time.Now()))

		p, err := repo.GetPaymentByHash(ctx, "abc123")
		require.NoError(t, err)
		assert.Equal(t, uint(11), p.ID)
		assert.False(t, p.Paid)
		assert.Equal(t, "", p.InvoiceID)
		assert.Nil(t, p.PaidAt)
	})

	t.Run("NotFound", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery(`FROM payments`).WillReturnError(sql.ErrNoRows)

		_, err := repo.GetPaymentByHash(ctx, "nope")
		assert.ErrorIs(t, err, ErrPaymentNotFound)
	})
}

func TestRepository_SetPaymentInvoice(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec(`UPDATE payments SET invoice_id = \$2 WHERE id = \$1`).
			WithArgs(uint(11), "inv-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.SetPaymentInvoice(ctx, 11, "inv-1"))
	})

	t.Run("Missing", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec(`UPDATE payments SET invoice_id`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, repo.SetPaymentInvoice(ctx, 11, "inv-1"), ErrPaymentNotFound)
	})
}

func TestRepository_MarkPaymentPaid(t *testing.T) {
	ctx := context.Background()
	amount := decimal.RequireFromString("99.99")

	t.Run("Success", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE payments\s+SET paid = TRUE`).
			WithArgs(uint(11), amount).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE orders\s+SET paid_amount = paid_amount \+ \$2`).
			WithArgs(uint(5), amount, StatusPaid).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		updated, err := repo.MarkPaymentPaid(ctx, 11, 5, amount)
		require.NoError(t, err)
		assert.True(t, updated)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("AlreadyPaid", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE payments`).
			WithArgs(uint(11), amount).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		updated, err := repo.MarkPaymentPaid(ctx, 11, 5, amount)
		require.NoError(t, err)
		assert.False(t, updated)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("OrderUpdateFails", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE payments`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE orders`).WillReturnError(errors.New("deadlock"))
		mock.ExpectRollback()

		updated, err := repo.MarkPaymentPaid(ctx, 11, 5, amount)
		assert.Error(t, err)
		assert.False(t, updated)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("BeginFails", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectBegin().WillReturnError(errors.New("no conn"))

		_, err := repo.MarkPaymentPaid(ctx, 11, 5, amount)
		assert.Error(t, err)
	})
}
