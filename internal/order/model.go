package order

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending  OrderStatus = "pending"
	StatusPaid     OrderStatus = "paid"
	StatusCanceled OrderStatus = "canceled"
)

type Order struct {
	ID         uint
	Hash       string
	UserID     uint
	Currency   string
	Amount     decimal.Decimal
	PaidAmount decimal.Decimal
	Status     OrderStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Items      []OrderItem
	Subtotals  []Subtotal
}

// Remaining is the part of the total not yet covered by paid payments.
func (o *Order) Remaining() decimal.Decimal {
	r := o.Amount.Sub(o.PaidAmount)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

// OrderItem is one cart line frozen into the order.
type OrderItem struct {
	ID      uint
	OrderID uint
	Code    string
	Name    string
	Count   int
	Price   decimal.Decimal
}

// Subtotal is an order-level charge such as delivery.
type Subtotal struct {
	Title string
	Price decimal.Decimal
}

type Payment struct {
	ID             uint
	OrderID        uint
	Hash           string
	Amount         decimal.Decimal
	ReceivedAmount decimal.Decimal
	Paid           bool
	InvoiceID      string
	PaidAt         *time.Time
	CreatedAt      time.Time
}
