package payment

import (
	"encoding/json"
	"strings"
	"testing"
	"unicode/utf8"

	"monopay-be/internal/order"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testSettings(t *testing.T) Settings {
	s, err := NewSettings("https://shop.example.com", "Shop", "Order #{{.OrderID}} at {{.SiteName}}")
	require.NoError(t, err)
	return s
}

func testOrder() *order.Order {
	return &order.Order{
		ID:       42,
		Hash:     "ordhash",
		UserID:   3,
		Currency: "UAH",
		Amount:   dec("290.00"),
		Items: []order.OrderItem{
			{Code: "SKU-1", Name: "Coffee", Count: 2, Price: dec("100.00")},
			{Code: "SKU-2", Name: "Mug", Count: 1, Price: dec("50.00")},
		},
		Subtotals: []order.Subtotal{
			{Title: "Delivery", Price: dec("50.00")},
			{Title: "Discount", Price: dec("-10.00")},
		},
	}
}

func TestBuildInvoiceRequest_FullPayment(t *testing.T) {
	o := testOrder()
	p := &order.Payment{ID: 1, OrderID: 42, Hash: "abc123", Amount: dec("290.00")}

	req, err := BuildInvoiceRequest(o, p, testSettings(t))
	require.NoError(t, err)

	assert.Equal(t, int64(29000), req.Amount)
	assert.Equal(t, CurrencyUAH, req.Ccy)
	assert.Equal(t, "42-ordhash", req.MerchantPaymInfo.Reference)
	assert.Equal(t, "Order #42 at Shop", req.MerchantPaymInfo.Destination)
	assert.Equal(t, "https://shop.example.com/commerce/monobank/payment-process?paymentHash=abc123", req.RedirectURL)
	assert.Equal(t, req.RedirectURL, req.WebHookURL)

	// the 10.00 discount is spread over every line, not dropped
	assert.Equal(t, []BasketItem{
		{Name: "Coffee", Qty: 2, Sum: 9667, Code: "SKU-1"},
		{Name: "Mug", Qty: 1, Sum: 4833, Code: "SKU-2"},
		{Name: "Delivery", Qty: 1, Sum: 4833, Code: "subtotal-1"},
	}, req.MerchantPaymInfo.BasketOrder)
	assert.Equal(t, req.Amount, basketSum(req.MerchantPaymInfo.BasketOrder))
}

func TestBuildInvoiceRequest_BasketWithoutDiscount(t *testing.T) {
	o := testOrder()
	o.Amount = dec("300.00")
	o.Subtotals = o.Subtotals[:1]
	p := &order.Payment{Hash: "abc123", Amount: dec("300.00")}

	req, err := BuildInvoiceRequest(o, p, testSettings(t))
	require.NoError(t, err)

	assert.Equal(t, []BasketItem{
		{Name: "Coffee", Qty: 2, Sum: 10000, Code: "SKU-1"},
		{Name: "Mug", Qty: 1, Sum: 5000, Code: "SKU-2"},
		{Name: "Delivery", Qty: 1, Sum: 5000, Code: "subtotal-1"},
	}, req.MerchantPaymInfo.BasketOrder)
}

func TestBuildInvoiceRequest_WireFormat(t *testing.T) {
	o := testOrder()
	o.Currency = "USD"
	p := &order.Payment{Hash: "abc123", Amount: dec("19.99")}

	req, err := BuildInvoiceRequest(o, p, testSettings(t))
	require.NoError(t, err)

	raw, err := json.Marshal(req)
	require.NoError(t, err)

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, float64(1999), m["amount"])
	assert.Equal(t, float64(840), m["ccy"])
	assert.Contains(t, m, "redirectUrl")
	assert.Contains(t, m, "webHookUrl")
	info := m["merchantPaymInfo"].(map[string]interface{})
	assert.Contains(t, info, "basketOrder")
	assert.Contains(t, info, "destination")
}

func TestBuildInvoiceRequest_PartialPayment(t *testing.T) {
	o := testOrder()
	p := &order.Payment{Hash: "abc123", Amount: dec("145.00")}

	req, err := BuildInvoiceRequest(o, p, testSettings(t))
	require.NoError(t, err)

	assert.Equal(t, int64(14500), req.Amount)
	assert.Equal(t, []BasketItem{
		{Name: "Coffee", Qty: 2, Sum: 4833, Code: "SKU-1"},
		{Name: "Mug", Qty: 1, Sum: 2417, Code: "SKU-2"},
		{Name: "Delivery", Qty: 1, Sum: 2417, Code: "subtotal-1"},
	}, req.MerchantPaymInfo.BasketOrder)
	assert.Equal(t, req.Amount, basketSum(req.MerchantPaymInfo.BasketOrder))
}

func TestBuildInvoiceRequest_Errors(t *testing.T) {
	o := testOrder()

	_, err := BuildInvoiceRequest(o, &order.Payment{Hash: "abc", Amount: decimal.Zero}, testSettings(t))
	assert.ErrorIs(t, err, ErrInvalidAmount)

	s, err := NewSettings("", "Shop", "x")
	require.NoError(t, err)
	_, err = BuildInvoiceRequest(o, &order.Payment{Hash: "abc", Amount: dec("1")}, s)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid invoice request")
}

func TestNewSettings_BadTemplate(t *testing.T) {
	_, err := NewSettings("https://a.b/", "Shop", "{{.OrderID")
	assert.Error(t, err)
}

func TestProrate(t *testing.T) {
	t.Run("RemainderOnSingleQuantityLine", func(t *testing.T) {
		lines := []BasketItem{
			{Name: "X", Qty: 3, Sum: 1000},
			{Name: "Y", Qty: 1, Sum: 500},
		}
		out := prorate(lines, 3500, 1000)

		assert.Equal(t, int64(286), out[0].Sum)
		assert.Equal(t, int64(142), out[1].Sum)
		assert.Equal(t, int64(1000), basketSum(out))
		assert.Equal(t, int64(1000), lines[0].Sum, "input must not be modified")
	})

	t.Run("RemainderDivisibleByQuantity", func(t *testing.T) {
		lines := []BasketItem{
			{Name: "X", Qty: 2, Sum: 100},
			{Name: "Y", Qty: 2, Sum: 100},
		}
		out := prorate(lines, 400, 130)

		assert.Equal(t, int64(33), out[0].Sum)
		assert.Equal(t, int64(32), out[1].Sum)
		assert.Equal(t, int64(130), basketSum(out))
	})

	t.Run("ZeroTotal", func(t *testing.T) {
		lines := []BasketItem{{Name: "X", Qty: 1, Sum: 100}}
		assert.Equal(t, lines, prorate(lines, 0, 50))
	})
}

func TestTruncateName(t *testing.T) {
	short := "Кава"
	assert.Equal(t, short, truncateName(short, 127))

	long := strings.Repeat("ї", 200)
	got := truncateName(long, 127)
	assert.Equal(t, 127, utf8.RuneCountInString(got))
	assert.True(t, utf8.ValidString(got))

	o := testOrder()
	o.Items[0].Name = long
	req, err := BuildInvoiceRequest(o, &order.Payment{Hash: "a1", Amount: dec("290")}, testSettings(t))
	require.NoError(t, err)
	assert.Equal(t, 127, utf8.RuneCountInString(req.MerchantPaymInfo.BasketOrder[0].Name))
}
