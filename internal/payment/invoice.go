package payment

import (
	"fmt"
	"net/url"
	"strings"
	"text/template"

	"monopay-be/internal/order"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

const (
	ProcessPath = "commerce/monobank/payment-process"
	SuccessPath = "commerce/monobank/payment-success"
	FailedPath  = "commerce/monobank/payment-failed"

	// maxItemNameLength is the provider limit for basket item names, in characters.
	maxItemNameLength = 127
)

var validate = validator.New()

// Settings is the shop-level data an invoice needs besides the order itself.
type Settings struct {
	SiteURL     string
	SiteName    string
	description *template.Template
}

// NewSettings parses the payment description template. The template sees
// .OrderID and .SiteName.
func NewSettings(siteURL, siteName, description string) (Settings, error) {
	tpl, err := template.New("description").Parse(description)
	if err != nil {
		return Settings{}, fmt.Errorf("invalid payment description template: %w", err)
	}
	if siteURL != "" && !strings.HasSuffix(siteURL, "/") {
		siteURL += "/"
	}
	return Settings{SiteURL: siteURL, SiteName: siteName, description: tpl}, nil
}

func (s Settings) describe(orderID uint) (string, error) {
	if s.description == nil {
		return "", nil
	}
	var b strings.Builder
	err := s.description.Execute(&b, struct {
		OrderID  uint
		SiteName string
	}{orderID, s.SiteName})
	return b.String(), err
}

// PageURL builds an absolute shop URL carrying the payment hash.
func (s Settings) PageURL(path, paymentHash string) string {
	return s.SiteURL + path + "?" + url.Values{"paymentHash": {paymentHash}}.Encode()
}

func (r *InvoiceRequest) Validate() error {
	return validate.Struct(r)
}

// BuildInvoiceRequest maps an order and the payment being collected for it
// into the provider payload. The basket is scaled to the collected amount
// whenever its own total differs, which folds discounts and partial payments
// into the line sums.
func BuildInvoiceRequest(o *order.Order, p *order.Payment, s Settings) (*InvoiceRequest, error) {
	amount := ToMinorUnits(p.Amount)
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	destination, err := s.describe(o.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to render payment description: %w", err)
	}

	basket := basketLines(o)
	if total := basketSum(basket); total > 0 && total != amount {
		basket = prorate(basket, total, amount)
	}

	processURL := s.PageURL(ProcessPath, p.Hash)
	req := &InvoiceRequest{
		Amount: amount,
		Ccy:    CurrencyCode(o.Currency),
		MerchantPaymInfo: MerchantPaymInfo{
			Reference:   fmt.Sprintf("%d-%s", o.ID, o.Hash),
			Destination: destination,
			BasketOrder: basket,
		},
		RedirectURL: processURL,
		WebHookURL:  processURL,
	}

	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid invoice request: %w", err)
	}
	return req, nil
}

// basketLines lists order items followed by positive subtotals (delivery,
// fees) as single-quantity lines. Discounts only show up through proration.
func basketLines(o *order.Order) []BasketItem {
	lines := make([]BasketItem, 0, len(o.Items)+len(o.Subtotals))
	for _, it := range o.Items {
		if it.Count <= 0 {
			continue
		}
		lines = append(lines, BasketItem{
			Name: truncateName(it.Name, maxItemNameLength),
			Qty:  it.Count,
			Sum:  ToMinorUnits(it.Price),
			Code: it.Code,
		})
	}
	for i, st := range o.Subtotals {
		if !st.Price.IsPositive() {
			continue
		}
		lines = append(lines, BasketItem{
			Name: truncateName(st.Title, maxItemNameLength),
			Qty:  1,
			Sum:  ToMinorUnits(st.Price),
			Code: fmt.Sprintf("subtotal-%d", i+1),
		})
	}
	return lines
}

func basketSum(lines []BasketItem) int64 {
	var total int64
	for _, l := range lines {
		total += l.Sum * int64(l.Qty)
	}
	return total
}

// prorate scales unit prices by paid/total and pushes the rounding
// remainder onto a line that can absorb it exactly.
func prorate(lines []BasketItem, total, paid int64) []BasketItem {
	if total <= 0 {
		return lines
	}

	scaled := make([]BasketItem, len(lines))
	var sum int64
	for i, l := range lines {
		l.Sum = decimal.NewFromInt(l.Sum).
			Mul(decimal.NewFromInt(paid)).
			Div(decimal.NewFromInt(total)).
			Round(0).
			IntPart()
		sum += l.Sum * int64(l.Qty)
		scaled[i] = l
	}

	settleRemainder(scaled, paid-sum)
	return scaled
}

func settleRemainder(lines []BasketItem, diff int64) {
	if diff == 0 {
		return
	}
	for i := len(lines) - 1; i >= 0; i-- {
		if lines[i].Qty == 1 && lines[i].Sum+diff >= 0 {
			lines[i].Sum += diff
			return
		}
	}
	for i := len(lines) - 1; i >= 0; i-- {
		q := int64(lines[i].Qty)
		if diff%q == 0 && lines[i].Sum+diff/q >= 0 {
			lines[i].Sum += diff / q
			return
		}
	}
}

func truncateName(name string, limit int) string {
	runes := []rune(name)
	if len(runes) <= limit {
		return name
	}
	return string(runes[:limit])
}
