package payment

import "fmt"

const ProviderMonobank = "MONOBANK"

// Invoice statuses reported by the provider.
const (
	StatusCreated    = "created"
	StatusProcessing = "processing"
	StatusHold       = "hold"
	StatusSuccess    = "success"
	StatusFailure    = "failure"
	StatusReversed   = "reversed"
	StatusExpired    = "expired"
)

type InvoiceRequest struct {
	Amount           int64            `json:"amount" validate:"gt=0"`
	Ccy              int              `json:"ccy" validate:"oneof=840 978 980"`
	MerchantPaymInfo MerchantPaymInfo `json:"merchantPaymInfo"`
	RedirectURL      string           `json:"redirectUrl" validate:"required,url"`
	WebHookURL       string           `json:"webHookUrl" validate:"required,url"`
}

type MerchantPaymInfo struct {
	Reference   string       `json:"reference" validate:"required"`
	Destination string       `json:"destination"`
	BasketOrder []BasketItem `json:"basketOrder" validate:"dive"`
}

type BasketItem struct {
	Name string `json:"name" validate:"max=127"`
	Qty  int    `json:"qty" validate:"gt=0"`
	Sum  int64  `json:"sum" validate:"gte=0"`
	Code string `json:"code"`
}

type InvoiceResponse struct {
	InvoiceID string `json:"invoiceId"`
	PageURL   string `json:"pageUrl"`
}

// InvoiceStatus is both the invoice/status response and the webhook body.
type InvoiceStatus struct {
	InvoiceID     string `json:"invoiceId"`
	Status        string `json:"status"`
	Amount        int64  `json:"amount"`
	Ccy           int    `json:"ccy"`
	FinalAmount   int64  `json:"finalAmount"`
	FailureReason string `json:"failureReason,omitempty"`
	Reference     string `json:"reference,omitempty"`
	CreatedDate   string `json:"createdDate,omitempty"`
	ModifiedDate  string `json:"modifiedDate,omitempty"`
}

func (s *InvoiceStatus) IsSuccess() bool {
	return s != nil && s.Status == StatusSuccess
}

// EventID identifies one notification: the provider re-sends the same
// invoice for every status change.
func (s *InvoiceStatus) EventID() string {
	return fmt.Sprintf("%s:%s:%s", s.InvoiceID, s.Status, s.ModifiedDate)
}

// APIError is the provider's error body.
type APIError struct {
	HTTPStatus int    `json:"-"`
	ErrCode    string `json:"errCode"`
	ErrText    string `json:"errText"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("monobank error: status=%d code=%s text=%s", e.HTTPStatus, e.ErrCode, e.ErrText)
}
