package payment

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"monopay-be/internal/logger"
	"monopay-be/internal/metrics"

	"go.uber.org/zap"
)

const (
	monobankBaseURL = "https://api.monobank.ua/api/merchant/"
	tokenHeader     = "X-Token"
	maxResponseSize = 1 << 20

	endpointCreate = "invoice/create"
	endpointStatus = "invoice/status"
	endpointPubKey = "pubkey"
)

type GatewayConfig struct {
	Token   string
	BaseURL string
	// Debug journals every request and response body at debug level.
	Debug bool
}

type monobankGateway struct {
	token      string
	baseURL    string
	debug      bool
	httpClient *http.Client

	mu     sync.Mutex
	pubKey *ecdsa.PublicKey
}

// ----------------- Constructor -----------------

func NewMonobankGateway(cfg GatewayConfig) Gateway {
	if cfg.Token == "" {
		logger.L().Warn("Monobank token is empty, payment links are disabled")
	}

	base := cfg.BaseURL
	if base == "" {
		base = monobankBaseURL
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}

	return &monobankGateway{
		token:   cfg.Token,
		baseURL: base,
		debug:   cfg.Debug,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (g *monobankGateway) Configured() bool {
	return g.token != ""
}

// ----------------- CreateInvoice -----------------

func (g *monobankGateway) CreateInvoice(ctx context.Context, req *InvoiceRequest) (*InvoiceResponse, error) {
	if !g.Configured() {
		return nil, ErrEmptyClientCredentials
	}

	log := logger.FromCtx(ctx).With(
		zap.String("reference", req.MerchantPaymInfo.Reference),
		zap.Int64("amount", req.Amount),
		zap.Int("ccy", req.Ccy),
	)

	body, err := encodeJSON(req)
	if err != nil {
		log.Error("Failed to marshal invoice request", zap.Error(err))
		return nil, err
	}

	log.Info("Sending invoice request to Monobank")

	raw, err := g.call(ctx, http.MethodPost, endpointCreate, nil, body)
	if err != nil {
		log.Error("Monobank invoice request failed", zap.Error(err))
		return nil, err
	}

	var res InvoiceResponse
	if err := json.Unmarshal(raw, &res); err != nil {
		log.Error("Failed decoding Monobank response", zap.Error(err))
		return nil, fmt.Errorf("failed to decode monobank response: %w", err)
	}

	if res.PageURL == "" {
		log.Error("Monobank response has no page URL", zap.ByteString("response", raw))
		return nil, ErrMissingPageURL
	}

	log.Info("Monobank invoice created", zap.String("invoice_id", res.InvoiceID))
	return &res, nil
}

// ----------------- GetInvoiceStatus -----------------

func (g *monobankGateway) GetInvoiceStatus(ctx context.Context, invoiceID string) (*InvoiceStatus, error) {
	if invoiceID == "" {
		return nil, errors.New("invoice id is required")
	}

	log := logger.FromCtx(ctx).With(zap.String("invoice_id", invoiceID))

	raw, err := g.call(ctx, http.MethodGet, endpointStatus, url.Values{"invoiceId": {invoiceID}}, nil)
	if err != nil {
		log.Error("Monobank status request failed", zap.Error(err))
		return nil, err
	}

	var st InvoiceStatus
	if err := json.Unmarshal(raw, &st); err != nil {
		log.Error("Failed decoding invoice status", zap.Error(err))
		return nil, fmt.Errorf("failed to decode monobank status: %w", err)
	}

	log.Info("Monobank invoice status", zap.String("status", st.Status), zap.Int64("amount", st.Amount))
	return &st, nil
}

// ----------------- Transport -----------------

// call performs one signed request and returns the 2xx body. Non-2xx
// responses come back as *APIError.
func (g *monobankGateway) call(ctx context.Context, method, endpoint string, query url.Values, body []byte) ([]byte, error) {
	timer := metrics.StartTimer()
	raw, err := g.do(ctx, method, endpoint, query, body)
	metrics.ObserveProviderRequest(endpoint, timer, err)
	return raw, err
}

func (g *monobankGateway) do(ctx context.Context, method, endpoint string, query url.Values, body []byte) ([]byte, error) {
	target := g.baseURL + endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(tokenHeader, g.token)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("monobank request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))

	if g.debug {
		logger.FromCtx(ctx).Debug("Monobank request",
			zap.String("method", method),
			zap.String("url", target),
			zap.ByteString("request", body),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("response", respBody),
			zap.NamedError("read_error", err),
		)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read monobank response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{HTTPStatus: resp.StatusCode}
		if jsonErr := json.Unmarshal(respBody, apiErr); jsonErr != nil || apiErr.ErrText == "" {
			apiErr.ErrText = strings.TrimSpace(string(respBody))
		}
		return nil, apiErr
	}

	return respBody, nil
}

// encodeJSON keeps URLs and non-ASCII text unescaped in the payload.
func encodeJSON(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
