package payment

import (
	"context"
	"crypto/ecdsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"net/http"

	"monopay-be/internal/logger"

	"go.uber.org/zap"
)

// VerifySignature checks the X-Sign header: a base64 ECDSA signature of the
// raw webhook body made with the merchant key. The public key is fetched once
// and refetched when a cached key stops verifying.
func (g *monobankGateway) VerifySignature(ctx context.Context, body []byte, signature string) error {
	sig, err := base64.StdEncoding.DecodeString(signature)
	if signature == "" || err != nil {
		return ErrInvalidSignature
	}

	digest := sha256.Sum256(body)

	key, cached, err := g.publicKey(ctx)
	if err != nil {
		return err
	}
	if ecdsa.VerifyASN1(key, digest[:], sig) {
		return nil
	}
	if !cached {
		return ErrInvalidSignature
	}

	logger.FromCtx(ctx).Info("Webhook signature mismatch with cached key, refreshing")
	g.mu.Lock()
	g.pubKey = nil
	g.mu.Unlock()

	key, _, err = g.publicKey(ctx)
	if err != nil {
		return err
	}
	if !ecdsa.VerifyASN1(key, digest[:], sig) {
		return ErrInvalidSignature
	}
	return nil
}

func (g *monobankGateway) publicKey(ctx context.Context) (*ecdsa.PublicKey, bool, error) {
	g.mu.Lock()
	key := g.pubKey
	g.mu.Unlock()
	if key != nil {
		return key, true, nil
	}

	raw, err := g.call(ctx, http.MethodGet, endpointPubKey, nil, nil)
	if err != nil {
		logger.FromCtx(ctx).Error("Failed to fetch Monobank public key", zap.Error(err))
		return nil, false, err
	}

	var res struct {
		Key string `json:"key"`
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, false, fmt.Errorf("failed to decode monobank public key: %w", err)
	}

	key, err = parsePublicKey(res.Key)
	if err != nil {
		return nil, false, err
	}

	g.mu.Lock()
	g.pubKey = key
	g.mu.Unlock()
	return key, false, nil
}

// parsePublicKey decodes the provider format: base64 of a PEM PKIX key.
func parsePublicKey(encoded string) (*ecdsa.PublicKey, error) {
	pemBytes, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrInvalidPublicKey
	}

	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, ErrInvalidPublicKey
	}

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}

	ecKey, ok := pub.(*ecdsa.PublicKey)
	if !ok {
		return nil, ErrInvalidPublicKey
	}
	return ecKey, nil
}
