package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	reg := prometheus.NewRegistry()

	require.NoError(t, Register(reg))
	// second registration is tolerated
	require.NoError(t, Register(reg))

	PaymentWebhookTotal.WithLabelValues("paid").Inc()

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "monopay_payment_webhook_total")
}

func TestObserveProviderRequest(t *testing.T) {
	okBefore := testutil.ToFloat64(ProviderRequestTotal.WithLabelValues("test/endpoint", "ok"))
	errBefore := testutil.ToFloat64(ProviderRequestTotal.WithLabelValues("test/endpoint", "error"))

	ObserveProviderRequest("test/endpoint", StartTimer(), nil)
	ObserveProviderRequest("test/endpoint", StartTimer(), errors.New("boom"))
	ObserveProviderRequest("test/endpoint", StartTimer(), errors.New("boom"))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(ProviderRequestTotal.WithLabelValues("test/endpoint", "ok")))
	assert.Equal(t, errBefore+2, testutil.ToFloat64(ProviderRequestTotal.WithLabelValues("test/endpoint", "error")))
}

func TestTimer(t *testing.T) {
	timer := StartTimer()
	time.Sleep(5 * time.Millisecond)
	assert.GreaterOrEqual(t, timer.Duration(), 5*time.Millisecond)
}
