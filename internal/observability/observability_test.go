package observability_test

import (
	"FillIndexer/internal/config"
	"FillIndexer/internal/observability"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadiness(t *testing.T) {
	h := observability.NewHealthChecker()

	rec := httptest.NewRecorder()
	h.ReadinessHandler(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	h.SetReady(true)
	rec = httptest.NewRecorder()
	h.ReadinessHandler(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	h.AddCheck("postgres", func(context.Context) error { return errors.New("connection refused") })
	rec = httptest.NewRecorder()
	h.ReadinessHandler(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")

	failed := h.Check(context.Background())
	require.Contains(t, failed, "postgres")
}

func TestLiveness(t *testing.T) {
	h := observability.NewHealthChecker()
	rec := httptest.NewRecorder()
	h.LivenessHandler(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alive")
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, observability.ParseLogLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, observability.ParseLogLevel("warn"))
	assert.Equal(t, zerolog.TraceLevel, observability.ParseLogLevel("trace"))
	assert.Equal(t, zerolog.InfoLevel, observability.ParseLogLevel(""))
	assert.Equal(t, zerolog.InfoLevel, observability.ParseLogLevel("verbose"))
}

func TestLoggersFromConfig(t *testing.T) {
	var buf bytes.Buffer
	loggers := observability.NewLoggers(config.LoggingConfig{
		Level:  "warn",
		Fields: map[string]string{"deployment": "testnet", "region": "eu"},
	}, &buf)

	log := loggers.For("processor")
	log.Info().Msg("dropped")
	log.Warn().Uint32("block_height", 7).Msg("kept")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var got map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &got))
	assert.Equal(t, "processor", got["component"])
	assert.Equal(t, "testnet", got["deployment"])
	assert.Equal(t, "eu", got["region"])
	assert.Equal(t, "warn", got["level"])
	assert.Equal(t, "kept", got["message"])
	assert.EqualValues(t, 7, got["block_height"])
	assert.Contains(t, got, "time")
}

func TestConsoleLoggers(t *testing.T) {
	var buf bytes.Buffer
	log := observability.NewLoggers(config.LoggingConfig{Console: true}, &buf).For("migrate")
	log.Info().Msg("applied")
	assert.Contains(t, buf.String(), "applied")
	assert.Contains(t, buf.String(), "component=migrate")
	assert.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}

func TestMetricsOnPrivateRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetricsWith(reg)

	m.EventsSkipped.WithLabelValues("funding_values").Inc()
	m.LastProcessedHeight.Set(42)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsSkipped.WithLabelValues("funding_values")))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.LastProcessedHeight))

	// a second set on another registry must not collide
	assert.NotPanics(t, func() { observability.NewMetricsWith(prometheus.NewRegistry()) })
}
