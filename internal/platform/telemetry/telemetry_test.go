package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/nico-vromans/random-quote-generator/internal/platform/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestSetup_Disabled(t *testing.T) {
	p, err := Setup(context.Background(), &config.TelemetryConfig{Enabled: false}, &config.AppConfig{})

	require.NoError(t, err)
	assert.False(t, p.Enabled())
	assert.NoError(t, p.Shutdown(context.Background()))
}

// installProviders swaps the global providers for in-process SDK ones.
func installProviders(t *testing.T) *sdkmetric.ManualReader {
	t.Helper()

	prevTracer, prevMeter := otel.GetTracerProvider(), otel.GetMeterProvider()

	tp := sdktrace.NewTracerProvider()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)

	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		_ = mp.Shutdown(context.Background())
		otel.SetTracerProvider(prevTracer)
		otel.SetMeterProvider(prevMeter)
	})

	return reader
}

func requestTotal(t *testing.T, reader *sdkmetric.ManualReader) int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "http.server.request.total" {
				continue
			}

			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)

			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}

	return total
}

func TestMiddleware(t *testing.T) {
	reader := installProviders(t)

	engine := gin.New()
	engine.Use(Middleware("quotes-test")...)
	engine.GET("/quotes/get_random_quote", func(c *gin.Context) { c.Status(http.StatusOK) })
	engine.GET("/-/live", func(c *gin.Context) { c.Status(http.StatusOK) })

	t.Run("traced request", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/quotes/get_random_quote", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, w.Header().Get(HeaderTraceID), 32)
	})

	t.Run("probe is skipped", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/-/live", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get(HeaderTraceID))
	})

	assert.Equal(t, int64(1), requestTotal(t, reader))
}
