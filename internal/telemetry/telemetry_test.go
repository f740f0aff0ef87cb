package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/fyrsmithlabs/foldkit/internal/config"
	"github.com/fyrsmithlabs/foldkit/internal/document"
	"github.com/fyrsmithlabs/foldkit/internal/folding"
)

func TestNew_Disabled(t *testing.T) {
	tel, err := New(context.Background(), NewDefaultConfig())
	require.NoError(t, err)

	assert.False(t, tel.IsEnabled())
	assert.Equal(t, HealthStatus{Healthy: true}, tel.Health())
	assert.NotNil(t, tel.Tracer("x"))
	assert.NotNil(t, tel.Meter("x"))
	assert.NoError(t, tel.Shutdown(context.Background()))
}

func TestNew_EnabledWithInjectedExporters(t *testing.T) {
	tp, mp := otel.GetTracerProvider(), otel.GetMeterProvider()
	t.Cleanup(func() {
		otel.SetTracerProvider(tp)
		otel.SetMeterProvider(mp)
	})
	cfg := NewDefaultConfig()
	cfg.Enabled = true

	tel, err := New(context.Background(), cfg,
		WithSpanExporter(tracetest.NewInMemoryExporter()),
		WithMetricReader(sdkmetric.NewManualReader()))
	require.NoError(t, err)

	assert.True(t, tel.IsEnabled())
	assert.Equal(t, HealthStatus{Healthy: true}, tel.Health())
	assert.NotNil(t, tel.LoggerProvider())

	require.NoError(t, tel.Shutdown(context.Background()))
	assert.False(t, tel.IsEnabled())
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Enabled = true
	cfg.Endpoint = ""

	_, err := New(context.Background(), cfg)
	assert.ErrorContains(t, err, "endpoint is required")
}

func TestNilTelemetry(t *testing.T) {
	var tel *Telemetry
	assert.False(t, tel.IsEnabled())
	assert.Equal(t, HealthStatus{Healthy: false, Degraded: true}, tel.Health())
	assert.NoError(t, tel.Shutdown(context.Background()))
	assert.NoError(t, tel.ForceFlush(context.Background()))
	assert.Nil(t, tel.LoggerProvider())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"remote insecure", func(c *Config) { c.Endpoint = "otel.example.com:4317" }, "insecure connections"},
		{"remote tls", func(c *Config) { c.Endpoint = "otel.example.com:4317"; c.Insecure = false }, ""},
		{"ipv6 loopback", func(c *Config) { c.Endpoint = "[::1]:4317" }, ""},
		{"bad protocol", func(c *Config) { c.Protocol = "udp" }, "protocol must be"},
		{"http protocol", func(c *Config) { c.Protocol = ProtocolHTTP }, ""},
		{"sampling rate", func(c *Config) { c.Sampling.Rate = 1.5 }, "sampling.rate"},
		{"export interval", func(c *Config) { c.Metrics.ExportInterval = 0 }, "export_interval"},
		{"shutdown timeout", func(c *Config) { c.Shutdown.Timeout = config.Duration(0) }, "shutdown.timeout"},
		{"service name", func(c *Config) { c.ServiceName = "" }, "service_name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			cfg.Enabled = true
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}

func TestStripScheme(t *testing.T) {
	assert.Equal(t, "collector:4318", stripScheme("https://collector:4318"))
	assert.Equal(t, "collector:4318", stripScheme("http://collector:4318"))
	assert.Equal(t, "collector:4318", stripScheme("collector:4318"))
}

func TestTestTelemetry_FoldingSpan(t *testing.T) {
	tel := NewTestTelemetry(t)
	assert.True(t, tel.IsEnabled())

	doc := document.New("file:///a.go", "go", "package a\n")
	_, span := folding.StartSpan(context.Background(), "folding.compute", doc)
	span.End()

	tel.AssertSpanAttribute(t, "folding.compute", "folding.uri", "file:///a.go")
	tel.AssertSpanAttribute(t, "folding.compute", "folding.language", "go")
}

func TestTestTelemetry_FoldingMetrics(t *testing.T) {
	tel := NewTestTelemetry(t)

	m, err := folding.NewMetrics(nil)
	require.NoError(t, err)
	m.RecordCompute(context.Background(), "indent", 3*time.Millisecond, 4, nil)
	m.RecordCompute(context.Background(), "indent", time.Millisecond, 2, nil)

	got, ok := tel.Metric(t, "folding.compute.total")
	require.True(t, ok)
	sum, ok := got.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(2), sum.DataPoints[0].Value)
}
