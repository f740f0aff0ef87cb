package logging

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fyrsmithlabs/foldkit/internal/config"
)

func TestNewLogger(t *testing.T) {
	for _, cfg := range []*Config{NewDefaultConfig(), NewCLIConfig()} {
		logger, err := NewLogger(cfg, nil)
		require.NoError(t, err)
		require.NotNil(t, logger.Underlying())
		assert.Equal(t, cfg, logger.config)
	}
}

func TestNewLogger_OTELWithoutProvider(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Output = OutputConfig{OTEL: true}
	_, err := NewLogger(cfg, nil)
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad format", func(c *Config) { c.Format = "xml" }},
		{"no output", func(c *Config) { c.Output = OutputConfig{} }},
		{"zero tick", func(c *Config) { c.Sampling.Tick = 0 }},
		{"negative skip", func(c *Config) { c.Caller.Skip = -1 }},
		{"empty field key", func(c *Config) { c.Fields = map[string]string{"": "x"} }},
		{"empty field value", func(c *Config) { c.Fields = map[string]string{"k": ""} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, NewDefaultConfig().Validate())
}

func TestLevelFromString(t *testing.T) {
	lvl, err := LevelFromString("trace")
	require.NoError(t, err)
	assert.Equal(t, TraceLevel, lvl)

	lvl, err = LevelFromString("warn")
	require.NoError(t, err)
	assert.Equal(t, zapcore.WarnLevel, lvl)

	_, err = LevelFromString("loud")
	assert.Error(t, err)
}

func TestContextFields(t *testing.T) {
	ctx := WithDocument(context.Background(), "file:///a.go", 7)
	ctx = WithRequestID(ctx, "req-1")

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx = trace.ContextWithSpanContext(ctx, trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	tl := NewTestLogger()
	tl.Info(ctx, "regions computed")
	tl.AssertField(t, "regions computed", "document.uri", "file:///a.go")
	tl.AssertField(t, "regions computed", "request.id", "req-1")
	tl.AssertTraceCorrelation(t, "regions computed")

	doc, ok := DocumentFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, 7, doc.Version)
	assert.Equal(t, ctx, WithRequestID(ctx, ""))
}

func TestContextLogger(t *testing.T) {
	tl := NewTestLogger()
	ctx := WithLogger(context.Background(), tl.Logger)
	assert.Same(t, tl.Logger, FromContext(ctx))
	assert.NotNil(t, FromContext(context.Background()))
}

func TestLoggerLevels(t *testing.T) {
	tl := NewTestLogger()
	ctx := context.Background()
	tl.Trace(ctx, "wire bytes")
	tl.Debug(ctx, "debug")
	tl.Warn(ctx, "warn")
	tl.Named("lsp").With(zap.String("server", "gopls")).Error(ctx, "failed")

	tl.AssertLogged(t, TraceLevel, "wire bytes")
	tl.AssertLogged(t, zapcore.WarnLevel, "warn")
	tl.AssertField(t, "failed", "server", "gopls")
	tl.AssertNotLogged(t, zapcore.InfoLevel, "debug")
	assert.Len(t, tl.All(), 4)

	tl.Reset()
	assert.Empty(t, tl.All())
}

func TestSampling(t *testing.T) {
	core, observed := observer.New(TraceLevel)
	sampled := newSampledCore(core, SamplingConfig{
		Enabled: true,
		Tick:    config.Duration(time.Minute),
		Levels: map[zapcore.Level]LevelSamplingConfig{
			zapcore.DebugLevel: {Initial: 2, Thereafter: 0},
			zapcore.InfoLevel:  {Initial: 3, Thereafter: 0},
		},
	})
	logger := zap.New(sampled)
	for i := 0; i < 10; i++ {
		logger.Debug("same debug")
		logger.Info("same info")
		logger.Warn("same warn")
		logger.Error("same error")
	}

	assert.Equal(t, 2, observed.FilterMessage("same debug").Len())
	assert.Equal(t, 3, observed.FilterMessage("same info").Len())
	assert.Equal(t, 10, observed.FilterMessage("same warn").Len())
	assert.Equal(t, 10, observed.FilterMessage("same error").Len())
}

func TestSamplingDisabled(t *testing.T) {
	core, _ := observer.New(zapcore.InfoLevel)
	assert.Equal(t, core, newSampledCore(core, SamplingConfig{}))
}

func TestSecretField(t *testing.T) {
	f := Secret("token", config.Secret("abcd"))
	assert.Equal(t, "[REDACTED:4]", f.String)
	assert.Equal(t, "", Secret("token", "").String)
}
