// Package telemetry sets up OpenTelemetry for foldkit.
//
// New installs global tracer and meter providers that export over OTLP
// (gRPC or HTTP). The folding packages record through the globals
// (folding.Tracer, folding.NewMetrics), so they need no handle on this
// package. Export failures never stop folding: a provider that cannot be
// built marks the instance degraded and the globals stay no-op.
//
//	tel, err := telemetry.New(ctx, cfg, telemetry.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
// Tests use NewTestTelemetry, which records spans and metrics in memory.
package telemetry
