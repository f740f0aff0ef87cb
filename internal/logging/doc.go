// Package logging builds the zap loggers used across foldkit.
//
// The Logger type wraps zap with:
//   - a Trace level (-2, below Debug)
//   - console output (stdout or stderr) teed with the otelzap bridge
//   - correlation fields taken from the context (trace_id, span_id,
//     document URI and version, request id)
//   - per-level sampling; Error and above are never sampled
//
// Domain packages do not depend on this package. They accept a
// *zap.Logger through their WithLogger options, which callers obtain from
// Logger.Underlying:
//
//	logger, err := logging.NewLogger(cfg, otelProvider)
//	if err != nil {
//	    return err
//	}
//	defer logger.Sync()
//	ctrl := controller.New(doc, controller.WithLogger(logger.Underlying()))
//
// Request handlers log with the context so entries carry correlation:
//
//	ctx = logging.WithDocument(ctx, doc.URI(), doc.VersionID())
//	logger.Info(ctx, "fold command executed", zap.String("command", name))
//
// Configuration is read from the "logging" section with config.Section;
// FOLDKIT_LOGGING_FORMAT=console switches the encoder.
//
// Tests use NewTestLogger, which records every entry for assertions:
//
//	tl := logging.NewTestLogger()
//	tl.Info(ctx, "test message", zap.String("key", "value"))
//	tl.AssertLogged(t, zapcore.InfoLevel, "test message")
//	tl.AssertField(t, "test message", "key", "value")
package logging
