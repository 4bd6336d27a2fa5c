// Package logging wraps zap with the correlation and redaction behavior
// every lakesync process shares: a custom Trace level below Debug, dual
// stdout/OTEL output, automatic trace/tenant/session field injection, and
// defense-in-depth secret scrubbing at the encoder layer.
//
// # Usage
//
//	cfg := logging.NewDefaultConfig()
//	logger, err := logging.NewLogger(cfg, otelProvider)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	ctx = logging.WithTenant(ctx, &logging.Tenant{OrgID: "acme"})
//	ctx = logging.WithRequestID(ctx, "req_123")
//	logger.Info(ctx, "request processed", zap.Duration("duration", d))
//
// Every call through a context-aware method (Info, Warn, Error, ...)
// merges ContextFields(ctx) ahead of the caller's own fields, so trace_id,
// tenant.*, session.id and request.id show up on every line without the
// caller repeating them.
//
// # Redaction
//
// Scrubbing happens at two layers: config.Secret values are rendered as
// "[REDACTED:N]" by the Secret() field helper wherever a caller wraps a
// value in it, and the encoder itself redacts any field whose name or
// value matches RedactionConfig regardless of whether the caller
// remembered to wrap it.
//
// # Sampling
//
// Each level below Error is rate-limited independently per
// SamplingConfig.Levels; Error and above are never sampled. Disable
// entirely with cfg.Sampling.Enabled = false when debugging.
//
// # Testing
//
//	tl := logging.NewTestLogger()
//	tl.Info(ctx, "test message", zap.String("key", "value"))
//	tl.AssertLogged(t, zapcore.InfoLevel, "test message")
package logging
