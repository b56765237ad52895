// Package logger builds *slog.Logger instances with functional options and
// offers attribute helpers so decision logs use consistent keys.
//
//	log := logger.New(
//		logger.WithEnvironment("production", "flagkit"),
//		logger.WithContextValue("request_id", requestIDKey),
//	)
//	log.InfoContext(ctx, "decision made",
//		logger.FlagKey("new_search"),
//		logger.VariationKey("on"),
//		logger.Source("fresh-bucketing"),
//	)
//
// Config carries the same settings from environment variables and converts
// them with Config.Options. ContextHandler injects attributes pulled from
// the record context, such as the HTTP request id, at log time.
//
// Error and Errors return an empty attribute for nil errors, so callers
// can log unconditionally.
package logger
