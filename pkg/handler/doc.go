// Package handler provides type-safe HTTP handlers. A HandlerFunc receives a
// Context and a bound request value and returns a Response; Wrap adapts it
// to http.HandlerFunc, running the configured binders first and routing
// bind, validation and render failures to an ErrorHandler.
//
//	func track(ctx handler.Context, req TrackRequest) handler.Response {
//		if err := validator.Apply(validator.Required("userId", req.UserID)); err != nil {
//			return handler.JSONError(err)
//		}
//		return handler.EmptyWithStatus(http.StatusAccepted)
//	}
//
//	r.Post("/v1/track", handler.Wrap(track,
//		handler.WithBinder[handler.Context, TrackRequest](binder.BindJSON()),
//	))
//
// JSON responses share one envelope: successful payloads under "data",
// failures under "error" with a machine-readable code and, for validation
// failures, per-field details.
package handler
