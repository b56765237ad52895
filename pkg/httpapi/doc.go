// Package httpapi serves decisions over HTTP.
//
// NewRouter mounts the client on a chi router:
//
//	GET    /healthz               liveness, or readiness when checks are given
//	GET    /metrics               Prometheus metrics
//	GET    /v1/config             revision summary
//	POST   /v1/decide             flag decisions
//	POST   /v1/activate           experiment variation with impression
//	POST   /v1/variation          experiment variation without impression
//	POST   /v1/track              conversion event
//	PUT    /v1/forced-variations  force a variation
//	DELETE /v1/forced-variations  remove a forced variation
//
// Requests and responses are JSON. Every response carries an X-Request-ID
// header. Server runs the router and shuts down gracefully on context
// cancellation or SIGINT/SIGTERM.
package httpapi
