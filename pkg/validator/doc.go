// Package validator builds declarative request validation from small Rule
// values. Apply evaluates the rules and aggregates every failure into a
// ValidationErrors value that satisfies the error interface.
//
//	err := validator.Apply(
//		validator.Required("experimentKey", req.ExperimentKey),
//		validator.Required("userId", req.UserID),
//	)
package validator
