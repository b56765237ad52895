package logger

import (
	"log/slog"
	"strconv"
	"time"
)

// Group creates a group attribute.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Error records err under "error". A nil error yields an empty attribute,
// which slog drops.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Errors groups the non-nil errors under "errors".
func Errors(errs ...error) slog.Attr {
	as := make([]slog.Attr, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(as) == 0 {
		return slog.Attr{}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

func Component(name string) slog.Attr {
	return slog.String("component", name)
}

func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

func Attempt(n int) slog.Attr {
	return slog.Int("attempt", n)
}

func URL(u string) slog.Attr {
	return slog.String("url", u)
}

func UserID(id string) slog.Attr {
	return slog.String("user_id", id)
}

func Revision(rev string) slog.Attr {
	return slog.String("revision", rev)
}

func ExperimentKey(key string) slog.Attr {
	return slog.String("experiment_key", key)
}

func ExperimentID(id string) slog.Attr {
	return slog.String("experiment_id", id)
}

func VariationKey(key string) slog.Attr {
	return slog.String("variation_key", key)
}

func FlagKey(key string) slog.Attr {
	return slog.String("flag_key", key)
}

func RuleKey(key string) slog.Attr {
	return slog.String("rule_key", key)
}

func EventKey(key string) slog.Attr {
	return slog.String("event_key", key)
}

// Source records which resolver produced a decision.
func Source(s string) slog.Attr {
	return slog.String("source", s)
}

// Reason records a human readable decision reason.
func Reason(r string) slog.Attr {
	return slog.String("reason", r)
}

// Count records a batch or collection size.
func Count(n int) slog.Attr {
	return slog.Int("count", n)
}
