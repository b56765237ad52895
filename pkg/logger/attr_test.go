package logger_test

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/flagkit/pkg/logger"
)

func TestGroup(t *testing.T) {
	t.Parallel()

	attr := logger.Group("decision", logger.FlagKey("f"), logger.RuleKey("r"))
	require.Equal(t, "decision", attr.Key)
	require.Equal(t, slog.KindGroup, attr.Value.Kind())
	g := attr.Value.Group()
	require.Len(t, g, 2)
	assert.Equal(t, "flag_key", g[0].Key)
	assert.Equal(t, "rule_key", g[1].Key)
}

func TestError(t *testing.T) {
	t.Parallel()

	err := errors.New("boom")
	attr := logger.Error(err)
	require.Equal(t, "error", attr.Key)
	assert.Equal(t, err, attr.Value.Any())
	assert.True(t, logger.Error(nil).Equal(slog.Attr{}))

	errs := logger.Errors(err, nil, errors.New("second"))
	require.Equal(t, "errors", errs.Key)
	assert.Len(t, errs.Value.Group(), 2)
	assert.True(t, logger.Errors(nil, nil).Equal(slog.Attr{}))
}

func TestDomainAttrs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		attr slog.Attr
		key  string
		want any
	}{
		{attr: logger.UserID("u1"), key: "user_id", want: "u1"},
		{attr: logger.Revision("42"), key: "revision", want: "42"},
		{attr: logger.ExperimentKey("exp"), key: "experiment_key", want: "exp"},
		{attr: logger.ExperimentID("1001"), key: "experiment_id", want: "1001"},
		{attr: logger.VariationKey("on"), key: "variation_key", want: "on"},
		{attr: logger.FlagKey("flag"), key: "flag_key", want: "flag"},
		{attr: logger.RuleKey("rule"), key: "rule_key", want: "rule"},
		{attr: logger.EventKey("purchase"), key: "event_key", want: "purchase"},
		{attr: logger.Source("bandit"), key: "source", want: "bandit"},
		{attr: logger.Reason("why"), key: "reason", want: "why"},
		{attr: logger.Component("bandit"), key: "component", want: "bandit"},
		{attr: logger.URL("http://x"), key: "url", want: "http://x"},
		{attr: logger.Attempt(2), key: "attempt", want: int64(2)},
		{attr: logger.Count(3), key: "count", want: int64(3)},
		{attr: logger.Duration(time.Second), key: "duration", want: time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.key, tt.attr.Key)
			assert.Equal(t, tt.want, tt.attr.Value.Any())
		})
	}
}
