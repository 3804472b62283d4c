package rules

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linksum/internal/logger"
	"linksum/internal/slack"
)

func TestCompile_RejectsBadRules(t *testing.T) {
	tests := []struct {
		name string
		expr string
	}{
		{name: "syntax error", expr: "channel ==== 'C1'"},
		{name: "unknown variable", expr: `team == "T1"`},
		{name: "non-bool result", expr: "text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile([]string{tt.expr}, logger.NopLogger())
			assert.Error(t, err)
		})
	}
}

func TestMatches(t *testing.T) {
	r, err := Compile([]string{
		`channel == "C_MUTED"`,
		`text.contains("#nosummary")`,
	}, logger.NopLogger())
	require.NoError(t, err)
	require.Equal(t, 2, r.Len())

	tests := []struct {
		name  string
		event *slack.MessageEvent
		want  bool
	}{
		{
			name:  "muted channel",
			event: &slack.MessageEvent{Type: "message", Channel: "C_MUTED", Text: "https://example.com"},
			want:  true,
		},
		{
			name:  "opt-out marker",
			event: &slack.MessageEvent{Type: "message", Channel: "C_OPEN", Text: "skip this #nosummary"},
			want:  true,
		},
		{
			name:  "no rule matches",
			event: &slack.MessageEvent{Type: "message", Channel: "C_OPEN", Text: "https://example.com"},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Matches(context.Background(), tt.event))
		})
	}
}

func TestMatches_EmptyRuleSet(t *testing.T) {
	r, err := Compile(nil, logger.NopLogger())
	require.NoError(t, err)

	assert.False(t, r.Matches(context.Background(), &slack.MessageEvent{Type: "message"}))
}
