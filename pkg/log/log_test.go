package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitAndChildLoggers(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: DebugLevel, JSONOutput: true, Output: &buf})

	tests := []struct {
		name  string
		log   func()
		field string
		value string
	}{
		{"component", func() { l := WithComponent("orchestrator"); l.Info().Msg("x") }, "component", "orchestrator"},
		{"submission", func() { l := WithSubmissionID("mem://submissions/1"); l.Info().Msg("x") }, "submission_id", "mem://submissions/1"},
		{"deposit", func() { l := WithDepositID("mem://deposits/1"); l.Info().Msg("x") }, "deposit_id", "mem://deposits/1"},
		{"repository", func() { l := WithRepository("mem://repositories/js"); l.Info().Msg("x") }, "repository", "mem://repositories/js"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			tt.log()

			var line map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
			assert.Equal(t, tt.value, line[tt.field])
			assert.Contains(t, line, "time", "Init attaches timestamps")
		})
	}
}

func TestInitLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: WarnLevel, JSONOutput: true, Output: &buf})

	l := WithComponent("x")
	l.Debug().Msg("invisible")
	assert.Empty(t, buf.Bytes())

	l.Warn().Msg("visible")
	assert.NotEmpty(t, buf.Bytes())
}
