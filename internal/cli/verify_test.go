package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerify_Matches(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"seq", []string{"--operator", "seq", "--range", "3", "--attributes", "2"}},
		{"conseq", []string{"--operator", "conseq", "--range", "4", "--tuple-rate", "0.5"}},
		{"minseq", []string{"--operator", "minseq", "--range", "4", "--min", "3"}},
		{"maxseq", []string{"--operator", "maxseq", "--range", "4", "--max", "2"}},
		{"bestseq", []string{"--operator", "bestseq", "--range", "3", "--rules", "2", "--domain", "3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--format", "json", "verify", "--rounds", "3"}, tt.args...)
			out, err := execute(t, args...)
			require.NoError(t, err, out)

			var resp struct {
				Status string       `json:"status"`
				Data   VerifyResult `json:"data"`
			}
			require.NoError(t, json.Unmarshal([]byte(out), &resp))
			assert.Equal(t, tt.name, resp.Data.Operator)
			assert.Equal(t, 3, resp.Data.Rounds)
			assert.Empty(t, resp.Data.Mismatches)
		})
	}
}

func TestVerify_Text(t *testing.T) {
	out, err := execute(t, "verify", "--operator", "seq", "--range", "2", "--rounds", "2", "--attributes", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ seq plan matches the reference on 2 window(s)")
}

func TestVerify_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code string
	}{
		{"no relational plan", []string{"--operator", "topkseq"}, ErrCodeCompile},
		{"invalid rules", []string{"--operator", "bestseq", "--levels", "0"}, ErrCodeConfig},
		{"no rounds", []string{"--rounds", "0"}, ErrCodeConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, append([]string{"--format", "json", "verify"}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))

			var resp CLIResponse
			require.NoError(t, json.Unmarshal([]byte(out), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}
