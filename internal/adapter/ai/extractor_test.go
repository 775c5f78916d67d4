package ai

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/harvest-gateway/internal/domain"
)

func TestExtractor_Extract_Success(t *testing.T) {
	t.Parallel()

	e := NewExtractor()
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain_object", `{"status":"verified"}`, `{"status":"verified"}`},
		{"tagged_fence", "```json\n{\"status\": \"verified\"}\n```", `{"status": "verified"}`},
		{"untagged_fence", "```\n[1,2]\n```", `[1,2]`},
		{"fence_with_whitespace", "  \n```JSON  {\"a\":1}```\n ", `{"a":1}`},
		{"backticks_inside_string", "```json\n{\"r\":\"use `x`\"}\n```", "{\"r\":\"use `x`\"}"},
		{"scalar", `42`, `42`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := e.Extract(domain.RawResponse{HasText: true, CandidateCount: 1, Text: tt.input})
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestExtractor_Extract_Failures(t *testing.T) {
	t.Parallel()

	e := NewExtractor()
	tests := []struct {
		name   string
		raw    domain.RawResponse
		reason string
	}{
		{"no_candidates", domain.RawResponse{}, domain.ReasonNoCandidates},
		{"empty_completion", domain.RawResponse{CandidateCount: 1}, domain.ReasonEmptyCompletion},
		{"whitespace_text", domain.RawResponse{HasText: true, Text: "  \n"}, domain.ReasonEmptyBody},
		{"unterminated", domain.RawResponse{HasText: true, Text: "```json\n{\"a\":1}"}, domain.ReasonUnterminatedFence},
		{"unbalanced", domain.RawResponse{HasText: true, Text: "{\"a\":1}\n```"}, domain.ReasonUnbalancedFence},
		{"empty_fenced_body", domain.RawResponse{HasText: true, Text: "```json\n\n```"}, domain.ReasonEmptyBody},
		{"invalid_json", domain.RawResponse{HasText: true, Text: `{status: verified}`}, domain.ReasonInvalidJSON},
		{"prose", domain.RawResponse{HasText: true, Text: `I cannot help with that.`}, domain.ReasonInvalidJSON},
		{"trailing_garbage", domain.RawResponse{HasText: true, Text: `{"a":1} thanks!`}, domain.ReasonTrailingData},
		{"two_values", domain.RawResponse{HasText: true, Text: `{"a":1}{"b":2}`}, domain.ReasonTrailingData},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := e.Extract(tt.raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrMalformedResponse)
			assert.Equal(t, tt.reason, domain.ReasonOf(err))
		})
	}
}

func TestExtractor_FencedMatchesDirectParse(t *testing.T) {
	t.Parallel()

	e := NewExtractor()
	body := `{"status":"mismatch","confidence":0.4,"detected_objects":["fan","heatsink"]}`

	direct, err := e.ExtractText(body)
	require.NoError(t, err)
	fenced, err := e.ExtractText("```json\n" + body + "\n```")
	require.NoError(t, err)

	var a, b any
	require.NoError(t, json.Unmarshal(direct, &a))
	require.NoError(t, json.Unmarshal(fenced, &b))
	assert.Equal(t, a, b)
}
