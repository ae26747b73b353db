package insight

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeBI_ReturnsTextUnmodified(t *testing.T) {
	response := `{"results": {"avg_intake": 120.5}} Intake rose steadily through Q2.`
	client := &stubCompletionClient{responses: texts(response)}
	analyst := NewAnalyst(client)

	analysis, err := analyst.AnalyzeBI(context.Background(), "daily intake per market", "What drove Q2 intake in Denmark?")
	require.NoError(t, err)
	assert.Equal(t, response, analysis)

	require.Len(t, client.calls, 1)
	call := client.calls[0]
	assert.Equal(t, 1000, call.maxTokens)
	assert.Equal(t, 0.7, call.temperature)
	assert.Contains(t, call.prompt, "What drove Q2 intake in Denmark?")
	assert.Contains(t, call.prompt, "daily intake per market")
}

func TestAnalyzeBI_ErrorPropagates(t *testing.T) {
	client := &stubCompletionClient{responses: []stubResponse{{err: context.DeadlineExceeded}}}
	analyst := NewAnalyst(client)

	_, err := analyst.AnalyzeBI(context.Background(), "context", "query")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBuildAnalysisPrompt_TruncatesContext(t *testing.T) {
	head := strings.Repeat("a", 1000)
	tail := strings.Repeat("z", 500)

	prompt := BuildAnalysisPrompt(head+tail, "query text")
	assert.Contains(t, prompt, head)
	assert.NotContains(t, prompt, "zzzz")
	assert.Contains(t, prompt, "query text")
}

func TestBuildAnalysisPrompt_ShortContextPassesThrough(t *testing.T) {
	prompt := BuildAnalysisPrompt(DefaultDataContext, "query text")
	assert.Contains(t, prompt, DefaultDataContext)
	assert.Contains(t, prompt, "Belgium price change on March 10, 2025")
	assert.Contains(t, prompt, "Denmark, Germany, Sweden, Norway, Poland, Finland, Netherlands, Belgium, Switzerland, Austria")
}

func TestBuildScorePrompt_EmbedsInputsVerbatim(t *testing.T) {
	long := strings.Repeat("box data ", 5000)

	prompt := BuildScorePrompt(long, "future box info")
	assert.Contains(t, prompt, long)
	assert.Contains(t, prompt, "future box info")
	assert.Contains(t, prompt, "Return only the numerical score")
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		limit    int
		expected string
	}{
		{name: "shorter than limit", input: "abc", limit: 10, expected: "abc"},
		{name: "exact limit", input: "abcde", limit: 5, expected: "abcde"},
		{name: "longer than limit", input: "abcdef", limit: 3, expected: "abc"},
		{name: "multibyte runes not split", input: "€€€€", limit: 2, expected: "€€"},
		{name: "zero limit", input: "abc", limit: 0, expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, truncateRunes(tt.input, tt.limit))
		})
	}
}
