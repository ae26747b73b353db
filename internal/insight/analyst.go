package insight

import "context"

const (
	analysisMaxTokens   = 1000
	analysisTemperature = 0.7
)

// Analyst answers free-form BI queries over Pirate Funnel data
type Analyst struct {
	client CompletionClient
}

// NewAnalyst creates a new BI analyst
func NewAnalyst(client CompletionClient) *Analyst {
	return &Analyst{client: client}
}

// AnalyzeBI issues one completion call and returns the cleaned text as-is.
// The prompt asks the model for a JSON-like results object, but the shape is
// not parsed or enforced here.
func (a *Analyst) AnalyzeBI(ctx context.Context, dataContext, query string) (string, error) {
	prompt := BuildAnalysisPrompt(dataContext, query)
	return a.client.Complete(ctx, prompt, analysisMaxTokens, analysisTemperature)
}
