package insight

import "fmt"

// DefaultHistoricalData is substituted when a request carries no historical data
const DefaultHistoricalData = "No historical data provided"

// DefaultDataContext is substituted when a request carries no data context
const DefaultDataContext = "No data context provided"

// contextPreviewRunes bounds how much of the data context is embedded in the
// analysis prompt
const contextPreviewRunes = 1000

const scorePromptTemplate = `You are a Goodiebox satisfaction expert simulating a member satisfaction score for a future subscription box. Use this data context:
**Data Explanation**:
- Historical Data: Past boxes with details like:
  - Box SKU: Unique box identifier (e.g., DK-2504-CLA-2L).
  - Products: Number of items, listed as Product SKUs.
  - Total Retail Value: Sum of product retail prices in €.
  - Unique Categories: Number of distinct product categories (e.g., skincare, makeup).
  - Full-size/Premium: Counts of full-size items and those > €20.
  - Total Weight: Sum of product weights in grams.
  - Avg Brand/Category Ratings: Average ratings (out of 5).
  - Historical Score: Past average box rating (out of 5, e.g., 4.23).
- Future Box Info: Details of a new box (same format, no historical score yet).
**Inputs**:
Historical Data: %s
Future Box Info: %s
Simulate the score by analyzing trends in past member reactions, product variety, retail value, brand reputation, category ratings, and surprise value. Return a satisfaction score on a 1-5 scale, with exactly two decimal places (e.g., 4.23). Return only the numerical score (e.g., 4.23).`

const analysisPromptTemplate = `You are a BI expert for Goodiebox, a Danish subscription business selling beauty product boxes across 10+ European markets. Analyze the provided data to answer the query. Use clear, concise language suitable for business stakeholders. Return numerical results (if applicable) and a brief explanation.

**Data Context**:
- Data Source: Pirate Funnel data (daily metrics per market).
- Metrics: Intake (new members, reactivations), CAC (cost per acquisition, €), ad spend (€), sales (daily actuals).
- Markets: Denmark, Germany, Sweden, Norway, Poland, Finland, Netherlands, Belgium, Switzerland, Austria.
- Time Period: January to June 2025.
- Example Data: %s... (truncated for brevity; use trends and patterns).
- Notes: Belgium price change on March 10, 2025 (base price from €12.48 to €11.98, delivery from €0 to €1.99).

**Query**:
%s

**Instructions**:
- For numerical results (e.g., averages, deltas), return in a JSON-like format: {"results": {"metric": value, ...}}.
- Provide a concise explanation (2-3 sentences) of the results or trends.
- If the query is open-ended, focus on key drivers (e.g., price perception, ad spend, market dynamics).
- If data is insufficient, note limitations and provide a reasonable estimate or suggestion.`

// BuildScorePrompt embeds both inputs verbatim into the deterministic score
// prompt. No size limit is enforced; long inputs pass through as-is.
func BuildScorePrompt(historicalData, futureBoxInfo string) string {
	return fmt.Sprintf(scorePromptTemplate, historicalData, futureBoxInfo)
}

// BuildAnalysisPrompt embeds a bounded prefix of the data context and the
// full query into the analysis prompt.
func BuildAnalysisPrompt(dataContext, query string) string {
	return fmt.Sprintf(analysisPromptTemplate, truncateRunes(dataContext, contextPreviewRunes), query)
}

// truncateRunes cuts s to at most n characters without splitting a rune
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}

	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
