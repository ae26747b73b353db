package types

// PredictBoxScoreRequest is the body for POST /predict_box_score
type PredictBoxScoreRequest struct {
	HistoricalData string `json:"historical_data"`
	FutureBoxInfo  string `json:"future_box_info"`
}

// PredictBoxScoreResponse carries the averaged score formatted to two decimals
type PredictBoxScoreResponse struct {
	PredictedBoxScore string `json:"predicted_box_score"`
}

// AnalyzeBIRequest is the body for POST /analyze_bi
type AnalyzeBIRequest struct {
	DataContext string `json:"data_context"`
	Query       string `json:"query"`
}

// AnalyzeBIResponse carries the raw cleaned analysis text
type AnalyzeBIResponse struct {
	Analysis string `json:"analysis"`
}

// HealthResponse is the body for GET /health
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the wire shape of every error body
type ErrorResponse struct {
	Error string `json:"error"`
}
