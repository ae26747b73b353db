package insight

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goodiebox/boxsense/internal/errors"
	"github.com/goodiebox/boxsense/internal/monitoring"
)

const (
	// scoreSamples is the fixed number of completions averaged per estimate
	scoreSamples = 5

	scoreMaxTokens   = 50
	scoreTemperature = 0.0

	minScore = 1.0
	maxScore = 5.0
)

// CompletionClient is the single outbound dependency of the insight package
type CompletionClient interface {
	Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error)
}

// Estimator simulates member satisfaction scores for future boxes
type Estimator struct {
	client CompletionClient
	logger *monitoring.Logger
}

// NewEstimator creates a new score estimator
func NewEstimator(client CompletionClient, logger *monitoring.Logger) *Estimator {
	return &Estimator{
		client: client,
		logger: logger,
	}
}

// EstimateBoxScore queries the completion API five times at temperature 0 and
// returns the mean formatted with two decimals. A single sample that fails to
// parse, or falls outside the 1-5 scale, aborts the whole estimate; samples
// are averaged, never retried.
func (e *Estimator) EstimateBoxScore(ctx context.Context, historicalData, futureBoxInfo string) (string, error) {
	prompt := BuildScorePrompt(historicalData, futureBoxInfo)

	start := time.Now()
	scores := make([]float64, 0, scoreSamples)

	for i := 0; i < scoreSamples; i++ {
		text, err := e.client.Complete(ctx, prompt, scoreMaxTokens, scoreTemperature)
		if err != nil {
			return "", err
		}

		value, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil || value < minScore || value > maxScore {
			return "", errors.NewInvalidScoreError(text)
		}

		scores = append(scores, value)
	}

	// Unreachable under the abort-on-first-invalid policy, kept as a
	// defensive guard
	if len(scores) == 0 {
		return "", errors.NewNoValidScoresError()
	}

	var sum float64
	for _, score := range scores {
		sum += score
	}

	final := fmt.Sprintf("%.2f", sum/float64(len(scores)))
	e.logger.PredictionLogger(len(scores), final, time.Since(start))

	return final, nil
}
