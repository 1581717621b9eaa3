package scoring

import (
	"context"
	"math/rand"

	"dukira/internal/logger"
)

// TestModel is a stand-in for the real scoring model. It passes roughly
// half of all images with a random score, which is enough to exercise the
// approve/reject paths end to end without the external service.
type TestModel struct {
	logger *logger.Logger
}

func NewTestModel(logger *logger.Logger) *TestModel {
	return &TestModel{logger: logger}
}

func (m *TestModel) Analyze(ctx context.Context, data []byte, sourceURL string) (*Result, error) {
	var score float64
	var quality string

	if rand.Intn(2) == 0 {
		score = 0.7 + rand.Float64()*0.3
		quality = "medium"
		if score >= 0.85 {
			quality = "high"
		}
	} else {
		score = rand.Float64() * 0.69
		quality = "low"
	}

	analysis := map[string]interface{}{
		"quality":       quality,
		"clarity":       0.3 + rand.Float64()*0.7,
		"lighting":      0.3 + rand.Float64()*0.7,
		"composition":   0.3 + rand.Float64()*0.7,
		"model_used":    "test_model",
		"confidence":    0.8 + rand.Float64()*0.19,
		"product_focus": rand.Intn(2) == 0,
	}

	m.logger.Info("TestModel analyzed image: score=%.3f quality=%s", score, quality)
	return &Result{Score: score, Analysis: analysis}, nil
}
