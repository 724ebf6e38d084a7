package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Texasdada13/procurement-intel-tool/internal/engine"
)

const llmMaxBody = 1 << 16

// LLMConfig configures the model-backed strategy.
type LLMConfig struct {
	Endpoint string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// LLM asks a model endpoint to judge relevance. The endpoint takes the
// opportunity text and returns a JSON object with a 0-100 score and an
// optional category. Any transport or contract failure makes the strategy
// unavailable for this record; the pipeline carries on without it.
type LLM struct {
	cfg    LLMConfig
	client *http.Client
	logger *zap.Logger
}

func NewLLM(cfg LLMConfig, logger *zap.Logger) *LLM {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLM{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

func (l *LLM) Name() string { return "llm" }

type llmRequest struct {
	Model       string `json:"model"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Agency      string `json:"agency,omitempty"`
}

type llmResponse struct {
	Score    float64 `json:"score"`
	Category string  `json:"category"`
}

func (l *LLM) Score(ctx context.Context, record engine.OpportunityRecord) (float64, error) {
	score, _, err := l.Judge(ctx, record)
	return score, err
}

// Judge returns the model's score and, when the model supplies one, a
// category refinement for the record.
func (l *LLM) Judge(ctx context.Context, record engine.OpportunityRecord) (float64, engine.Category, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return 0, "", fmt.Errorf("%w: %v", engine.ErrStrategyUnavailable, ctx.Err())
			case <-time.After(time.Second):
			}
		}
		score, category, err := l.call(ctx, record)
		if err == nil {
			return score, category, nil
		}
		lastErr = err
	}
	l.logger.Warn("llm strategy unavailable", zap.Error(lastErr))
	return 0, "", fmt.Errorf("%w: %v", engine.ErrStrategyUnavailable, lastErr)
}

func (l *LLM) call(ctx context.Context, record engine.OpportunityRecord) (float64, engine.Category, error) {
	body, err := json.Marshal(llmRequest{
		Model:       l.cfg.Model,
		Title:       record.Title,
		Description: record.Description,
		Agency:      record.Agency,
	})
	if err != nil {
		return 0, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if l.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+l.cfg.APIKey)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, "", fmt.Errorf("llm endpoint returned %d", resp.StatusCode)
	}

	var parsed llmResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, llmMaxBody)).Decode(&parsed); err != nil {
		return 0, "", fmt.Errorf("decoding llm response: %w", err)
	}
	if parsed.Score < 0 || parsed.Score > 100 {
		return 0, "", fmt.Errorf("llm score %.1f out of range", parsed.Score)
	}

	category := engine.Category(parsed.Category)
	if !category.Valid() {
		category = ""
	}
	return parsed.Score, category, nil
}
