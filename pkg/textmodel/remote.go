package textmodel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Remote calls an external transformer inference service. The wire
// contract mirrors the common text-classification API shape: POST
// {"inputs": [...]} returning a per-input list of {label, score}
// candidates.
type Remote struct {
	baseURL    string
	httpClient *http.Client
}

// NewRemote builds a remote classifier client.
func NewRemote(cfg Config) (*Remote, error) {
	timeout := 15 * time.Second
	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout %q: %v", cfg.Timeout, err)
		}
		timeout = d
	}
	return &Remote{
		baseURL:    cfg.URL,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Name implements Classifier.
func (r *Remote) Name() string { return "remote" }

type remoteRequest struct {
	Inputs []string `json:"inputs"`
}

type remoteCandidate struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Predict implements Classifier.
func (r *Remote) Predict(ctx context.Context, texts []string) ([]Prediction, error) {
	body, err := json.Marshal(remoteRequest{Inputs: texts})
	if err != nil {
		return nil, fmt.Errorf("encoding inference request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: inference service returned %d", ErrUnavailable, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading inference response: %v", ErrUnavailable, err)
	}

	var candidates [][]remoteCandidate
	if err := json.Unmarshal(data, &candidates); err != nil {
		return nil, fmt.Errorf("decoding inference response: %v", err)
	}
	if len(candidates) != len(texts) {
		return nil, fmt.Errorf("inference service returned %d results for %d inputs",
			len(candidates), len(texts))
	}

	preds := make([]Prediction, len(candidates))
	for i, cands := range candidates {
		pred := Prediction{Probs: make(map[string]float64, len(cands))}
		for _, c := range cands {
			pred.Probs[c.Label] = c.Score
			if c.Score > pred.Score {
				pred.Score = c.Score
				pred.RawLabel = c.Label
			}
		}
		preds[i] = pred
	}
	return preds, nil
}

var _ Classifier = (*Remote)(nil)
var _ Classifier = (*RuleBased)(nil)
