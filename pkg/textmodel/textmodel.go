// Package textmodel classifies free-form text as phishing or
// legitimate. The transformer model is a black box behind the
// Classifier interface; deployments run it as a separate inference
// service this package calls over HTTP, with a rule-based fallback
// when no service is configured.
package textmodel

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/phishwatch/phishwatch/pkg/textindicators"
)

// ErrUnavailable means the classifier backend cannot serve requests.
var ErrUnavailable = errors.New("text classifier unavailable")

// Prediction is the classifier's per-class output for one text.
type Prediction struct {
	// RawLabel is the backend's own label string before
	// normalization.
	RawLabel string
	// Probs maps raw label to probability.
	Probs map[string]float64
	// Score is the probability of the winning class.
	Score float64
}

// Classifier scores texts. Implementations must be safe for
// concurrent use.
type Classifier interface {
	// Predict returns one prediction per input text, in order.
	Predict(ctx context.Context, texts []string) ([]Prediction, error)
	// Name identifies the backend for the status endpoint.
	Name() string
}

// NormalizeLabel maps the label spellings emitted by different
// backends onto the phishing verdict.
func NormalizeLabel(raw string) (phish bool, known bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "PHISH", "PHISHING", "SPAM", "LABEL_1", "1", "POSITIVE", "BAD":
		return true, true
	case "LEGIT", "LEGITIMATE", "HAM", "LABEL_0", "0", "NEGATIVE", "GOOD", "BENIGN":
		return false, true
	}
	return false, false
}

// Config selects and configures the text classifier backend.
type Config struct {
	// URL of the remote inference service. Empty selects the
	// rule-based fallback.
	URL     string `json:"url" yaml:"url"`
	Timeout string `json:"timeout" yaml:"timeout"`
}

// New resolves the backend strategy once at startup: remote when a
// URL is configured, rule-based otherwise.
func New(cfg Config, log zerolog.Logger) (Classifier, error) {
	if cfg.URL != "" {
		c, err := NewRemote(cfg)
		if err != nil {
			return nil, fmt.Errorf("configuring remote text classifier: %v", err)
		}
		log.Info().Str("url", cfg.URL).Msg("using remote text classifier")
		return c, nil
	}
	log.Info().Msg("no inference service configured, using rule-based text classifier")
	return &RuleBased{}, nil
}

// RuleBased scores texts from the indicator analysis alone. It exists
// so the service degrades to heuristics when the transformer backend
// is absent rather than failing closed.
type RuleBased struct{}

// Name implements Classifier.
func (r *RuleBased) Name() string { return "rule-based" }

// Predict implements Classifier. The phishing probability grows with
// indicator density and urgency.
func (r *RuleBased) Predict(_ context.Context, texts []string) ([]Prediction, error) {
	preds := make([]Prediction, len(texts))
	for i, text := range texts {
		ind := textindicators.Analyze(text)

		p := ind.IndicatorPercentage/100*0.8 + float64(ind.UrgencyScore)*0.05
		if p > 0.95 {
			p = 0.95
		}

		label := "LEGIT"
		score := 1 - p
		if p >= 0.5 {
			label = "PHISH"
			score = p
		}
		preds[i] = Prediction{
			RawLabel: label,
			Score:    score,
			Probs:    map[string]float64{"PHISH": p, "LEGIT": 1 - p},
		}
	}
	return preds, nil
}
