package analyzer

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/phishwatch/phishwatch/pkg/textindicators"
	"github.com/phishwatch/phishwatch/pkg/textmodel"
)

// Text classifies free-form message text with the configured backend
// and adjusts its confidence by the rule-based indicator analysis.
type Text struct {
	classifier textmodel.Classifier
	log        zerolog.Logger
}

// NewText wires a text analyzer.
func NewText(classifier textmodel.Classifier, log zerolog.Logger) *Text {
	return &Text{classifier: classifier, log: log}
}

// TextResult is the structured verdict for one text.
type TextResult struct {
	Label      string                    `json:"label"`
	RawLabel   string                    `json:"raw_label"`
	IsPhish    bool                      `json:"is_phish"`
	Score      float64                   `json:"score"`
	Confidence float64                   `json:"confidence"`
	Probs      map[string]float64        `json:"probs"`
	Indicators textindicators.Indicators `json:"indicators"`
}

// Analyze classifies one text.
func (t *Text) Analyze(ctx context.Context, text string) (*TextResult, error) {
	results, err := t.AnalyzeBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return results[0], nil
}

// AnalyzeBatch classifies texts in one backend call. Any blank input
// fails the whole batch before the backend is invoked.
func (t *Text) AnalyzeBatch(ctx context.Context, texts []string) ([]*TextResult, error) {
	for _, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, ErrEmptyInput
		}
	}

	preds, err := t.classifier.Predict(ctx, texts)
	if err != nil {
		return nil, err
	}

	results := make([]*TextResult, len(preds))
	for i, pred := range preds {
		ind := textindicators.Analyze(texts[i])
		isPhish := resolveLabel(pred)

		label := LabelLegit
		if isPhish {
			label = LabelPhish
		}

		results[i] = &TextResult{
			Label:      label,
			RawLabel:   pred.RawLabel,
			IsPhish:    isPhish,
			Score:      pred.Score,
			Confidence: textindicators.AdjustConfidence(ind, isPhish),
			Probs:      pred.Probs,
			Indicators: ind,
		}
	}
	return results, nil
}

// resolveLabel normalizes the backend's winning label, falling back
// to the per-class probabilities when the label spelling is unknown.
func resolveLabel(pred textmodel.Prediction) bool {
	if phish, known := textmodel.NormalizeLabel(pred.RawLabel); known {
		return phish
	}
	phishProb := 0.0
	for raw, p := range pred.Probs {
		if phish, known := textmodel.NormalizeLabel(raw); known && phish {
			phishProb += p
		}
	}
	return phishProb >= 0.5
}
