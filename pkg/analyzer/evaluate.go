package analyzer

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrBadSample marks evaluation samples the caller got wrong.
var ErrBadSample = errors.New("bad evaluation sample")

// Sample is one labeled evaluation input. Exactly one of URL or Text
// should be set.
type Sample struct {
	URL   string `json:"url,omitempty"`
	Text  string `json:"text,omitempty"`
	Label string `json:"label"`
}

// ClassStats accumulates per-class evaluation counts.
type ClassStats struct {
	Total   int `json:"total"`
	Correct int `json:"correct"`
}

// Evaluation is the accuracy report over a labeled sample set.
type Evaluation struct {
	Accuracy    float64                `json:"accuracy"`
	Total       int                    `json:"total"`
	Correct     int                    `json:"correct"`
	Predictions []EvaluationPrediction `json:"predictions"`
	PerClass    map[string]*ClassStats `json:"per_class"`
}

// EvaluationPrediction pairs one sample with its verdict.
type EvaluationPrediction struct {
	Input     string `json:"input"`
	Expected  string `json:"expected"`
	Predicted string `json:"predicted"`
	Correct   bool   `json:"correct"`
}

// Evaluator scores a labeled sample set against both analyzers.
type Evaluator struct {
	url  *URL
	text *Text
}

// NewEvaluator wires an evaluator.
func NewEvaluator(url *URL, text *Text) *Evaluator {
	return &Evaluator{url: url, text: text}
}

// Evaluate runs every sample through the matching analyzer and
// reports accuracy overall and per expected class.
func (e *Evaluator) Evaluate(ctx context.Context, samples []Sample) (*Evaluation, error) {
	if len(samples) == 0 {
		return nil, ErrEmptyInput
	}

	eval := &Evaluation{
		PerClass:    make(map[string]*ClassStats),
		Predictions: make([]EvaluationPrediction, 0, len(samples)),
	}

	for i, s := range samples {
		expected := strings.ToUpper(strings.TrimSpace(s.Label))
		if expected != LabelPhish && expected != LabelLegit {
			return nil, fmt.Errorf("%w: sample %d has unknown label %q", ErrBadSample, i, s.Label)
		}

		var (
			input     string
			predicted string
			err       error
		)
		switch {
		case s.URL != "":
			input = s.URL
			var res *URLResult
			if res, err = e.url.Analyze(ctx, s.URL); err == nil {
				predicted = res.Label
			}
		case s.Text != "":
			input = s.Text
			var res *TextResult
			if res, err = e.text.Analyze(ctx, s.Text); err == nil {
				predicted = res.Label
			}
		default:
			return nil, fmt.Errorf("%w: sample %d has neither url nor text", ErrBadSample, i)
		}
		if err != nil {
			return nil, fmt.Errorf("sample %d: %v", i, err)
		}

		correct := predicted == expected
		eval.Total++
		if correct {
			eval.Correct++
		}

		stats := eval.PerClass[expected]
		if stats == nil {
			stats = &ClassStats{}
			eval.PerClass[expected] = stats
		}
		stats.Total++
		if correct {
			stats.Correct++
		}

		eval.Predictions = append(eval.Predictions, EvaluationPrediction{
			Input:     input,
			Expected:  expected,
			Predicted: predicted,
			Correct:   correct,
		})
	}

	eval.Accuracy = float64(eval.Correct) / float64(eval.Total)
	return eval, nil
}
