// Package model loads serialized classifier bundles and runs
// inference over engineered feature vectors. A bundle is a JSON
// artifact produced by the training pipeline; this package treats the
// model itself as a black box behind the Predictor interface.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/phishwatch/phishwatch/pkg/features"
)

// Sentinel errors for the caller to map onto API error responses.
var (
	// ErrBundleUnavailable means the artifact could not be fetched or
	// read at all.
	ErrBundleUnavailable = errors.New("model bundle unavailable")
	// ErrBundleMalformed means the artifact was fetched but cannot be
	// decoded into a usable model.
	ErrBundleMalformed = errors.New("model bundle malformed")
	// ErrBackendUnsupported means the artifact names a model type this
	// build cannot run.
	ErrBackendUnsupported = errors.New("model backend unsupported")
)

// Predictor scores one engineered feature row as a probability.
type Predictor interface {
	// PredictProba returns the model's positive-class probability for
	// the row. Which class is "positive" is resolved separately by the
	// polarity calibrator.
	PredictProba(row features.Vector) (float64, error)
}

// Bundle is the decoded model artifact plus the metadata the pipeline
// needs to drive it.
type Bundle struct {
	ModelType   string   `json:"model_type"`
	FeatureCols []string `json:"feature_cols"`
	URLCol      string   `json:"url_col"`
	Threshold   *float64 `json:"threshold,omitempty"`

	// PhishIsPositive, when present, declares the polarity of the
	// positive class and short-circuits the auto-probe.
	PhishIsPositive *bool `json:"phish_is_positive,omitempty"`

	// Backend-specific payloads. Exactly one is used depending on
	// ModelType.
	Weights *LinearWeights `json:"weights,omitempty"`
	Trees   []Stump        `json:"trees,omitempty"`

	predictor Predictor
}

// Predictor returns the backend built for this bundle.
func (b *Bundle) Predictor() Predictor {
	return b.predictor
}

// DecisionThreshold returns the configured threshold or the 0.5
// default.
func (b *Bundle) DecisionThreshold() float64 {
	if b.Threshold != nil {
		return *b.Threshold
	}
	return 0.5
}

// ParseBundle decodes and validates a bundle from raw JSON and builds
// its predictor.
func ParseBundle(data []byte) (*Bundle, error) {
	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBundleMalformed, err)
	}

	if len(b.FeatureCols) == 0 {
		return nil, fmt.Errorf("%w: empty feature_cols", ErrBundleMalformed)
	}
	if b.URLCol == "" {
		b.URLCol = "url"
	}

	switch b.ModelType {
	case "linear", "logreg":
		if b.Weights == nil {
			return nil, fmt.Errorf("%w: linear model without weights", ErrBundleMalformed)
		}
		p, err := NewLinear(b.Weights, len(b.FeatureCols))
		if err != nil {
			return nil, err
		}
		b.predictor = p
	case "stump_forest":
		if len(b.Trees) == 0 {
			return nil, fmt.Errorf("%w: stump forest without trees", ErrBundleMalformed)
		}
		p, err := NewStumpForest(b.Trees, len(b.FeatureCols))
		if err != nil {
			return nil, err
		}
		b.predictor = p
	default:
		return nil, fmt.Errorf("%w: %q", ErrBackendUnsupported, b.ModelType)
	}

	return &b, nil
}

// NewStaticBundle wraps an existing predictor in bundle metadata.
// Used when the model is supplied programmatically rather than loaded
// from an artifact.
func NewStaticBundle(modelType string, featureCols []string, p Predictor) *Bundle {
	return &Bundle{
		ModelType:   modelType,
		FeatureCols: featureCols,
		URLCol:      "url",
		predictor:   p,
	}
}

// ReadBundle loads and parses a bundle file from disk.
func ReadBundle(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrBundleUnavailable, path, err)
	}
	return ParseBundle(data)
}
