package model

import (
	"fmt"
	"math"

	"github.com/phishwatch/phishwatch/pkg/features"
)

// LinearWeights is the payload of a logistic regression bundle.
type LinearWeights struct {
	Coef      []float64 `json:"coef"`
	Intercept float64   `json:"intercept"`

	// Optional standardization applied before the dot product.
	Mean  []float64 `json:"mean,omitempty"`
	Scale []float64 `json:"scale,omitempty"`
}

// Linear is a logistic regression over the engineered feature row.
type Linear struct {
	w *LinearWeights
}

// NewLinear validates the weight shapes against the feature column
// count.
func NewLinear(w *LinearWeights, nCols int) (*Linear, error) {
	if len(w.Coef) != nCols {
		return nil, fmt.Errorf("%w: %d coefficients for %d features",
			ErrBundleMalformed, len(w.Coef), nCols)
	}
	if len(w.Mean) > 0 && len(w.Mean) != nCols {
		return nil, fmt.Errorf("%w: mean vector length %d", ErrBundleMalformed, len(w.Mean))
	}
	if len(w.Scale) > 0 && len(w.Scale) != nCols {
		return nil, fmt.Errorf("%w: scale vector length %d", ErrBundleMalformed, len(w.Scale))
	}
	return &Linear{w: w}, nil
}

// PredictProba implements Predictor.
func (l *Linear) PredictProba(row features.Vector) (float64, error) {
	if len(row) != len(l.w.Coef) {
		return 0, fmt.Errorf("feature row has %d columns, model expects %d",
			len(row), len(l.w.Coef))
	}
	z := l.w.Intercept
	for i, x := range row {
		if len(l.w.Mean) > 0 {
			x -= l.w.Mean[i]
		}
		if len(l.w.Scale) > 0 && l.w.Scale[i] != 0 {
			x /= l.w.Scale[i]
		}
		z += l.w.Coef[i] * x
	}
	return sigmoid(z), nil
}

// Stump is a single depth-1 tree in a stump forest bundle. Rows with
// feature value <= Threshold score Left, otherwise Right.
type Stump struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      float64 `json:"left"`
	Right     float64 `json:"right"`
	Weight    float64 `json:"weight,omitempty"`
}

// StumpForest averages weighted decision stumps and squashes the sum
// through a sigmoid.
type StumpForest struct {
	trees []Stump
}

// NewStumpForest validates the feature indexes against the column
// count.
func NewStumpForest(trees []Stump, nCols int) (*StumpForest, error) {
	for i, t := range trees {
		if t.Feature < 0 || t.Feature >= nCols {
			return nil, fmt.Errorf("%w: tree %d references feature %d of %d",
				ErrBundleMalformed, i, t.Feature, nCols)
		}
	}
	return &StumpForest{trees: trees}, nil
}

// PredictProba implements Predictor.
func (f *StumpForest) PredictProba(row features.Vector) (float64, error) {
	sum := 0.0
	for _, t := range f.trees {
		if t.Feature >= len(row) {
			return 0, fmt.Errorf("feature row has %d columns, tree expects index %d",
				len(row), t.Feature)
		}
		v := t.Left
		if row[t.Feature] > t.Threshold {
			v = t.Right
		}
		w := t.Weight
		if w == 0 {
			w = 1
		}
		sum += w * v
	}
	return sigmoid(sum), nil
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}
