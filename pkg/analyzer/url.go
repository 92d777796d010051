// Package analyzer sequences the detection pipeline into single
// request-scoped decisions, for URLs and for message text.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/phishwatch/phishwatch/pkg/calibrate"
	"github.com/phishwatch/phishwatch/pkg/detect"
	"github.com/phishwatch/phishwatch/pkg/features"
	"github.com/phishwatch/phishwatch/pkg/lists"
	"github.com/phishwatch/phishwatch/pkg/model"
	"github.com/phishwatch/phishwatch/pkg/urlinfo"
)

// ErrEmptyInput is returned for blank URLs or text. Callers map it to
// a client error.
var ErrEmptyInput = errors.New("empty input")

// Verdict labels.
const (
	LabelPhish = "PHISH"
	LabelLegit = "LEGIT"
)

// BundleProvider resolves the model bundle on demand.
type BundleProvider interface {
	Bundle(ctx context.Context) (*model.Bundle, error)
}

// URL runs the ordered URL decision cascade: sanitize, exact list
// match, host match, lookalike, typosquat, then model inference.
type URL struct {
	lists    lists.Source
	bundles  BundleProvider
	polarity *calibrate.Polarity
	log      zerolog.Logger
}

// NewURL wires a URL analyzer.
func NewURL(src lists.Source, bundles BundleProvider, polarity *calibrate.Polarity, log zerolog.Logger) *URL {
	return &URL{lists: src, bundles: bundles, polarity: polarity, log: log}
}

// URLResult is the structured verdict for one URL.
type URLResult struct {
	URL                 string  `json:"url"`
	Label               string  `json:"label"`
	PredictedLabel      int     `json:"predicted_label"`
	Score               float64 `json:"score"`
	PhishingProbability float64 `json:"phishing_probability"`
	ConfidenceLevel     string  `json:"confidence_level"`
	DetectionMethod     string  `json:"detection_method"`
	Explanation         string  `json:"explanation"`
	Backend             string  `json:"backend"`
	Threshold           float64 `json:"threshold"`
	URLCol              string  `json:"url_col"`
}

// Analyze classifies one raw URL string. Overrides short-circuit in
// order; the model only runs when no override fires. List lookup
// failures degrade to the remaining detectors rather than failing the
// request.
func (a *URL) Analyze(ctx context.Context, raw string) (*URLResult, error) {
	sanitized := urlinfo.Sanitize(raw)
	if sanitized == "" {
		return nil, ErrEmptyInput
	}
	u := urlinfo.EnsureScheme(sanitized)
	host := urlinfo.Host(u)

	if label, ok, err := a.lists.MatchURL(ctx, u); err != nil {
		a.log.Warn().Err(err).Msg("URL list lookup failed, continuing cascade")
	} else if ok {
		if label == lists.Phish {
			return a.overrideResult(ctx, u, LabelPhish, 0.99, calibrate.MethodCSVMatch, ""), nil
		}
		return a.overrideResult(ctx, u, LabelLegit, 0.01, calibrate.MethodCSVMatch, ""), nil
	}

	if label, matchedHost, ok, err := a.lists.MatchHost(ctx, host); err != nil {
		a.log.Warn().Err(err).Msg("host list lookup failed, continuing cascade")
	} else if ok {
		if label == lists.Phish {
			return a.overrideResult(ctx, u, LabelPhish, 0.99, calibrate.MethodHostMatch, matchedHost), nil
		}
		return a.overrideResult(ctx, u, LabelLegit, 0.01, calibrate.MethodHostMatch, matchedHost), nil
	}

	if hit, runes := detect.Lookalike(u); hit {
		return a.overrideResult(ctx, u, LabelPhish, detect.LookalikeRawConfidence,
			calibrate.MethodLookalike, string(runes)), nil
	}

	if res := detect.Typosquat(u, features.BrandNames); res.Hit {
		return a.overrideResult(ctx, u, LabelPhish, detect.TyposquatRawConfidence,
			calibrate.MethodTyposquat, res.Brand), nil
	}

	return a.modelResult(ctx, u)
}

// AnalyzeBatch classifies each URL independently. Per-item input
// errors become per-item results rather than failing the batch.
func (a *URL) AnalyzeBatch(ctx context.Context, urls []string) ([]*URLResult, []error) {
	results := make([]*URLResult, len(urls))
	errs := make([]error, len(urls))
	for i, u := range urls {
		results[i], errs[i] = a.Analyze(ctx, u)
	}
	return results, errs
}

// phishPositive resolves the model's phishing class index. Override
// results only use it to report predicted_label, so a missing bundle
// degrades to the default orientation instead of failing the match.
func (a *URL) phishPositive(ctx context.Context) bool {
	bundle, err := a.bundles.Bundle(ctx)
	if err != nil {
		return true
	}
	return a.polarity.PhishIsPositive(bundle)
}

// predictedLabel maps the verdict back onto the model's class index.
func predictedLabel(isPhish, phishPositive bool) int {
	if isPhish == phishPositive {
		return 1
	}
	return 0
}

func (a *URL) overrideResult(ctx context.Context, u, label string, raw float64, method, detail string) *URLResult {
	isPhish := label == LabelPhish
	cal := calibrate.Confidence(isPhish, raw, method, 0)

	predicted := predictedLabel(isPhish, a.phishPositive(ctx))
	return &URLResult{
		URL:                 u,
		Label:               label,
		PredictedLabel:      predicted,
		Score:               cal.Confidence,
		PhishingProbability: raw,
		ConfidenceLevel:     cal.Level,
		DetectionMethod:     method,
		Explanation:         calibrate.Explain(isPhish, method, detail),
		Backend:             "rules",
		Threshold:           0.5,
		URLCol:              "url",
	}
}

func (a *URL) modelResult(ctx context.Context, u string) (*URLResult, error) {
	bundle, err := a.bundles.Bundle(ctx)
	if err != nil {
		return nil, err
	}

	rows := features.Engineer([]string{u}, bundle.FeatureCols)
	proba, err := bundle.Predictor().PredictProba(rows[0])
	if err != nil {
		return nil, fmt.Errorf("model inference: %v", err)
	}

	phishPositive := a.polarity.PhishIsPositive(bundle)
	phishProb := proba
	if !phishPositive {
		phishProb = 1 - proba
	}

	threshold := bundle.DecisionThreshold()
	isPhish := phishProb >= threshold

	suspiciousCount, reasons := detect.SuspiciousFeatures(u)
	cal := calibrate.Confidence(isPhish, phishProb, calibrate.MethodModel, suspiciousCount)

	label := LabelLegit
	if isPhish {
		label = LabelPhish
	}
	predicted := predictedLabel(isPhish, phishPositive)

	detail := ""
	if len(reasons) > 0 {
		detail = "suspicious: " + strings.Join(reasons, ", ")
	}

	return &URLResult{
		URL:                 u,
		Label:               label,
		PredictedLabel:      predicted,
		Score:               cal.Confidence,
		PhishingProbability: phishProb,
		ConfidenceLevel:     cal.Level,
		DetectionMethod:     calibrate.MethodModel,
		Explanation:         calibrate.Explain(isPhish, calibrate.MethodModel, detail),
		Backend:             bundle.ModelType,
		Threshold:           threshold,
		URLCol:              bundle.URLCol,
	}, nil
}
