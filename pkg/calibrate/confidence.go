// Package calibrate turns raw detector and model probabilities into
// bounded, user-facing confidence scores, and resolves which model
// class means "phishing".
package calibrate

import "fmt"

// Detection methods recognized by the confidence table.
const (
	MethodCSVMatch  = "csv_match"
	MethodHostMatch = "host_match"
	MethodLookalike = "lookalike"
	MethodTyposquat = "typosquat"
	MethodModel     = "model"
)

// Confidence level labels.
const (
	LevelHigh   = "HIGH"
	LevelMedium = "MEDIUM"
	LevelLow    = "LOW"
)

// Band linearly rescales a raw probability into [Floor, Floor+Span].
type Band struct {
	Floor float64
	Span  float64
}

// Apply computes Floor + raw*Span with raw clamped to [0,1].
func (b Band) Apply(raw float64) float64 {
	if raw < 0 {
		raw = 0
	}
	if raw > 1 {
		raw = 1
	}
	return b.Floor + raw*b.Span
}

// modelBand is one rung of the model-detection ladder: raw
// probabilities at or above Min fall into Band. Lower bounds are
// inclusive.
type modelBand struct {
	Min  float64
	Band Band
}

// phishBands maps each non-model detection method to its phishing
// confidence band.
var phishBands = map[string]Band{
	MethodLookalike: {Floor: 0.68, Span: 0.10},
	MethodTyposquat: {Floor: 0.63, Span: 0.12},
	MethodCSVMatch:  {Floor: 0.78, Span: 0.07},
	MethodHostMatch: {Floor: 0.75, Span: 0.08},
}

// phishModelLadder is ordered highest rung first.
var phishModelLadder = []modelBand{
	{Min: 0.75, Band: Band{Floor: 0.70, Span: 0.10}},
	{Min: 0.60, Band: Band{Floor: 0.62, Span: 0.13}},
	{Min: 0.0, Band: Band{Floor: 0.55, Span: 0.13}},
}

// phishModelCorroborated applies when the model is very confident and
// several suspicious lexical features co-occur.
var phishModelCorroborated = Band{Floor: 0.78, Span: 0.07}

// legitBands for the legitimate outcome, keyed the same way. The raw
// value fed into these is the legitimate-class probability.
var legitBands = map[string]Band{
	MethodCSVMatch:  {Floor: 0.70, Span: 0.10},
	MethodHostMatch: {Floor: 0.70, Span: 0.10},
	MethodLookalike: {Floor: 0.70, Span: 0.10},
	MethodTyposquat: {Floor: 0.70, Span: 0.10},
	MethodModel:     {Floor: 0.72, Span: 0.10},
}

// Envelope clamps calibrated confidences to a global range.
type Envelope struct {
	Min float64
	Max float64
}

// URLEnvelope bounds the URL pipeline's confidences.
var URLEnvelope = Envelope{Min: 0.50, Max: 0.85}

// TextEnvelope bounds the text classifier's confidences.
var TextEnvelope = Envelope{Min: 0.55, Max: 0.85}

// Clamp applies the envelope.
func (e Envelope) Clamp(v float64) float64 {
	if v < e.Min {
		return e.Min
	}
	if v > e.Max {
		return e.Max
	}
	return v
}

// Result is a calibrated confidence with its qualitative level.
type Result struct {
	Confidence float64
	Level      string
}

// Confidence maps a detection outcome onto a bounded confidence. raw
// is the phishing-class probability regardless of the predicted
// label; suspiciousCount is the number of co-occurring suspicious
// lexical features, only meaningful for model detections.
func Confidence(isPhishing bool, raw float64, method string, suspiciousCount int) Result {
	var v float64
	if isPhishing {
		v = phishConfidence(raw, method, suspiciousCount)
	} else {
		v = legitConfidence(1.0-raw, method)
	}
	v = URLEnvelope.Clamp(v)
	return Result{Confidence: v, Level: Level(v)}
}

func phishConfidence(raw float64, method string, suspiciousCount int) float64 {
	if band, ok := phishBands[method]; ok {
		return band.Apply(raw)
	}
	if raw >= 0.90 && suspiciousCount >= 3 {
		return phishModelCorroborated.Apply(raw)
	}
	for _, rung := range phishModelLadder {
		if raw >= rung.Min {
			return rung.Band.Apply(raw)
		}
	}
	return phishModelLadder[len(phishModelLadder)-1].Band.Apply(raw)
}

func legitConfidence(legitRaw float64, method string) float64 {
	band, ok := legitBands[method]
	if !ok {
		band = legitBands[MethodModel]
	}
	return band.Apply(legitRaw)
}

// Level maps a calibrated confidence onto the qualitative ladder.
func Level(confidence float64) string {
	switch {
	case confidence >= 0.72:
		return LevelHigh
	case confidence >= 0.58:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Explain renders the standard one-line explanation for a detection.
func Explain(isPhishing bool, method string, detail string) string {
	verdict := "legitimate"
	if isPhishing {
		verdict = "phishing"
	}
	switch method {
	case MethodCSVMatch:
		return fmt.Sprintf("URL exactly matches a known %s URL list entry", verdict)
	case MethodHostMatch:
		if detail != "" {
			return fmt.Sprintf("host matches known %s domain %s", verdict, detail)
		}
		return fmt.Sprintf("host matches a known %s domain", verdict)
	case MethodLookalike:
		if detail != "" {
			return fmt.Sprintf("URL contains lookalike characters (%s)", detail)
		}
		return "URL contains lookalike characters"
	case MethodTyposquat:
		if detail != "" {
			return fmt.Sprintf("domain appears to typosquat %s", detail)
		}
		return "domain appears to typosquat a known brand"
	default:
		if detail != "" {
			return fmt.Sprintf("model classified URL as %s (%s)", verdict, detail)
		}
		return fmt.Sprintf("model classified URL as %s", verdict)
	}
}

