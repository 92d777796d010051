package calibrate

import (
	"fmt"
	"math"
	"testing"

	"github.com/rs/zerolog"

	"github.com/phishwatch/phishwatch/pkg/features"
	"github.com/phishwatch/phishwatch/pkg/model"
)

func TestConfidencePhishingBands(t *testing.T) {
	testCases := []struct {
		name       string
		raw        float64
		method     string
		suspicious int
		lo, hi     float64
		level      string
	}{
		{"csv match", 0.99, MethodCSVMatch, 0, 0.78, 0.85, LevelHigh},
		{"host match", 0.99, MethodHostMatch, 0, 0.75, 0.83, LevelHigh},
		{"lookalike", 0.95, MethodLookalike, 0, 0.68, 0.78, LevelHigh},
		{"typosquat", 0.90, MethodTyposquat, 0, 0.63, 0.75, LevelMedium},
		{"model corroborated", 0.95, MethodModel, 4, 0.78, 0.85, LevelHigh},
		{"model high", 0.80, MethodModel, 0, 0.70, 0.80, LevelHigh},
		{"model mid", 0.65, MethodModel, 0, 0.62, 0.75, LevelMedium},
		{"model low", 0.55, MethodModel, 0, 0.55, 0.68, LevelMedium},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res := Confidence(true, tc.raw, tc.method, tc.suspicious)
			if res.Confidence < tc.lo || res.Confidence > tc.hi {
				t.Errorf("confidence %f outside [%f, %f]", res.Confidence, tc.lo, tc.hi)
			}
			if res.Level != tc.level {
				t.Errorf("level = %s, expected %s", res.Level, tc.level)
			}
		})
	}
}

func TestConfidenceModelBoundaryInclusive(t *testing.T) {
	// Raw exactly at 0.75 must land in the higher band.
	res := Confidence(true, 0.75, MethodModel, 0)
	want := 0.70 + 0.75*0.10
	if math.Abs(res.Confidence-want) > 1e-9 {
		t.Errorf("confidence at boundary = %f, expected %f", res.Confidence, want)
	}
}

func TestConfidenceLegitimate(t *testing.T) {
	// List-matched legitimate URL, near-zero phishing probability.
	res := Confidence(false, 0.01, MethodHostMatch, 0)
	if res.Confidence < 0.70 || res.Confidence > 0.80 {
		t.Errorf("legit host match confidence %f outside [0.70, 0.80]", res.Confidence)
	}

	res = Confidence(false, 0.2, MethodModel, 0)
	if res.Confidence < 0.72 || res.Confidence > 0.82 {
		t.Errorf("legit model confidence %f outside [0.72, 0.82]", res.Confidence)
	}
}

func TestConfidenceEnvelopeClamp(t *testing.T) {
	for raw := 0.0; raw <= 1.0; raw += 0.05 {
		for _, method := range []string{MethodCSVMatch, MethodHostMatch, MethodLookalike, MethodTyposquat, MethodModel} {
			for _, phishing := range []bool{true, false} {
				res := Confidence(phishing, raw, method, 5)
				if res.Confidence < URLEnvelope.Min || res.Confidence > URLEnvelope.Max {
					t.Fatalf("confidence %f escaped envelope (raw=%f method=%s phishing=%v)",
						res.Confidence, raw, method, phishing)
				}
			}
		}
	}
}

func TestLevelLadder(t *testing.T) {
	if Level(0.72) != LevelHigh {
		t.Error("0.72 must be HIGH")
	}
	if Level(0.58) != LevelMedium {
		t.Error("0.58 must be MEDIUM")
	}
	if Level(0.57) != LevelLow {
		t.Error("0.57 must be LOW")
	}
}

// polarityStub answers a fixed probability for phishy-looking probes
// and another for everything else, keyed on URL length via a
// registered lookup.
type polarityStub struct {
	proba func(row features.Vector) float64
	calls int
}

func (s *polarityStub) PredictProba(row features.Vector) (float64, error) {
	s.calls++
	return s.proba(row), nil
}

// probeStubCols uses count_hyphen plus has_login style columns so the
// synthetic phishy probes separate cleanly from the legitimate ones.
var probeStubCols = []string{"url_len", "count_digit", "count_hyphen", "has_login", "has_verify", "tld_suspicious", "has_ip"}

func phishySignal(row features.Vector) float64 {
	// Columns 1.. are digit count and suspicious flags; any
	// substantial signal marks the probe as phishy.
	score := 0.0
	for _, v := range row[1:] {
		score += v
	}
	return score
}

func TestPolarityAutoProbe(t *testing.T) {
	stub := &polarityStub{proba: func(row features.Vector) float64 {
		if phishySignal(row) >= 1 {
			return 0.9
		}
		return 0.1
	}}
	bundle := model.NewStaticBundle("linear", probeStubCols, stub)

	p, err := NewPolarity("", zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if !p.PhishIsPositive(bundle) {
		t.Error("expected phish_is_positive = true for phishy-high stub")
	}

	// Reversed stub resolves false.
	reversed := &polarityStub{proba: func(row features.Vector) float64 {
		if phishySignal(row) >= 1 {
			return 0.1
		}
		return 0.9
	}}
	p2, _ := NewPolarity("", zerolog.Nop())
	if p2.PhishIsPositive(model.NewStaticBundle("linear", probeStubCols, reversed)) {
		t.Error("expected phish_is_positive = false for reversed stub")
	}
}

func TestPolarityProbeRunsOnce(t *testing.T) {
	stub := &polarityStub{proba: func(features.Vector) float64 { return 0.9 }}
	bundle := model.NewStaticBundle("linear", probeStubCols, stub)

	p, _ := NewPolarity("", zerolog.Nop())
	p.PhishIsPositive(bundle)
	first := stub.calls
	p.PhishIsPositive(bundle)
	if stub.calls != first {
		t.Errorf("probe re-ran: %d calls then %d", first, stub.calls)
	}
}

func TestPolarityPrecedence(t *testing.T) {
	stub := &polarityStub{proba: func(features.Vector) float64 { return 0.9 }}

	// Explicit override beats bundle metadata.
	meta := true
	bundle := model.NewStaticBundle("linear", probeStubCols, stub)
	bundle.PhishIsPositive = &meta

	p, err := NewPolarity("LEGIT", zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if p.PhishIsPositive(bundle) {
		t.Error("explicit override must beat bundle metadata")
	}
	if stub.calls != 0 {
		t.Error("override must not probe the model")
	}

	// Bundle metadata beats the probe.
	metaFalse := false
	bundle2 := model.NewStaticBundle("linear", probeStubCols, stub)
	bundle2.PhishIsPositive = &metaFalse
	p2, _ := NewPolarity("", zerolog.Nop())
	if p2.PhishIsPositive(bundle2) {
		t.Error("bundle metadata must resolve polarity")
	}
	if stub.calls != 0 {
		t.Error("metadata must not probe the model")
	}
}

func TestPolarityProbeFailureDefaultsTrue(t *testing.T) {
	failing := &failingPredictor{}
	bundle := model.NewStaticBundle("linear", probeStubCols, failing)

	p, _ := NewPolarity("", zerolog.Nop())
	if !p.PhishIsPositive(bundle) {
		t.Error("probe failure must default to true")
	}
}

func TestNewPolarityInvalidOverride(t *testing.T) {
	if _, err := NewPolarity("banana", zerolog.Nop()); err == nil {
		t.Error("expected error for invalid override")
	}
}

type failingPredictor struct{}

func (f *failingPredictor) PredictProba(features.Vector) (float64, error) {
	return 0, fmt.Errorf("backend offline")
}
