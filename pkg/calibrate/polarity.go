package calibrate

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/phishwatch/phishwatch/pkg/features"
	"github.com/phishwatch/phishwatch/pkg/model"
)

// Probe URL sets for polarity auto-calibration. Chosen to trip the
// engineered features decisively in each direction.
var (
	phishyProbes = []string{
		"http://paypa1-secure.com/login/verify",
		"http://192.168.12.33/account/update",
		"http://secure-bank-login.tk/webscr",
		"http://apple-id-verify.xyz/signin?session=1",
		"http://faceb00k-support.top/password/reset",
		"http://free-prize-claim.buzz/pay/now",
	}
	legitProbes = []string{
		"https://www.google.com",
		"https://github.com",
		"https://en.wikipedia.org/wiki/Phishing",
		"https://www.apple.com",
		"https://news.ycombinator.com",
		"https://go.dev/doc",
	}
)

// Polarity resolves whether the model's class-1 output is the
// phishing class. Precedence: explicit override, bundle metadata,
// auto-probe, default true. The probe runs at most once per process
// behind the same lock discipline as bundle loading.
type Polarity struct {
	override *bool
	log      zerolog.Logger

	mu       sync.Mutex
	resolved bool
	value    bool
}

// NewPolarity builds a resolver. override is an optional explicit
// setting naming which class is positive: "PHISH", "LEGIT" or empty.
func NewPolarity(override string, log zerolog.Logger) (*Polarity, error) {
	p := &Polarity{log: log}
	switch strings.ToUpper(strings.TrimSpace(override)) {
	case "":
	case "PHISH", "PHISHING", "TRUE", "1":
		v := true
		p.override = &v
	case "LEGIT", "LEGITIMATE", "FALSE", "0":
		v := false
		p.override = &v
	default:
		return nil, fmt.Errorf("invalid polarity override %q", override)
	}
	return p, nil
}

// PhishIsPositive resolves the polarity for the given bundle.
func (p *Polarity) PhishIsPositive(bundle *model.Bundle) bool {
	if p.override != nil {
		return *p.override
	}
	if bundle.PhishIsPositive != nil {
		return *bundle.PhishIsPositive
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.resolved {
		return p.value
	}

	p.value = p.probe(bundle)
	p.resolved = true
	return p.value
}

// probe compares the model's mean class-1 probability over the two
// synthetic sets. Any failure defaults to true and is logged, never
// surfaced.
func (p *Polarity) probe(bundle *model.Bundle) bool {
	phishMean, err := meanProba(bundle, phishyProbes)
	if err != nil {
		p.log.Warn().Err(err).Msg("polarity probe failed, assuming class 1 is phishing")
		return true
	}
	legitMean, err := meanProba(bundle, legitProbes)
	if err != nil {
		p.log.Warn().Err(err).Msg("polarity probe failed, assuming class 1 is phishing")
		return true
	}

	value := phishMean > legitMean
	p.log.Info().
		Float64("phishy_mean", phishMean).
		Float64("legit_mean", legitMean).
		Bool("phish_is_positive", value).
		Msg("polarity auto-calibrated")
	return value
}

func meanProba(bundle *model.Bundle, urls []string) (float64, error) {
	rows := features.Engineer(urls, bundle.FeatureCols)
	sum := 0.0
	for _, row := range rows {
		proba, err := bundle.Predictor().PredictProba(row)
		if err != nil {
			return 0, err
		}
		sum += proba
	}
	return sum / float64(len(rows)), nil
}
