// Package detect holds the pre-model heuristic detectors of the URL
// pipeline. Each detector is a pure predicate over the sanitized URL
// returning a hit flag plus enough detail to explain the call.
package detect

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/phishwatch/phishwatch/pkg/features"
	"github.com/phishwatch/phishwatch/pkg/urlinfo"
)

const (
	// LookalikeRawConfidence is the fixed raw probability assigned to
	// homoglyph hits before calibration.
	LookalikeRawConfidence = 0.95

	// TyposquatRawConfidence is the fixed raw probability assigned to
	// typosquat hits before calibration.
	TyposquatRawConfidence = 0.90

	// TyposquatSimilarityThreshold is the minimum brand similarity for
	// a typosquat flag.
	TyposquatSimilarityThreshold = 0.90
)

var (
	ipv4Re  = regexp.MustCompile(`(?:\d{1,3}\.){3}\d{1,3}`)
	digitRe = regexp.MustCompile(`\d`)

	// leetDigits maps digits commonly substituted for letters in
	// typosquatted domains back to the letters they imitate.
	leetDigits = strings.NewReplacer(
		"0", "o", "1", "l", "3", "e", "4", "a", "5", "s", "7", "t",
	)

	nonLetterRe = regexp.MustCompile(`[^a-z]`)
)

// Lookalike reports whether the URL contains a homoglyph rune, with
// the offending runes for the explanation.
func Lookalike(u string) (bool, []rune) {
	var hits []rune
	for _, r := range u {
		if _, ok := features.LookalikeChars[r]; ok {
			hits = append(hits, r)
		}
	}
	return len(hits) > 0, hits
}

// TyposquatResult carries the detail behind a typosquat decision.
type TyposquatResult struct {
	Hit            bool
	Brand          string
	BestSimilarity float64
	SLD            string
}

// Typosquat flags domains that closely mimic a known brand via digit
// substitution or hyphenation. The SLD is normalized by mapping leet
// digits back to letters and stripping the rest, then compared whole
// and token-by-token (hyphen split) against the brand list. Exact
// official domains (brand.com and subdomains) are never flagged.
func Typosquat(u string, brands []string) TyposquatResult {
	host := urlinfo.Host(u)
	sld := urlinfo.SLD(host)
	res := TyposquatResult{SLD: sld}
	if sld == "" {
		return res
	}

	hasDigit := digitRe.MatchString(sld)
	hasHyphen := strings.Contains(sld, "-")
	if !hasDigit && !hasHyphen {
		return res
	}

	candidates := []string{normalizeBrandToken(sld)}
	for _, tok := range strings.Split(sld, "-") {
		candidates = append(candidates, normalizeBrandToken(tok))
	}

	for _, brand := range brands {
		b := normalizeBrandToken(brand)
		if b == "" {
			continue
		}
		if urlinfo.HostMatches(host, b+".com") {
			// Official brand domain, not a squat.
			return TyposquatResult{SLD: sld}
		}
		for _, c := range candidates {
			if c == "" {
				continue
			}
			if r := features.SimilarityRatio(c, b); r > res.BestSimilarity {
				res.BestSimilarity = r
				res.Brand = brand
			}
		}
	}

	res.Hit = res.BestSimilarity >= TyposquatSimilarityThreshold
	return res
}

// SuspiciousFeatures counts suspicious indicators in a URL and names
// each one for the explanation string.
func SuspiciousFeatures(u string) (int, []string) {
	count := 0
	var reasons []string

	lower := strings.ToLower(u)
	for _, kw := range features.SuspiciousKeywords {
		if strings.Contains(lower, kw) {
			count++
			reasons = append(reasons, fmt.Sprintf("keyword:%s", kw))
		}
	}

	if ipv4Re.MatchString(u) {
		count++
		reasons = append(reasons, "ip_address")
	}

	if len(u) > 75 {
		count++
		reasons = append(reasons, "long_url")
	}

	if host := urlinfo.Host(u); strings.Count(host, ".") > 3 {
		count++
		reasons = append(reasons, "many_subdomains")
	}

	return count, reasons
}

// normalizeBrandToken lowercases, maps leet digits to letters and
// drops anything that is not a letter.
func normalizeBrandToken(s string) string {
	return nonLetterRe.ReplaceAllString(leetDigits.Replace(strings.ToLower(s)), "")
}
