package features

import (
	"math"
	"regexp"
	"strings"
	"unicode"

	"github.com/phishwatch/phishwatch/pkg/urlinfo"
)

// SuspiciousKeywords are URL tokens that commonly appear in phishing
// URLs. The per-keyword presence flags in the feature schema are named
// "has_<keyword>".
var SuspiciousKeywords = []string{
	"login", "verify", "secure", "update", "bank", "pay", "account", "webscr",
}

// SuspiciousTLDs are top-level domains with a high phishing rate.
var SuspiciousTLDs = map[string]bool{
	"tk": true, "ml": true, "ga": true, "cf": true, "gq": true,
	"xyz": true, "top": true, "buzz": true, "icu": true, "fit": true,
	"rest": true, "work": true, "click": true, "country": true,
	"zip": true, "ru": true, "kim": true, "support": true, "ltd": true,
}

// BrandNames are frequently-spoofed brand tokens used by the
// similarity features and the typosquat detector.
var BrandNames = []string{
	"facebook", "linkedin", "paypal", "google", "amazon", "apple",
	"microsoft", "instagram", "netflix", "twitter", "whatsapp",
	"bank", "hsbc", "yahoo", "outlook",
}

// LookalikeChars maps homoglyph runes (Cyrillic, Greek, Latin
// Extended) to the ASCII characters they visually imitate.
var LookalikeChars = map[rune]rune{
	// Cyrillic
	'а': 'a', 'е': 'e', 'о': 'o', 'р': 'p', 'с': 'c', 'х': 'x',
	'у': 'y', 'ч': '4', 'ы': 'b', 'ь': 'b', 'і': 'i', 'ї': 'i',
	'ґ': 'g', 'ė': 'e', 'ń': 'n', 'ș': 's', 'ț': 't',
	// Greek
	'α': 'a', 'ο': 'o', 'ν': 'v', 'τ': 't', 'ρ': 'p',
	// Latin Extended
	'ɑ': 'a', 'ɢ': 'g', 'ᴅ': 'd', 'ɡ': 'g', 'ɪ': 'i',
	'ɴ': 'n', 'ᴘ': 'p', 'ᴠ': 'v', 'ᴡ': 'w', 'ɨ': 'i',
}

var ipv4Re = regexp.MustCompile(`(\d{1,3}\.){3}\d{1,3}`)

// Vector is one feature row, ordered to match the column list it was
// engineered against.
type Vector []float64

// Engineer computes one feature row per URL, with columns exactly
// matching featureCols. Engineered features absent from featureCols
// are dropped; featureCols entries we do not compute default to 0.
// The computation is pure: the same URL always yields the same row.
func Engineer(urls []string, featureCols []string) []Vector {
	rows := make([]Vector, len(urls))
	for i, u := range urls {
		computed := Compute(u)
		row := make(Vector, len(featureCols))
		for j, col := range featureCols {
			row[j] = computed[col] // missing keys read as 0
		}
		rows[i] = row
	}
	return rows
}

// Compute engineers the full named feature set for a single URL.
func Compute(u string) map[string]float64 {
	out := make(map[string]float64, 32)
	lower := strings.ToLower(u)

	urlLen := float64(len(u))
	digitCount := countFunc(u, unicode.IsDigit)

	out["url_len"] = urlLen
	out["count_dot"] = float64(strings.Count(u, "."))
	out["count_hyphen"] = float64(strings.Count(u, "-"))
	out["count_digit"] = digitCount
	out["count_at"] = float64(strings.Count(u, "@"))
	out["count_qmark"] = float64(strings.Count(u, "?"))
	out["count_eq"] = float64(strings.Count(u, "="))
	out["count_slash"] = float64(strings.Count(u, "/"))
	out["digit_ratio"] = safeRatio(digitCount, urlLen)
	out["has_ip"] = boolFeat(ipv4Re.MatchString(u))

	for _, kw := range SuspiciousKeywords {
		out["has_"+kw] = boolFeat(strings.Contains(lower, kw))
	}

	out["starts_https"] = boolFeat(strings.HasPrefix(u, "https"))
	out["ends_with_exe"] = boolFeat(strings.HasSuffix(u, ".exe"))
	out["ends_with_zip"] = boolFeat(strings.HasSuffix(u, ".zip"))

	host := urlinfo.Host(u)
	out["host_len"] = float64(len(host))

	hostDots := strings.Count(host, ".")
	subdomains := float64(hostDots+1) - 2
	if subdomains < 0 {
		subdomains = 0
	}
	out["subdomain_count"] = subdomains

	tld := urlinfo.TLD(host)
	sld := urlinfo.SLD(host)

	out["tld_suspicious"] = boolFeat(SuspiciousTLDs[strings.ToLower(tld)])
	out["has_punycode"] = boolFeat(strings.Contains(host, "xn--"))
	out["sld_len"] = float64(len(sld))
	out["sld_digit_ratio"] = safeRatio(countFunc(sld, unicode.IsDigit), float64(len(sld)))
	out["sld_entropy"] = ShannonEntropy(sld)

	out["max_brand_sim"] = MaxBrandSimilarity(BrandNames, host, sld)
	out["like_facebook"] = boolFeat(SimilarityRatio(sld, "facebook") >= 0.82)
	out["has_lookalike_chars"] = boolFeat(HasLookalikeRune(u))

	return out
}

// ShannonEntropy computes the base-2 Shannon entropy of a string over
// rune frequencies. Empty and single-symbol strings score 0.
func ShannonEntropy(s string) float64 {
	if s == "" {
		return 0.0
	}
	counts := make(map[rune]float64)
	total := 0.0
	for _, r := range s {
		counts[r]++
		total++
	}
	entropy := 0.0
	for _, n := range counts {
		p := n / total
		entropy -= p * math.Log2(p)
	}
	return entropy
}

// HasLookalikeRune reports whether any rune in the string is a known
// homoglyph.
func HasLookalikeRune(s string) bool {
	for _, r := range s {
		if _, ok := LookalikeChars[r]; ok {
			return true
		}
	}
	return false
}

func safeRatio(num, den float64) float64 {
	if den == 0 {
		return 0.0
	}
	return num / den
}

func boolFeat(b bool) float64 {
	if b {
		return 1.0
	}
	return 0.0
}

func countFunc(s string, pred func(rune) bool) float64 {
	n := 0.0
	for _, r := range s {
		if pred(r) {
			n++
		}
	}
	return n
}
