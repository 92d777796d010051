// Package textindicators evaluates rule-based phishing indicators
// over free-form message text and adjusts classifier confidence with
// the result.
package textindicators

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Urgency levels derived from the weighted indicator score.
const (
	UrgencyCritical = "CRITICAL"
	UrgencyHigh     = "HIGH"
	UrgencyMedium   = "MEDIUM"
	UrgencyLow      = "LOW"
)

// Confidence bounds for indicator-adjusted text predictions.
const (
	ConfidenceMin = 0.55
	ConfidenceMax = 0.85
)

var (
	urgentRe = regexp.MustCompile(`(?i)\b(urgent|immediately|immediate|act now|right now|asap|verify now|` +
		`confirm now|update now|click now|respond now|expire soon|expiring|` +
		`time sensitive|limited time|hurry|quick|fast|today only)\b`)
	threatRe = regexp.MustCompile(`(?i)\b(suspend|suspended|lock|locked|block|blocked|disable|disabled|` +
		`restrict|restricted|terminate|terminated|cancel|cancelled|close|closed|` +
		`freeze|frozen|ban|banned|deactivate|deactivated|remove|removed)\b`)
	actionRe = regexp.MustCompile(`(?i)\b(click here|click now|click below|click this|verify|confirm|update|` +
		`download|install|open attachment|validate|authenticate|reset password|` +
		`change password|provide|submit|enter|fill out|complete)\b`)
	financialRe = regexp.MustCompile(`(?i)\b(payment|pay|money|credit card|bank account|billing|invoice|refund|` +
		`tax|irs|paypal|transaction|transfer|wire|deposit|account number|` +
		`social security|ssn|card number|cvv|pin)\b`)
	authorityRe = regexp.MustCompile(`(?i)\b(paypal|amazon|microsoft|apple|google|facebook|instagram|netflix|` +
		`ebay|irs|fbi|cia|government|police|bank of america|chase|wells fargo|` +
		`citibank|security team|support team|admin|administrator)\b`)
	urlRe              = regexp.MustCompile(`https?://|www\.`)
	suspiciousDomainRe = regexp.MustCompile(`(?i)\b(bit\.ly|tinyurl|goo\.gl|short|link|redirect|verify-|secure-|account-|` +
		`update-|login-|signin-)\w+\.(com|net|org|info|xyz|tk|ml|ga|cf|gq)`)
	greetingRe = regexp.MustCompile(`(?i)^(dear (customer|user|member|client|sir|madam)|hello|hi there|greetings)\b`)
	punctRe    = regexp.MustCompile(`[!?]{2,}`)
	capsRe     = regexp.MustCompile(`\b[A-Z]{3,}\b`)
	currencyRe = regexp.MustCompile(`[$£€¥₹]`)

	multiSpaceRe   = regexp.MustCompile(`\s{2,}`)
	missingSpaceRe = regexp.MustCompile(`[.,!?][a-zA-Z]`)
	sentenceRe     = regexp.MustCompile(`[.!?]+`)
)

// Indicators is the full rule-based analysis of one text.
type Indicators struct {
	UrgentWords           bool `json:"urgent_words"`
	ThreatWords           bool `json:"threat_words"`
	ActionWords           bool `json:"action_words"`
	FinancialWords        bool `json:"financial_words"`
	AuthorityImpersonation bool `json:"authority_impersonation"`
	SuspiciousURLs        bool `json:"suspicious_urls"`
	SuspiciousDomain      bool `json:"suspicious_domain"`
	GenericGreeting       bool `json:"generic_greeting"`
	PoorGrammar           bool `json:"poor_grammar"`
	ExcessivePunctuation  bool `json:"excessive_punctuation"`
	AllCaps               bool `json:"all_caps"`
	CurrencySymbols       bool `json:"currency_symbols"`

	UrgencyScore        int     `json:"urgency_score"`
	UrgencyLevel        string  `json:"urgency_level"`
	IndicatorCount      int     `json:"indicator_count"`
	IndicatorPercentage float64 `json:"indicator_percentage"`
}

// Analyze evaluates every indicator over the text.
func Analyze(text string) Indicators {
	ind := Indicators{
		UrgentWords:           urgentRe.MatchString(text),
		ThreatWords:           threatRe.MatchString(text),
		ActionWords:           actionRe.MatchString(text),
		FinancialWords:        financialRe.MatchString(text),
		AuthorityImpersonation: authorityRe.MatchString(text),
		SuspiciousURLs:        urlRe.MatchString(text),
		SuspiciousDomain:      suspiciousDomainRe.MatchString(text),
		GenericGreeting:       greetingRe.MatchString(text),
		PoorGrammar:           poorGrammar(text),
		ExcessivePunctuation:  punctRe.MatchString(text),
		AllCaps:               len(capsRe.FindAllString(text, -1)) > 2,
		CurrencySymbols:       currencyRe.MatchString(text),
	}

	flags := []bool{
		ind.UrgentWords, ind.ThreatWords, ind.ActionWords, ind.FinancialWords,
		ind.AuthorityImpersonation, ind.SuspiciousURLs, ind.SuspiciousDomain,
		ind.GenericGreeting, ind.PoorGrammar, ind.ExcessivePunctuation,
		ind.AllCaps, ind.CurrencySymbols,
	}
	for _, f := range flags {
		if f {
			ind.IndicatorCount++
		}
	}
	ind.IndicatorPercentage = float64(ind.IndicatorCount) / float64(len(flags)) * 100

	// Urgency and threat words weigh double.
	ind.UrgencyScore = weight(ind.UrgentWords)*2 + weight(ind.ThreatWords)*2 +
		weight(ind.ActionWords) + weight(ind.ExcessivePunctuation) + weight(ind.AllCaps)

	switch {
	case ind.UrgencyScore >= 4:
		ind.UrgencyLevel = UrgencyCritical
	case ind.UrgencyScore >= 2:
		ind.UrgencyLevel = UrgencyHigh
	case ind.UrgencyScore >= 1:
		ind.UrgencyLevel = UrgencyMedium
	default:
		ind.UrgencyLevel = UrgencyLow
	}

	return ind
}

// AdjustConfidence rescales the classifier's confidence by indicator
// density. A phishing prediction gains confidence as indicators pile
// up; a legitimate prediction loses it. The result stays within
// [ConfidenceMin, ConfidenceMax].
func AdjustConfidence(ind Indicators, predictedPhish bool) float64 {
	pct := ind.IndicatorPercentage
	var adjusted float64
	if predictedPhish {
		switch {
		case pct >= 40:
			adjusted = 0.75 + pct/100*0.10
		case pct >= 25:
			adjusted = 0.65 + pct/100*0.10
		default:
			adjusted = 0.55 + pct/100*0.10
		}
	} else {
		switch {
		case pct >= 40:
			adjusted = 0.65 - pct/100*0.10
		case pct >= 25:
			adjusted = 0.70 - pct/100*0.05
		default:
			adjusted = 0.75 + (100-pct)/100*0.10
		}
	}

	if adjusted < ConfidenceMin {
		return ConfidenceMin
	}
	if adjusted > ConfidenceMax {
		return ConfidenceMax
	}
	return adjusted
}

// poorGrammar flags text with at least two of: doubled spaces,
// missing space after punctuation, a lowercase sentence opener.
func poorGrammar(text string) bool {
	issues := 0
	if multiSpaceRe.MatchString(text) {
		issues++
	}
	if missingSpaceRe.MatchString(text) {
		issues++
	}
	for _, sent := range sentenceRe.Split(text, -1) {
		sent = strings.TrimSpace(sent)
		if len(sent) > 5 {
			first, _ := utf8.DecodeRuneInString(sent)
			if !unicode.IsUpper(first) {
				issues++
				break
			}
		}
	}
	return issues >= 2
}

func weight(b bool) int {
	if b {
		return 1
	}
	return 0
}
