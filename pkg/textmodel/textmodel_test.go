package textmodel

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func TestNormalizeLabel(t *testing.T) {
	testCases := []struct {
		raw   string
		phish bool
		known bool
	}{
		{"PHISH", true, true},
		{"phishing", true, true},
		{"LABEL_1", true, true},
		{"spam", true, true},
		{"LEGIT", false, true},
		{"LABEL_0", false, true},
		{"ham", false, true},
		{"benign", false, true},
		{"whatever", false, false},
		{"", false, false},
	}

	for _, tc := range testCases {
		phish, known := NormalizeLabel(tc.raw)
		if phish != tc.phish || known != tc.known {
			t.Errorf("NormalizeLabel(%q) = %v,%v, expected %v,%v",
				tc.raw, phish, known, tc.phish, tc.known)
		}
	}
}

func TestNewSelectsBackendOnce(t *testing.T) {
	c, err := New(Config{}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if c.Name() != "rule-based" {
		t.Errorf("backend = %s, expected rule-based fallback", c.Name())
	}

	c, err = New(Config{URL: "http://localhost:9999"}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if c.Name() != "remote" {
		t.Errorf("backend = %s, expected remote", c.Name())
	}
}

func TestRuleBasedPredict(t *testing.T) {
	c := &RuleBased{}
	preds, err := c.Predict(context.Background(), []string{
		"URGENT!! Your account is suspended, verify your payment at http://secure-login9.tk now",
		"Lunch on Thursday?",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(preds) != 2 {
		t.Fatalf("got %d predictions", len(preds))
	}

	if preds[0].RawLabel != "PHISH" {
		t.Errorf("phishy text labeled %s (probs %v)", preds[0].RawLabel, preds[0].Probs)
	}
	if preds[1].RawLabel != "LEGIT" {
		t.Errorf("benign text labeled %s (probs %v)", preds[1].RawLabel, preds[1].Probs)
	}

	sum := preds[0].Probs["PHISH"] + preds[0].Probs["LEGIT"]
	if sum < 0.999 || sum > 1.001 {
		t.Errorf("probabilities sum to %f", sum)
	}
}

func TestRemotePredict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[[{"label":"LABEL_1","score":0.92},{"label":"LABEL_0","score":0.08}]]`))
	}))
	defer srv.Close()

	c, err := NewRemote(Config{URL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}

	preds, err := c.Predict(context.Background(), []string{"some text"})
	if err != nil {
		t.Fatal(err)
	}
	if preds[0].RawLabel != "LABEL_1" || preds[0].Score != 0.92 {
		t.Errorf("prediction = %+v", preds[0])
	}
}

func TestRemotePredictErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, _ := NewRemote(Config{URL: srv.URL})
	_, err := c.Predict(context.Background(), []string{"text"})
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("error = %v, expected ErrUnavailable", err)
	}
}

func TestRemotePredictShapeMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c, _ := NewRemote(Config{URL: srv.URL})
	if _, err := c.Predict(context.Background(), []string{"text"}); err == nil {
		t.Error("expected shape mismatch error")
	}
}

func TestNewRemoteInvalidTimeout(t *testing.T) {
	if _, err := NewRemote(Config{URL: "http://x", Timeout: "soon"}); err == nil {
		t.Error("expected error for invalid timeout")
	}
}
