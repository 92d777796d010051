package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/phishwatch/phishwatch/pkg/analyzer"
	"github.com/phishwatch/phishwatch/pkg/calibrate"
	"github.com/phishwatch/phishwatch/pkg/config"
	"github.com/phishwatch/phishwatch/pkg/features"
	"github.com/phishwatch/phishwatch/pkg/lists"
	"github.com/phishwatch/phishwatch/pkg/model"
	"github.com/phishwatch/phishwatch/pkg/textmodel"
)

type fixedPredictor struct{ proba float64 }

func (p *fixedPredictor) PredictProba(features.Vector) (float64, error) {
	return p.proba, nil
}

type fixedBundles struct{ bundle *model.Bundle }

func (f *fixedBundles) Bundle(context.Context) (*model.Bundle, error) {
	return f.bundle, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	l := lists.NewLists()
	l.AddURL("http://evil.test/login", lists.Phish)
	l.AddURL("https://www.google.com", lists.Legit)
	l.AddHost("example.com", lists.Legit)

	bundle := model.NewStaticBundle("linear",
		[]string{"url_len", "count_digit", "count_hyphen"}, &fixedPredictor{proba: 0.2})
	phishPositive := true
	bundle.PhishIsPositive = &phishPositive

	polarity, err := calibrate.NewPolarity("", zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	urls := analyzer.NewURL(&lists.StaticSource{Lists: l}, &fixedBundles{bundle: bundle}, polarity, zerolog.Nop())
	texts := analyzer.NewText(&textmodel.RuleBased{}, zerolog.Nop())

	status := StatusInfo{
		Service:     "phishwatch",
		Version:     "test",
		TextBackend: "rule-based",
		Modules:     []string{"url", "text"},
	}
	return New(config.DefaultConfig().Server, urls, texts, status, zerolog.Nop())
}

func doJSON(t *testing.T, s *Server, method, path string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}

	var decoded map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func TestStatusEndpoint(t *testing.T) {
	s := newTestServer(t)
	resp, body := doJSON(t, s, http.MethodGet, "/", nil)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["service"] != "phishwatch" {
		t.Errorf("service = %v", body["service"])
	}
}

func TestPredictURLListMatch(t *testing.T) {
	s := newTestServer(t)
	resp, body := doJSON(t, s, http.MethodPost, "/predict-url",
		map[string]string{"url": "http://evil.test/login"})

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %v", resp.StatusCode, body)
	}
	if body["label"] != "PHISH" || body["detection_method"] != "csv_match" {
		t.Errorf("body = %v", body)
	}
}

func TestPredictURLLegitListMatch(t *testing.T) {
	s := newTestServer(t)
	resp, body := doJSON(t, s, http.MethodPost, "/predict-url",
		map[string]string{"url": "https://www.google.com"})

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %v", resp.StatusCode, body)
	}
	if body["label"] != "LEGIT" || body["detection_method"] != "csv_match" {
		t.Errorf("body = %v", body)
	}
	score, _ := body["score"].(float64)
	if score < 0.70 || score > 0.80 {
		t.Errorf("score = %v outside the legit list band", body["score"])
	}
}

func TestPredictURLEmptyIsClientError(t *testing.T) {
	s := newTestServer(t)
	resp, body := doJSON(t, s, http.MethodPost, "/predict-url", map[string]string{"url": "   "})

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["error"] == nil {
		t.Error("error message missing")
	}
}

func TestPredictURLModelFallback(t *testing.T) {
	s := newTestServer(t)
	resp, body := doJSON(t, s, http.MethodPost, "/predict-url",
		map[string]string{"url": "http://unremarkable.org/page"})

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %v", resp.StatusCode, body)
	}
	if body["detection_method"] != "model" || body["label"] != "LEGIT" {
		t.Errorf("body = %v", body)
	}
	if body["backend"] != "linear" {
		t.Errorf("backend = %v", body["backend"])
	}
}

func TestPredictText(t *testing.T) {
	s := newTestServer(t)
	resp, body := doJSON(t, s, http.MethodPost, "/predict",
		map[string]string{"inputs": "URGENT!! Verify your suspended account at http://secure-pay4.tk now"})

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %v", resp.StatusCode, body)
	}
	if body["label"] != "PHISH" {
		t.Errorf("label = %v", body["label"])
	}
	conf, _ := body["confidence"].(float64)
	if conf < 0.55 || conf > 0.85 {
		t.Errorf("confidence = %v", body["confidence"])
	}
}

func TestPredictTextBlankIsClientError(t *testing.T) {
	s := newTestServer(t)
	resp, _ := doJSON(t, s, http.MethodPost, "/predict", map[string]string{"inputs": ""})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestPredictBatchURLs(t *testing.T) {
	s := newTestServer(t)

	var buf bytes.Buffer
	json.NewEncoder(&buf).Encode(map[string]interface{}{
		"urls": []string{"http://evil.test/login", "", "http://example.com"},
	})
	req := httptest.NewRequest(http.MethodPost, "/predict-batch", &buf)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var items []map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		t.Fatal(err)
	}
	if len(items) != 3 {
		t.Fatalf("got %d items", len(items))
	}
	if items[0]["error"] != nil {
		t.Errorf("item 0 failed: %v", items[0]["error"])
	}
	if items[1]["error"] == nil {
		t.Error("blank URL must fail in place")
	}
	if items[2]["error"] != nil {
		t.Errorf("item 2 failed: %v", items[2]["error"])
	}
}

func TestPredictBatchEmpty(t *testing.T) {
	s := newTestServer(t)
	resp, _ := doJSON(t, s, http.MethodPost, "/predict-batch", map[string]interface{}{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestEvaluate(t *testing.T) {
	s := newTestServer(t)
	resp, body := doJSON(t, s, http.MethodPost, "/evaluate", map[string]interface{}{
		"samples": []map[string]string{
			{"url": "http://evil.test/login", "label": "PHISH"},
			{"url": "http://example.com", "label": "LEGIT"},
		},
	})

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %v", resp.StatusCode, body)
	}
	if body["accuracy"] != 1.0 {
		t.Errorf("accuracy = %v", body["accuracy"])
	}
	if body["total"] != 2.0 {
		t.Errorf("total = %v", body["total"])
	}
}

func TestEvaluateBadSample(t *testing.T) {
	s := newTestServer(t)
	resp, _ := doJSON(t, s, http.MethodPost, "/evaluate", map[string]interface{}{
		"samples": []map[string]string{{"url": "http://x.test", "label": "MAYBE"}},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestMalformedBodyIsClientError(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/predict-url", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d", resp.StatusCode)
	}
}
