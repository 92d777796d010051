package lists

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestLoadURLCSVWithHeader(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "urls.csv",
		"id,url,source\n1,http://evil.test/login,feed\n2,https://bad.example/,feed\n")

	lists := NewLists()
	if err := LoadURLCSV(path, "url", Phish, lists); err != nil {
		t.Fatalf("LoadURLCSV: %v", err)
	}
	if label, ok := lists.MatchURL("http://evil.test/login"); !ok || label != Phish {
		t.Error("expected exact URL match")
	}
	// Trailing slash normalization on both sides
	if _, ok := lists.MatchURL("https://bad.example"); !ok {
		t.Error("expected normalized match for trailing slash variant")
	}
	if _, ok := lists.MatchURL("http://good.example"); ok {
		t.Error("unexpected match")
	}
}

func TestLoadURLCSVSingleColumn(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "urls.csv",
		"http://evil.test/a\nhttp://evil.test/b\n")

	lists := NewLists()
	if err := LoadURLCSV(path, "url", Phish, lists); err != nil {
		t.Fatalf("LoadURLCSV: %v", err)
	}
	if _, ok := lists.MatchURL("http://evil.test/a"); !ok {
		t.Error("first data row must not be swallowed as a header")
	}
	if len(lists.URLs) != 2 {
		t.Errorf("loaded %d URLs, expected 2", len(lists.URLs))
	}
}

func TestLoadURLCSVLegitLabel(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "legit.csv", "url\nhttps://www.google.com\n")

	lists := NewLists()
	if err := LoadURLCSV(path, "url", Legit, lists); err != nil {
		t.Fatalf("LoadURLCSV: %v", err)
	}
	if label, ok := lists.MatchURL("https://www.google.com"); !ok || label != Legit {
		t.Errorf("MatchURL = %v,%v, expected a LEGIT entry", label, ok)
	}
}

func TestLoadURLCSVDoesNotDeriveHosts(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "urls.csv",
		"url\nhttp://shared-host.test/the-one-bad-page\n")

	lists := NewLists()
	if err := LoadURLCSV(path, "url", Phish, lists); err != nil {
		t.Fatalf("LoadURLCSV: %v", err)
	}
	if len(lists.Hosts) != 0 {
		t.Errorf("URL list produced %d host entries, expected none", len(lists.Hosts))
	}
	if _, _, ok := lists.MatchHost("shared-host.test"); ok {
		t.Error("a listed URL must not condemn every other page on its host")
	}
}

func TestAddURLPhishingWins(t *testing.T) {
	lists := NewLists()
	lists.AddURL("http://dual.test/page", Phish)
	lists.AddURL("http://dual.test/page", Legit)

	if label, ok := lists.MatchURL("http://dual.test/page"); !ok || label != Phish {
		t.Errorf("MatchURL = %v,%v, expected the phishing entry to win", label, ok)
	}
}

func TestLoadHostCSV(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "hosts.csv",
		"host,label\nevil.test,PHISH\nexample.com,legit\nweird.test,banana\n")

	lists := NewLists()
	if err := LoadHostCSV(path, lists); err != nil {
		t.Fatalf("LoadHostCSV: %v", err)
	}

	if label, _, ok := lists.MatchHost("evil.test"); !ok || label != Phish {
		t.Error("expected PHISH for evil.test")
	}
	if label, _, ok := lists.MatchHost("www.example.com"); !ok || label != Legit {
		t.Error("expected LEGIT for subdomain of example.com")
	}
	if _, _, ok := lists.MatchHost("weird.test"); ok {
		t.Error("unknown label must be skipped")
	}
}

func TestMatchHostPhishingWins(t *testing.T) {
	lists := NewLists()
	lists.AddHost("example.com", Legit)
	lists.AddHost("login.example.com", Phish)

	label, matched, ok := lists.MatchHost("login.example.com")
	if !ok || label != Phish || matched != "login.example.com" {
		t.Errorf("got %v %q %v, expected phishing entry to win", label, matched, ok)
	}
}

func TestParseLabel(t *testing.T) {
	testCases := []struct {
		in    string
		label Label
		ok    bool
	}{
		{"PHISH", Phish, true},
		{"phishing", Phish, true},
		{"spam", Phish, true},
		{"1", Phish, true},
		{"legit", Legit, true},
		{"ham", Legit, true},
		{"0", Legit, true},
		{"", "", false},
		{"maybe", "", false},
	}
	for _, tc := range testCases {
		label, ok := ParseLabel(tc.in)
		if label != tc.label || ok != tc.ok {
			t.Errorf("ParseLabel(%q) = %v,%v, expected %v,%v", tc.in, label, ok, tc.label, tc.ok)
		}
	}
}

func TestFileSourceBothURLLists(t *testing.T) {
	dir := t.TempDir()
	phishPath := writeFile(t, dir, "phish.csv", "url\nhttp://evil.test/login\n")
	legitPath := writeFile(t, dir, "legit.csv", "url\nhttps://www.google.com\n")

	src := NewFileSource(phishPath, legitPath, "", "url")
	ctx := context.Background()

	if label, ok, err := src.MatchURL(ctx, "http://evil.test/login"); err != nil || !ok || label != Phish {
		t.Errorf("phish match = %v,%v,%v", label, ok, err)
	}
	if label, ok, err := src.MatchURL(ctx, "https://www.google.com"); err != nil || !ok || label != Legit {
		t.Errorf("legit match = %v,%v,%v", label, ok, err)
	}
}

func TestFileSourceReload(t *testing.T) {
	dir := t.TempDir()
	urlPath := writeFile(t, dir, "urls.csv", "url\nhttp://evil.test/one\n")

	src := NewFileSource(urlPath, "", "", "url")
	ctx := context.Background()

	if _, ok, err := src.MatchURL(ctx, "http://evil.test/one"); err != nil || !ok {
		t.Fatalf("initial match: %v %v", ok, err)
	}

	// Rewrite the file and force a distinct mtime.
	writeFile(t, dir, "urls.csv", "url\nhttp://evil.test/two\n")
	future := modTime(urlPath).Add(2 * time.Second)
	if err := os.Chtimes(urlPath, future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	if _, ok, err := src.MatchURL(ctx, "http://evil.test/two"); err != nil || !ok {
		t.Errorf("reloaded match: %v %v", ok, err)
	}
	if _, ok, _ := src.MatchURL(ctx, "http://evil.test/one"); ok {
		t.Error("stale entry survived reload")
	}
}

func TestStaticSource(t *testing.T) {
	l := NewLists()
	l.AddURL("http://evil.test/x", Phish)
	l.AddHost("evil.test", Phish)
	src := &StaticSource{Lists: l}
	ctx := context.Background()

	if label, ok, _ := src.MatchURL(ctx, "http://evil.test/x"); !ok || label != Phish {
		t.Error("static URL match failed")
	}
	if label, _, ok, _ := src.MatchHost(ctx, "a.evil.test"); !ok || label != Phish {
		t.Error("static host match failed")
	}
}
