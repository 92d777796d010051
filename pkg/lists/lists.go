// Package lists loads and matches reference lists of known phishing
// and known legitimate URLs plus labeled hosts. Lists are CSV files
// on disk, optionally cached in Redis for shared deployments.
package lists

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/phishwatch/phishwatch/pkg/urlinfo"
)

// Label classifies a listed host.
type Label string

const (
	Phish Label = "PHISH"
	Legit Label = "LEGIT"
)

// Lists holds the in-memory reference data. URLs maps normalized URLs
// to their label, covering both the known-phishing and the
// known-legitimate reference sets. Hosts maps normalized hostnames to
// their label.
type Lists struct {
	URLs  map[string]Label
	Hosts map[string]Label
}

// NewLists returns an empty list set.
func NewLists() *Lists {
	return &Lists{
		URLs:  make(map[string]Label),
		Hosts: make(map[string]Label),
	}
}

// MatchURL resolves the label of an exactly listed URL after
// normalization.
func (l *Lists) MatchURL(u string) (Label, bool) {
	label, ok := l.URLs[urlinfo.NormalizeURL(u)]
	return label, ok
}

// MatchHost finds a listed host that the given host equals or is a
// subdomain of. When both a phishing and a legitimate entry match,
// the phishing entry wins.
func (l *Lists) MatchHost(host string) (Label, string, bool) {
	host = urlinfo.NormalizeHost(host)
	if host == "" {
		return "", "", false
	}

	var (
		bestLabel Label
		bestHost  string
		found     bool
	)
	for known, label := range l.Hosts {
		if !urlinfo.HostMatches(host, known) {
			continue
		}
		if !found || label == Phish {
			bestLabel, bestHost, found = label, known, true
		}
		if label == Phish {
			break
		}
	}
	return bestLabel, bestHost, found
}

// AddURL inserts a labeled URL after normalization. When the same URL
// appears in both reference sets, the phishing entry wins.
func (l *Lists) AddURL(u string, label Label) {
	n := urlinfo.NormalizeURL(u)
	if n == "" {
		return
	}
	if existing, ok := l.URLs[n]; ok && existing == Phish {
		return
	}
	l.URLs[n] = label
}

// AddHost inserts a labeled host after normalization.
func (l *Lists) AddHost(host string, label Label) {
	if n := urlinfo.NormalizeHost(host); n != "" {
		l.Hosts[n] = label
	}
}

// LoadURLCSV reads a CSV of reference URLs into the list set under
// the given label. When the header row contains urlCol that column is
// used; otherwise the first column is taken and the first row is
// treated as data unless it looks like a header.
func LoadURLCSV(path, urlCol string, label Label, lists *Lists) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening URL list: %v", err)
	}
	defer f.Close()

	if err := readURLRows(f, urlCol, label, lists); err != nil {
		return fmt.Errorf("reading URL list %s: %v", path, err)
	}
	return nil
}

// LoadHostCSV reads a CSV of host,label rows into the list set.
// Unknown labels are skipped.
func LoadHostCSV(path string, lists *Lists) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening host list: %v", err)
	}
	defer f.Close()

	if err := readHostRows(f, lists); err != nil {
		return fmt.Errorf("reading host list %s: %v", path, err)
	}
	return nil
}

func readURLRows(r io.Reader, urlCol string, label Label, lists *Lists) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	first, err := cr.Read()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return err
	}

	col := 0
	headerConsumed := false
	for i, name := range first {
		if strings.EqualFold(strings.TrimSpace(name), urlCol) {
			col = i
			headerConsumed = true
			break
		}
	}
	if !headerConsumed {
		// No recognizable header. Treat the first row as data unless
		// its first cell is a bare column label.
		cell := strings.TrimSpace(first[0])
		if strings.EqualFold(cell, "url") || strings.EqualFold(cell, urlCol) {
			headerConsumed = true
		} else {
			addURLCell(lists, first, col, label)
		}
	}

	for {
		row, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		addURLCell(lists, row, col, label)
	}
}

// addURLCell inserts the URL cell only. Host entries come exclusively
// from the host,label reference file so a listed URL never condemns
// every other page on its host.
func addURLCell(lists *Lists, row []string, col int, label Label) {
	if col >= len(row) {
		return
	}
	u := strings.TrimSpace(row[col])
	if u == "" {
		return
	}
	lists.AddURL(u, label)
}

func readHostRows(r io.Reader, lists *Lists) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	for {
		row, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if len(row) < 2 {
			continue
		}
		host := strings.TrimSpace(row[0])
		if strings.EqualFold(host, "host") || strings.EqualFold(host, "domain") {
			continue
		}
		label, ok := ParseLabel(row[1])
		if !ok {
			continue
		}
		lists.AddHost(host, label)
	}
}

// ParseLabel normalizes the label spellings seen in list files.
func ParseLabel(s string) (Label, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PHISH", "PHISHING", "SPAM", "BAD", "1":
		return Phish, true
	case "LEGIT", "LEGITIMATE", "HAM", "GOOD", "0":
		return Legit, true
	}
	return "", false
}
