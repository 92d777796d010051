// Package email parses RFC 5322 messages into the pieces the
// phishing scanners need: subject, body text and embedded URLs.
package email

import (
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"regexp"
	"strings"
	"time"
)

// Message is a parsed email reduced to scan-relevant content.
type Message struct {
	From     string
	To       []string
	Subject  string
	Body     string
	Headers  map[string]string
	ParsedAt time.Time
}

var bodyURLRe = regexp.MustCompile(`(?i)https?://[^\s<>"')\]]+`)

// URLs extracts every URL-looking token from the subject and body.
func (m *Message) URLs() []string {
	seen := make(map[string]bool)
	var urls []string
	for _, match := range bodyURLRe.FindAllString(m.Subject+"\n"+m.Body, -1) {
		match = strings.TrimRight(match, ".,;")
		if !seen[match] {
			seen[match] = true
			urls = append(urls, match)
		}
	}
	return urls
}

// ScanText is the text handed to the text classifier: subject and
// body joined.
func (m *Message) ScanText() string {
	if m.Subject == "" {
		return m.Body
	}
	return m.Subject + "\n\n" + m.Body
}

// Parser parses raw messages.
type Parser struct{}

// NewParser creates a message parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse reads one message.
func (p *Parser) Parse(reader io.Reader) (*Message, error) {
	msg, err := mail.ReadMessage(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to parse email: %v", err)
	}

	m := &Message{
		Headers:  make(map[string]string),
		ParsedAt: time.Now(),
	}

	m.From = msg.Header.Get("From")
	m.Subject = msg.Header.Get("Subject")
	if to := msg.Header.Get("To"); to != "" {
		m.To = strings.Split(to, ",")
		for i := range m.To {
			m.To[i] = strings.TrimSpace(m.To[i])
		}
	}
	for key, values := range msg.Header {
		m.Headers[key] = strings.Join(values, "; ")
	}

	raw, err := io.ReadAll(msg.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %v", err)
	}
	body, err := p.ParseBody(msg.Header.Get("Content-Type"), string(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse body: %v", err)
	}
	m.Body = body
	return m, nil
}

// ParseBody decodes a message body according to its Content-Type.
// Multipart content contributes each text/* part; attachments are
// skipped. Missing or unparseable content types yield the raw body.
func (p *Parser) ParseBody(contentType, raw string) (string, error) {
	if contentType == "" {
		return raw, nil
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return raw, nil
	}
	if !strings.HasPrefix(mediaType, "multipart/") {
		return raw, nil
	}

	mr := multipart.NewReader(strings.NewReader(raw), params["boundary"])
	var parts []string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		partType, _, _ := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if partType == "" || strings.HasPrefix(partType, "text/") {
			data, err := io.ReadAll(part)
			if err != nil {
				return "", err
			}
			parts = append(parts, string(data))
		}
	}
	return strings.Join(parts, "\n"), nil
}
