package milter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/d--j/go-milter"
	"github.com/rs/zerolog"

	"github.com/phishwatch/phishwatch/pkg/analyzer"
	"github.com/phishwatch/phishwatch/pkg/config"
	"github.com/phishwatch/phishwatch/pkg/email"
)

// headerPrefix prefixes the scan-result mail headers.
const headerPrefix = "X-PhishWatch-"

// maxScannedURLs bounds the per-message URL cascade work.
const maxScannedURLs = 10

// Handler implements the milter.Milter interface. One handler serves
// one SMTP session; the message is accumulated across callbacks and
// scanned at end-of-message.
type Handler struct {
	milter.NoOpMilter

	config *config.Config
	urls   *analyzer.URL
	texts  *analyzer.Text
	parser *email.Parser
	log    zerolog.Logger

	msg         *email.Message
	contentType string
	bodySize    int
	startTime   time.Time
}

// NewHandler creates a handler for one session.
func NewHandler(cfg *config.Config, urls *analyzer.URL, texts *analyzer.Text, log zerolog.Logger) *Handler {
	return &Handler{
		config:    cfg,
		urls:      urls,
		texts:     texts,
		parser:    email.NewParser(),
		log:       log,
		msg:       &email.Message{Headers: make(map[string]string)},
		startTime: time.Now(),
	}
}

// MailFrom resets the message for a new envelope.
func (h *Handler) MailFrom(from string, esmtpArgs string, m *milter.Modifier) (*milter.Response, error) {
	h.msg = &email.Message{
		From:     from,
		Headers:  make(map[string]string),
		ParsedAt: time.Now(),
	}
	h.contentType = ""
	h.bodySize = 0
	return milter.RespContinue, nil
}

// RcptTo records each recipient.
func (h *Handler) RcptTo(rcptTo string, esmtpArgs string, m *milter.Modifier) (*milter.Response, error) {
	h.msg.To = append(h.msg.To, rcptTo)
	return milter.RespContinue, nil
}

// Header records each header as it arrives.
func (h *Handler) Header(name string, value string, m *milter.Modifier) (*milter.Response, error) {
	h.msg.Headers[name] = value

	switch strings.ToLower(name) {
	case "subject":
		h.msg.Subject = value
	case "from":
		if h.msg.From == "" {
			h.msg.From = value
		}
	case "content-type":
		h.contentType = value
	}
	return milter.RespContinue, nil
}

// BodyChunk accumulates body text up to the configured size limit;
// oversized messages pass through unscanned.
func (h *Handler) BodyChunk(chunk []byte, m *milter.Modifier) (*milter.Response, error) {
	limit := h.config.Milter.MaxMessageSizeMB * 1024 * 1024
	if limit > 0 && h.bodySize+len(chunk) > limit {
		return milter.RespAccept, nil
	}
	h.bodySize += len(chunk)
	h.msg.Body += string(chunk)
	return milter.RespContinue, nil
}

// EndOfMessage scans the completed message and decides the verdict.
func (h *Handler) EndOfMessage(m *milter.Modifier) (*milter.Response, error) {
	verdict := h.scan(context.Background())

	if h.config.Milter.AddHeaders {
		if err := h.addHeaders(m, verdict); err != nil {
			return milter.RespTempFail, fmt.Errorf("failed to add scan headers: %v", err)
		}
	}

	if verdict.phish && verdict.confidence >= h.config.Milter.RejectThreshold {
		resp, _ := milter.RejectWithCodeAndReason(550,
			fmt.Sprintf("5.7.1 Message rejected as phishing (%s, confidence %.2f)",
				verdict.method, verdict.confidence))
		return resp, nil
	}
	return milter.RespContinue, nil
}

// Abort resets the in-progress message.
func (h *Handler) Abort(m *milter.Modifier) error {
	h.msg = &email.Message{Headers: make(map[string]string)}
	h.contentType = ""
	h.bodySize = 0
	return nil
}

// verdict is the combined outcome of the text and URL scans.
type verdict struct {
	phish       bool
	confidence  float64
	method      string
	urgency     string
	scannedURLs int
}

// scan runs the text analyzer over the message and the URL cascade
// over every embedded URL, keeping the most damning result. Scan
// failures degrade to a pass-through verdict; mail flow never stalls
// on a broken model.
func (h *Handler) scan(ctx context.Context) verdict {
	v := verdict{urgency: "LOW"}

	h.decodeBody()
	text := h.msg.ScanText()
	if strings.TrimSpace(text) != "" {
		if res, err := h.texts.Analyze(ctx, text); err != nil {
			h.log.Warn().Err(err).Msg("text scan failed, passing message through")
		} else {
			v.urgency = res.Indicators.UrgencyLevel
			if res.IsPhish {
				v.phish = true
				v.confidence = res.Confidence
				v.method = "text"
			}
		}
	}

	urls := h.msg.URLs()
	if len(urls) > maxScannedURLs {
		urls = urls[:maxScannedURLs]
	}
	for _, u := range urls {
		res, err := h.urls.Analyze(ctx, u)
		if err != nil {
			h.log.Warn().Err(err).Str("url", u).Msg("URL scan failed")
			continue
		}
		v.scannedURLs++
		if res.Label == analyzer.LabelPhish && res.Score > v.confidence {
			v.phish = true
			v.confidence = res.Score
			v.method = res.DetectionMethod
		}
	}

	return v
}

// decodeBody replaces a MIME body with its extracted text parts so
// boundaries, encodings and attachments do not reach the scanners.
// Undecodable bodies are scanned raw.
func (h *Handler) decodeBody() {
	if h.contentType == "" {
		return
	}
	body, err := h.parser.ParseBody(h.contentType, h.msg.Body)
	if err != nil {
		h.log.Warn().Err(err).Msg("body decode failed, scanning raw body")
		return
	}
	h.msg.Body = body
}

// addHeaders writes the X-PhishWatch-* result headers.
func (h *Handler) addHeaders(m *milter.Modifier, v verdict) error {
	status := "Clean"
	if v.phish {
		status = "Phishing"
	}
	if err := m.AddHeader(headerPrefix+"Status", status); err != nil {
		return err
	}
	if err := m.AddHeader(headerPrefix+"Confidence", fmt.Sprintf("%.2f", v.confidence)); err != nil {
		return err
	}
	if v.method != "" {
		if err := m.AddHeader(headerPrefix+"Method", v.method); err != nil {
			return err
		}
	}
	if err := m.AddHeader(headerPrefix+"Urgency", v.urgency); err != nil {
		return err
	}

	scanInfo := fmt.Sprintf("PhishWatch; %d URLs; %.2fms",
		v.scannedURLs, float64(time.Since(h.startTime).Milliseconds()))
	return m.AddHeader(headerPrefix+"Info", scanInfo)
}
