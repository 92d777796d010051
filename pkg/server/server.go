// Package server exposes the prediction pipeline over HTTP.
package server

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/phishwatch/phishwatch/pkg/analyzer"
	"github.com/phishwatch/phishwatch/pkg/config"
	"github.com/phishwatch/phishwatch/pkg/model"
)

// Server holds the wired pipeline and the fiber app.
type Server struct {
	app       *fiber.App
	urls      *analyzer.URL
	texts     *analyzer.Text
	evaluator *analyzer.Evaluator
	cfg       config.ServerConfig
	status    StatusInfo
	log       zerolog.Logger
}

// StatusInfo describes the running service for GET /.
type StatusInfo struct {
	Service     string   `json:"service"`
	Version     string   `json:"version"`
	TextBackend string   `json:"text_backend"`
	ModelPath   string   `json:"model_path,omitempty"`
	ModelURL    string   `json:"model_url,omitempty"`
	Modules     []string `json:"modules"`
}

// New wires the handlers onto a fiber app.
func New(cfg config.ServerConfig, urls *analyzer.URL, texts *analyzer.Text, status StatusInfo, log zerolog.Logger) *Server {
	s := &Server{
		urls:      urls,
		texts:     texts,
		evaluator: analyzer.NewEvaluator(urls, texts),
		cfg:       cfg,
		status:    status,
		log:       log,
	}

	bodyLimit := cfg.BodyLimitKB * 1024
	if bodyLimit <= 0 {
		bodyLimit = 512 * 1024
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "phishwatch",
		DisableStartupMessage: true,
		BodyLimit:             bodyLimit,
		ErrorHandler:          s.errorHandler,
	})

	s.app.Get("/", s.handleStatus)
	s.app.Post("/predict", s.handlePredictText)
	s.app.Post("/predict-url", s.handlePredictURL)
	s.app.Post("/predict-batch", s.handlePredictBatch)
	s.app.Post("/evaluate", s.handleEvaluate)

	return s
}

// App exposes the fiber app, used by tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen starts serving on the configured address.
func (s *Server) Listen() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.log.Info().Str("addr", addr).Msg("HTTP server listening")
	return s.app.Listen(addr)
}

// Shutdown drains connections and stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// errorHandler converts any escaped error into the {error} shape.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	s.log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

// fail maps pipeline errors onto the error taxonomy: input errors are
// the client's fault, artifact and backend errors are ours.
func (s *Server) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, analyzer.ErrEmptyInput):
		return errorJSON(c, fiber.StatusBadRequest, "empty input")
	case errors.Is(err, analyzer.ErrBadSample):
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrBackendUnsupported):
		return errorJSON(c, fiber.StatusInternalServerError,
			"model backend not available in this build: "+err.Error())
	case errors.Is(err, model.ErrBundleMalformed), errors.Is(err, model.ErrBundleUnavailable):
		s.log.Error().Err(err).Msg("model bundle error")
		return errorJSON(c, fiber.StatusInternalServerError, err.Error())
	default:
		s.log.Error().Err(err).Msg("prediction failed")
		return errorJSON(c, fiber.StatusInternalServerError, err.Error())
	}
}

func errorJSON(c *fiber.Ctx, code int, msg string) error {
	return c.Status(code).JSON(fiber.Map{"error": msg})
}
