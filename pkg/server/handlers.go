package server

import (
	"github.com/gofiber/fiber/v2"

	"github.com/phishwatch/phishwatch/pkg/analyzer"
)

type predictTextRequest struct {
	Inputs string `json:"inputs"`
	// Text is accepted as an alias for inputs.
	Text string `json:"text"`
}

type predictURLRequest struct {
	URL string `json:"url"`
}

type predictBatchRequest struct {
	URLs   []string `json:"urls,omitempty"`
	Inputs []string `json:"inputs,omitempty"`
}

type evaluateRequest struct {
	Samples []analyzer.Sample `json:"samples"`
}

// batchItem is one entry of a batch response; exactly one of Result
// or Error is set.
type batchItem struct {
	Result interface{} `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.status)
}

func (s *Server) handlePredictText(c *fiber.Ctx) error {
	var req predictTextRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid request body")
	}

	input := req.Inputs
	if input == "" {
		input = req.Text
	}

	res, err := s.texts.Analyze(c.Context(), input)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(res)
}

func (s *Server) handlePredictURL(c *fiber.Ctx) error {
	var req predictURLRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid request body")
	}

	res, err := s.urls.Analyze(c.Context(), req.URL)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(res)
}

// handlePredictBatch classifies a list of URLs or a list of texts.
// Per-item failures are reported in place so one bad entry does not
// void the rest.
func (s *Server) handlePredictBatch(c *fiber.Ctx) error {
	var req predictBatchRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid request body")
	}

	switch {
	case len(req.URLs) > 0:
		results, errs := s.urls.AnalyzeBatch(c.Context(), req.URLs)
		items := make([]batchItem, len(results))
		for i := range results {
			if errs[i] != nil {
				items[i] = batchItem{Error: errs[i].Error()}
			} else {
				items[i] = batchItem{Result: results[i]}
			}
		}
		return c.JSON(items)

	case len(req.Inputs) > 0:
		results, err := s.texts.AnalyzeBatch(c.Context(), req.Inputs)
		if err != nil {
			return s.fail(c, err)
		}
		items := make([]batchItem, len(results))
		for i := range results {
			items[i] = batchItem{Result: results[i]}
		}
		return c.JSON(items)

	default:
		return errorJSON(c, fiber.StatusBadRequest, "empty input")
	}
}

func (s *Server) handleEvaluate(c *fiber.Ctx) error {
	var req evaluateRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid request body")
	}

	eval, err := s.evaluator.Evaluate(c.Context(), req.Samples)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(eval)
}
