// Package milter integrates the phishing pipeline with Postfix and
// Sendmail so mail is scanned in-line as the MTA receives it.
package milter

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/d--j/go-milter"
	"github.com/rs/zerolog"

	"github.com/phishwatch/phishwatch/pkg/analyzer"
	"github.com/phishwatch/phishwatch/pkg/config"
)

// Server wraps the milter protocol server around the analyzers.
type Server struct {
	config    *config.Config
	milterSrv *milter.Server
	log       zerolog.Logger
}

// NewServer builds a milter server from the loaded configuration.
func NewServer(cfg *config.Config, urls *analyzer.URL, texts *analyzer.Text, log zerolog.Logger) (*Server, error) {
	if !cfg.Milter.Enabled {
		return nil, fmt.Errorf("milter is not enabled in configuration")
	}

	var opts []milter.Option

	var actions milter.OptAction
	if cfg.Milter.AddHeaders {
		actions |= milter.OptAddHeader
	}
	if actions != 0 {
		opts = append(opts, milter.WithAction(actions))
	}

	if cfg.Milter.ReadTimeoutSecs > 0 {
		opts = append(opts, milter.WithReadTimeout(
			time.Duration(cfg.Milter.ReadTimeoutSecs)*time.Second))
	}
	if cfg.Milter.WriteTimeoutSecs > 0 {
		opts = append(opts, milter.WithWriteTimeout(
			time.Duration(cfg.Milter.WriteTimeoutSecs)*time.Second))
	}

	opts = append(opts, milter.WithMilter(func() milter.Milter {
		return NewHandler(cfg, urls, texts, log)
	}))

	return &Server{
		config:    cfg,
		milterSrv: milter.NewServer(opts...),
		log:       log,
	}, nil
}

// Serve accepts milter connections until the context is cancelled.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	errChan := make(chan error, 1)
	go func() {
		errChan <- s.milterSrv.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		if err := s.milterSrv.Close(); err != nil {
			return fmt.Errorf("failed to shutdown milter server: %v", err)
		}
		return ctx.Err()

	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("milter server error: %v", err)
		}
		return nil
	}
}

// Close closes the milter server.
func (s *Server) Close() error {
	return s.milterSrv.Close()
}
