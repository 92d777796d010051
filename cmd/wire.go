package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/phishwatch/phishwatch/pkg/analyzer"
	"github.com/phishwatch/phishwatch/pkg/calibrate"
	"github.com/phishwatch/phishwatch/pkg/config"
	"github.com/phishwatch/phishwatch/pkg/lists"
	"github.com/phishwatch/phishwatch/pkg/logger"
	"github.com/phishwatch/phishwatch/pkg/model"
	"github.com/phishwatch/phishwatch/pkg/textmodel"
)

// pipeline is the fully wired prediction stack shared by the serve,
// check, calibrate and milter commands.
type pipeline struct {
	cfg        *config.Config
	log        zerolog.Logger
	urls       *analyzer.URL
	texts      *analyzer.Text
	loader     *model.Loader
	polarity   *calibrate.Polarity
	classifier textmodel.Classifier
}

// buildPipeline wires the analyzers from the loaded configuration.
func buildPipeline(cfg *config.Config) (*pipeline, error) {
	log := logger.New(cfg.Logging)

	src, err := buildListSource(cfg, log)
	if err != nil {
		return nil, err
	}

	loader := model.NewLoader(model.LoaderConfig{
		Path:     cfg.Model.Path,
		URL:      cfg.Model.URL,
		CacheDir: cfg.Model.CacheDir,
		Timeout:  cfg.Model.Timeout(),
	}, log)

	polarity, err := calibrate.NewPolarity(cfg.Model.Polarity, log)
	if err != nil {
		return nil, fmt.Errorf("configuring polarity: %v", err)
	}

	classifier, err := textmodel.New(textmodel.Config{
		URL:     cfg.TextModel.URL,
		Timeout: cfg.TextModel.Timeout,
	}, log)
	if err != nil {
		return nil, err
	}

	return &pipeline{
		cfg:        cfg,
		log:        log,
		urls:       analyzer.NewURL(src, loader, polarity, log),
		texts:      analyzer.NewText(classifier, log),
		loader:     loader,
		polarity:   polarity,
		classifier: classifier,
	}, nil
}

// buildListSource picks the Redis-cached source when enabled, warmed
// from the configured CSVs, and the plain file source otherwise.
func buildListSource(cfg *config.Config, log zerolog.Logger) (lists.Source, error) {
	fileSrc := lists.NewFileSource(cfg.Lists.URLFile, cfg.Lists.LegitURLFile,
		cfg.Lists.HostFile, cfg.Lists.URLColumn)
	if !cfg.Lists.Redis.Enabled {
		return fileSrc, nil
	}

	redisSrc, err := lists.NewRedisSource(&lists.RedisConfig{
		RedisURL:    cfg.Lists.Redis.RedisURL,
		KeyPrefix:   cfg.Lists.Redis.KeyPrefix,
		DatabaseNum: cfg.Lists.Redis.DatabaseNum,
		EntryTTL:    time.Duration(cfg.Lists.Redis.EntryTTLHrs) * time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting list cache: %v", err)
	}

	loaded := lists.NewLists()
	if err := lists.LoadURLCSV(cfg.Lists.URLFile, cfg.Lists.URLColumn, lists.Phish, loaded); err != nil {
		log.Warn().Err(err).Msg("phishing URL list unavailable")
	}
	if cfg.Lists.LegitURLFile != "" {
		if err := lists.LoadURLCSV(cfg.Lists.LegitURLFile, cfg.Lists.URLColumn, lists.Legit, loaded); err != nil {
			log.Warn().Err(err).Msg("legitimate URL list unavailable")
		}
	}
	if cfg.Lists.HostFile != "" {
		if err := lists.LoadHostCSV(cfg.Lists.HostFile, loaded); err != nil {
			log.Warn().Err(err).Msg("host list unavailable")
		}
	}
	if err := redisSrc.Warm(context.Background(), loaded); err != nil {
		return nil, fmt.Errorf("warming list cache: %v", err)
	}

	log.Info().
		Int("urls", len(loaded.URLs)).
		Int("hosts", len(loaded.Hosts)).
		Msg("list cache warmed")
	return redisSrc, nil
}
