package main

import (
	"github.com/JonnyWalker81/moodtrack/internal/config"
	"github.com/JonnyWalker81/moodtrack/internal/logger"
	"github.com/JonnyWalker81/moodtrack/internal/repository"
	"github.com/JonnyWalker81/moodtrack/internal/service"
)

// newLogger builds the process logger from config and installs it as default
func newLogger(cfg *config.Config) logger.Logger {
	log := logger.NewSlogLogger(logger.Config{
		Level:     logger.ParseLevel(cfg.Log.Level),
		Format:    cfg.Log.Format,
		AddSource: !cfg.IsProduction(),
	})
	logger.SetDefault(log)
	return log
}

// newPipeline wires the store, analyzers and audit log into a tracking service
func newPipeline(cfg *config.Config, audit repository.AssessmentRepository, opts ...service.Option) service.TrackingService {
	store := repository.NewPointStore(
		repository.WithCapacity(cfg.Tracking.MaxPointsPerSubject),
		repository.WithSummaryTTL(cfg.Tracking.CacheTTL),
	)

	opts = append(opts,
		service.WithDefaultWindowDays(cfg.Tracking.DefaultWindowDays),
		service.WithPatternHistoryLimit(cfg.Tracking.PatternHistoryLimit),
	)

	return service.NewTrackingService(
		store,
		service.NewEvolutionAnalyzer(store, opts...),
		service.NewPatternDetector(opts...),
		service.NewCrisisEngine(audit, opts...),
		opts...,
	)
}
