// Package services wires the application's service layer from configuration.
package services

import (
	"go.uber.org/zap"

	"github.com/brandguard/brandguard/internal/ai"
	"github.com/brandguard/brandguard/internal/config"
	"github.com/brandguard/brandguard/internal/export"
	"github.com/brandguard/brandguard/internal/repository"
	"github.com/brandguard/brandguard/internal/review"
	"github.com/brandguard/brandguard/internal/storage"
	"github.com/brandguard/brandguard/pkg/database"
)

// Container holds the constructed service layer.
type Container struct {
	ProjectRepo    *repository.ProjectRepository
	SubmissionRepo *repository.SubmissionRepository

	Analyzer   *ai.Analyzer
	MediaStore *storage.MediaStore
	Configs    *review.StaticConfigs

	Reviews *review.Service
	Exports *export.Service

	logger *zap.Logger
}

// NewContainer creates and wires all services.
func NewContainer(cfg *config.Config, db *database.DB, logger *zap.Logger) (*Container, error) {
	c := &Container{logger: logger}

	c.ProjectRepo = repository.NewProjectRepository(db.DB, logger)
	c.SubmissionRepo = repository.NewSubmissionRepository(db.DB, logger)

	c.Analyzer = ai.NewAnalyzer(
		cfg.OpenAI.APIKey,
		cfg.OpenAI.Model,
		cfg.OpenAI.Temperature,
		cfg.OpenAI.MaxTokens,
		cfg.OpenAI.Timeout,
		logger,
	)
	c.MediaStore = storage.NewMediaStore(
		cfg.Storage.MediaDir,
		cfg.Storage.ExportDir,
		cfg.Render.FFmpegPath,
		cfg.Render.CaptureTimeout,
		logger,
	)

	configs, err := review.NewStaticConfigs()
	if err != nil {
		return nil, err
	}
	c.Configs = configs

	c.Reviews = review.NewService(
		db,
		c.ProjectRepo,
		c.SubmissionRepo,
		c.Analyzer,
		c.MediaStore,
		c.Configs,
		logger,
	)
	c.Exports = export.NewService(
		cfg.Render.ProductName,
		c.MediaStore,
		cfg.Render.FetchTimeout,
		logger,
	)

	logger.Info("Service container initialized",
		zap.String("product", cfg.Render.ProductName),
		zap.String("media_dir", cfg.Storage.MediaDir))

	return c, nil
}
