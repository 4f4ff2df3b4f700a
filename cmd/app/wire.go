//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/mealsnap/mealsnap/internal/bootstrap"
	"github.com/mealsnap/mealsnap/internal/domain/analysis"
	"github.com/mealsnap/mealsnap/internal/domain/history"
	"github.com/mealsnap/mealsnap/internal/infra/config"
	httpiface "github.com/mealsnap/mealsnap/internal/interface/http"
	"github.com/mealsnap/mealsnap/pkg/logger"
)

func initializeApp() (*bootstrap.App, error) {
	wire.Build(
		config.Load,
		logger.New,
		provideAnalysisConfig,
		provideGenAIClient,
		provideHistoryStore,
		provideCaptureArchive,
		provideCaptureFactory,
		provideSessionMachine,
		analysis.NewService,
		history.NewService,
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil
}
