//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/yanqian/careops/internal/bootstrap"
	"github.com/yanqian/careops/internal/domain/auth"
	"github.com/yanqian/careops/internal/domain/forecast"
	"github.com/yanqian/careops/internal/domain/mortality"
	"github.com/yanqian/careops/internal/infra/config"
	httpiface "github.com/yanqian/careops/internal/interface/http"
	"github.com/yanqian/careops/pkg/logger"
)

func initializeApp() (*bootstrap.App, func(), error) {
	wire.Build(
		config.Load,
		logger.New,
		provideAuthConfig,
		provideForecastConfig,
		provideMetrics,
		provideArtifactLoader,
		providePreparer,
		provideClassifier,
		provideAuditRepository,
		provideFallbackStore,
		provideChartRenderer,
		provideChartCache,
		auth.NewService,
		mortality.NewService,
		forecast.NewService,
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil, nil
}
