package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/trezcool/mergington/apps/api/echo"
	"github.com/trezcool/mergington/apps/shared"
	"github.com/trezcool/mergington/core"
	"github.com/trezcool/mergington/core/activity"
	"github.com/trezcool/mergington/services/metrics"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf, err := core.NewConfig()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, console, err := shared.NewLogger(conf, "api")
	if err != nil {
		log.Fatalf("setting up logger: %v", err)
	}

	// set up store
	store, err := shared.OpenStore(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up store: %v", err), err)
	}
	defer func() {
		if err = store.Close(); err != nil {
			logger.Error("closing store", err)
		}
	}()

	// set up services
	mailSvc, err := shared.NewEmailService(conf, os.Stdout, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up email service: %v", err), err)
	}
	publisher, closePublisher := shared.NewEventPublisher(conf)
	defer func() {
		if err = closePublisher(); err != nil {
			logger.Error("closing event publisher", err)
		}
	}()

	var metrics *metricsvc.Collector
	var svcMetrics activity.Metrics
	if conf.MetricsEnabled {
		metrics = metricsvc.NewCollector("mergington")
		svcMetrics = metrics
	}
	activitySvc := activity.NewService(store.Repo, mailSvc, publisher, svcMetrics, logger)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate, translator := core.NewValidator()

	activities, err := shared.LoadCatalog(conf, validate)
	if err != nil {
		logger.Fatal(fmt.Sprintf("loading catalog: %v", err), err)
	}
	if err = activitySvc.Seed(context.Background(), activities); err != nil {
		logger.Fatal(fmt.Sprintf("seeding store: %v", err), err)
	}

	// =========================================================================
	// Start API Service

	deps := echoapi.ServerDeps{
		Conf:        conf,
		Logger:      logger,
		Metrics:     metrics,
		ActivitySvc: activitySvc,
		Store:       store,
		Validate:    validate,
		Translator:  translator,
	}
	if !conf.Server.DisableReqLogs {
		deps.ReqLogger = console.Zerolog()
	}
	server := echoapi.NewServer(deps)

	go func() {
		logger.Info(fmt.Sprintf("listening on %s", conf.Server.Address))
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}
