package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/trezcool/mergington/apps/shared"
	"github.com/trezcool/mergington/core"
	"github.com/trezcool/mergington/core/activity"
)

func main() {
	conf, err := core.NewConfig()
	errAndDie(err)
	// the schema is managed with `admin migrate`
	conf.Store.AutoMigrate = false

	logger, _, err := shared.NewLogger(conf, "admin")
	errAndDie(err)

	// set up store
	store, err := shared.OpenStore(conf)
	errAndDie(err)
	defer store.Close()

	// set up services
	validate, translator := core.NewValidator()
	catalog, err := shared.LoadCatalog(conf, validate)
	errAndDie(err)
	mailSvc, err := shared.NewEmailService(conf, os.Stdout, logger)
	errAndDie(err)
	publisher, closePublisher := shared.NewEventPublisher(conf)
	defer closePublisher()

	// start CLI
	cl := commandLine{
		svc:        activity.NewSyncService(store.Repo, mailSvc, publisher, nil, logger),
		validate:   validate,
		translator: translator,
		catalog:    catalog,
		db:         store.DB,
		engine:     conf.Store.Engine,
		out:        os.Stdout,
	}
	if err = cl.run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		_ = closePublisher()
		_ = store.Close()
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
