package main

import (
	"context"
	"log"
	"os"
	"runtime/debug"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/smartq/launchpad/internal/server"
	"github.com/smartq/launchpad/modules"
	"github.com/smartq/launchpad/pkg/application"
	"github.com/smartq/launchpad/pkg/configuration"
	"github.com/smartq/launchpad/pkg/eventbus"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			configuration.Use().Unload()
			log.Println(r)
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	conf := configuration.Use()
	logger := conf.Logger()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	pool, err := pgxpool.New(ctx, conf.Database.Opts)
	if err != nil {
		panic(err)
	}
	defer pool.Close()

	app := application.New(&application.ApplicationOptions{
		Pool:     pool,
		EventBus: eventbus.NewEventPublisher(logger),
		Logger:   logger,
	})
	if err := modules.Load(app, modules.BuiltInModules...); err != nil {
		log.Fatalf("failed to load modules: %v", err)
	}

	if err := app.Migrations().Run(context.Background()); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	srv, err := server.Default(&server.DefaultOptions{
		Logger:        logger,
		Configuration: conf,
		Application:   app,
		Pool:          pool,
	})
	if err != nil {
		log.Fatalf("failed to build server: %v", err)
	}

	logger.WithField("address", conf.SocketAddress).Info("listening for requests")
	if err := srv.Start(conf.SocketAddress); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
