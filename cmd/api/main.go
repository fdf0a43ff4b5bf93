package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/rs/cors"

	"newspilot/api/router"
	"newspilot/app"
	"newspilot/config"
	"newspilot/logger"
)

func main() {
	config.InitApp()
	logger.Init(config.GetConfig().Logging.Level)

	ctx := context.Background()
	a, err := app.New(ctx)
	if err != nil {
		log.Fatal(err)
	}
	defer a.Close()

	r := router.New(router.Deps{
		Discovery:   a.Discovery,
		Autopilot:   a.Autopilot,
		Executor:    a.Executor,
		Suggestions: a.Suggestions,
		Settings:    a.Settings,
	})

	addr := ":8080"
	if p := os.Getenv("PORT"); p != "" {
		addr = ":" + p
	}
	srv := &http.Server{
		Addr:    addr,
		Handler: cors.Default().Handler(r),
	}
	logger.Log.Infof("api listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
