package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"

	"newspilot/app"
	"newspilot/autopilot"
	"newspilot/config"
	"newspilot/logger"
)

// One-shot scheduler invocation for cron. Each tick runs exactly one
// decision and exits; the scheduler itself is not a daemon.
func main() {
	modeFlag := flag.String("mode", "automatic", "automatic, manual or forced")
	flag.Parse()

	config.InitApp()
	logger.Init(config.GetConfig().Logging.Level)

	mode, err := autopilot.ParseMode(*modeFlag)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	a, err := app.New(ctx)
	if err != nil {
		log.Fatal(err)
	}
	defer a.Close()

	outcome := a.Autopilot.Run(ctx, autopilot.Command{Mode: mode, CronTrigger: true})
	out, _ := json.Marshal(outcome)
	os.Stdout.Write(append(out, '\n'))
	if outcome.Kind == autopilot.OutcomeError {
		os.Exit(1)
	}
}
