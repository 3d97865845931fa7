package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"bridgesim/server/internal/app"
	"bridgesim/server/internal/config"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("bridgesim", pflag.ExitOnError)
	configDir := flags.String("config", "", "directory containing bridgesim.yaml")
	config.RegisterFlags(flags)
	if err := flags.Parse(args); err != nil {
		return err
	}
	if err := config.BindFlags(flags); err != nil {
		return err
	}

	settings, err := config.Load(*configDir)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return app.Run(ctx, app.Config{Settings: settings})
}
