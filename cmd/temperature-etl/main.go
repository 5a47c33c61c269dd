// Command temperature-etl reads the yearly country temperature CSV, reshapes it into one
// row per (country, year) and writes it as Parquet.
package main

import (
	"context"
	_ "embed"
	"os"
	"os/signal"
	"syscall"

	"github.com/tigerroll/temperature-etl/internal/app"
	"github.com/tigerroll/temperature-etl/pkg/batch/support/util/logger"
)

// embeddedConfig is the application configuration loaded at startup.
//
//go:embed resources/application.yaml
var embeddedConfig []byte

// embeddedJSL defines the steps of the job.
//
//go:embed resources/job.yaml
var embeddedJSL []byte

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Warnf("Received signal '%v'. Attempting to stop the job...", sig)
		cancel()
	}()

	envFilePath := os.Getenv("ENV_FILE_PATH")
	if envFilePath == "" {
		envFilePath = ".env"
	}

	result, err := app.RunApplication(ctx, envFilePath, embeddedConfig, embeddedJSL)
	if err != nil {
		logger.Errorf("Application run failed: %v", err)
	}
	cancel()
	os.Exit(result.ExitCode)
}
