// Command sheets-init creates the mirror worksheets and their header rows
// in the configured spreadsheet. Run once before the first worker start.
package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"

	applog "tillbook/internal/log"
	gsheet "tillbook/internal/sheets/google"
)

func main() {
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Component: applog.ComponentSheets})
	applog.SetDefault(logger)

	ctx := context.Background()
	cli, err := gsheet.NewFromEnv(ctx)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}

	if err := cli.EnsureWorksheets(ctx); err != nil {
		logger.Error("Failed to create worksheets", "error", err)
		os.Exit(1)
	}
	logger.Info("Mirror worksheets ready")
}
