package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	accountingapp "github.com/facture/backend/internal/application/accounting"
	"github.com/facture/backend/internal/domain/accounting"
	"github.com/facture/backend/internal/domain/invoicing"
	"github.com/facture/backend/internal/infrastructure/config"
	"github.com/facture/backend/internal/infrastructure/logger"
	"github.com/facture/backend/internal/infrastructure/persistence"
)

func main() {
	var (
		fromFlag   string
		toFlag     string
		issuerFlag string
		outFlag    string
	)

	flag.StringVar(&fromFlag, "from", "", "Period start, YYYY-MM-DD (default: start of the current fiscal year)")
	flag.StringVar(&toFlag, "to", "", "Period end, YYYY-MM-DD inclusive (default: today)")
	flag.StringVar(&issuerFlag, "issuer", "", "Restrict the export to one issuer UUID")
	flag.StringVar(&outFlag, "out", "", "Output file path (default: stdout)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	fyStart := invoicing.FiscalYearStart{
		Month: time.Month(cfg.Accounting.FiscalYearMonth),
		Day:   cfg.Accounting.FiscalYearDay,
	}

	from, to, err := resolvePeriod(fromFlag, toFlag, fyStart)
	if err != nil {
		log.Fatal("Invalid export period", zap.Error(err))
	}

	var issuerID *uuid.UUID
	if issuerFlag != "" {
		id, err := uuid.Parse(issuerFlag)
		if err != nil {
			log.Fatal("Invalid issuer UUID", zap.String("issuer", issuerFlag), zap.Error(err))
		}
		issuerID = &id
	}

	log.Info("Starting ledger export",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.Time("from", from),
		zap.Time("to", to),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()

	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB, fyStart)
	exportService := accountingapp.NewExportService(invoiceRepo, buildChart(cfg.Accounting),
		accountingapp.WithLogger(log))

	output, err := exportService.ExportLedger(context.Background(), from, to, issuerID)
	if err != nil {
		log.Fatal("Export failed", zap.Error(err))
	}

	if outFlag == "" {
		fmt.Println(output)
		return
	}
	if err := os.WriteFile(outFlag, []byte(output+"\n"), 0644); err != nil {
		log.Fatal("Failed to write export file", zap.String("path", outFlag), zap.Error(err))
	}
	log.Info("Export written", zap.String("path", outFlag))
}

// resolvePeriod fills in flag defaults: the current fiscal year start and
// today. The end bound is inclusive, matching the repository query.
func resolvePeriod(fromFlag, toFlag string, fyStart invoicing.FiscalYearStart) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	if fromFlag == "" && toFlag == "" {
		start, _ := fyStart.PeriodOf(now)
		return start, now, nil
	}
	if fromFlag == "" || toFlag == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("flags -from and -to must be given together")
	}
	return accounting.ParsePeriod(fromFlag, toFlag)
}

// buildChart maps the accounting configuration to the chart of accounts
// used by the exporter
func buildChart(cfg config.AccountingConfig) accounting.ChartOfAccounts {
	vat := make(map[string]accounting.Account, len(cfg.VATAccounts))
	for rate, number := range cfg.VATAccounts {
		vat[rate] = accounting.Account{
			Number: number,
			Label:  fmt.Sprintf("TVA collectée %s%%", rate),
		}
	}
	return accounting.ChartOfAccounts{
		JournalCode:  cfg.JournalCode,
		JournalLabel: cfg.JournalLabel,
		Customer:     accounting.Account{Number: cfg.CustomerAccount, Label: cfg.CustomerLabel},
		Sales:        accounting.Account{Number: cfg.SalesAccount, Label: cfg.SalesLabel},
		VATByRate:    vat,
		VATFallback:  accounting.Account{Number: cfg.VATFallbackAccount, Label: cfg.VATFallbackLabel},
	}
}
