package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	invoicingapp "github.com/facture/backend/internal/application/invoicing"
	"github.com/facture/backend/internal/domain/invoicing"
	"github.com/facture/backend/internal/domain/shared"
	"github.com/facture/backend/internal/domain/shared/valueobject"
	"github.com/facture/backend/internal/infrastructure/config"
	"github.com/facture/backend/internal/infrastructure/event"
	"github.com/facture/backend/internal/infrastructure/logger"
	"github.com/facture/backend/internal/infrastructure/persistence"
)

// finalizeRetries bounds how often a finalize is rerun when the sequence
// counter is contended
const finalizeRetries = 5

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	args := os.Args[2:]

	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

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

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
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
	txManager := persistence.NewGormTxManager(db.DB, fyStart)
	service := invoicingapp.NewInvoiceService(invoiceRepo, txManager,
		invoicingapp.WithLogger(log))

	// Events raised by a mutation are dispatched here, after the
	// transaction has committed.
	bus := event.NewInMemoryEventBus(log)
	bus.Subscribe(&eventLogger{logger: log})

	ctx := context.Background()

	var cmdErr error
	switch command {
	case "create":
		cmdErr = runCreate(ctx, service, args)
	case "finalize":
		cmdErr = runFinalize(ctx, service, bus, args)
	case "send":
		cmdErr = runSend(ctx, service, bus, args)
	case "pay":
		cmdErr = runPay(ctx, service, bus, args)
	case "cancel":
		cmdErr = runCancel(ctx, service, bus, args)
	case "show":
		cmdErr = runShow(ctx, service, cfg, args)
	default:
		printUsage()
		os.Exit(1)
	}
	if cmdErr != nil {
		log.Fatal("Command failed", zap.String("command", command), zap.Error(cmdErr))
	}
}

func runCreate(ctx context.Context, service *invoicingapp.InvoiceService, args []string) error {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	customer := fs.String("customer", "", "Customer name (required)")
	code := fs.String("code", "", "Customer auxiliary account code")
	docType := fs.String("type", "INVOICE", "Document type: INVOICE or CREDIT_NOTE")
	issue := fs.String("date", "", "Issue date YYYY-MM-DD (default: today)")
	due := fs.String("due", "", "Due date YYYY-MM-DD")
	desc := fs.String("desc", "", "Line description (required)")
	qty := fs.String("qty", "1", "Line quantity")
	price := fs.String("price", "", "Unit price, e.g. 150.00 (required)")
	vat := fs.String("vat", "20", "VAT rate percentage")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *customer == "" || *desc == "" || *price == "" {
		return fmt.Errorf("flags -customer, -desc and -price are required")
	}

	issueDate := time.Now().UTC()
	if *issue != "" {
		var err error
		issueDate, err = time.Parse("2006-01-02", *issue)
		if err != nil {
			return fmt.Errorf("invalid issue date %q: %w", *issue, err)
		}
	}
	var dueDate *time.Time
	if *due != "" {
		d, err := time.Parse("2006-01-02", *due)
		if err != nil {
			return fmt.Errorf("invalid due date %q: %w", *due, err)
		}
		dueDate = &d
	}

	quantity, err := decimal.NewFromString(*qty)
	if err != nil {
		return fmt.Errorf("invalid quantity %q: %w", *qty, err)
	}
	unitPrice, err := valueobject.NewMoneyFromString(*price)
	if err != nil {
		return err
	}
	vatRate, err := decimal.NewFromString(*vat)
	if err != nil {
		return fmt.Errorf("invalid VAT rate %q: %w", *vat, err)
	}

	inv, err := service.CreateDraft(ctx, invoicingapp.CreateDraftInput{
		Type:         invoicing.DocumentType(*docType),
		CustomerName: *customer,
		CustomerCode: *code,
		IssueDate:    issueDate,
		DueDate:      dueDate,
		Lines: []invoicing.InvoiceLine{
			invoicing.NewInvoiceLine(*desc, quantity, unitPrice, vatRate),
		},
	})
	if err != nil {
		return err
	}
	fmt.Println(inv.ID)
	return nil
}

func runFinalize(ctx context.Context, service *invoicingapp.InvoiceService, bus *event.InMemoryEventBus, args []string) error {
	id, err := parseInvoiceID("finalize", args)
	if err != nil {
		return err
	}

	for attempt := 1; ; attempt++ {
		events, err := service.Finalize(ctx, id)
		if shared.IsTransient(err) && attempt < finalizeRetries {
			continue
		}
		if err != nil {
			return err
		}
		_ = bus.Publish(ctx, events...)
		break
	}

	inv, err := service.GetInvoice(ctx, id)
	if err != nil {
		return err
	}
	fmt.Println(inv.Reference())
	return nil
}

func runSend(ctx context.Context, service *invoicingapp.InvoiceService, bus *event.InMemoryEventBus, args []string) error {
	id, err := parseInvoiceID("send", args)
	if err != nil {
		return err
	}
	events, err := service.MarkSent(ctx, id)
	if err != nil {
		return err
	}
	_ = bus.Publish(ctx, events...)
	return nil
}

func runPay(ctx context.Context, service *invoicingapp.InvoiceService, bus *event.InMemoryEventBus, args []string) error {
	fs := flag.NewFlagSet("pay", flag.ExitOnError)
	idFlag := fs.String("id", "", "Invoice UUID (required)")
	amount := fs.String("amount", "", "Payment amount, e.g. 500.00 (required)")
	reference := fs.String("ref", "", "Payment reference")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *idFlag == "" || *amount == "" {
		return fmt.Errorf("flags -id and -amount are required")
	}

	id, err := uuid.Parse(*idFlag)
	if err != nil {
		return fmt.Errorf("invalid invoice UUID %q: %w", *idFlag, err)
	}
	paid, err := valueobject.NewMoneyFromString(*amount)
	if err != nil {
		return err
	}

	events, err := service.RecordPayment(ctx, id, paid, time.Now().UTC(), *reference)
	if err != nil {
		return err
	}
	_ = bus.Publish(ctx, events...)
	return nil
}

func runCancel(ctx context.Context, service *invoicingapp.InvoiceService, bus *event.InMemoryEventBus, args []string) error {
	fs := flag.NewFlagSet("cancel", flag.ExitOnError)
	idFlag := fs.String("id", "", "Invoice UUID (required)")
	reason := fs.String("reason", "", "Cancellation reason")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *idFlag == "" {
		return fmt.Errorf("flag -id is required")
	}
	id, err := uuid.Parse(*idFlag)
	if err != nil {
		return fmt.Errorf("invalid invoice UUID %q: %w", *idFlag, err)
	}

	events, err := service.Cancel(ctx, id, *reason)
	if err != nil {
		return err
	}
	_ = bus.Publish(ctx, events...)
	return nil
}

func runShow(ctx context.Context, service *invoicingapp.InvoiceService, cfg *config.Config, args []string) error {
	id, err := parseInvoiceID("show", args)
	if err != nil {
		return err
	}
	inv, err := service.GetInvoice(ctx, id)
	if err != nil {
		return err
	}

	totals := inv.ComputeTotals()
	tag := language.Make(cfg.Accounting.Locale)

	fmt.Printf("Invoice      %s\n", inv.ID)
	if ref := inv.Reference(); ref != "" {
		fmt.Printf("Reference    %s\n", ref)
	}
	fmt.Printf("Customer     %s\n", inv.CustomerName)
	fmt.Printf("Status       %s\n", inv.Status)
	fmt.Printf("Subtotal     %s\n", totals.SubtotalAfterDiscount.Format(tag, "€"))
	fmt.Printf("VAT          %s\n", totals.TotalVAT.Format(tag, "€"))
	fmt.Printf("Total        %s\n", totals.TotalInclVAT.Format(tag, "€"))
	fmt.Printf("Paid         %s\n", inv.TotalPaid().Format(tag, "€"))
	fmt.Printf("Remaining    %s\n", inv.Remaining().Format(tag, "€"))
	return nil
}

func parseInvoiceID(name string, args []string) (uuid.UUID, error) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	idFlag := fs.String("id", "", "Invoice UUID (required)")
	if err := fs.Parse(args); err != nil {
		return uuid.Nil, err
	}
	if *idFlag == "" {
		return uuid.Nil, fmt.Errorf("flag -id is required")
	}
	id, err := uuid.Parse(*idFlag)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid invoice UUID %q: %w", *idFlag, err)
	}
	return id, nil
}

// eventLogger logs every dispatched domain event
type eventLogger struct {
	logger *zap.Logger
}

func (h *eventLogger) Handle(ctx context.Context, e shared.DomainEvent) error {
	h.logger.Info("domain event",
		zap.String("event_type", e.EventType()),
		zap.String("aggregate_id", e.AggregateID().String()),
	)
	return nil
}

func (h *eventLogger) EventTypes() []string { return nil }

func printUsage() {
	fmt.Println(`Facture Invoice CLI

Usage:
  invoicectl <command> [flags]

Commands:
  create    Create a draft invoice with one line
  finalize  Assign a sequential number and finalize a draft
  send      Mark a finalized invoice as sent
  pay       Record a payment against an invoice
  cancel    Cancel an unpaid invoice
  show      Print an invoice with its derived totals

Run 'invoicectl <command> -h' for command flags.`)
}
