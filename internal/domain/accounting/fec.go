package accounting

import (
	"fmt"
	"strings"
	"time"

	"github.com/facture/backend/internal/domain/invoicing"
	"github.com/facture/backend/internal/domain/shared/valueobject"
)

// fecColumns are the 18 mandatory FEC columns, in their legal order.
// The file is pipe-delimited; dates are YYYYMMDD; amounts use a period
// separator with exactly two fraction digits.
var fecColumns = []string{
	"JournalCode",
	"JournalLib",
	"EcritureNum",
	"EcritureDate",
	"CompteNum",
	"CompteLib",
	"CompAuxNum",
	"CompAuxLib",
	"PieceRef",
	"PieceDate",
	"EcritureLib",
	"Debit",
	"Credit",
	"EcritureLet",
	"DateLet",
	"ValidDate",
	"Montantdevise",
	"Idevise",
}

const fecDateLayout = "20060102"

// Account is one entry of the chart of accounts
type Account struct {
	Number string
	Label  string
}

// ChartOfAccounts configures which accounts ledger rows are posted to.
// VAT accounts are looked up by the rate's exact decimal text; rates
// without a mapping fall back to VATFallback.
type ChartOfAccounts struct {
	JournalCode  string
	JournalLabel string
	Customer     Account
	Sales        Account
	VATByRate    map[string]Account
	VATFallback  Account
}

// VATAccountFor resolves the account for a VAT rate key
func (c ChartOfAccounts) VATAccountFor(rateKey string) Account {
	if acc, ok := c.VATByRate[rateKey]; ok {
		return acc
	}
	return c.VATFallback
}

// LedgerRow is one double-entry accounting line of the export. Rows are
// transient: they are rebuilt on every export call and never persisted.
type LedgerRow struct {
	JournalCode   string
	JournalLib    string
	EcritureNum   string
	EcritureDate  string
	CompteNum     string
	CompteLib     string
	CompAuxNum    string
	CompAuxLib    string
	PieceRef      string
	PieceDate     string
	EcritureLib   string
	Debit         string
	Credit        string
	EcritureLet   string
	DateLet       string
	ValidDate     string
	Montantdevise string
	Idevise       string
}

// Fields returns the row's columns in FEC order
func (r LedgerRow) Fields() []string {
	return []string{
		r.JournalCode,
		r.JournalLib,
		r.EcritureNum,
		r.EcritureDate,
		r.CompteNum,
		r.CompteLib,
		r.CompAuxNum,
		r.CompAuxLib,
		r.PieceRef,
		r.PieceDate,
		r.EcritureLib,
		r.Debit,
		r.Credit,
		r.EcritureLet,
		r.DateLet,
		r.ValidDate,
		r.Montantdevise,
		r.Idevise,
	}
}

// Exporter turns finalized invoices into a balanced FEC ledger text
type Exporter struct {
	chart ChartOfAccounts
}

// NewExporter creates an Exporter for the given chart of accounts
func NewExporter(chart ChartOfAccounts) *Exporter {
	return &Exporter{chart: chart}
}

// Export renders the FEC text for the given invoices. Invoices must be
// ordered by issue date ascending and pre-filtered to exportable
// statuses; non-exportable documents are skipped. The entry number
// restarts at 1 on every call and increments once per emitted row. An
// empty input still produces the header line.
//
// Every emitted entry set balances: summing the Debit column across the
// whole output equals summing the Credit column.
func (e *Exporter) Export(invoices []*invoicing.Invoice) string {
	var b strings.Builder
	b.WriteString(strings.Join(fecColumns, "|"))

	entryNum := 0
	nextEntry := func() string {
		entryNum++
		return fmt.Sprintf("%03d", entryNum)
	}

	for _, inv := range invoices {
		if !inv.Status.IsExportable() {
			continue
		}
		for _, row := range e.invoiceRows(inv, nextEntry) {
			b.WriteString("\n")
			b.WriteString(joinRow(row))
		}
	}
	return b.String()
}

// invoiceRows produces the customer row, the sales row and one VAT row
// per distinct rate for a single invoice. For an invoice the customer
// (receivable) account is debited and sales/VAT are credited; a credit
// note inverts every polarity. Magnitudes are identical in both cases.
func (e *Exporter) invoiceRows(inv *invoicing.Invoice, nextEntry func() string) []LedgerRow {
	totals := inv.ComputeTotals()
	isCredit := inv.Type == invoicing.DocumentTypeCreditNote

	date := inv.IssueDate.Format(fecDateLayout)
	ref := inv.Reference()
	label := fmt.Sprintf("%s %s", inv.CustomerName, ref)

	rows := make([]LedgerRow, 0, 2+len(inv.Lines))

	customer := e.baseRow(nextEntry(), date, ref, label)
	customer.CompteNum = e.chart.Customer.Number
	customer.CompteLib = e.chart.Customer.Label
	customer.CompAuxNum = inv.CustomerCode
	customer.CompAuxLib = inv.CustomerName
	customer.Debit, customer.Credit = polarity(totals.TotalInclVAT, !isCredit)
	rows = append(rows, customer)

	sales := e.baseRow(nextEntry(), date, ref, label)
	sales.CompteNum = e.chart.Sales.Number
	sales.CompteLib = e.chart.Sales.Label
	sales.Debit, sales.Credit = polarity(totals.SubtotalAfterDiscount, isCredit)
	rows = append(rows, sales)

	for _, rateVAT := range inv.VATByRate() {
		account := e.chart.VATAccountFor(rateVAT.Key)
		vat := e.baseRow(nextEntry(), date, ref, label)
		vat.CompteNum = account.Number
		vat.CompteLib = account.Label
		vat.Debit, vat.Credit = polarity(rateVAT.Amount, isCredit)
		rows = append(rows, vat)
	}

	return rows
}

func (e *Exporter) baseRow(entryNum, date, ref, label string) LedgerRow {
	return LedgerRow{
		JournalCode:  e.chart.JournalCode,
		JournalLib:   e.chart.JournalLabel,
		EcritureNum:  entryNum,
		EcritureDate: date,
		PieceRef:     ref,
		PieceDate:    date,
		EcritureLib:  label,
		ValidDate:    date,
	}
}

// polarity places an amount on the debit or credit side, the unused side
// carrying the literal zero amount
func polarity(amount valueobject.Money, debit bool) (string, string) {
	if debit {
		return amount.StringFixed(), valueobject.Zero().StringFixed()
	}
	return valueobject.Zero().StringFixed(), amount.StringFixed()
}

// joinRow serializes a row, enforcing the 18-column arity. A row with any
// other field count means the construction code is broken; emitting it
// would corrupt a legally mandated format, so this is unrecoverable.
func joinRow(row LedgerRow) string {
	fields := row.Fields()
	if len(fields) != len(fecColumns) {
		panic(fmt.Sprintf("accounting: ledger row has %d fields, want %d", len(fields), len(fecColumns)))
	}
	return strings.Join(fields, "|")
}

// ParsePeriod is a convenience for CLI flags: it parses YYYY-MM-DD bounds
func ParsePeriod(from, to string) (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01-02", from)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid period start %q: %w", from, err)
	}
	end, err := time.Parse("2006-01-02", to)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid period end %q: %w", to, err)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("period end %s before start %s", to, from)
	}
	return start, end, nil
}
