// Package google mirrors ledger data to a Google spreadsheet so the owner
// can eyeball the books without touching the database.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"tillbook/internal/core"
	ports "tillbook/internal/sheets"
)

// Worksheet names and header rows. EnsureWorksheets creates them on first
// run; the column order is load-bearing for the row parsers below.
const (
	TransactionsSheet   = "Transactions"
	ClosingsSheet       = "Closings"
	ReimbursementsSheet = "Reimbursements"
)

var worksheetHeaders = map[string][]any{
	TransactionsSheet:   {"ID", "Date", "Kind", "Category", "Subcategory", "Account", "Amount", "Note"},
	ClosingsSheet:       {"Month", "Bank Calculated", "Bank Actual", "Cash Calculated", "Cash Actual", "Note"},
	ReimbursementsSheet: {"Period", "Total Fee", "Deduction", "Rejection", "Drug Fee", "Chronic Count", "General Count"},
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
}

var (
	_ ports.TransactionMirror   = (*Client)(nil)
	_ ports.ClosingMirror       = (*Client)(nil)
	_ ports.ReimbursementMirror = (*Client)(nil)
)

// NewFromEnv creates a Sheets client from environment variables.
// Required: GOOGLE_SPREADSHEET_ID.
// Auth: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
	}, nil
}

// newSheetsService initializes a Sheets Service using service account
// credentials.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))

	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return service, nil
}

// EnsureWorksheets creates any missing worksheets and writes their header
// rows. Existing sheets are left alone.
func (c *Client) EnsureWorksheets(ctx context.Context) error {
	spreadsheet, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}

	existing := map[string]bool{}
	for _, sheet := range spreadsheet.Sheets {
		existing[sheet.Properties.Title] = true
	}

	var requests []*gsheet.Request
	var missing []string
	for _, title := range []string{TransactionsSheet, ClosingsSheet, ReimbursementsSheet} {
		if existing[title] {
			continue
		}
		missing = append(missing, title)
		requests = append(requests, &gsheet.Request{
			AddSheet: &gsheet.AddSheetRequest{
				Properties: &gsheet.SheetProperties{Title: title},
			},
		})
	}

	if len(requests) > 0 {
		_, err = c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, &gsheet.BatchUpdateSpreadsheetRequest{
			Requests: requests,
		}).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("add worksheets: %w", err)
		}
	}

	for _, title := range missing {
		rng := fmt.Sprintf("%s!A1", title)
		vr := &gsheet.ValueRange{Values: [][]any{worksheetHeaders[title]}}
		_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
			ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("write header for %s: %w", title, err)
		}
	}

	slog.InfoContext(ctx, "Worksheets ready", "created", missing)
	return nil
}

// AppendTransaction writes one ledger row after the last occupied row of the
// transactions sheet. The id in column A is what DeleteTransactionRow later
// searches for.
func (c *Client) AppendTransaction(ctx context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A:A", TransactionsSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("get sheet dimensions for %s: %w", TransactionsSheet, err)
	}

	nextRow := len(resp.Values) + 1
	dataRange := fmt.Sprintf("%s!A%d:H%d", TransactionsSheet, nextRow, nextRow)
	vr := &gsheet.ValueRange{Values: [][]any{{
		tx.ID,
		tx.Date.String(),
		string(tx.Kind),
		tx.Category,
		tx.Subcategory,
		string(tx.Account),
		tx.Amount.Dollars(),
		tx.Note,
	}}}

	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, dataRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("update %s: %w", dataRange, err)
	}

	return dataRange, nil
}

// DeleteTransactionRow finds the row whose id column matches and removes it
// with a DeleteDimension request. A missing row is logged, not an error.
func (c *Client) DeleteTransactionRow(ctx context.Context, id int64) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A:A", TransactionsSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read id column: %w", err)
	}

	rowIndex := -1
	want := strconv.FormatInt(id, 10)
	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == want {
			rowIndex = i
			break
		}
	}
	if rowIndex < 0 {
		slog.WarnContext(ctx, "Mirrored row not found, nothing to delete",
			"id", id, "sheet", TransactionsSheet)
		return nil
	}

	sheetID, err := c.sheetID(ctx, TransactionsSheet)
	if err != nil {
		return err
	}

	_, err = c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(rowIndex),
					EndIndex:   int64(rowIndex + 1),
				},
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("delete row %d: %w", rowIndex+1, err)
	}

	return nil
}

// UpsertClosing writes the closing row for its month, replacing an existing
// row in place so re-closing a month never duplicates it.
func (c *Client) UpsertClosing(ctx context.Context, mc core.MonthlyClosing) error {
	values := []any{
		mc.Month,
		mc.BankCalc.Dollars(),
		mc.BankActual.Dollars(),
		mc.CashCalc.Dollars(),
		mc.CashActual.Dollars(),
		mc.Note,
	}
	return c.upsertKeyedRow(ctx, ClosingsSheet, mc.Month, values, "F")
}

// UpsertReimbursement writes the claim row for its period, replacing an
// existing row in place.
func (c *Client) UpsertReimbursement(ctx context.Context, rec core.ReimbursementRecord) error {
	values := []any{
		rec.Period,
		rec.TotalFee.Dollars(),
		rec.Deduction.Dollars(),
		rec.Rejection.Dollars(),
		rec.DrugFee.Dollars(),
		rec.ChronicCount,
		rec.GeneralCount,
	}
	return c.upsertKeyedRow(ctx, ReimbursementsSheet, rec.Period, values, "G")
}

func (c *Client) upsertKeyedRow(ctx context.Context, sheetName, key string, values []any, lastCol string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A:A", sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read key column of %s: %w", sheetName, err)
	}

	targetRow := len(resp.Values) + 1
	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == key {
			targetRow = i + 1
			break
		}
	}

	dataRange := fmt.Sprintf("%s!A%d:%s%d", sheetName, targetRow, lastCol, targetRow)
	vr := &gsheet.ValueRange{Values: [][]any{values}}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, dataRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", dataRange, err)
	}

	return nil
}

func (c *Client) sheetID(ctx context.Context, title string) (int64, error) {
	spreadsheet, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties.Title == title {
			return sheet.Properties.SheetId, nil
		}
	}
	return 0, fmt.Errorf("worksheet %q not found", title)
}
