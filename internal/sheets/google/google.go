package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"mesa/internal/core"
	applog "mesa/internal/log"
	ports "mesa/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Config selects the spreadsheet and the service account used to write it.
type Config struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountFile string
	ServiceAccountJSON string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	// Base sheet name without year (e.g. "Projection"); the report's year
	// is prefixed.
	sheetBase string
	now       func() time.Time
}

var _ ports.ProjectionExporter = (*Client)(nil)

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config, opts ...goption.ClientOption) (*Client, error) {
	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	base := strings.TrimSpace(cfg.SheetName)
	if base == "" {
		base = "Projection"
	}

	if len(opts) == 0 {
		creds, err := credentials(cfg)
		if err != nil {
			return nil, err
		}
		opts = []goption.ClientOption{
			goption.WithCredentialsJSON(creds),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets exporter ready", "spreadsheet_id", spreadsheetID, "sheet", base)
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetBase: base, now: time.Now}, nil
}

// credentials reads the service account key from inline JSON, the
// configured file, or GOOGLE_APPLICATION_CREDENTIALS, in that order.
func credentials(cfg Config) ([]byte, error) {
	inline := strings.TrimSpace(cfg.ServiceAccountJSON)
	file := strings.TrimSpace(cfg.ServiceAccountFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		return []byte(inline), nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	}
	return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
}

// ExportProjection appends one summary row to "<year> <base>" and the daily
// cash flow of the month to "<year> <base> Cash Flow".
func (c *Client) ExportProjection(ctx context.Context, workspaceID int64, report core.ProjectionReport) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if report.Month.IsZero() {
		return "", errors.New("report has no month")
	}

	summarySheet := yearPrefixedName(c.sheetBase, report.Month.Year)
	ref, err := c.append(ctx, summarySheet+"!A:L", [][]any{summaryRow(workspaceID, report, c.now())})
	if err != nil {
		return "", fmt.Errorf("append summary to %s: %w", summarySheet, err)
	}

	flowSheet := summarySheet + " Cash Flow"
	if rows := cashFlowRows(workspaceID, report); len(rows) > 0 {
		if _, err := c.append(ctx, flowSheet+"!A:G", rows); err != nil {
			return ref, fmt.Errorf("append cash flow to %s: %w", flowSheet, err)
		}
	}

	fields := applog.NewFields().
		WithComponent(applog.ComponentSheets).
		WithLedger(workspaceID, report.Month.String())
	slog.InfoContext(ctx, "Projection written to spreadsheet", append(fields.ToSlice(), "ref", ref)...)
	return ref, nil
}

func (c *Client) append(ctx context.Context, rng string, values [][]any) (string, error) {
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", err
	}
	if resp.Updates == nil {
		return rng, nil
	}
	return resp.Updates.UpdatedRange, nil
}
