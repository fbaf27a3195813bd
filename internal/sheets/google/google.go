package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	goauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	ports "famfin/internal/sheets"
)

const defaultReportSheet = "Reports"

// Exporter appends analytics reports to a year-prefixed sheet of one spreadsheet.
type Exporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	reportBase    string
	now           func() time.Time
}

var _ ports.ReportExporter = (*Exporter)(nil)

// New creates an exporter authenticated with service account credentials
// taken from the environment. An empty sheet name selects "Reports".
func New(ctx context.Context, spreadsheetID, sheetName string) (*Exporter, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newExporter(svc, spreadsheetID, sheetName), nil
}

func newExporter(svc *gsheet.Service, spreadsheetID, sheetName string) *Exporter {
	base := strings.TrimSpace(sheetName)
	if base == "" {
		base = defaultReportSheet
	}
	return &Exporter{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		reportBase:    base,
		now:           time.Now,
	}
}

var errNoServiceAccount = errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")

// newSheetsService initializes a Sheets Service. Service account credentials
// are preferred; an OAuth client and token saved by cmd/oauth-init are the fallback.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	opts := []goption.ClientOption{goption.WithScopes(gsheet.SpreadsheetsScope)}
	mode := "service_account"

	credentialsJSON, err := serviceAccountCredentials()
	switch {
	case err == nil:
		opts = append(opts,
			goption.WithCredentialsJSON(credentialsJSON),
			goption.WithHTTPClient(newHTTPClientWithPooling()))
	case errors.Is(err, errNoServiceAccount):
		client, oauthErr := oauthHTTPClient(ctx)
		if oauthErr != nil {
			return nil, fmt.Errorf("%w; %v", err, oauthErr)
		}
		opts = append(opts, goption.WithHTTPClient(client))
		mode = "oauth"
	default:
		return nil, err
	}

	service, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created", "component", "sheets", "auth", mode)
	return service, nil
}

func serviceAccountCredentials() ([]byte, error) {
	if inline := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")); inline != "" {
		return []byte(inline), nil
	}
	path := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if path == "" {
		path = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if path == "" {
		return nil, errNoServiceAccount
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return raw, nil
}

// oauthHTTPClient builds a token-refreshing client from an OAuth client
// configuration and a saved token. The pooled transport is kept underneath.
func oauthHTTPClient(ctx context.Context) (*http.Client, error) {
	clientJSON, err := envOrFile("GOOGLE_OAUTH_CLIENT_JSON", "GOOGLE_OAUTH_CLIENT_FILE")
	if err != nil {
		return nil, err
	}
	tokenJSON, err := envOrFile("GOOGLE_OAUTH_TOKEN_JSON", "GOOGLE_OAUTH_TOKEN_FILE")
	if err != nil {
		return nil, err
	}

	cfg, err := goauth.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse oauth client: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(tokenJSON, &tok); err != nil {
		return nil, fmt.Errorf("parse oauth token: %w", err)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, newHTTPClientWithPooling())
	return cfg.Client(ctx, &tok), nil
}

// envOrFile returns the inline value of jsonKey, or the contents of the file named by fileKey.
func envOrFile(jsonKey, fileKey string) ([]byte, error) {
	if inline := strings.TrimSpace(os.Getenv(jsonKey)); inline != "" {
		return []byte(inline), nil
	}
	path := strings.TrimSpace(os.Getenv(fileKey))
	if path == "" {
		return nil, fmt.Errorf("set %s or %s", jsonKey, fileKey)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", fileKey, err)
	}
	return raw, nil
}

// newHTTPClientWithPooling returns a client tuned for the Sheets API with
// connection pooling and bounded timeouts.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}

func (e *Exporter) ExportSchedule(ctx context.Context, r ports.ScheduleReport) (string, error) {
	if r.LiabilityID == "" {
		return "", errors.New("export schedule: missing liability id")
	}
	ref, err := e.appendRows(ctx, scheduleRows(r, e.now()))
	if err != nil {
		return "", fmt.Errorf("export schedule for %s: %w", r.LiabilityID, err)
	}
	slog.InfoContext(ctx, "Exported amortization schedule",
		"component", "sheets",
		"family_id", r.FamilyID,
		"liability_id", r.LiabilityID,
		"months", r.Simulation.Totals.Months,
		"ref", ref)
	return ref, nil
}

func (e *Exporter) ExportHealthScore(ctx context.Context, r ports.HealthReport) (string, error) {
	if r.FamilyID == "" {
		return "", errors.New("export health score: missing family id")
	}
	ref, err := e.appendRows(ctx, healthRows(r, e.now()))
	if err != nil {
		return "", fmt.Errorf("export health score for %s: %w", r.FamilyID, err)
	}
	slog.InfoContext(ctx, "Exported health score",
		"component", "sheets",
		"family_id", r.FamilyID,
		"total", r.Score.Total,
		"ref", ref)
	return ref, nil
}

func (e *Exporter) appendRows(ctx context.Context, rows [][]any) (string, error) {
	if e.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	sheet := yearPrefixedName(e.reportBase, e.now().Year())
	rng := fmt.Sprintf("%s!A:H", sheet)
	resp, err := e.svc.Spreadsheets.Values.Append(e.spreadsheetID, rng, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to %s: %w", rng, err)
	}
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		return resp.Updates.UpdatedRange, nil
	}
	return rng, nil
}

// scheduleRows lays out a title row, a column header, one row per month and a totals row.
func scheduleRows(r ports.ScheduleReport, at time.Time) [][]any {
	sim := r.Simulation
	rows := make([][]any, 0, len(sim.Schedule)+3)
	rows = append(rows, []any{
		"Amortization schedule", r.FamilyID, r.LiabilityID, r.LiabilityName,
		at.UTC().Format(time.RFC3339),
		fmt.Sprintf("APR %.2f%%", sim.Rates.NominalAnnualPercent),
		fmt.Sprintf("EAR %.4f%%", sim.Rates.EffectiveAnnualPercent),
	})
	rows = append(rows, []any{"Month", "Payment", "Principal", "Interest", "Balance", "Cumulative interest"})
	for _, s := range sim.Schedule {
		rows = append(rows, []any{
			s.Month,
			s.Payment.StringFixed(2),
			s.Principal.StringFixed(2),
			s.Interest.StringFixed(2),
			s.EndingBalance.StringFixed(2),
			s.CumulativeInterest.StringFixed(2),
		})
	}
	rows = append(rows, []any{
		"Total",
		sim.Totals.TotalPaid.StringFixed(2),
		"",
		sim.Totals.TotalInterest.StringFixed(2),
		sim.Totals.FinalBalance.StringFixed(2),
		strconv.FormatBool(sim.Totals.PaidOff),
	})
	return rows
}

// healthRows writes a summary row followed by one row per score component.
func healthRows(r ports.HealthReport, at time.Time) [][]any {
	s := r.Score
	rows := make([][]any, 0, len(s.Breakdown)+1)
	rows = append(rows, []any{
		"Health score", r.FamilyID, r.Period.String(),
		at.UTC().Format(time.RFC3339),
		s.Total, string(s.Rating),
		fmt.Sprintf("%.2f", s.SavingsRatePercent),
		fmt.Sprintf("%.2f", s.EmergencyFundMonths),
	})
	for _, c := range s.Breakdown {
		rows = append(rows, []any{"", c.Name, fmt.Sprintf("%.2f", c.Score), fmt.Sprintf("%.0f", c.Max), c.Description})
	}
	return rows
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
