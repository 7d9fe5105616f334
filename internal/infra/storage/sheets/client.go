package sheets

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

// Config points at the spreadsheet that holds the ledger.
type Config struct {
	SpreadsheetID   string `yaml:"spreadsheet_id"`
	CredentialsFile string `yaml:"credentials_file"`
	CredentialsJSON string `yaml:"credentials_json"`
	// Endpoint overrides the API base URL (emulators, proxies).
	Endpoint string `yaml:"endpoint"`
	// StatusSheet is the tab holding the source status table.
	StatusSheet string `yaml:"status_sheet"`
}

// values is the subset of the Sheets API the ledger uses.
type values interface {
	Get(ctx context.Context, rng string) ([][]string, error)
	Update(ctx context.Context, rng string, rows [][]string) error
	Append(ctx context.Context, rng string, rows [][]string) error
	Clear(ctx context.Context, rng string) error
	SheetTitles(ctx context.Context) ([]string, error)
	AddSheet(ctx context.Context, title string) error
}

// apiValues implements values over google.golang.org/api/sheets/v4.
type apiValues struct {
	srv *gsheets.Service
	id  string
}

func newAPIValues(ctx context.Context, cfg Config) (*apiValues, error) {
	var opts []option.ClientOption
	switch {
	case cfg.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	opts = append(opts, option.WithScopes(gsheets.SpreadsheetsScope))

	srv, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return &apiValues{srv: srv, id: cfg.SpreadsheetID}, nil
}

func (a *apiValues) Get(ctx context.Context, rng string) ([][]string, error) {
	resp, err := a.srv.Spreadsheets.Values.Get(a.id, rng).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	out := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		out[i] = make([]string, len(row))
		for j, cell := range row {
			out[i][j] = fmt.Sprint(cell)
		}
	}
	return out, nil
}

func toValueRange(rows [][]string) *gsheets.ValueRange {
	vals := make([][]interface{}, len(rows))
	for i, row := range rows {
		vals[i] = make([]interface{}, len(row))
		for j, cell := range row {
			vals[i][j] = cell
		}
	}
	return &gsheets.ValueRange{Values: vals}
}

func (a *apiValues) Update(ctx context.Context, rng string, rows [][]string) error {
	_, err := a.srv.Spreadsheets.Values.Update(a.id, rng, toValueRange(rows)).
		ValueInputOption("RAW").Context(ctx).Do()
	return err
}

func (a *apiValues) Append(ctx context.Context, rng string, rows [][]string) error {
	_, err := a.srv.Spreadsheets.Values.Append(a.id, rng, toValueRange(rows)).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	return err
}

func (a *apiValues) Clear(ctx context.Context, rng string) error {
	_, err := a.srv.Spreadsheets.Values.Clear(a.id, rng, &gsheets.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

func (a *apiValues) SheetTitles(ctx context.Context) ([]string, error) {
	ss, err := a.srv.Spreadsheets.Get(a.id).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	titles := make([]string, 0, len(ss.Sheets))
	for _, s := range ss.Sheets {
		if s.Properties != nil {
			titles = append(titles, s.Properties.Title)
		}
	}
	return titles, nil
}

func (a *apiValues) AddSheet(ctx context.Context, title string) error {
	_, err := a.srv.Spreadsheets.BatchUpdate(a.id, &gsheets.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheets.Request{{
			AddSheet: &gsheets.AddSheetRequest{Properties: &gsheets.SheetProperties{Title: title}},
		}},
	}).Context(ctx).Do()
	return err
}
