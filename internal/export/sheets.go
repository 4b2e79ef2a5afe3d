package export

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

var (
	ErrSheetsUnauthorized = errors.New("google sheets authorization expired or revoked")
	ErrSheetsNotFound     = errors.New("spreadsheet not found")
)

// SheetsClient writes snapshots through the Sheets v4 API. The HTTP client
// carries the user's OAuth credentials.
type SheetsClient struct {
	svc *sheets.Service
}

// NewSheetsClient builds a client on httpClient. An empty endpoint uses the
// public Google endpoint.
func NewSheetsClient(ctx context.Context, httpClient *http.Client, endpoint string) (*SheetsClient, error) {
	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(strings.TrimSuffix(endpoint, "/")+"/"))
	}

	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}
	return &SheetsClient{svc: svc}, nil
}

// Write creates missing sheets, clears the existing ones and writes every
// table starting at A1. It returns the number of updated cells.
func (c *SheetsClient) Write(ctx context.Context, spreadsheetID string, snap Snapshot) (int, error) {
	titles, err := c.sheetTitles(ctx, spreadsheetID)
	if err != nil {
		return 0, err
	}

	var missing []*sheets.Request
	ranges := make([]string, 0, len(snap.Tables))
	data := make([]*sheets.ValueRange, 0, len(snap.Tables))
	for _, t := range snap.Tables {
		if !titles[t.Name] {
			missing = append(missing, &sheets.Request{
				AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: t.Name}},
			})
		}
		ranges = append(ranges, sheetRange(t.Name))
		data = append(data, &sheets.ValueRange{
			Range:          sheetRange(t.Name) + "!A1",
			MajorDimension: "ROWS",
			Values:         cellValues(t.Values()),
		})
	}

	if len(missing) > 0 {
		_, err := c.svc.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
			Requests: missing,
		}).Context(ctx).Do()
		if err != nil {
			return 0, fmt.Errorf("failed to add sheets: %w", apiError(err))
		}
	}

	_, err = c.svc.Spreadsheets.Values.BatchClear(spreadsheetID, &sheets.BatchClearValuesRequest{
		Ranges: ranges,
	}).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("failed to clear sheets: %w", apiError(err))
	}

	// RAW keeps user text literal; numbers are sent as numbers below.
	resp, err := c.svc.Spreadsheets.Values.BatchUpdate(spreadsheetID, &sheets.BatchUpdateValuesRequest{
		ValueInputOption: "RAW",
		Data:             data,
	}).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("failed to write values: %w", apiError(err))
	}

	return int(resp.TotalUpdatedCells), nil
}

func (c *SheetsClient) sheetTitles(ctx context.Context, spreadsheetID string) (map[string]bool, error) {
	spreadsheet, err := c.svc.Spreadsheets.Get(spreadsheetID).
		Fields("sheets.properties.title").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read spreadsheet: %w", apiError(err))
	}

	titles := make(map[string]bool, len(spreadsheet.Sheets))
	for _, s := range spreadsheet.Sheets {
		if s.Properties != nil {
			titles[s.Properties.Title] = true
		}
	}
	return titles, nil
}

// apiError maps auth and not-found responses to the package sentinels.
func apiError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return ErrSheetsUnauthorized
		case http.StatusNotFound:
			return ErrSheetsNotFound
		}
	}
	return err
}

// cellValues converts a string grid into API values. Cells that parse as a
// finite number are sent as numbers, everything else as text.
func cellValues(grid [][]string) [][]any {
	values := make([][]any, len(grid))
	for i, row := range grid {
		cells := make([]any, len(row))
		for j, v := range row {
			cells[j] = v
			if n, err := strconv.ParseFloat(v, 64); err == nil && !math.IsInf(n, 0) && !math.IsNaN(n) {
				cells[j] = n
			}
		}
		values[i] = cells
	}
	return values
}

// sheetRange quotes a sheet title for A1 notation.
func sheetRange(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}
