// Package sheets implements the remote worksheet ledger over the Google
// Sheets API. The sync core only ever reads the full worksheet and
// overwrites the full range; there are no per-row remote writes.
package sheets

import (
	"context"
	"fmt"
	"os"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/klauern/permisync/internal/logging"
	"github.com/klauern/permisync/internal/model"
	syncer "github.com/klauern/permisync/internal/sync"
)

// Client talks to one worksheet of one spreadsheet.
type Client struct {
	service       *sheets.Service
	SpreadsheetID string
	Worksheet     string
}

// NewClient creates a Sheets client from a service-account credentials
// file.
func NewClient(ctx context.Context, spreadsheetID, worksheet, credentialsPath string) (*Client, error) {
	if spreadsheetID == "" || worksheet == "" {
		return nil, fmt.Errorf("%w: spreadsheet id and worksheet are required", syncer.ErrConfigIncomplete)
	}
	if _, err := os.Stat(credentialsPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: credentials file not found at %s", syncer.ErrConfigIncomplete, credentialsPath)
	}

	service, err := sheets.NewService(ctx, option.WithCredentialsFile(credentialsPath))
	if err != nil {
		return nil, fmt.Errorf("%w: create sheets service: %v", syncer.ErrConnection, err)
	}

	return &Client{
		service:       service,
		SpreadsheetID: spreadsheetID,
		Worksheet:     worksheet,
	}, nil
}

// ReadRows fetches the whole worksheet and decodes every data row against
// the header row. An empty worksheet yields no rows.
func (c *Client) ReadRows(ctx context.Context) ([]model.Record, error) {
	resp, err := c.service.Spreadsheets.Values.
		Get(c.SpreadsheetID, c.Worksheet).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("%w: read worksheet %s: %v", syncer.ErrConnection, c.Worksheet, err)
	}

	records := RecordsFromValues(resp.Values)
	logging.Debug("read worksheet",
		logging.Worksheet(c.Worksheet),
		logging.Count(len(records)),
	)
	return records, nil
}

// Overwrite clears the worksheet and writes the full values matrix, header
// row included.
func (c *Client) Overwrite(ctx context.Context, matrix [][]any) error {
	_, err := c.service.Spreadsheets.Values.
		Clear(c.SpreadsheetID, c.Worksheet, &sheets.ClearValuesRequest{}).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("%w: clear worksheet %s: %v", syncer.ErrConnection, c.Worksheet, err)
	}

	values := make([][]interface{}, len(matrix))
	for i, row := range matrix {
		values[i] = row
	}
	_, err = c.service.Spreadsheets.Values.
		Update(c.SpreadsheetID, c.Worksheet, &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("%w: overwrite worksheet %s: %v", syncer.ErrConnection, c.Worksheet, err)
	}

	logging.Debug("overwrote worksheet",
		logging.Worksheet(c.Worksheet),
		logging.Count(len(matrix)),
	)
	return nil
}

// RecordsFromValues decodes a raw values grid: the first row is the
// header, every following row becomes a record keyed by it. Short rows
// are padded by the decoder; fully empty rows are dropped.
func RecordsFromValues(values [][]interface{}) []model.Record {
	if len(values) < 2 {
		return nil
	}

	header := make([]string, len(values[0]))
	for i, cell := range values[0] {
		header[i] = model.FormatValue(cell)
	}

	var records []model.Record
	for _, row := range values[1:] {
		if isEmptyRow(row) {
			continue
		}
		records = append(records, model.RecordFromRow(header, row))
	}
	return records
}

func isEmptyRow(row []interface{}) bool {
	for _, cell := range row {
		if model.FormatValue(cell) != "" {
			return false
		}
	}
	return true
}
