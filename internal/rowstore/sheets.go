package rowstore

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsStore maps each table to a sheet of one spreadsheet. The first row
// holds the field names; Ref 0 is the first row below it.
type SheetsStore struct {
	svc           *sheets.Service
	spreadsheetID string
}

func NewSheetsService(ctx context.Context, opts ...option.ClientOption) (*sheets.Service, error) {
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("error creating sheets service: %w", err)
	}
	return svc, nil
}

func NewSheetsStore(svc *sheets.Service, spreadsheetID string) *SheetsStore {
	return &SheetsStore{svc: svc, spreadsheetID: spreadsheetID}
}

func (s *SheetsStore) ReadAll(ctx context.Context, table string) ([]Row, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, sheetRange(table, "")).Context(ctx).Do()
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("error reading sheet %q: %w", table, err)
	}
	return decodeValues(resp.Values), nil
}

func (s *SheetsStore) UpdateFields(ctx context.Context, table string, ref int64, fields map[string]string) error {
	header, err := s.header(ctx, table)
	if err != nil {
		return err
	}

	var data []*sheets.ValueRange
	header, grown := extendHeader(header, sortedKeys(fields))
	if grown {
		data = append(data, headerRange(table, header))
	}

	rowNumber := ref + 2
	for _, field := range sortedKeys(fields) {
		col := indexOf(header, field)
		data = append(data, &sheets.ValueRange{
			Range:  sheetRange(table, fmt.Sprintf("%s%d", columnName(col), rowNumber)),
			Values: [][]interface{}{{fields[field]}},
		})
	}

	req := &sheets.BatchUpdateValuesRequest{ValueInputOption: "RAW", Data: data}
	if _, err := s.svc.Spreadsheets.Values.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
		slog.Info(err.Error())
		return fmt.Errorf("error writing sheet %q row %d: %w", table, ref, err)
	}
	return nil
}

func (s *SheetsStore) Append(ctx context.Context, table string, values map[string]string) (int64, error) {
	header, err := s.header(ctx, table)
	if err != nil {
		return 0, err
	}

	header, grown := extendHeader(header, sortedKeys(values))
	if grown {
		req := &sheets.BatchUpdateValuesRequest{ValueInputOption: "RAW", Data: []*sheets.ValueRange{headerRange(table, header)}}
		if _, err := s.svc.Spreadsheets.Values.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
			slog.Info(err.Error())
			return 0, fmt.Errorf("error writing header of sheet %q: %w", table, err)
		}
	}

	row := make([]interface{}, len(header))
	for i, field := range header {
		row[i] = values[field]
	}

	resp, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, sheetRange(table, "A1"), &sheets.ValueRange{
		Values: [][]interface{}{row},
	}).ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		slog.Info(err.Error())
		return 0, fmt.Errorf("error appending to sheet %q: %w", table, err)
	}

	if resp.Updates == nil {
		return 0, fmt.Errorf("append to sheet %q returned no updated range", table)
	}
	rowNumber, err := rowOfRange(resp.Updates.UpdatedRange)
	if err != nil {
		return 0, err
	}
	return rowNumber - 2, nil
}

// CompareAndSwap reads the cell and then writes it. The two calls are not
// atomic; Sheets has no conditional write.
func (s *SheetsStore) CompareAndSwap(ctx context.Context, table string, ref int64, field, old, value string) (bool, error) {
	rows, err := s.ReadAll(ctx, table)
	if err != nil {
		return false, err
	}
	for _, r := range rows {
		if r.Ref != ref {
			continue
		}
		if r.Get(field) != old {
			return false, nil
		}
		if err := s.UpdateFields(ctx, table, ref, map[string]string{field: value}); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, ErrRowNotFound
}

func (s *SheetsStore) header(ctx context.Context, table string) ([]string, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, sheetRange(table, "1:1")).Context(ctx).Do()
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("error reading header of sheet %q: %w", table, err)
	}
	if len(resp.Values) == 0 {
		return nil, nil
	}
	return headerNames(resp.Values[0]), nil
}

// headerNames reads field names the same way for reads and writes.
func headerNames(cells []interface{}) []string {
	header := make([]string, len(cells))
	for i, v := range cells {
		header[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return header
}

// decodeValues turns a header row plus data rows into Rows, padding short
// rows and dropping cells past the header.
func decodeValues(values [][]interface{}) []Row {
	if len(values) == 0 {
		return nil
	}

	header := headerNames(values[0])

	rows := make([]Row, 0, len(values)-1)
	for i, raw := range values[1:] {
		row := Row{Ref: int64(i), Values: make(map[string]string, len(header))}
		for col, field := range header {
			if field == "" {
				continue
			}
			if col < len(raw) {
				row.Values[field] = fmt.Sprint(raw[col])
			} else {
				row.Values[field] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func extendHeader(header, fields []string) ([]string, bool) {
	grown := false
	for _, f := range fields {
		if indexOf(header, f) < 0 {
			header = append(header, f)
			grown = true
		}
	}
	return header, grown
}

func headerRange(table string, header []string) *sheets.ValueRange {
	cells := make([]interface{}, len(header))
	for i, h := range header {
		cells[i] = h
	}
	return &sheets.ValueRange{Range: sheetRange(table, "A1"), Values: [][]interface{}{cells}}
}

func sheetRange(table, cells string) string {
	name := "'" + strings.ReplaceAll(table, "'", "''") + "'"
	if cells == "" {
		return name
	}
	return name + "!" + cells
}

// columnName converts a zero-based column index to A1 letters.
func columnName(i int) string {
	name := ""
	for i >= 0 {
		name = string(rune('A'+i%26)) + name
		i = i/26 - 1
	}
	return name
}

var rangeRowPattern = regexp.MustCompile(`![A-Z]+(\d+)`)

func rowOfRange(a1 string) (int64, error) {
	m := rangeRowPattern.FindStringSubmatch(a1)
	if m == nil {
		return 0, fmt.Errorf("cannot find row number in range %q", a1)
	}
	return strconv.ParseInt(m[1], 10, 64)
}

func indexOf(list []string, v string) int {
	v = strings.TrimSpace(v)
	for i, item := range list {
		if strings.TrimSpace(item) == v {
			return i
		}
	}
	return -1
}
