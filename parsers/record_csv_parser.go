package parsers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"csrdesk/model"

	"go.uber.org/zap"
)

var ErrEmptyCSV = errors.New("csv file is empty")

// ParseRecordCSV reads a header row followed by data rows into records keyed
// by header name. Blank cells are left out so they behave as missing fields.
// Rows that fail to parse, or have no values at all, are skipped.
func ParseRecordCSV(r io.Reader, required []string) ([]model.Record, error) {
	reader := csv.NewReader(DecodeUTF(r))
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmptyCSV
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	colIndex, err := getColIndex(header, required)
	if err != nil {
		return nil, err
	}

	var records []model.Record
	line := 1
	for {
		line++
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			zap.L().Warn("skipping unreadable csv row", zap.Int("line", line), zap.Error(err))
			continue
		}

		rec := model.Record{}
		for name, idx := range colIndex {
			if name == "" || idx >= len(row) {
				continue
			}
			if v := strings.TrimSpace(row[idx]); v != "" {
				rec[name] = v
			}
		}
		if len(rec) == 0 {
			continue
		}
		missing := false
		for _, req := range required {
			if _, ok := rec[req]; !ok {
				missing = true
				break
			}
		}
		if missing {
			zap.L().Warn("skipping csv row without required values", zap.Int("line", line))
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}
