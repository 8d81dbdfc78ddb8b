package report

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"csrdesk/model"
	"csrdesk/render"
	"csrdesk/resources"

	"github.com/gorilla/mux"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const (
	sheetName    = "Sheet1"
	emptyCell    = "-"
	dateLayout   = "01/02/2006"
	stampLayout  = "01/02/2006, 03:04:05 PM"
	headerColor  = "4472C4"
	xlsxMimeType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Export writes the complete filtered and sorted set as .xlsx or .csv.
func (h *Handler) Export() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, recs, state, ok := h.load(w, r)
		if !ok {
			return
		}
		rows := h.engine.Filtered(recs, state, res.View)
		table := cells(res, rows, h.now(), h.engine.Location())
		filename := fmt.Sprintf("%s_%s", res.ExportName, h.now().In(h.engine.Location()).Format("2006-01-02"))

		switch mux.Vars(r)["format"] {
		case "csv":
			w.Header().Set("Content-Type", "text/csv; charset=utf-8")
			w.Header().Set("Content-Disposition", "attachment; filename*=UTF-8''"+url.PathEscape(filename+".csv"))
			w.Write(CSV(res.Columns, table))
		default:
			buf, err := XLSX(res.Columns, table)
			if err != nil {
				h.logger.Error("failed to build workbook", zap.String("resource", res.Key), zap.Error(err))
				render.Error(w, "Failed to export records.", http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", xlsxMimeType)
			w.Header().Set("Content-Disposition", "attachment; filename*=UTF-8''"+url.PathEscape(filename+".xlsx"))
			w.Write(buf)
		}
	}
}

// cells renders every row into display strings, "-" for empty values.
func cells(res resources.Resource, rows []model.Record, now time.Time, loc *time.Location) [][]string {
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		row = res.Apply(row, now, loc)
		line := make([]string, len(res.Columns))
		for i, c := range res.Columns {
			line[i] = formatCell(row, c, loc)
		}
		out = append(out, line)
	}
	return out
}

func formatCell(r model.Record, c resources.Column, loc *time.Location) string {
	s := strings.TrimSpace(r.Text(c.Key))
	if s == "" {
		return emptyCell
	}
	switch c.Format {
	case resources.FormatDate:
		if t, ok := r.Time(c.Key, loc); ok {
			return t.In(loc).Format(dateLayout)
		}
	case resources.FormatDateTime:
		if t, ok := r.Time(c.Key, loc); ok {
			return t.In(loc).Format(stampLayout)
		}
	}
	return s
}

func quoteAll(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// CSV renders a UTF-8 (with BOM) CRLF file with every field quoted.
func CSV(columns []resources.Column, table [][]string) []byte {
	var buf bytes.Buffer
	buf.Write([]byte{0xEF, 0xBB, 0xBF})

	header := make([]string, len(columns))
	for i, c := range columns {
		header[i] = quoteAll(c.Header)
	}
	buf.WriteString(strings.Join(header, ",") + "\r\n")
	for _, line := range table {
		quoted := make([]string, len(line))
		for i, v := range line {
			quoted[i] = quoteAll(v)
		}
		buf.WriteString(strings.Join(quoted, ",") + "\r\n")
	}
	return buf.Bytes()
}

func thinBorder() []excelize.Border {
	return []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
}

// XLSX renders one sheet with a filled, bold header row and bordered cells.
func XLSX(columns []resources.Column, table [][]string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{headerColor}},
		Border:    thinBorder(),
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	bodyStyle, err := f.NewStyle(&excelize.Style{Border: thinBorder()})
	if err != nil {
		return nil, fmt.Errorf("failed to create body style: %w", err)
	}

	header := make([]interface{}, len(columns))
	for i, c := range columns {
		header[i] = c.Header
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if c.Width > 0 {
			if err := f.SetColWidth(sheetName, name, name, c.Width); err != nil {
				return nil, fmt.Errorf("failed to set width of %s: %w", name, err)
			}
		}
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(columns), 1)
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheetName, "A1", last, headerStyle); err != nil {
		return nil, fmt.Errorf("failed to style header: %w", err)
	}

	for i, line := range table {
		row := make([]interface{}, len(line))
		for j, v := range line {
			row[j] = v
		}
		start, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheetName, start, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}
	if len(table) > 0 {
		end, err := excelize.CoordinatesToCellName(len(columns), len(table)+1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(sheetName, "A2", end, bodyStyle); err != nil {
			return nil, fmt.Errorf("failed to style rows: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
