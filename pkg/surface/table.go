package surface

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/tierscore/tierscore/pkg/scoring"
)

// CSVRenderer writes the flat result table.
type CSVRenderer struct {
	WithIndicators bool
}

func (r *CSVRenderer) Render(w io.Writer, result *scoring.Result) error {
	cols := result.Columns(r.WithIndicators)
	cw := csv.NewWriter(w)
	if err := cw.Write(cols); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, rec := range result.Records(r.WithIndicators) {
		row := make([]string, len(cols))
		for i, c := range cols {
			row[i] = cellString(rec[c])
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// XLSXRenderer writes a workbook with a Scores sheet holding the flat table
// and a Weights sheet listing every category member's effective weight.
type XLSXRenderer struct {
	WithIndicators bool
}

const (
	scoresSheet  = "Scores"
	weightsSheet = "Weights"
)

func (r *XLSXRenderer) Render(w io.Writer, result *scoring.Result) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", scoresSheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	cols := result.Columns(r.WithIndicators)
	if err := setRow(f, scoresSheet, 1, toAny(cols)); err != nil {
		return err
	}
	for i, rec := range result.Records(r.WithIndicators) {
		row := make([]any, len(cols))
		for j, c := range cols {
			row[j] = rec[c]
		}
		if err := setRow(f, scoresSheet, i+2, row); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(weightsSheet); err != nil {
		return fmt.Errorf("creating sheet: %w", err)
	}
	if err := setRow(f, weightsSheet, 1, []any{"category", "indicator", "weight", "cluster"}); err != nil {
		return err
	}
	line := 2
	for _, c := range result.Categories {
		cluster := make(map[string]int)
		for k, members := range c.Clusters {
			for _, m := range members {
				cluster[m] = k + 1
			}
		}
		for _, iw := range c.SortedWeights() {
			if err := setRow(f, weightsSheet, line, []any{c.Name, iw.Indicator, iw.Weight, cluster[iw.Indicator]}); err != nil {
				return err
			}
			line++
		}
	}

	if err := f.SetPanes(scoresSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freezing header: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("writing %s row %d: %w", sheet, row, err)
	}
	return nil
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case int:
		return strconv.Itoa(x)
	default:
		return fmt.Sprint(x)
	}
}
