package surface

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tierscore/tierscore/pkg/scoring"
)

// TerminalRenderer renders a Result as colored terminal output: one block per
// category followed by the first Limit rows of the table.
type TerminalRenderer struct {
	// Limit caps the number of entity rows printed. Zero means 20; negative
	// prints every row.
	Limit int
}

// SGR sequences. Setting NO_COLOR disables all of them.
const (
	sgrReset  = "\033[0m"
	sgrBold   = "\033[1m"
	sgrDim    = "\033[2m"
	sgrRed    = "\033[31m"
	sgrGreen  = "\033[32m"
	sgrYellow = "\033[33m"
)

// tierColor is green for T1-T2, yellow for T3-T6 and red for T7-T8.
func tierColor(l scoring.Label) string {
	switch r := l.Rank(); {
	case r == 0:
		return ""
	case r <= 2:
		return sgrGreen
	case r <= 6:
		return sgrYellow
	}
	return sgrRed
}

func paintBold(s string) string { return paint(s, sgrBold) }

func paintDim(s string) string { return paint(s, sgrDim) }

func paint(s, sgr string) string {
	if sgr == "" {
		return s
	}
	if _, off := os.LookupEnv("NO_COLOR"); off {
		return s
	}
	return sgr + s + sgrReset
}

func (r *TerminalRenderer) Render(w io.Writer, result *scoring.Result) error {
	fmt.Fprintf(w, "%s\n\n", paintBold(fmt.Sprintf("tierscore: %d entities, %d indicators, %d categories",
		len(result.Entities), len(result.Indicators), len(result.Categories))))

	for _, s := range Summarize(result) {
		fmt.Fprintf(w, "%s", paintBold(s.Name))
		if s.MeanScore != nil {
			fmt.Fprintf(w, "  %s", paintDim(fmt.Sprintf("mean raw score %.4f", *s.MeanScore)))
		}
		fmt.Fprintln(w)

		if len(s.Members) == 0 {
			fmt.Fprintf(w, "  %s\n\n", paintDim("no member indicators in this batch"))
			continue
		}

		var parts []string
		for _, l := range scoring.Labels {
			parts = append(parts, paint(fmt.Sprintf("%s:%d", l, s.Distribution[string(l)]), tierColor(l)))
		}
		parts = append(parts, paintDim(fmt.Sprintf("missing:%d", s.Distribution["missing"])))
		fmt.Fprintf(w, "  %s\n", strings.Join(parts, "  "))

		for _, cl := range s.Clusters {
			if len(cl) > 1 {
				fmt.Fprintf(w, "  %s %s\n", paint("●", sgrYellow), paintDim("correlated: "+strings.Join(cl, ", ")))
			}
		}
		fmt.Fprintln(w)
	}

	limit := r.Limit
	if limit == 0 {
		limit = 20
	}
	if limit < 0 || limit > len(result.Entities) {
		limit = len(result.Entities)
	}
	if limit == 0 {
		return nil
	}

	header := []string{fmt.Sprintf("%-14s", "taxcode")}
	for _, c := range result.Categories {
		header = append(header, fmt.Sprintf("%-*s", colWidth(c.Name), c.Name))
	}
	fmt.Fprintln(w, paintBold(strings.Join(header, " ")))

	for i := 0; i < limit; i++ {
		row := []string{fmt.Sprintf("%-14s", result.Entities[i].TaxCode)}
		for _, c := range result.Categories {
			l := c.Labels[i]
			text := string(l)
			if l == scoring.Missing {
				text = "-"
			}
			row = append(row, paint(fmt.Sprintf("%-*s", colWidth(c.Name), text), tierColor(l)))
		}
		fmt.Fprintln(w, strings.Join(row, " "))
	}
	if limit < len(result.Entities) {
		fmt.Fprintf(w, "%s\n", paintDim(fmt.Sprintf("... and %d more", len(result.Entities)-limit)))
	}
	return nil
}

func colWidth(name string) int {
	if len(name) < 4 {
		return 4
	}
	return len(name)
}
