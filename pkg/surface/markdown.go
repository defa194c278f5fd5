package surface

import (
	"fmt"
	"io"
	"strings"

	"github.com/tierscore/tierscore/pkg/scoring"
)

// MarkdownRenderer writes a Markdown summary suitable for reports and chat.
type MarkdownRenderer struct{}

func (r *MarkdownRenderer) Render(w io.Writer, result *scoring.Result) error {
	_, err := io.WriteString(w, BuildMarkdownSummary(result))
	return err
}

// BuildMarkdownSummary renders label distributions, weights and correlated
// clusters for every category.
func BuildMarkdownSummary(result *scoring.Result) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("## tierscore: %d entities\n\n", len(result.Entities)))

	sb.WriteString("### Distribution\n\n")
	sb.WriteString("| Category |")
	for _, l := range scoring.Labels {
		sb.WriteString(fmt.Sprintf(" %s |", l))
	}
	sb.WriteString(" Missing |\n|----------|")
	for range scoring.Labels {
		sb.WriteString("----|")
	}
	sb.WriteString("---------|\n")

	summaries := Summarize(result)
	for _, s := range summaries {
		sb.WriteString(fmt.Sprintf("| %s |", s.Name))
		for _, l := range scoring.Labels {
			sb.WriteString(fmt.Sprintf(" %d |", s.Distribution[string(l)]))
		}
		sb.WriteString(fmt.Sprintf(" %d |\n", s.Distribution["missing"]))
	}
	sb.WriteString("\n")

	sb.WriteString("### Weights\n\n")
	for _, s := range summaries {
		if len(s.Members) == 0 {
			sb.WriteString(fmt.Sprintf("- **%s**: _no member indicators in this batch_\n", s.Name))
			continue
		}
		var parts []string
		for _, iw := range s.Weights {
			parts = append(parts, fmt.Sprintf("%s=%.3g", iw.Indicator, iw.Weight))
		}
		sb.WriteString(fmt.Sprintf("- **%s**: %s\n", s.Name, strings.Join(parts, ", ")))
		for _, cl := range s.Clusters {
			if len(cl) > 1 {
				sb.WriteString(fmt.Sprintf("  - correlated: %s\n", strings.Join(cl, ", ")))
			}
		}
		if len(s.Excluded) > 0 {
			sb.WriteString(fmt.Sprintf("  - excluded (no direction): %s\n", strings.Join(s.Excluded, ", ")))
		}
	}

	var skewed []string
	for _, ind := range result.Indicators {
		if ind.Normality != nil && !ind.Normality.Normal {
			skewed = append(skewed, ind.Indicator)
		}
	}
	if len(skewed) > 0 {
		sb.WriteString("\n### Non-normal indicators\n\n")
		sb.WriteString(strings.Join(skewed, ", "))
		sb.WriteString("\n")
	}

	return sb.String()
}
