package config

import "github.com/tierscore/tierscore/pkg/scoring"

// DefaultCategories returns the six financial categories.
func DefaultCategories() []scoring.Category {
	return []scoring.Category{
		{Name: "Leverage_Debt", Indicators: []string{
			"STD_RTD146", // FFO / borrowings
			"STD_RTD71",  // borrowings / equity
			"STD_RTD96",  // net debt / EBITDA
			"STD_RTD97",  // EBITDA / interest expense
			"STD_RTD98",  // CFO / total borrowings
			"STD_RTD99",  // operating profit / interest
			"STD_RTD1",   // total assets / equity
			"STD_RTD72",  // EBIT / borrowings
			"STD_RTD148", // total borrowings / EBITDA
		}},
		{Name: "Efficiency", Indicators: []string{
			"STD_RTD74", // receivables turnover
			"STD_RTD76", // working capital turnover
			"STD_RTD77", // EBITDA / total assets
			"STD_RTD78", // total asset turnover
			"STD_RTD81", // cash conversion cycle
			"STD_RTD64", // payables turnover
			"STD_RTD75", // inventory turnover
		}},
		{Name: "Scale", Indicators: []string{
			"STD_RTD13", // total assets
			"STD_RTD14", // equity
			"STD_RTD31", // operating revenue TTM
			"empl_qtty",
		}},
		{Name: "Profitability", Indicators: []string{
			"STD_RTD26", // EBITDA margin
			"STD_RTD8",  // ROA
			"STD_RTD82", // ROCE
			"STD_RTD83", // EBIT margin
			"STD_RTD84", // operating margin
			"STD_RTD85", // gross margin
			"STD_RTD86", // net margin
			"STD_RTD9",  // ROE
		}},
		{Name: "Growth", Indicators: []string{
			"STD_RTD11", // net profit YoY
			"STD_RTD28", // revenue TTM YoY
			"STD_RTD87", // EBIT TTM YoY
			"STD_RTD88", // asset growth
			"STD_RTD89", // equity growth
		}},
		{Name: "Liquidity", Indicators: []string{
			"STD_RTD118", // cash flow liquidity
			"STD_RTD92",  // current ratio
			"STD_RTD93",  // quick ratio
			"STD_RTD94",  // cash ratio
			"STD_RTD95",  // CFO / current liabilities
			"STD_RTD147", // (FFO + cash) / short-term borrowings
		}},
	}
}

// DefaultDirections returns the direction tag of every default indicator.
func DefaultDirections() map[string]string {
	d := make(map[string]string)
	for _, c := range DefaultCategories() {
		for _, ind := range c.Indicators {
			d[ind] = "high_good"
		}
	}
	for _, ind := range []string{
		"STD_RTD71", "STD_RTD96", "STD_RTD1", "STD_RTD148", // leverage
		"STD_RTD81", "STD_RTD64", // cycle and payables
	} {
		d[ind] = "low_good"
	}
	return d
}
