package batch

import (
	"fmt"
	"math/rand/v2"
	"strconv"
)

type valueRange struct{ lo, hi float64 }

// sampleRanges gives plausible value ranges per indicator family.
var sampleRanges = map[string]valueRange{
	"STD_RTD1":   {0, 1},
	"STD_RTD71":  {0, 1},
	"STD_RTD8":   {-0.5, 0.5},
	"STD_RTD9":   {-0.5, 0.5},
	"STD_RTD26":  {-0.5, 0.5},
	"STD_RTD82":  {-0.5, 0.5},
	"STD_RTD83":  {-0.5, 0.5},
	"STD_RTD84":  {-0.5, 0.5},
	"STD_RTD85":  {-0.5, 0.5},
	"STD_RTD86":  {-0.5, 0.5},
	"STD_RTD11":  {-1, 3},
	"STD_RTD28":  {-1, 3},
	"STD_RTD87":  {-1, 3},
	"STD_RTD88":  {-1, 3},
	"STD_RTD89":  {-1, 3},
	"STD_RTD13":  {1000, 1000000},
	"STD_RTD14":  {500, 500000},
	"STD_RTD31":  {1000, 800000},
	"STD_RTD60":  {-5000, 100000},
	"STD_RTD61":  {-10000, 20000},
	"STD_RTD97":  {-2, 20},
	"STD_RTD77":  {-0.2, 0.4},
	"STD_RTD96":  {-3, 12},
	"STD_RTD148": {-3, 15},
}

// SampleIndicators is the indicator set Sample generates by default.
var SampleIndicators = []string{
	"STD_RTD146", "STD_RTD71", "STD_RTD96", "STD_RTD97", "STD_RTD98",
	"STD_RTD99", "STD_RTD1", "STD_RTD72", "STD_RTD148",
	"STD_RTD74", "STD_RTD76", "STD_RTD77", "STD_RTD78", "STD_RTD81", "STD_RTD64", "STD_RTD75",
	"STD_RTD13", "STD_RTD14", "STD_RTD31",
	"STD_RTD26", "STD_RTD8", "STD_RTD82", "STD_RTD83", "STD_RTD84", "STD_RTD85", "STD_RTD86", "STD_RTD9",
	"STD_RTD11", "STD_RTD28", "STD_RTD87", "STD_RTD88", "STD_RTD89",
	"STD_RTD118", "STD_RTD92", "STD_RTD93", "STD_RTD94", "STD_RTD95", "STD_RTD147",
	"STD_RTD60", "STD_RTD61",
}

// Sample generates a reproducible synthetic batch of n companies. The first
// five indicators have roughly 10% of their values missing.
func Sample(n int, seed uint64, indicators []string) *Batch {
	if len(indicators) == 0 {
		indicators = SampleIndicators
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	years := []int{2020, 2021, 2022, 2023}

	b := &Batch{
		Columns:  append([]string{ColTaxCode, ColSector, ColEmployees, ColYear, ColReportLength}, indicators...),
		Entities: make([]Entity, n),
	}
	for i := range b.Entities {
		fields := make(map[string]any, len(indicators)+2)
		fields[ColEmployees] = float64(10 + rng.IntN(990))
		fields[ColReportLength] = float64(6 + rng.IntN(18))
		for j, ind := range indicators {
			if j < 5 && rng.Float64() < 0.1 {
				fields[ind] = nil
				continue
			}
			r, ok := sampleRanges[ind]
			if !ok {
				r = valueRange{0, 10}
			}
			fields[ind] = r.lo + rng.Float64()*(r.hi-r.lo)
		}
		b.Entities[i] = Entity{
			TaxCode: fmt.Sprintf("TC%06d", i+1),
			Sector:  strconv.Itoa(1 + rng.IntN(49)),
			Year:    years[rng.IntN(len(years))],
			Fields:  fields,
		}
	}
	return b
}
