package scoring

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Normality is the Shapiro-Wilk diagnostic for one indicator's generic
// population. It is informational and never changes labels.
type Normality struct {
	N      int     `json:"n"`
	W      float64 `json:"w"`
	PValue float64 `json:"p_value"`
	Normal bool    `json:"normal"`
}

const (
	normalityMaxSample = 5000
	normalityAlpha     = 0.01
	normalitySeed      = 42
)

// CheckNormality runs Shapiro-Wilk on at most 5000 values drawn without
// replacement from values with a fixed seed.
func CheckNormality(values []float64) (Normality, error) {
	sample := values
	if len(values) > normalityMaxSample {
		rng := rand.New(rand.NewPCG(normalitySeed, normalitySeed))
		perm := rng.Perm(len(values))[:normalityMaxSample]
		sample = make([]float64, normalityMaxSample)
		for i, p := range perm {
			sample[i] = values[p]
		}
	}
	w, p, err := ShapiroWilk(sample)
	if err != nil {
		return Normality{}, err
	}
	return Normality{N: len(sample), W: w, PValue: p, Normal: p > normalityAlpha}, nil
}

// Coefficients of Royston's (1995) approximation, algorithm AS R94.
var (
	swC1 = []float64{0, 0.221157, -0.147981, -2.07119, 4.434685, -2.706056}
	swC2 = []float64{0, 0.042981, -0.293762, -1.752461, 5.682633, -3.582633}
	swC3 = []float64{0.544, -0.39978, 0.025054, -6.714e-4}
	swC4 = []float64{1.3822, -0.77857, 0.062767, -0.0020322}
	swC5 = []float64{-1.5861, -0.31082, -0.083751, 0.0038915}
	swC6 = []float64{-0.4803, -0.082676, 0.0030302}
	swG  = []float64{-2.273, 0.459}
)

// ShapiroWilk returns the W statistic and its p-value for 3 <= n <= 5000
// values.
func ShapiroWilk(values []float64) (w, p float64, err error) {
	n := len(values)
	if n < 3 {
		return 0, 0, fmt.Errorf("shapiro-wilk needs at least 3 values, got %d: %w", n, ErrTooFewValues)
	}
	if n > normalityMaxSample {
		return 0, 0, fmt.Errorf("shapiro-wilk accepts at most %d values, got %d", normalityMaxSample, n)
	}

	x := sortedCopy(values)
	rangeX := x[n-1] - x[0]
	if rangeX < 1e-19 {
		return 0, 0, fmt.Errorf("shapiro-wilk: zero range")
	}

	a := swCoefficients(n)

	// Antisymmetric weight vector over the order statistics.
	coef := make([]float64, n)
	for i := 0; i < n/2; i++ {
		coef[i] = -a[i]
		coef[n-1-i] = a[i]
	}

	var meanA, meanX float64
	for i := range x {
		meanA += coef[i]
		meanX += x[i] / rangeX
	}
	meanA /= float64(n)
	meanX /= float64(n)

	var ssa, ssx, sax float64
	for i := range x {
		da := coef[i] - meanA
		dx := x[i]/rangeX - meanX
		ssa += da * da
		ssx += dx * dx
		sax += da * dx
	}

	// 1-W, computed directly to avoid rounding when W is close to 1.
	ssassx := math.Sqrt(ssa * ssx)
	w1 := (ssassx - sax) * (ssassx + sax) / (ssa * ssx)
	w = 1 - w1

	an := float64(n)
	if n == 3 {
		const pi6, stqr = 1.90985931710274, 1.04719755119660
		p = pi6 * (math.Asin(math.Sqrt(w)) - stqr)
		return w, math.Max(p, 0), nil
	}

	y := math.Log(w1)
	var m, s float64
	if n <= 11 {
		gamma := swPoly(swG, an)
		if y >= gamma {
			return w, 1e-99, nil
		}
		y = -math.Log(gamma - y)
		m = swPoly(swC3, an)
		s = math.Exp(swPoly(swC4, an))
	} else {
		lx := math.Log(an)
		m = swPoly(swC5, lx)
		s = math.Exp(swPoly(swC6, lx))
	}
	p = distuv.Normal{Mu: m, Sigma: s}.Survival(y)
	return w, p, nil
}

// swCoefficients returns the upper half of the Shapiro-Wilk weights, largest
// first.
func swCoefficients(n int) []float64 {
	half := n / 2
	a := make([]float64, half)
	if n == 3 {
		a[0] = math.Sqrt2 / 2
		return a
	}

	an := float64(n)
	m := make([]float64, half)
	var summ2 float64
	for i := range m {
		m[i] = distuv.UnitNormal.Quantile((float64(i+1) - 0.375) / (an + 0.25))
		summ2 += m[i] * m[i]
	}
	summ2 *= 2
	ssumm2 := math.Sqrt(summ2)
	rsn := 1 / math.Sqrt(an)
	a1 := swPoly(swC1, rsn) - m[0]/ssumm2

	var first int
	var fac float64
	if n > 5 {
		first = 2
		a2 := -m[1]/ssumm2 + swPoly(swC2, rsn)
		fac = math.Sqrt((summ2 - 2*m[0]*m[0] - 2*m[1]*m[1]) / (1 - 2*a1*a1 - 2*a2*a2))
		a[1] = a2
	} else {
		first = 1
		fac = math.Sqrt((summ2 - 2*m[0]*m[0]) / (1 - 2*a1*a1))
	}
	a[0] = a1
	for i := first; i < half; i++ {
		a[i] = -m[i] / fac
	}
	return a
}

// swPoly evaluates c[0] + c[1]x + c[2]x^2 + ...
func swPoly(c []float64, x float64) float64 {
	out := 0.0
	for i := len(c) - 1; i >= 0; i-- {
		out = out*x + c[i]
	}
	return out
}
