package pricing

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

const (
	DefaultFeeRate = 0.22
	DefaultBandMin = 0.10
	DefaultBandMax = 0.20
)

// DefaultSaleCandidates are the sale prices offered on the marketplace, ascending.
var DefaultSaleCandidates = []int{1900, 2900, 3900}

// Combo is a recommended sale: SaleQty units sold together for SalePrice.
type Combo struct {
	SalePrice int
	SaleQty   int
	Margin    float64
}

// Optimizer picks a sale price and quantity for a per-unit cost under a margin band.
type Optimizer struct {
	Candidates []int
	FeeRate    float64
	BandMin    float64
	BandMax    float64
}

func NewOptimizer() *Optimizer {
	return &Optimizer{
		Candidates: append([]int(nil), DefaultSaleCandidates...),
		FeeRate:    DefaultFeeRate,
		BandMin:    DefaultBandMin,
		BandMax:    DefaultBandMax,
	}
}

// Feasible returns, for each candidate price, the largest quantity that still leaves
// BandMin margin on net proceeds, with the realized margin. Prices that cannot sell
// a single unit are omitted.
func (o *Optimizer) Feasible(unitCost float64) []Combo {
	if unitCost <= 0 {
		return nil
	}

	var out []Combo
	for _, p := range o.Candidates {
		net := float64(p) * (1 - o.FeeRate)
		if net <= 0 {
			continue
		}
		q := int(math.Floor((1 - o.BandMin) * net / unitCost))
		if q < 1 {
			continue
		}
		out = append(out, Combo{
			SalePrice: p,
			SaleQty:   q,
			Margin:    1 - float64(q)*unitCost/net,
		})
	}
	return out
}

// Choose returns the highest in-band margin (lowest price on ties). Without an in-band
// option it returns the smallest overshoot above BandMax (lowest price on ties).
// ok is false when nothing qualifies; the returned combo is then zero.
func (o *Optimizer) Choose(unitCost float64) (Combo, bool) {
	feasible := o.Feasible(unitCost)
	if len(feasible) == 0 {
		return Combo{}, false
	}

	var inBand, above []Combo
	for _, c := range feasible {
		switch {
		case c.Margin >= o.BandMin && c.Margin <= o.BandMax:
			inBand = append(inBand, c)
		case c.Margin > o.BandMax:
			above = append(above, c)
		}
	}

	if len(inBand) > 0 {
		sort.SliceStable(inBand, func(i, j int) bool {
			if inBand[i].Margin != inBand[j].Margin {
				return inBand[i].Margin > inBand[j].Margin
			}
			return inBand[i].SalePrice < inBand[j].SalePrice
		})
		return inBand[0], true
	}

	if len(above) > 0 {
		sort.SliceStable(above, func(i, j int) bool {
			ei, ej := above[i].Margin-o.BandMax, above[j].Margin-o.BandMax
			if ei != ej {
				return ei < ej
			}
			return above[i].SalePrice < above[j].SalePrice
		})
		return above[0], true
	}

	return Combo{}, false
}

// RoundMargin rounds a margin to 4 decimal digits, half-to-even, for reporting.
func RoundMargin(m float64) float64 {
	return decimal.NewFromFloat(m).RoundBank(4).InexactFloat64()
}
