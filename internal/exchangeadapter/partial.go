package exchangeadapter

import (
	"github.com/shopspring/decimal"

	"github.com/marketsim/xsim/internal/model"
)

// partialFillState is the adapter-owned wide accumulator for one engine
// id's cumulative quantity and average price across fill segments.
//
// notional is kept as a shopspring/decimal value rather than a plain
// int64 because a segment's price * qty, both already scaled by
// model.Scale, carries a combined scale of model.Scale squared, which
// overflows 64 bits well within plausible order sizes (scaled price
// 10^13 times qty 10^6 is 10^19, above 2^63). avgPrice =
// notional / qtySoFar lands back in the shared integer scale with no
// further conversion: the extra scale factor picked up by multiplying
// two scaled values cancels against the one lost by dividing by a
// qtySoFar that is itself scaled.
type partialFillState struct {
	qtySoFar model.Qty
	notional decimal.Decimal
}

func segmentNotional(price model.Price, qty model.Qty) decimal.Decimal {
	return decimal.NewFromInt(int64(price)).Mul(decimal.NewFromInt(int64(qty)))
}

func (s *partialFillState) avgPrice() model.Price {
	if s.qtySoFar == 0 {
		return 0
	}
	avg := s.notional.DivRound(decimal.NewFromInt(int64(s.qtySoFar)), 0)
	return model.Price(avg.IntPart())
}

// foldSegment folds one matched segment into the accumulator and returns
// the resulting cumulative quantity and average price.
func (s *partialFillState) foldSegment(price model.Price, qty model.Qty) (cumulative model.Qty, avg model.Price) {
	s.qtySoFar += qty
	s.notional = s.notional.Add(segmentNotional(price, qty))
	return s.qtySoFar, s.avgPrice()
}
