package matchingengine

import (
	"container/list"

	rbt "github.com/emirpasic/gods/v2/trees/redblacktree"

	"github.com/marketsim/xsim/internal/model"
)

// book holds one side of the order book: a red-black tree keyed by
// price, each node a FIFO queue of resting orders at that price. The
// bid tree sorts descending and the ask tree ascending, so "best price
// first" is just in-order iteration on either side.
type book struct {
	levels *rbt.Tree[int64, *list.List]
}

func newBidBook() *book {
	return &book{levels: rbt.NewWith[int64, *list.List](descendingInt64)}
}

func newAskBook() *book {
	return &book{levels: rbt.NewWith[int64, *list.List](ascendingInt64)}
}

func descendingInt64(a, b int64) int {
	switch {
	case a > b:
		return -1
	case a < b:
		return 1
	default:
		return 0
	}
}

func ascendingInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// top returns the best (first-in-sort-order) resting order, or nil if
// this side of the book is empty.
func (bk *book) top() *Order {
	it := bk.levels.Iterator()
	if !it.Next() {
		return nil
	}
	queue := it.Value()
	if queue.Len() == 0 {
		return nil
	}
	return queue.Front().Value.(*Order)
}

// append rests ord at its price, creating the level if necessary, and
// returns the list.Element so the caller can store it on the order for
// O(1) later removal.
func (bk *book) append(ord *Order) *list.Element {
	key := int64(ord.Price)
	queue, ok := bk.levels.Get(key)
	if !ok {
		queue = list.New()
		bk.levels.Put(key, queue)
	}
	return queue.PushBack(ord)
}

// remove splices ord out of its resting queue, deleting the price level
// entirely if it is now empty.
func (bk *book) remove(ord *Order) {
	key := int64(ord.Price)
	queue, ok := bk.levels.Get(key)
	if !ok {
		return
	}
	queue.Remove(ord.elem)
	ord.elem = nil
	if queue.Len() == 0 {
		bk.levels.Remove(key)
	}
}

// snapshot returns one (price, aggregate-qty) Level per populated price
// level, in the tree's natural (already-correctly-sided) order.
func (bk *book) snapshot() []Level {
	var out []Level
	it := bk.levels.Iterator()
	for it.Next() {
		queue := it.Value()
		var total model.Qty
		for e := queue.Front(); e != nil; e = e.Next() {
			total += e.Value.(*Order).Remaining
		}
		out = append(out, Level{Price: model.Price(it.Key()), Qty: total})
	}
	return out
}

func (bk *book) empty() bool {
	return bk.levels.Empty()
}
