package stock

import (
	"context"
	"sort"

	"github.com/inkworks/inkworks/internal/orders"
)

// Ledger keeps product counters in step with order lines. It writes no
// movement rows, so order consumption and manual movements never overlap.
type Ledger struct {
	repo RepositoryPort
}

// NewLedger builds the order line listener.
func NewLedger(repo RepositoryPort) *Ledger {
	return &Ledger{repo: repo}
}

var _ orders.LineListener = (*Ledger)(nil)

// OrderLineChanged applies the stock deltas implied by a line change.
func (l *Ledger) OrderLineChanged(ctx context.Context, evt orders.LineChanged) error {
	deltas := Deltas(evt)
	ids := make([]int64, 0, len(deltas))
	for id := range deltas {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if deltas[id] == 0 {
			continue
		}
		if err := l.repo.ApplyOrderDelta(ctx, id, deltas[id]); err != nil {
			return err
		}
	}
	return nil
}

// Deltas maps product ids to the stock change an order line event implies.
// Consuming stock is negative.
func Deltas(evt orders.LineChanged) map[int64]int {
	out := make(map[int64]int, 2)
	if evt.Before != nil && evt.Before.ProductID != nil {
		out[*evt.Before.ProductID] += evt.Before.Quantity
	}
	if evt.After != nil && evt.After.ProductID != nil {
		out[*evt.After.ProductID] -= evt.After.Quantity
	}
	return out
}
