package orders

import "context"

// LineSnapshot is the stock relevant part of an order line.
type LineSnapshot struct {
	ProductID *int64
	Quantity  int
}

// LineChanged is published after a committed order line change. Before is nil
// for new lines and After is nil for deleted ones.
type LineChanged struct {
	OrderID int64
	LineID  int64
	Before  *LineSnapshot
	After   *LineSnapshot
}

// LineListener reacts to order line changes. Listeners run synchronously, in
// registration order, after the change is committed.
type LineListener interface {
	OrderLineChanged(ctx context.Context, evt LineChanged) error
}

// LineListenerFunc adapts a function to LineListener.
type LineListenerFunc func(ctx context.Context, evt LineChanged) error

// OrderLineChanged calls f.
func (f LineListenerFunc) OrderLineChanged(ctx context.Context, evt LineChanged) error {
	return f(ctx, evt)
}

func snapshotOf(l Line) *LineSnapshot {
	return &LineSnapshot{ProductID: l.ProductID, Quantity: l.Quantity}
}
