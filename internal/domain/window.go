package domain

import "time"

const (
	// DefaultMaxItems bounds how many items one session retains.
	DefaultMaxItems = 100
	// DefaultMaxAge is how old an item may grow before cleanup drops it.
	DefaultMaxAge = 24 * time.Hour
	// DefaultMinImportance is the floor below which items are dropped at cleanup.
	DefaultMinImportance = 0.1
	// DefaultImportance is assigned to items added without an explicit importance.
	DefaultImportance = 1.0
)

// ContextWindow is the retention policy for one session: how many items
// it may hold, how old they may grow, and the importance floor below
// which cleanup discards them.
type ContextWindow struct {
	MaxItems      int           `json:"max_items"`
	MaxAge        time.Duration `json:"max_age"`
	MinImportance float64       `json:"min_importance"`
}

// DefaultWindow returns the stock retention policy.
func DefaultWindow() ContextWindow {
	return ContextWindow{
		MaxItems:      DefaultMaxItems,
		MaxAge:        DefaultMaxAge,
		MinImportance: DefaultMinImportance,
	}
}

// Normalized makes a window safe to enforce. A fully zero window becomes
// DefaultWindow. A partially specified one gets defaults for MaxItems and
// MaxAge but keeps its importance floor, so an explicit floor of zero
// stays zero.
func (w ContextWindow) Normalized() ContextWindow {
	if w == (ContextWindow{}) {
		return DefaultWindow()
	}
	if w.MaxItems <= 0 {
		w.MaxItems = DefaultMaxItems
	}
	if w.MaxAge <= 0 {
		w.MaxAge = DefaultMaxAge
	}
	if w.MinImportance < 0 {
		w.MinImportance = 0
	}
	if w.MinImportance > 1 {
		w.MinImportance = 1
	}
	return w
}

// ShouldRetain is the single retention predicate: an item survives
// cleanup only while it is unexpired, young enough, and important enough.
func (w ContextWindow) ShouldRetain(item *ContextItem, now time.Time) bool {
	if item.IsExpired(now) {
		return false
	}
	if item.Age(now) > w.MaxAge {
		return false
	}
	return item.Importance >= w.MinImportance
}
