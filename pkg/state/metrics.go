package state

// Metrics is the published pair. The two cells are updated independently and
// may be observed in a transiently mixed combination.
type Metrics struct {
	Percent *Cell
	Wattage *Cell
}

// NewMetrics returns a Metrics with both cells set to the unknown placeholder.
func NewMetrics() *Metrics {
	return &Metrics{
		Percent: NewCell(),
		Wattage: NewCell(),
	}
}

// Snapshot is a point-in-time copy of both cells.
type Snapshot struct {
	Percent string `json:"percent"`
	Wattage string `json:"wattage"`
}

// Snapshot reads both cells.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		Percent: m.Percent.Get(),
		Wattage: m.Wattage.Get(),
	}
}
