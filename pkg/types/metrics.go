package types

// Metrics is the daemon's view of the published cells.
// This struct is shared between the daemon and client packages.
type Metrics struct {
	Percent      string `json:"percent"`
	Wattage      string `json:"wattage"`
	WattageState string `json:"wattageState"`
	// Events is how many power events the daemon has processed.
	Events uint64 `json:"events"`
}
