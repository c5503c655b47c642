package powerevent

import "testing"

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in   string
		want Status
	}{
		{"Charging", StatusCharging},
		{"charging", StatusCharging},
		{"Full", StatusFull},
		{"Discharging", StatusDischarging},
		{"Not charging", StatusNotCharging},
		{"not-charging", StatusNotCharging},
		{"Unknown", StatusUnknown},
		{"", StatusUnknown},
		{"bogus", StatusUnknown},
	}
	for _, tt := range tests {
		if got := ParseStatus(tt.in); got != tt.want {
			t.Errorf("ParseStatus(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestStatusIsCharging(t *testing.T) {
	for s, want := range map[Status]bool{
		StatusCharging:    true,
		StatusFull:        true,
		StatusDischarging: false,
		StatusNotCharging: false,
		StatusUnknown:     false,
	} {
		if got := s.IsCharging(); got != want {
			t.Errorf("%v.IsCharging() = %v, want %v", s, got, want)
		}
	}
}

func TestEventInt(t *testing.T) {
	e := Event{
		KeyLevel:   "73",
		KeyScale:   " 100 ",
		KeyVoltage: "abc",
	}
	if got := e.Level(); got != 73 {
		t.Errorf("Level() = %d, want 73", got)
	}
	if got := e.Scale(); got != 100 {
		t.Errorf("Scale() = %d, want 100", got)
	}
	if got := e.Voltage(); got != Missing {
		t.Errorf("Voltage() = %d, want Missing", got)
	}
	if got := e.CurrentNow(); got != Missing {
		t.Errorf("CurrentNow() = %d, want Missing", got)
	}
	if got := e.Status(); got != StatusUnknown {
		t.Errorf("Status() = %v, want unknown", got)
	}
}

func TestNew(t *testing.T) {
	e := New(50, 100, StatusDischarging, -200000, 4000)
	if e.Level() != 50 || e.Scale() != 100 || e.CurrentNow() != -200000 || e.Voltage() != 4000 {
		t.Errorf("unexpected event fields: %v", e)
	}
	if e.Status() != StatusDischarging {
		t.Errorf("Status() = %v, want discharging", e.Status())
	}
}
