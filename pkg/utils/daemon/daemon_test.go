package daemon

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func withTempUnit(t *testing.T) *[][]string {
	t.Helper()

	oldPath, oldCtl := unitPath, systemctl
	unitPath = filepath.Join(t.TempDir(), "system", serviceName)
	var calls [][]string
	systemctl = func(args ...string) error {
		calls = append(calls, args)
		return nil
	}
	t.Cleanup(func() { unitPath, systemctl = oldPath, oldCtl })
	return &calls
}

func TestRenderUnit(t *testing.T) {
	got := renderUnit("/usr/local/bin/battwatch", "/etc/battwatch.json", "/run/battwatch.sock")
	want := "ExecStart=/usr/local/bin/battwatch daemon --config=/etc/battwatch.json --daemon-socket=/run/battwatch.sock\n"
	if !strings.Contains(got, want) {
		t.Errorf("unit does not contain %q:\n%s", want, got)
	}
	if strings.Contains(got, "/path/to/") {
		t.Errorf("unit still has placeholders:\n%s", got)
	}
}

func TestWriteAndRemoveUnit(t *testing.T) {
	calls := withTempUnit(t)

	if err := writeUnit("/bin/battwatch", "/etc/battwatch.json", "/run/battwatch.sock"); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(unitPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), "ExecStart=/bin/battwatch daemon") {
		t.Errorf("unexpected unit:\n%s", b)
	}

	if err := Uninstall(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(unitPath); !os.IsNotExist(err) {
		t.Errorf("unit still present, stat error = %v", err)
	}
	// A second uninstall finds nothing to remove.
	if err := removeUnit(); err != nil {
		t.Errorf("removeUnit() on missing unit = %v", err)
	}

	want := [][]string{{"disable", "--now", serviceName}, {"daemon-reload"}}
	if !reflect.DeepEqual(*calls, want) {
		t.Errorf("systemctl calls = %v, want %v", *calls, want)
	}
}
