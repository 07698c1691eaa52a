package plugin

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

// markerPlugin writes a plugin that appends its stdin to a marker file.
func markerPlugin(t *testing.T, dir, name string, events []string) string {
	t.Helper()

	marker := filepath.Join(dir, name+".out")
	pluginDir := writePlugin(t, dir, Manifest{Name: name, Executable: "run.sh", Events: events})
	script := "#!/bin/sh\ncat >> " + marker + "\necho '{\"success\":true}'\n"
	if err := os.WriteFile(filepath.Join(pluginDir, "run.sh"), []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	return marker
}

func TestDispatcher_Dispatch(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	dir := t.TempDir()
	alertMarker := markerPlugin(t, dir, "on-alert", []string{EventAlert})
	stateMarker := markerPlugin(t, dir, "on-state", []string{EventStateChange})

	manager := NewManager(dir)
	if err := manager.Discover(); err != nil {
		t.Fatal(err)
	}

	d := NewDispatcher(manager, NewExecutor(5*time.Second))
	defer d.Close()

	if n := d.Dispatch(Request{Event: EventAlert, Open: true}); n != 1 {
		t.Fatalf("expected 1 plugin started, got %d", n)
	}
	d.Wait()

	data, err := os.ReadFile(alertMarker)
	if err != nil {
		t.Fatalf("alert plugin did not run: %v", err)
	}
	if !strings.Contains(string(data), `"event":"alert"`) {
		t.Errorf("unexpected payload: %s", data)
	}

	if _, err := os.Stat(stateMarker); !os.IsNotExist(err) {
		t.Error("state plugin should not have run for an alert")
	}
}

func TestDispatcher_NoSubscribers(t *testing.T) {
	d := NewDispatcher(NewManager(t.TempDir()), NewExecutor(time.Second))
	defer d.Close()

	if n := d.Dispatch(Request{Event: EventAlert}); n != 0 {
		t.Errorf("expected 0 plugins started, got %d", n)
	}
}

func TestDispatcher_Close(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	dir := t.TempDir()
	pluginDir := writePlugin(t, dir, Manifest{Name: "slow", Executable: "run.sh", Events: []string{EventAlert}})
	if err := os.WriteFile(filepath.Join(pluginDir, "run.sh"), []byte("#!/bin/sh\nexec sleep 10\n"), 0755); err != nil {
		t.Fatal(err)
	}

	manager := NewManager(dir)
	if err := manager.Discover(); err != nil {
		t.Fatal(err)
	}

	d := NewDispatcher(manager, NewExecutor(time.Minute))
	if n := d.Dispatch(Request{Event: EventAlert}); n != 1 {
		t.Fatalf("expected 1 plugin started, got %d", n)
	}

	start := time.Now()
	d.Close()
	if time.Since(start) > 5*time.Second {
		t.Error("Close did not cancel the running hook")
	}

	if n := d.Dispatch(Request{Event: EventAlert}); n != 0 {
		t.Errorf("expected no dispatch after Close, got %d", n)
	}
}
