package main

import (
	"os"
	"path/filepath"
	"testing"

	"launchsync/internal/state"
)

func TestLaunch_FailureStillClosesStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "pebble")
	code := launch([]string{"-env-file", "", "-state-backend", "pebble", "-pebble-dir", dir, "-mode", "bogus"})
	if code != 1 {
		t.Fatalf("want exit code 1, got %d", code)
	}
	// pebble holds a directory lock until Close
	st, err := state.NewPebbleStore(dir)
	if err != nil {
		t.Fatalf("store left open after failed run: %v", err)
	}
	_ = st.Close()
}

func TestLaunch_OnceFromFile(t *testing.T) {
	src := filepath.Join(t.TempDir(), "launches.json")
	body := `[{"flight_number":42,"mission_name":"Test Mission","rocket":{"rocket_name":"Falcon 9"},"launch_success":true,"upcoming":false,"payloads":[]}]`
	if err := os.WriteFile(src, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	code := launch([]string{"-env-file", "", "-state-backend", "memory", "-source-url", "file://" + src, "-mode", "once"})
	if code != 0 {
		t.Fatalf("want exit code 0, got %d", code)
	}

	empty := filepath.Join(t.TempDir(), "empty.json")
	if err := os.WriteFile(empty, []byte(`[]`), 0o644); err != nil {
		t.Fatal(err)
	}
	if code := launch([]string{"-env-file", "", "-state-backend", "memory", "-source-url", "file://" + empty}); code != 1 {
		t.Fatalf("empty source: want exit code 1, got %d", code)
	}
}

func TestLaunch_BadFlags(t *testing.T) {
	if code := launch([]string{"-no-such-flag"}); code != 2 {
		t.Fatalf("want exit code 2, got %d", code)
	}
	if code := launch([]string{"-env-file", "", "-state-backend", "etcd"}); code != 1 {
		t.Fatalf("invalid config: want exit code 1, got %d", code)
	}
}
