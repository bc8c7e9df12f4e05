package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("KOSPIFEED_TEST_VAR=from-file\nKOSPIFEED_TEST_KEEP=from-file\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("KOSPIFEED_TEST_KEEP", "from-env")
	t.Setenv("KOSPIFEED_TEST_VAR", "")
	os.Unsetenv("KOSPIFEED_TEST_VAR")

	if err := loadDotEnv(path); err != nil {
		t.Fatalf("loadDotEnv: %v", err)
	}
	if got := os.Getenv("KOSPIFEED_TEST_VAR"); got != "from-file" {
		t.Errorf("KOSPIFEED_TEST_VAR: got %q", got)
	}
	if got := os.Getenv("KOSPIFEED_TEST_KEEP"); got != "from-env" {
		t.Errorf("existing variable overwritten: got %q", got)
	}
}

func TestLoadDotEnvMissing(t *testing.T) {
	if err := loadDotEnv(filepath.Join(t.TempDir(), "absent.env")); err == nil {
		t.Error("expected error for explicit missing file")
	}

	wd, _ := os.Getwd()
	t.Cleanup(func() { os.Chdir(wd) })
	os.Chdir(t.TempDir())
	if err := loadDotEnv(""); err != nil {
		t.Errorf("missing ./.env should be ignored: %v", err)
	}
}

func TestPrintJSONKeepsMarkup(t *testing.T) {
	var buf bytes.Buffer
	if err := printJSON(&buf, map[string]string{"title": "A & B <c>"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"A & B <c>"`) {
		t.Errorf("output: %s", buf.String())
	}
}
