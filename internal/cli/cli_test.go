package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "retype.yaml")
	data := "remote_driver: memory\ncache_path: " + filepath.Join(dir, "profile.db") + "\ntimezone: UTC\nshare_base_url: https://retype.example/\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestWhoamiIsStable(t *testing.T) {
	cfg := writeConfig(t)
	first, err := run(t, "--config", cfg, "whoami")
	if err != nil {
		t.Fatalf("whoami: %v", err)
	}
	if !strings.Contains(first, "Share: https://retype.example/?userId=") {
		t.Errorf("output = %q", first)
	}
	second, err := run(t, "--config", cfg, "whoami")
	if err != nil {
		t.Fatalf("second whoami: %v", err)
	}
	if first != second {
		t.Errorf("identity changed between runs:\n%s\n%s", first, second)
	}
}

func TestStatsEmptyProfile(t *testing.T) {
	cfg := writeConfig(t)
	out, err := run(t, "--config", cfg, "stats", "--week", "0")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	for _, want := range []string{"Today: 0 words", "Total: 0 words", "Mon", "Sun", "Week total: 0 words"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	if _, err := run(t, "--config", cfg, "stats", "--week", "1"); err == nil {
		t.Error("expected error for a future week")
	}
	statsWeek = 0
}

func TestRedeemUnknownCode(t *testing.T) {
	cfg := writeConfig(t)
	if _, err := run(t, "--config", cfg, "redeem", "NEZINOMAS"); err == nil {
		t.Error("expected error for unknown access code")
	}
}

func TestImportCSV(t *testing.T) {
	cfg := writeConfig(t)
	path := filepath.Join(t.TempDir(), "content.csv")
	data := "set_id,set_title,set_subtitle,kind,item_id,order,type,title,content\n" +
		"oras,Oras,,paragraph,p1,1,,,Oras nematomas\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	out, err := run(t, "--config", cfg, "import", path)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !strings.Contains(out, "1 sets created") || !strings.Contains(out, "1 paragraphs") {
		t.Errorf("output = %q", out)
	}
}
