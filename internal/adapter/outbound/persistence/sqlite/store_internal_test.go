package sqlite

import (
	"strings"
	"testing"
)

func TestBuildDSN(t *testing.T) {
	dsn, err := buildDSN(Config{Path: "/data/serviceops.db", PragmaJournalMode: "WAL", PragmaBusyTimeout: 5000})
	if err != nil {
		t.Fatalf("buildDSN: %v", err)
	}
	if !strings.HasPrefix(dsn, "/data/serviceops.db?") {
		t.Errorf("dsn = %q", dsn)
	}
	for _, want := range []string{"_journal_mode=wal", "_busy_timeout=5000", "_txlock=immediate"} {
		if !strings.Contains(dsn, want) {
			t.Errorf("dsn %q missing %q", dsn, want)
		}
	}
}

func TestBuildDSN_OmitsUnsetPragmas(t *testing.T) {
	dsn, err := buildDSN(Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("buildDSN: %v", err)
	}
	if strings.Contains(dsn, "_journal_mode") || strings.Contains(dsn, "_busy_timeout") {
		t.Errorf("unexpected pragmas in %q", dsn)
	}
}

func TestBuildDSN_RejectsJournalMode(t *testing.T) {
	if _, err := buildDSN(Config{Path: ":memory:", PragmaJournalMode: "bogus"}); err == nil {
		t.Error("expected error for invalid journal mode")
	}
}
