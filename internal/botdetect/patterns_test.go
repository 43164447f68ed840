package botdetect

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultPatternMatches(t *testing.T) {
	p := DefaultPatterns()
	matching := []string{
		"user123", "name12345", "random_123", "bot_army", "id9934871x",
		"ab123", "test_account", "spamlord", "fake_fan",
	}
	for _, username := range matching {
		if !p.Match(username) {
			t.Fatalf("expected %q to match a generic pattern", username)
		}
	}

	clean := []string{"maria_lopez", "gnarly_dave", "SunsetChaser", "el_tigre"}
	for _, username := range clean {
		if p.Match(username) {
			t.Fatalf("expected %q not to match", username)
		}
	}
}

func TestLoadFileReplacesPatterns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patterns.txt")
	content := "# custom shapes\n^shill_\n\n^promo\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write patterns: %v", err)
	}

	p := DefaultPatterns()
	if err := p.LoadFile(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if !p.Match("shill_4u") || !p.Match("promoking") {
		t.Fatalf("expected custom patterns to match")
	}
	if p.Match("user123") {
		t.Fatalf("expected defaults to be replaced")
	}
}

func TestLoadFileRejectsInvalidRegexp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patterns.txt")
	if err := os.WriteFile(path, []byte("^ok\n[broken\n"), 0o600); err != nil {
		t.Fatalf("write patterns: %v", err)
	}

	p := DefaultPatterns()
	if err := p.LoadFile(path); err == nil {
		t.Fatalf("expected error for invalid regexp")
	}
	// Previous set must stay active after a failed load.
	if !p.Match("user123") {
		t.Fatalf("expected defaults to survive failed load")
	}
}

func TestLoadFileRejectsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patterns.txt")
	if err := os.WriteFile(path, []byte("# nothing here\n"), 0o600); err != nil {
		t.Fatalf("write patterns: %v", err)
	}
	if err := DefaultPatterns().LoadFile(path); err == nil {
		t.Fatalf("expected error for empty pattern file")
	}
}
