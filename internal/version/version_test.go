package version

import (
	"strings"
	"testing"
)

func TestVersion_DefaultValues(t *testing.T) {
	if Version == "" {
		t.Error("Version should have a default value")
	}
	if strings.Contains(Version, "\x1b[") {
		t.Errorf("Version must be plain text, got %q", Version)
	}
}

func TestGet_PrefersLdflags(t *testing.T) {
	origVersion, origCommit, origDate := Version, GitCommit, BuildDate
	t.Cleanup(func() {
		Version, GitCommit, BuildDate = origVersion, origCommit, origDate
	})

	Version = " 1.2.3 "
	GitCommit = "abc123def456"
	BuildDate = "2024-01-15T10:30:00Z"

	info := Get()
	if info.Version != "1.2.3" {
		t.Errorf("Version = %q, want %q", info.Version, "1.2.3")
	}
	if info.GitCommit != "abc123def456" {
		t.Errorf("GitCommit = %q, want %q", info.GitCommit, "abc123def456")
	}
	if info.BuildDate != "2024-01-15T10:30:00Z" {
		t.Errorf("BuildDate = %q, want %q", info.BuildDate, "2024-01-15T10:30:00Z")
	}
}

func TestGet_EmptyVersionIsDev(t *testing.T) {
	orig := Version
	t.Cleanup(func() { Version = orig })

	Version = ""
	if got := Get().Version; got != "dev" {
		t.Errorf("Version = %q, want dev", got)
	}
}

func TestColored(t *testing.T) {
	tests := []struct {
		in      string
		enabled bool
		plain   bool
	}{
		{"1.2.3", true, false},
		{"0.3.0-dev", true, false},
		{"0.3.0-dev", false, true},
		{"dev", true, true},
		{"1.2", true, true},
	}
	for _, tt := range tests {
		got := Colored(tt.in, tt.enabled)
		if tt.plain && got != tt.in {
			t.Errorf("Colored(%q, %v) = %q, want unchanged", tt.in, tt.enabled, got)
		}
		if !tt.plain {
			if !strings.Contains(got, "\x1b[") {
				t.Errorf("Colored(%q) = %q, want ANSI colors", tt.in, got)
			}
			if _, suffix, ok := strings.Cut(tt.in, "-"); ok && !strings.HasSuffix(got, "-"+suffix) {
				t.Errorf("Colored(%q) = %q lost suffix", tt.in, got)
			}
		}
	}
}

func BenchmarkColored(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = Colored("1.2.3-rc.1", true)
	}
}
