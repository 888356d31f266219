package logseq

import "testing"

func TestParseVersion(t *testing.T) {
	tests := []struct {
		output string
		want   string
	}{
		{"0.4.1\n", "v0.4.1"},
		{"logseq-cli version 1.2.3-beta.1", "v1.2.3-beta.1"},
		{"node v20.1.0 / cli 0.2.0", "v20.1.0"},
		{"unknown", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ParseVersion(tt.output); got != tt.want {
			t.Errorf("ParseVersion(%q) = %q, want %q", tt.output, got, tt.want)
		}
	}
}

func TestVersionAtLeast(t *testing.T) {
	tests := []struct {
		version, min string
		want         bool
	}{
		{"v0.4.1", "v0.4.0", true},
		{"v0.4.1", "v0.4.1", true},
		{"v0.3.9", "v0.4.0", false},
		{"v0.4.1", "", true},
		{"", "", false},
		{"garbage", "v0.1.0", false},
	}
	for _, tt := range tests {
		if got := VersionAtLeast(tt.version, tt.min); got != tt.want {
			t.Errorf("VersionAtLeast(%q, %q) = %v, want %v", tt.version, tt.min, got, tt.want)
		}
	}
}
