package logseq

import (
	"regexp"

	"golang.org/x/mod/semver"
)

var versionPattern = regexp.MustCompile(`\d+\.\d+\.\d+(?:-[0-9A-Za-z.-]+)?`)

// ParseVersion finds the first semantic version in `--version` output and
// returns it in canonical "vMAJOR.MINOR.PATCH" form, or "" if none is found.
func ParseVersion(output string) string {
	for _, m := range versionPattern.FindAllString(output, -1) {
		v := "v" + m
		if semver.IsValid(v) {
			return semver.Canonical(v)
		}
	}
	return ""
}

// VersionAtLeast reports whether version is valid and not older than min.
// Both are canonical semver strings; a blank min always passes.
func VersionAtLeast(version, min string) bool {
	if min == "" {
		return semver.IsValid(version)
	}
	if !semver.IsValid(version) || !semver.IsValid(min) {
		return false
	}
	return semver.Compare(version, min) >= 0
}
