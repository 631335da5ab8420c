package reference

import "regexp"

// VersionPattern matches a version token: "v" followed by digits and dots.
var VersionPattern = regexp.MustCompile(`v[\d.]+`)

var wholeVersion = regexp.MustCompile(`^v[\d.]+$`)

// IsVersion reports whether s is exactly one version token.
func IsVersion(s string) bool {
	return wholeVersion.MatchString(s)
}

// ReplaceVersions replaces every version token in s with version.
func ReplaceVersions(s, version string) string {
	return VersionPattern.ReplaceAllLiteralString(s, version)
}
