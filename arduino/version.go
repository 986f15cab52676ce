package arduino

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// VersionError is generated when a firmware version is not a dotted numeric version
type VersionError struct {
	Version string
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("invalid firmware version %q", e.Version)
}

// canonicalVersion turns "0.10" into "v0.10" for the semver package.
// Shorthands such as "0" and "0.1" are accepted.  Numeric components past the
// third, as in "0.1.0.2", are returned separately since semver has no room
// for them.
func canonicalVersion(v string) (string, []int, error) {
	s := strings.TrimPrefix(strings.TrimSpace(v), "v")
	var extra []int
	if parts := strings.Split(s, "."); len(parts) > 3 {
		for _, p := range parts[3:] {
			n, err := strconv.Atoi(p)
			if err != nil || n < 0 || strings.HasPrefix(p, "+") {
				return "", nil, &VersionError{Version: v}
			}
			extra = append(extra, n)
		}
		s = strings.Join(parts[:3], ".")
	}
	s = "v" + s
	if !semver.IsValid(s) {
		return "", nil, &VersionError{Version: v}
	}
	if extra != nil && semver.Prerelease(s)+semver.Build(s) != "" {
		return "", nil, &VersionError{Version: v}
	}
	return s, extra, nil
}

// CompareVersions returns -1, 0 or +1 as a is older than, equal to or newer
// than b.  Components are compared numerically, so 0.10 is newer than 0.9,
// and missing components count as zero.
func CompareVersions(a, b string) (int, error) {
	ca, xa, err := canonicalVersion(a)
	if err != nil {
		return 0, err
	}
	cb, xb, err := canonicalVersion(b)
	if err != nil {
		return 0, err
	}
	if c := semver.Compare(ca, cb); c != 0 {
		return c, nil
	}
	for i := 0; i < len(xa) || i < len(xb); i++ {
		var na, nb int
		if i < len(xa) {
			na = xa[i]
		}
		if i < len(xb) {
			nb = xb[i]
		}
		switch {
		case na < nb:
			return -1, nil
		case na > nb:
			return 1, nil
		}
	}
	return 0, nil
}

// VersionAtLeast is true if have is minimum or newer
func VersionAtLeast(have, minimum string) (bool, error) {
	c, err := CompareVersions(have, minimum)
	if err != nil {
		return false, err
	}
	return c >= 0, nil
}
