package spop

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a SPOP protocol version, e.g. "2.0".
type Version struct {
	Major int
	Minor int
}

// SupportedVersions lists the versions this agent understands, in
// preference order (highest first). HAProxy's hello frame may advertise
// several comma-separated versions; the agent picks the best match.
var SupportedVersions = []Version{
	{Major: 2, Minor: 0},
	{Major: 1, Minor: 0},
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Compare returns -1, 0 or 1 as v is less than, equal to, or greater than o.
func (v Version) Compare(o Version) int {
	if v.Major != o.Major {
		if v.Major < o.Major {
			return -1
		}
		return 1
	}
	if v.Minor != o.Minor {
		if v.Minor < o.Minor {
			return -1
		}
		return 1
	}
	return 0
}

// ParseVersion parses a single "major.minor" version string.
func ParseVersion(s string) (Version, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ".", 2)
	if len(parts) != 2 {
		return Version{}, NewError(StatusBadVersion, "malformed version string "+s)
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return Version{}, WrapError(StatusBadVersion, "malformed version string "+s, err)
	}
	minor, err := strconv.Atoi(parts[1])
	if err != nil {
		return Version{}, WrapError(StatusBadVersion, "malformed version string "+s, err)
	}
	return Version{Major: major, Minor: minor}, nil
}

// ParseVersionList parses a comma-separated list of versions, as sent in
// the "supported-versions" key of a haproxy-hello frame.
func ParseVersionList(s string) ([]Version, error) {
	parts := strings.Split(s, ",")
	versions := make([]Version, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := ParseVersion(p)
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, nil
}

// NegotiateVersion picks the highest version present in both offered and
// SupportedVersions. It returns StatusBadVersion if none match.
func NegotiateVersion(offered []Version) (Version, error) {
	for _, want := range SupportedVersions {
		for _, have := range offered {
			if want.Compare(have) == 0 {
				return want, nil
			}
		}
	}
	return Version{}, NewError(StatusBadVersion, "no common version")
}
