package migration

import (
	"fmt"
	"strings"

	goversion "github.com/hashicorp/go-version"
)

// Version is a document schema version: major.minor[.build[.revision]].
// Missing components are zero, so "3.0" and "3.0.0" are the same version.
// Components are never negative.
type Version struct {
	Major    int
	Minor    int
	Build    int
	Revision int
}

// V builds a major.minor version.
func V(major, minor int) Version {
	return Version{Major: major, Minor: minor}
}

// ParseVersion parses between two and four dot-separated non-negative
// integers. Pre-release and metadata suffixes are rejected.
func ParseVersion(s string) (Version, error) {
	s = strings.TrimSpace(s)
	gv, err := goversion.NewVersion(s)
	if err != nil || gv.Prerelease() != "" || gv.Metadata() != "" {
		return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
	}
	if n := strings.Count(strings.TrimPrefix(s, "v"), ".") + 1; n < 2 || n > 4 {
		return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
	}
	var nums [4]int
	copy(nums[:], gv.Segments())
	return Version{Major: nums[0], Minor: nums[1], Build: nums[2], Revision: nums[3]}, nil
}

// String renders major.minor, adding build and revision only when set.
func (v Version) String() string {
	s := fmt.Sprintf("%d.%d", v.Major, v.Minor)
	if v.Build > 0 || v.Revision > 0 {
		s += fmt.Sprintf(".%d", v.Build)
	}
	if v.Revision > 0 {
		s += fmt.Sprintf(".%d", v.Revision)
	}
	return s
}

// Compare returns -1, 0 or +1 as v is older than, equal to or newer than o.
func (v Version) Compare(o Version) int {
	return v.semantic().Compare(o.semantic())
}

// Less reports whether v is older than o.
func (v Version) Less(o Version) bool {
	return v.semantic().LessThan(o.semantic())
}

func (v Version) semantic() *goversion.Version {
	return goversion.Must(goversion.NewVersion(
		fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Build, v.Revision)))
}
