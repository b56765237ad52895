package condition

import (
	"fmt"
	"strconv"
	"strings"
)

type version struct {
	parts      []int
	prerelease string
}

// CompareVersions compares a user version against a target version and
// returns -1, 0 or 1. Only the numeric parts present in the target are
// compared, so a target of "2.1" equals any "2.1.x" user version.
// Build metadata is ignored; a prerelease sorts before its release.
func CompareVersions(user, target string) (int, error) {
	u, err := parseVersion(user)
	if err != nil {
		return 0, err
	}
	t, err := parseVersion(target)
	if err != nil {
		return 0, err
	}

	for i, tp := range t.parts {
		if i >= len(u.parts) {
			return -1, nil
		}
		switch {
		case u.parts[i] < tp:
			return -1, nil
		case u.parts[i] > tp:
			return 1, nil
		}
	}

	switch {
	case u.prerelease == "" && t.prerelease == "":
		return 0, nil
	case u.prerelease != "" && t.prerelease == "":
		// a target without prerelease only constrains the numeric prefix
		// when it is shorter than the user version
		if len(t.parts) < len(u.parts) {
			return 0, nil
		}
		return -1, nil
	case u.prerelease == "" && t.prerelease != "":
		return 1, nil
	default:
		return comparePrerelease(u.prerelease, t.prerelease), nil
	}
}

func parseVersion(s string) (version, error) {
	if s == "" || strings.ContainsAny(s, " \t\n") {
		return version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
	}

	main := s
	if i := strings.IndexByte(main, '+'); i >= 0 {
		main = main[:i]
	}
	var pre string
	if i := strings.IndexByte(main, '-'); i >= 0 {
		main, pre = main[:i], main[i+1:]
		if pre == "" {
			return version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
		}
	}

	fields := strings.Split(main, ".")
	if len(fields) > 3 {
		return version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
	}

	v := version{parts: make([]int, 0, len(fields)), prerelease: pre}
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil || n < 0 {
			return version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
		}
		v.parts = append(v.parts, n)
	}
	return v, nil
}

func comparePrerelease(a, b string) int {
	as, bs := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(as) && i < len(bs); i++ {
		an, aErr := strconv.Atoi(as[i])
		bn, bErr := strconv.Atoi(bs[i])
		switch {
		case aErr == nil && bErr == nil:
			if an != bn {
				if an < bn {
					return -1
				}
				return 1
			}
		case aErr == nil:
			return -1
		case bErr == nil:
			return 1
		default:
			if c := strings.Compare(as[i], bs[i]); c != 0 {
				return c
			}
		}
	}
	switch {
	case len(as) < len(bs):
		return -1
	case len(as) > len(bs):
		return 1
	default:
		return 0
	}
}
