package docsync

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatRef renders a prefix and counter value as a ref, zero-padding the
// suffix to three digits. Values past 999 widen naturally.
func FormatRef(prefix string, n int) string {
	return fmt.Sprintf("%s-%03d", prefix, n)
}

// SplitRef breaks a ref into its prefix and numeric suffix. ok is false when
// the ref carries no trailing number, in which case the whole ref is returned
// as the prefix.
func SplitRef(ref string) (prefix string, suffix int, ok bool) {
	i := strings.LastIndex(ref, "-")
	if i <= 0 || i == len(ref)-1 {
		return ref, 0, false
	}
	n, err := strconv.Atoi(ref[i+1:])
	if err != nil || n < 0 {
		return ref, 0, false
	}
	return ref[:i], n, true
}

// maxSuffix returns the highest numeric suffix among the given refs that
// share prefix exactly. Zero when none match.
func maxSuffix(prefix string, entries []RefEntry) int {
	best := 0
	for _, e := range entries {
		if e.Deleted {
			continue
		}
		p, n, ok := SplitRef(e.Ref)
		if !ok || p != prefix {
			continue
		}
		if n > best {
			best = n
		}
	}
	return best
}
