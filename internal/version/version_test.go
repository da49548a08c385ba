package version

import (
	"strings"
	"testing"
)

func TestDefaultVersionIsSemver(t *testing.T) {
	plain := stripANSI(Version)
	parts := strings.SplitN(plain, "-", 2)
	nums := strings.Split(parts[0], ".")
	if len(nums) != 3 {
		t.Fatalf("Version %q: want major.minor.patch, got %d segments", plain, len(nums))
	}
	for _, n := range nums {
		if n == "" {
			t.Fatalf("Version %q: empty segment", plain)
		}
	}
}

func stripANSI(s string) string {
	var b strings.Builder
	skip := false
	for _, r := range s {
		switch {
		case r == '\x1b':
			skip = true
		case skip && r == 'm':
			skip = false
		case !skip:
			b.WriteRune(r)
		}
	}
	return b.String()
}
