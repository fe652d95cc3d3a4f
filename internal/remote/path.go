package remote

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPath is returned for paths with empty segments or reserved
// characters.
var ErrInvalidPath = errors.New("invalid path")

// reservedChars may not appear in a path segment.
const reservedChars = ".#$[]*?\\"

// Join joins path segments with "/", skipping empty ones.
func Join(parts ...string) string {
	nonEmpty := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, "/")
}

// Split returns the segments of p. The root path "" has none.
func Split(p string) []string {
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// ValidatePath checks that every segment of p is non-empty and free of
// reserved characters. The root path "" is valid.
func ValidatePath(p string) error {
	for _, seg := range Split(p) {
		if err := validateSegment(seg); err != nil {
			return fmt.Errorf("%w %q: %v", ErrInvalidPath, p, err)
		}
	}
	return nil
}

// ValidateKey checks that key can name a single child.
func ValidateKey(key string) error {
	if err := validateSegment(key); err != nil {
		return fmt.Errorf("%w key: %v", ErrInvalidPath, err)
	}
	if strings.Contains(key, "/") {
		return fmt.Errorf("%w key %q: contains \"/\"", ErrInvalidPath, key)
	}
	return nil
}

func validateSegment(seg string) error {
	if seg == "" {
		return errors.New("empty segment")
	}
	if strings.ContainsAny(seg, reservedChars) {
		return fmt.Errorf("segment %q contains one of %q", seg, reservedChars)
	}
	if strings.ContainsRune(seg, '\n') {
		return fmt.Errorf("segment %q contains a newline", seg)
	}
	return nil
}

// isWithin reports whether p equals base or lies below it.
func isWithin(p, base string) bool {
	if base == "" || p == base {
		return true
	}
	return strings.HasPrefix(p, base+"/")
}

// overlaps reports whether a change at one path is visible at the other.
func overlaps(a, b string) bool {
	return isWithin(a, b) || isWithin(b, a)
}

// ancestors returns the proper ancestors of p, nearest last, excluding
// the root.
func ancestors(p string) []string {
	segs := Split(p)
	if len(segs) <= 1 {
		return nil
	}
	out := make([]string, 0, len(segs)-1)
	for i := 1; i < len(segs); i++ {
		out = append(out, strings.Join(segs[:i], "/"))
	}
	return out
}

// relative returns p with the base prefix removed. p must be within base.
func relative(base, p string) string {
	if p == base {
		return ""
	}
	if base == "" {
		return p
	}
	return strings.TrimPrefix(p, base+"/")
}

// subtreeBounds returns the half-open byte range [lo, hi) that contains
// every path strictly below base in lexical order.
func subtreeBounds(base string) (lo, hi string) {
	return base + "/", base + "0"
}
