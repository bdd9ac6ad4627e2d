package barcode

import (
	"strings"
)

// FormatSet is an ordered list of formats a Reader searches for.
// Duplicates are allowed; an empty set means every supported format.
type FormatSet []Format

// Len returns the number of entries, duplicates included.
func (s FormatSet) Len() int { return len(s) }

// Contains reports whether f is in the set.
func (s FormatSet) Contains(f Format) bool {
	for _, v := range s {
		if v == f {
			return true
		}
	}
	return false
}

// Clone returns an independent copy of the set.
func (s FormatSet) Clone() FormatSet {
	if s == nil {
		return nil
	}
	out := make(FormatSet, len(s))
	copy(out, s)
	return out
}

func (s FormatSet) String() string {
	names := make([]string, len(s))
	for i, f := range s {
		names[i] = f.String()
	}
	return strings.Join(names, ",")
}

// ParseFormatSet parses a comma separated list such as "qr,ean-13".
// Blank entries are skipped, so "" yields an empty set.
func ParseFormatSet(s string) (FormatSet, error) {
	var set FormatSet
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		f, err := ParseFormat(part)
		if err != nil {
			return nil, err
		}
		set = append(set, f)
	}
	return set, nil
}

// dedupe keeps the first occurrence of each format.
func (s FormatSet) dedupe() FormatSet {
	out := make(FormatSet, 0, len(s))
	for _, f := range s {
		if !out.Contains(f) {
			out = append(out, f)
		}
	}
	return out
}
