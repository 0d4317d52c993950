package entity

import "strings"

// ToxicFilter decides whether a collateral symbol belongs to the configured
// collapsed-asset set, net of the false-positive exclusion list (symbols that
// collide lexically with toxic names but are unrelated assets).
type ToxicFilter struct {
	toxic    map[string]struct{}
	excluded map[string]struct{}
}

// NewToxicFilter builds a case-insensitive filter from the two symbol lists.
func NewToxicFilter(toxicSymbols, falsePositives []string) *ToxicFilter {
	f := &ToxicFilter{
		toxic:    make(map[string]struct{}, len(toxicSymbols)),
		excluded: make(map[string]struct{}, len(falsePositives)),
	}
	for _, s := range toxicSymbols {
		f.toxic[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
	}
	for _, s := range falsePositives {
		f.excluded[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
	}
	return f
}

// IsToxic reports whether the symbol is in the toxic set and not excluded.
func (f *ToxicFilter) IsToxic(symbol string) bool {
	s := strings.ToLower(strings.TrimSpace(symbol))
	if s == "" {
		return false
	}
	if _, excluded := f.excluded[s]; excluded {
		return false
	}
	_, ok := f.toxic[s]
	return ok
}
