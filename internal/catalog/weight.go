package catalog

import (
	"regexp"
	"strconv"
	"strings"
)

var weightLabels = map[string]struct{}{
	"weight": {},
	"grams":  {},
	"gram":   {},
	"g":      {},
	"wt":     {},
}

var leadingNumber = regexp.MustCompile(`^\s*(\d+(?:[.,]\d+)?|[.,]\d+)`)

// ParseWeight returns the weight in grams found in the first weight-like
// option. ok is false when there is no such option or its value does not
// start with a positive number.
func ParseWeight(options []Option) (grams float64, ok bool) {
	for _, opt := range options {
		if !isWeightLabel(opt.Name) {
			continue
		}
		return parseGrams(opt.Value)
	}
	return 0, false
}

func isWeightLabel(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	if _, ok := weightLabels[name]; ok {
		return true
	}
	return strings.Contains(name, "weight")
}

func parseGrams(value string) (float64, bool) {
	m := leadingNumber.FindStringSubmatch(value)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
