// Package extract pulls logical field values out of loosely-typed rows.
//
// Upstream sheets name the same column in many ways (CITY, City, city,
// Location City). Lookups go through an ordered list of candidate keys, and
// each logical field has one declarative synonym list in Synonyms.
package extract

import (
	"encoding/json"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"github.com/okian/eventscore/internal/domain/model"
)

var numberPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)

// Value returns the first accepted value for the candidate keys, in candidate
// order. Each key is tried as an exact match and then case-insensitively.
// Only non-empty trimmed strings and finite numbers are accepted.
func Value(row model.Row, keys ...string) (string, bool) {
	if len(row) == 0 {
		return "", false
	}
	var sorted []string
	for _, key := range keys {
		if raw, ok := row[key]; ok {
			if s, ok := Stringify(raw); ok {
				return s, true
			}
		}
		if sorted == nil {
			sorted = sortedKeys(row)
		}
		folded := Fold(key)
		for _, k := range sorted {
			if k == key || Fold(k) != folded {
				continue
			}
			if s, ok := Stringify(row[k]); ok {
				return s, true
			}
		}
	}
	return "", false
}

// Lookup resolves a logical field through its synonym table.
func Lookup(row model.Row, f Field) (string, bool) {
	return Value(row, Synonyms[f]...)
}

// Scan walks every value of row in sorted key order and returns the first
// one accepted by match. Sorting keeps generic scans deterministic.
func Scan(row model.Row, match func(string) (string, bool)) (string, bool) {
	for _, k := range sortedKeys(row) {
		s, ok := Stringify(row[k])
		if !ok {
			continue
		}
		if v, ok := match(s); ok {
			return v, true
		}
	}
	return "", false
}

// Stringify converts a loose cell value into a trimmed string.
// Non-finite numbers, booleans and nested values are rejected.
func Stringify(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		return s, s != ""
	case float64:
		return formatFloat(t)
	case float32:
		return formatFloat(float64(t))
	case int:
		return strconv.Itoa(t), true
	case int32:
		return strconv.FormatInt(int64(t), 10), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case uint:
		return strconv.FormatUint(uint64(t), 10), true
	case uint32:
		return strconv.FormatUint(uint64(t), 10), true
	case uint64:
		return strconv.FormatUint(t, 10), true
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return "", false
		}
		return formatFloat(f)
	default:
		return "", false
	}
}

// Number parses a loose numeric cell such as 400, "1,200" or "approx. 350".
func Number(v any) (float64, bool) {
	s, ok := Stringify(v)
	if !ok {
		return 0, false
	}
	s = strings.NewReplacer(",", "", "_", "", " ", "").Replace(s)
	m := numberPattern.FindString(s)
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if strings.HasPrefix(s, "-") {
		f = -f
	}
	return f, true
}

// Fold applies Unicode case folding.
func Fold(s string) string {
	// Casers are stateful and must not be shared between goroutines.
	return cases.Fold().String(s)
}

func formatFloat(f float64) (string, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", false
	}
	return strconv.FormatFloat(f, 'f', -1, 64), true
}

func sortedKeys(row model.Row) []string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
