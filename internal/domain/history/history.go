// Package history renders an event's past editions as a readable summary.
package history

import (
	"strconv"
	"strings"

	"github.com/okian/eventscore/internal/domain/extract"
	"github.com/okian/eventscore/internal/domain/model"
)

const (
	itemSeparator   = "; "
	countriesPrefix = " | DISTINCT COUNTRIES: "
	delegatesSuffix = " onsite delegates"
	locationSep     = ", "
	yearSep         = ": "
)

// Summary is the formatted history of one event.
type Summary struct {
	Text                 string
	DistinctCountryCount int
	// Countries lists distinct countries in first-seen order, original spelling.
	Countries []string
}

// Format composes one item per edition as
// "<year>: <city>, <country> (<n> onsite delegates)", dropping absent parts
// together with their punctuation, and appends a distinct-country segment.
func Format(editions []model.EditionRecord) Summary {
	var (
		items     []string
		countries []string
		seen      = make(map[string]struct{})
	)
	for _, e := range editions {
		if item := formatItem(e); item != "" {
			items = append(items, item)
		}
		c, ok := Country(e)
		if !ok {
			continue
		}
		key := extract.Normalize(c)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		countries = append(countries, c)
	}

	text := strings.Join(items, itemSeparator)
	if n := len(countries); n > 0 {
		text += countriesPrefix + strconv.Itoa(n) + " (" + strings.Join(countries, locationSep) + ")"
	}
	return Summary{Text: text, DistinctCountryCount: len(countries), Countries: countries}
}

func formatItem(e model.EditionRecord) string {
	year, hasYear := Year(e)
	parts := make([]string, 0, 2)
	if city, ok := City(e); ok {
		parts = append(parts, city)
	}
	if country, ok := Country(e); ok {
		parts = append(parts, country)
	}
	location := strings.Join(parts, locationSep)

	var b strings.Builder
	switch {
	case hasYear && location != "":
		b.WriteString(year + yearSep + location)
	case hasYear:
		b.WriteString(year)
	default:
		b.WriteString(location)
	}
	if n, ok := Attendance(e); ok {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString("(" + strconv.FormatFloat(n, 'f', -1, 64) + delegatesSuffix + ")")
	}
	return b.String()
}

// Year returns the edition year as written in the row.
func Year(e model.EditionRecord) (string, bool) {
	return extract.Lookup(e.Fields, extract.EditionYear)
}

// City returns the edition host city.
func City(e model.EditionRecord) (string, bool) {
	return extract.Lookup(e.Fields, extract.EditionCity)
}

// Country returns the edition host country.
func Country(e model.EditionRecord) (string, bool) {
	return extract.Lookup(e.Fields, extract.EditionCountry)
}

// Attendance returns a positive attendance count. Only the first populated
// attendance column of the edition is considered.
func Attendance(e model.EditionRecord) (float64, bool) {
	raw, ok := extract.Lookup(e.Fields, extract.EditionAttendance)
	if !ok {
		return 0, false
	}
	n, ok := extract.Number(raw)
	if !ok || n <= 0 {
		return 0, false
	}
	return n, true
}
