package scoring

import (
	"math"
	"strings"

	"github.com/okian/eventscore/internal/domain/extract"
	"github.com/okian/eventscore/internal/domain/history"
	"github.com/okian/eventscore/internal/domain/matching"
	"github.com/okian/eventscore/internal/domain/model"
)

// Sub-score bands. Every calculator returns a value in [0, MaxSubScore].
const (
	MaxSubScore = 25

	historyVietnam = 25
	historySEA     = 15

	regionNameKeyword = 25
	regionAPACCountry = 15

	contactEmailPhone = 25
	contactEmailName  = 20
	contactEmailOnly  = 15
	contactNameOnly   = 10

	delegatesSweetSpot = 25
	delegatesNear      = 20
	delegatesFar       = 10

	// minRegionMatchLen keeps short tokens from matching inside longer names.
	minRegionMatchLen = 4
)

var (
	vietnamCountries = map[string]struct{}{"vietnam": {}, "vn": {}}

	vietnamCities = []string{"hanoi", "ho chi minh", "danang", "saigon"}

	southeastAsia = map[string]struct{}{
		"thailand": {}, "singapore": {}, "malaysia": {}, "indonesia": {}, "philippines": {},
		"myanmar": {}, "cambodia": {}, "laos": {}, "brunei": {},
	}

	regionKeywords = []string{"asean", "asia", "pacific", "apac", "eastern"}

	asiaPacific = []string{
		"vietnam", "thailand", "singapore", "malaysia", "indonesia", "philippines",
		"myanmar", "cambodia", "laos", "brunei", "china", "japan", "korea",
		"south korea", "india", "australia", "new zealand", "taiwan", "hong kong",
		"bangladesh", "sri lanka", "pakistan", "nepal", "mongolia", "macau",
		"papua new guinea", "fiji",
	}
)

// HistoryScore returns 25 when any edition was held in Vietnam, 15 when any
// was held elsewhere in Southeast Asia, and 0 otherwise. Vietnam wins even
// when both are present.
func HistoryScore(editions []model.EditionRecord) int {
	sea := false
	for _, e := range editions {
		if InVietnam(e) {
			return historyVietnam
		}
		if c, ok := history.Country(e); ok {
			if _, hit := southeastAsia[extract.Normalize(c)]; hit {
				sea = true
			}
		}
	}
	if sea {
		return historySEA
	}
	return 0
}

// InVietnam reports whether the edition's country is Vietnam or its city is
// a Vietnamese city. Diacritics and spacing are ignored.
func InVietnam(e model.EditionRecord) bool {
	if c, ok := history.Country(e); ok {
		if _, hit := vietnamCountries[extract.Compact(c)]; hit {
			return true
		}
	}
	city, ok := history.City(e)
	if !ok {
		return false
	}
	normalized, compact := extract.Normalize(city), extract.Compact(city)
	for _, kw := range vietnamCities {
		if strings.Contains(normalized, kw) || strings.Contains(compact, strings.ReplaceAll(kw, " ", "")) {
			return true
		}
	}
	return false
}

// RegionScore returns 25 when the event name carries an Asia-Pacific keyword,
// 15 when any edition country is in the Asia-Pacific list, and 0 otherwise.
func RegionScore(eventName string, editions []model.EditionRecord) int {
	name := extract.Normalize(eventName)
	for _, kw := range regionKeywords {
		if strings.Contains(name, kw) {
			return regionNameKeyword
		}
	}
	for _, e := range editions {
		c, ok := history.Country(e)
		if !ok {
			continue
		}
		if inAsiaPacific(extract.Normalize(c)) {
			return regionAPACCountry
		}
	}
	return 0
}

// inAsiaPacific matches exactly, or by the country containing a listed name
// of at least minRegionMatchLen characters ("republic of korea").
func inAsiaPacific(country string) bool {
	compact := strings.ReplaceAll(country, " ", "")
	for _, entry := range asiaPacific {
		if country == entry {
			return true
		}
		if len(entry) < minRegionMatchLen || len(country) < minRegionMatchLen {
			continue
		}
		if strings.Contains(country, entry) || strings.Contains(compact, strings.ReplaceAll(entry, " ", "")) {
			return true
		}
	}
	return false
}

// ContactScore bands contact completeness. Flags come from the event's own
// fields first and from the matched contacts for whatever is still missing.
func ContactScore(raw model.Row, contacts []model.ContactRecord) int {
	hasEmail, hasPhone, hasName := rawContactFlags(raw)
	for _, c := range contacts {
		if hasEmail && hasPhone && hasName {
			break
		}
		if !hasEmail {
			_, hasEmail = matching.Email(c)
		}
		if !hasPhone {
			_, hasPhone = matching.Phone(c)
		}
		if !hasName {
			_, hasName = matching.Name(c)
		}
	}
	switch {
	case hasEmail && hasPhone:
		return contactEmailPhone
	case hasEmail && hasName:
		return contactEmailName
	case hasEmail:
		return contactEmailOnly
	case hasName:
		return contactNameOnly
	default:
		return 0
	}
}

func rawContactFlags(raw model.Row) (hasEmail, hasPhone, hasName bool) {
	if v, ok := extract.Lookup(raw, extract.EventKeyPersonEmail); ok {
		hasEmail = matching.ValidEmail(v)
	}
	if v, ok := extract.Lookup(raw, extract.EventKeyPersonPhone); ok {
		hasPhone = matching.ValidPhone(v)
	}
	_, hasName = extract.Lookup(raw, extract.EventKeyPersonName)
	return hasEmail, hasPhone, hasName
}

// AverageDelegates is the rounded mean of every positive attendance value.
func AverageDelegates(editions []model.EditionRecord) (int, bool) {
	var (
		sum float64
		n   int
	)
	for _, e := range editions {
		if v, ok := history.Attendance(e); ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return int(math.Round(sum / float64(n))), true
}

// DelegatesScore rewards average attendance that fits the venue: 25 for
// 200-800, 20 for 150-199 or 801-1000, 10 for 100-149 or 1001-1500.
func DelegatesScore(editions []model.EditionRecord) int {
	avg, ok := AverageDelegates(editions)
	if !ok {
		return 0
	}
	return delegatesBand(avg)
}

func delegatesBand(avg int) int {
	switch {
	case avg >= 200 && avg <= 800:
		return delegatesSweetSpot
	case (avg >= 150 && avg < 200) || (avg > 800 && avg <= 1000):
		return delegatesNear
	case (avg >= 100 && avg < 150) || (avg > 1000 && avg <= 1500):
		return delegatesFar
	default:
		return 0
	}
}
