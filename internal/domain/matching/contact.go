package matching

import (
	"regexp"
	"strings"

	"github.com/okian/eventscore/internal/domain/extract"
	"github.com/okian/eventscore/internal/domain/model"
)

const minPhoneDigits = 7

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether s has the simple local@domain.tld shape.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(strings.TrimSpace(s))
}

// ValidPhone reports whether s carries at least seven digits once
// separators are stripped.
func ValidPhone(s string) bool {
	digits := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= minPhoneDigits
}

// Name assembles a display name: precomposed full name, then the joined
// first/middle/last parts, then other name-like columns.
func Name(c model.ContactRecord) (string, bool) {
	if v, ok := extract.Lookup(c.Fields, extract.ContactFullName); ok {
		return v, true
	}
	parts := make([]string, 0, 3)
	for _, f := range []extract.Field{extract.ContactFirstName, extract.ContactMiddleName, extract.ContactLastName} {
		if v, ok := extract.Lookup(c.Fields, f); ok {
			parts = append(parts, v)
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, " "), true
	}
	return extract.Lookup(c.Fields, extract.ContactOtherName)
}

// Email resolves a valid address from the email synonyms, falling back to
// any @ token found anywhere in the row.
func Email(c model.ContactRecord) (string, bool) {
	if v, ok := extract.Lookup(c.Fields, extract.ContactEmail); ok {
		if e, ok := emailToken(v); ok {
			return e, true
		}
	}
	return extract.Scan(c.Fields, emailToken)
}

// Title resolves the contact's job title.
func Title(c model.ContactRecord) (string, bool) {
	return extract.Lookup(c.Fields, extract.ContactTitle)
}

// Phone resolves a phone number with enough digits to be dialable.
func Phone(c model.ContactRecord) (string, bool) {
	v, ok := extract.Lookup(c.Fields, extract.ContactPhone)
	if !ok || !ValidPhone(v) {
		return "", false
	}
	return v, true
}

// OrganizationID resolves the contact's organization identifier.
func OrganizationID(c model.ContactRecord) (string, bool) {
	return extract.Lookup(c.Fields, extract.ContactOrgID)
}

// OrganizationName resolves the contact's organization name.
func OrganizationName(c model.ContactRecord) (string, bool) {
	return extract.Lookup(c.Fields, extract.ContactOrgName)
}

// SeriesID resolves the legacy series identifier.
func SeriesID(c model.ContactRecord) (string, bool) {
	return extract.Lookup(c.Fields, extract.ContactSeriesID)
}

// emailToken returns the first whitespace/list separated token of s that is
// a valid email address.
func emailToken(s string) (string, bool) {
	if !strings.Contains(s, "@") {
		return "", false
	}
	tokens := strings.FieldsFunc(s, func(r rune) bool {
		switch r {
		case ' ', '\t', '\n', '\r', ',', ';', '|':
			return true
		}
		return false
	})
	for _, tok := range tokens {
		tok = strings.Trim(tok, `<>()[]"'`)
		tok = strings.TrimPrefix(tok, "mailto:")
		if ValidEmail(tok) {
			return tok, true
		}
	}
	return "", false
}
