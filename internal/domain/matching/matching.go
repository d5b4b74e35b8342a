// Package matching links events to contact rows from a separate dataset.
//
// A contact is linked when any rule matches:
//  1. organization identifier equality (authoritative, checked first)
//  2. organization name equality, or the event name contained in it
//  3. legacy series identifier equality
package matching

import (
	"fmt"
	"sort"
	"strings"

	"github.com/okian/eventscore/internal/domain/extract"
	"github.com/okian/eventscore/internal/domain/model"
)

// Rule identifies which linking rule matched a contact.
type Rule int

// Linking rules in priority order.
const (
	RuleIdentifier Rule = iota + 1
	RuleName
	RuleSeries
)

func (r Rule) String() string {
	switch r {
	case RuleIdentifier:
		return "identifier"
	case RuleName:
		return "name"
	case RuleSeries:
		return "series"
	default:
		return "unknown"
	}
}

// AmbiguityWarning notes that more than one rule linked the same contact.
// It is informational; the contact is still included once.
type AmbiguityWarning struct {
	ContactIndex int
	Rules        []Rule
}

func (w AmbiguityWarning) Error() string {
	names := make([]string, len(w.Rules))
	for i, r := range w.Rules {
		names[i] = r.String()
	}
	return fmt.Sprintf("contact %d matched by %s", w.ContactIndex, strings.Join(names, "+"))
}

// Is lets callers test warnings with errors.Is(err, ErrAmbiguousMatch).
func (w AmbiguityWarning) Is(target error) bool { return target == ErrAmbiguousMatch }

// Linked is one matched contact and the rule that linked it first.
type Linked struct {
	Contact model.ContactRecord
	Index   int
	Rule    Rule
}

// Result holds the linked contacts in input order.
type Result struct {
	Matches  []Linked
	Warnings []AmbiguityWarning
}

// Contacts returns the linked contact records in input order.
func (r Result) Contacts() []model.ContactRecord {
	out := make([]model.ContactRecord, len(r.Matches))
	for i, m := range r.Matches {
		out[i] = m.Contact
	}
	return out
}

// Match returns every contact linked to event, preserving input order.
func Match(event model.EventRecord, contacts []model.ContactRecord) Result {
	var res Result
	eventID := strings.TrimSpace(event.OrganizationID)
	eventSeries := strings.TrimSpace(event.SeriesID)
	eventName := extract.Normalize(event.Name)

	for i, c := range contacts {
		rules := make([]Rule, 0, 3)
		if eventID != "" {
			if id, ok := OrganizationID(c); ok && id == eventID {
				rules = append(rules, RuleIdentifier)
			}
		}
		if eventName != "" {
			if org, ok := OrganizationName(c); ok && namesMatch(eventName, extract.Normalize(org)) {
				rules = append(rules, RuleName)
			}
		}
		if eventSeries != "" {
			if sid, ok := SeriesID(c); ok && sid == eventSeries {
				rules = append(rules, RuleSeries)
			}
		}
		if len(rules) == 0 {
			continue
		}
		res.Matches = append(res.Matches, Linked{Contact: c, Index: i, Rule: rules[0]})
		if len(rules) > 1 {
			res.Warnings = append(res.Warnings, AmbiguityWarning{ContactIndex: i, Rules: rules})
		}
	}
	return res
}

// Primary picks the best contact: those with an email first, then those with
// a title, otherwise input order.
func Primary(contacts []model.ContactRecord) (model.ContactRecord, bool) {
	if len(contacts) == 0 {
		return model.ContactRecord{}, false
	}
	type ranked struct {
		c               model.ContactRecord
		email, hasTitle bool
	}
	rs := make([]ranked, len(contacts))
	for i, c := range contacts {
		_, e := Email(c)
		_, t := Title(c)
		rs[i] = ranked{c: c, email: e, hasTitle: t}
	}
	sort.SliceStable(rs, func(i, j int) bool {
		if rs[i].email != rs[j].email {
			return rs[i].email
		}
		return rs[i].hasTitle && !rs[j].hasTitle
	})
	return rs[0].c, true
}

// namesMatch compares already-normalized names: equality, or the event
// name appearing inside the organization name.
func namesMatch(eventName, orgName string) bool {
	if orgName == "" {
		return false
	}
	if eventName == orgName {
		return true
	}
	return strings.Contains(orgName, eventName)
}
