// Package scoring turns one event plus the shared contact list into a
// ScoredEvent. Everything here is pure: no I/O and no shared state.
package scoring

import (
	"fmt"
	"strings"

	"github.com/okian/eventscore/internal/domain/extract"
	"github.com/okian/eventscore/internal/domain/history"
	"github.com/okian/eventscore/internal/domain/matching"
	"github.com/okian/eventscore/internal/domain/model"
)

// Problem and next-step strings surfaced to users.
const (
	ProblemMissingContact = "Missing contact information"
	ProblemNoAsiaHistory  = "No Asia/Vietnam history"
	ProblemDelegateSize   = "Delegate size outside venue capacity"

	NextStepHigh   = "High priority - Contact immediately"
	NextStepMedium = "Medium priority - Follow up within 2 weeks"
	NextStepLow    = "Low priority - Monitor for future editions"
)

// Default total-score bands for the next step.
const (
	defaultHighThreshold   = 50
	defaultMediumThreshold = 30
)

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithPriorityThresholds overrides the high and medium next-step bands.
// Invalid pairs are ignored.
func WithPriorityThresholds(high, medium int) Option {
	return func(s *Scorer) {
		if medium > 0 && high > medium {
			s.highThreshold = high
			s.mediumThreshold = medium
		}
	}
}

// Scorer computes ScoredEvents. It holds only immutable configuration and is
// safe for concurrent use.
type Scorer struct {
	highThreshold   int
	mediumThreshold int
}

// NewScorer creates a scorer with the default priority bands.
func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{
		highThreshold:   defaultHighThreshold,
		mediumThreshold: defaultMediumThreshold,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score computes the result for one event. Disabled criteria contribute 0
// and are never evaluated. The returned CompanyName is always event.Name.
func (s *Scorer) Score(event model.EventRecord, contacts []model.ContactRecord, criteria model.ScoringCriteria) (model.ScoredEvent, error) {
	if strings.TrimSpace(event.Name) == "" {
		return model.ScoredEvent{}, &InvalidInputError{EventID: event.ID, Field: "name"}
	}

	linked := matching.Match(event, contacts)
	matched := linked.Contacts()

	out := model.ScoredEvent{
		EventID:         event.ID,
		CompanyName:     event.Name,
		TotalEvents:     len(event.Editions),
		MatchedContacts: len(matched),
	}
	for _, w := range linked.Warnings {
		out.MatchWarnings = append(out.MatchWarnings, w.Error())
	}

	if criteria.History {
		out.HistoryScore = HistoryScore(event.Editions)
	}
	if criteria.Region {
		out.RegionScore = RegionScore(event.Name, event.Editions)
	}
	if criteria.Contact {
		out.ContactScore = ContactScore(event.RawData, matched)
	}
	if criteria.Delegates {
		out.DelegatesScore = DelegatesScore(event.Editions)
	}
	out.TotalScore = out.HistoryScore + out.RegionScore + out.ContactScore + out.DelegatesScore

	for _, e := range event.Editions {
		if InVietnam(e) {
			out.VietnamEventCount++
		}
	}
	if avg, ok := AverageDelegates(event.Editions); ok {
		out.AverageDelegates = &avg
	}

	summary := history.Format(event.Editions)
	out.PastEventsHistory = summary.Text
	out.DistinctCountries = summary.DistinctCountryCount

	describe(&out, event.RawData, matched)
	out.Notes = notes(out, criteria)
	out.Problems = problems(out, criteria)
	out.NextStepStrategy = s.nextStep(out.TotalScore)
	return out, nil
}

func (s *Scorer) nextStep(total int) string {
	switch {
	case total >= s.highThreshold:
		return NextStepHigh
	case total >= s.mediumThreshold:
		return NextStepMedium
	default:
		return NextStepLow
	}
}

// describe fills the descriptive fields. The event's own columns win; key
// person details fall back to the primary matched contact.
func describe(out *model.ScoredEvent, raw model.Row, matched []model.ContactRecord) {
	out.Industry, _ = extract.Lookup(raw, extract.EventIndustry)
	out.Country, _ = extract.Lookup(raw, extract.EventCountry)
	out.City, _ = extract.Lookup(raw, extract.EventCity)
	out.Website, _ = extract.Lookup(raw, extract.EventWebsite)

	out.KeyPersonName, _ = extract.Lookup(raw, extract.EventKeyPersonName)
	out.KeyPersonTitle, _ = extract.Lookup(raw, extract.EventKeyPersonTitle)
	if v, ok := extract.Lookup(raw, extract.EventKeyPersonEmail); ok && matching.ValidEmail(v) {
		out.KeyPersonEmail = v
	}
	if v, ok := extract.Lookup(raw, extract.EventKeyPersonPhone); ok && matching.ValidPhone(v) {
		out.KeyPersonPhone = v
	}

	primary, ok := matching.Primary(matched)
	if !ok {
		return
	}
	fill := func(dst *string, resolve func(model.ContactRecord) (string, bool)) {
		if *dst != "" {
			return
		}
		*dst, _ = resolve(primary)
	}
	fill(&out.KeyPersonName, matching.Name)
	fill(&out.KeyPersonTitle, matching.Title)
	fill(&out.KeyPersonEmail, matching.Email)
	fill(&out.KeyPersonPhone, matching.Phone)
}

func notes(ev model.ScoredEvent, criteria model.ScoringCriteria) string {
	var parts []string
	if criteria.History {
		switch ev.HistoryScore {
		case historyVietnam:
			parts = append(parts, fmt.Sprintf("Held in Vietnam %d time(s)", ev.VietnamEventCount))
		case historySEA:
			parts = append(parts, "Held in Southeast Asia")
		}
	}
	if criteria.Region {
		switch ev.RegionScore {
		case regionNameKeyword:
			parts = append(parts, "Asia-Pacific focus in event name")
		case regionAPACCountry:
			parts = append(parts, "Rotates through Asia-Pacific")
		}
	}
	if criteria.Contact {
		switch ev.ContactScore {
		case contactEmailPhone:
			parts = append(parts, "Email and phone available")
		case contactEmailName:
			parts = append(parts, "Email and contact name available")
		case contactEmailOnly:
			parts = append(parts, "Email available")
		case contactNameOnly:
			parts = append(parts, "Contact name only")
		}
	}
	if criteria.Delegates && ev.DelegatesScore > 0 && ev.AverageDelegates != nil {
		parts = append(parts, fmt.Sprintf("Average %d delegates", *ev.AverageDelegates))
	}
	if len(parts) == 0 {
		return "No qualifying signals"
	}
	return strings.Join(parts, "; ")
}

func problems(ev model.ScoredEvent, criteria model.ScoringCriteria) []string {
	out := []string{}
	if criteria.Contact && ev.ContactScore == 0 {
		out = append(out, ProblemMissingContact)
	}
	if criteria.History && criteria.Region && ev.HistoryScore == 0 && ev.RegionScore == 0 {
		out = append(out, ProblemNoAsiaHistory)
	}
	if criteria.Delegates && ev.DelegatesScore == 0 {
		out = append(out, ProblemDelegateSize)
	}
	return out
}
