// Package model contains domain models passed between layers.
package model

// Row is a loosely-typed spreadsheet row. Key casing and spelling are not
// normalized; values are strings, numbers or nil.
type Row map[string]any

// EventRecord is one imported event series awaiting scoring.
type EventRecord struct {
	ID             string          `json:"id,omitempty" yaml:"id,omitempty"`                           // stable id assigned at ingestion
	Name           string          `json:"name" yaml:"name"`                                           // display name and identity key
	RawData        Row             `json:"raw_data,omitempty" yaml:"raw_data,omitempty"`               // denormalized source columns
	Editions       []EditionRecord `json:"editions,omitempty" yaml:"editions,omitempty"`               // historical occurrences, in source order
	OrganizationID string          `json:"organization_id,omitempty" yaml:"organization_id,omitempty"` // foreign key for contact matching
	SeriesID       string          `json:"series_id,omitempty" yaml:"series_id,omitempty"`             // legacy secondary identifier
}

// EditionRecord is one historical occurrence of an event.
type EditionRecord struct {
	Fields Row `json:"fields" yaml:"fields"`
}

// ContactRecord is a person record from the contacts dataset.
type ContactRecord struct {
	Fields Row `json:"fields" yaml:"fields"`
}

// ScoringCriteria toggles the four sub-scores. A disabled criterion
// contributes zero regardless of the underlying data.
type ScoringCriteria struct {
	History   bool `json:"history" yaml:"history" koanf:"history"`
	Region    bool `json:"region" yaml:"region" koanf:"region"`
	Contact   bool `json:"contact" yaml:"contact" koanf:"contact"`
	Delegates bool `json:"delegates" yaml:"delegates" koanf:"delegates"`
}

// AllCriteria returns criteria with every sub-score enabled.
func AllCriteria() ScoringCriteria {
	return ScoringCriteria{History: true, Region: true, Contact: true, Delegates: true}
}

// ScoredEvent is the immutable result of scoring one EventRecord.
type ScoredEvent struct {
	EventID     string `json:"event_id"`
	CompanyName string `json:"company_name"`

	Industry       string `json:"industry,omitempty"`
	Country        string `json:"country,omitempty"`
	City           string `json:"city,omitempty"`
	Website        string `json:"website,omitempty"`
	KeyPersonName  string `json:"key_person_name,omitempty"`
	KeyPersonTitle string `json:"key_person_title,omitempty"`
	KeyPersonEmail string `json:"key_person_email,omitempty"`
	KeyPersonPhone string `json:"key_person_phone,omitempty"`

	TotalEvents       int  `json:"total_events"`
	VietnamEventCount int  `json:"vietnam_event_count"`
	AverageDelegates  *int `json:"average_delegates,omitempty"`

	HistoryScore   int `json:"history_score"`
	RegionScore    int `json:"region_score"`
	ContactScore   int `json:"contact_score"`
	DelegatesScore int `json:"delegates_score"`
	TotalScore     int `json:"total_score"`

	PastEventsHistory string `json:"past_events_history"`
	DistinctCountries int    `json:"distinct_countries"`

	Notes            string   `json:"notes"`
	Problems         []string `json:"problems"`
	NextStepStrategy string   `json:"next_step_strategy"`

	MatchedContacts int      `json:"matched_contacts"`
	MatchWarnings   []string `json:"match_warnings,omitempty"`
}
