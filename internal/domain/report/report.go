// Package report ranks scored events and renders the summary shown to users
// after every batch.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/okian/eventscore/internal/domain/model"
)

const defaultGreeting = "Organizing Committee"

// Row is one line of the ranked table.
type Row struct {
	Rank             int    `json:"rank"`
	EventID          string `json:"event_id"`
	CompanyName      string `json:"company_name"`
	HistoryScore     int    `json:"history_score"`
	RegionScore      int    `json:"region_score"`
	ContactScore     int    `json:"contact_score"`
	DelegatesScore   int    `json:"delegates_score"`
	TotalScore       int    `json:"total_score"`
	Notes            string `json:"notes"`
	NextStepStrategy string `json:"next_step_strategy"`
}

// Draft is an example outreach email for one top event.
type Draft struct {
	Rank        int    `json:"rank"`
	CompanyName string `json:"company_name"`
	To          string `json:"to,omitempty"`
	Subject     string `json:"subject"`
	Body        string `json:"body"`
}

// Report is a snapshot of the accumulated results.
type Report struct {
	TotalInput       int     `json:"total_input"`
	Scored           int     `json:"scored"`
	Skipped          int     `json:"skipped"`
	Qualified        int     `json:"qualified"`
	QualifyThreshold int     `json:"qualify_threshold"`
	Ranked           []Row   `json:"ranked"`
	Drafts           []Draft `json:"drafts"`
}

// Assemble ranks scored by total descending (ties by name), keeps the top N
// rows, counts every qualified event and renders drafts for the leaders.
// scored is not modified.
func Assemble(scored []model.ScoredEvent, totalInputCount, skippedCount int, opts ...Option) Report {
	cfg := defaults()
	for _, opt := range opts {
		opt(&cfg)
	}

	sorted := make([]model.ScoredEvent, len(scored))
	copy(sorted, scored)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].TotalScore != sorted[j].TotalScore {
			return sorted[i].TotalScore > sorted[j].TotalScore
		}
		return sorted[i].CompanyName < sorted[j].CompanyName
	})

	r := Report{
		TotalInput:       totalInputCount,
		Scored:           len(sorted),
		Skipped:          skippedCount,
		QualifyThreshold: cfg.qualifyThreshold,
		Ranked:           []Row{},
		Drafts:           []Draft{},
	}
	for i, ev := range sorted {
		if ev.TotalScore >= cfg.qualifyThreshold {
			r.Qualified++
		}
		if i < cfg.topN {
			r.Ranked = append(r.Ranked, toRow(i+1, ev))
		}
	}
	for i := 0; i < len(sorted) && i < cfg.draftCount; i++ {
		d, err := draft(i+1, sorted[i], cfg.venue)
		if err != nil {
			continue
		}
		r.Drafts = append(r.Drafts, d)
	}
	return r
}

func toRow(rank int, ev model.ScoredEvent) Row {
	return Row{
		Rank:             rank,
		EventID:          ev.EventID,
		CompanyName:      ev.CompanyName,
		HistoryScore:     ev.HistoryScore,
		RegionScore:      ev.RegionScore,
		ContactScore:     ev.ContactScore,
		DelegatesScore:   ev.DelegatesScore,
		TotalScore:       ev.TotalScore,
		Notes:            ev.Notes,
		NextStepStrategy: ev.NextStepStrategy,
	}
}

func draft(rank int, ev model.ScoredEvent, venue string) (Draft, error) {
	data := draftData{
		Event:             ev.CompanyName,
		Greeting:          defaultGreeting,
		Venue:             venue,
		VietnamEditions:   ev.VietnamEventCount,
		DistinctCountries: ev.DistinctCountries,
	}
	if ev.KeyPersonName != "" {
		data.Greeting = ev.KeyPersonName
	}
	if ev.AverageDelegates != nil {
		data.AverageDelegates = *ev.AverageDelegates
	}

	var subject, body strings.Builder
	if err := subjectTmpl.Execute(&subject, data); err != nil {
		return Draft{}, fmt.Errorf("render subject for %q: %w", ev.CompanyName, err)
	}
	if err := bodyTmpl.Execute(&body, data); err != nil {
		return Draft{}, fmt.Errorf("render body for %q: %w", ev.CompanyName, err)
	}
	return Draft{
		Rank:        rank,
		CompanyName: ev.CompanyName,
		To:          ev.KeyPersonEmail,
		Subject:     subject.String(),
		Body:        body.String(),
	}, nil
}

// Markdown renders the ranked table followed by the drafts.
func (r Report) Markdown() string {
	var b strings.Builder
	b.WriteString("# Event Scoring Report\n\n")
	fmt.Fprintf(&b, "Scored %d of %d events (%d skipped). Qualified (total >= %d): %d.\n\n",
		r.Scored, r.TotalInput, r.Skipped, r.QualifyThreshold, r.Qualified)

	if len(r.Ranked) == 0 {
		b.WriteString("No events scored yet.\n")
		return b.String()
	}

	b.WriteString("| Rank | Event | History | Region | Contact | Delegates | Total | Notes | Next step |\n")
	b.WriteString("|---:|---|---:|---:|---:|---:|---:|---|---|\n")
	for _, row := range r.Ranked {
		fmt.Fprintf(&b, "| %d | %s | %d | %d | %d | %d | %d | %s | %s |\n",
			row.Rank, cell(row.CompanyName),
			row.HistoryScore, row.RegionScore, row.ContactScore, row.DelegatesScore, row.TotalScore,
			cell(row.Notes), cell(row.NextStepStrategy))
	}

	if len(r.Drafts) == 0 {
		return b.String()
	}
	b.WriteString("\n## Outreach drafts\n")
	for _, d := range r.Drafts {
		fmt.Fprintf(&b, "\n### %d. %s\n\n", d.Rank, d.CompanyName)
		if d.To != "" {
			fmt.Fprintf(&b, "To: %s\n", d.To)
		}
		fmt.Fprintf(&b, "Subject: %s\n\n%s\n", d.Subject, d.Body)
	}
	return b.String()
}

// cell escapes a value for a Markdown table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}
