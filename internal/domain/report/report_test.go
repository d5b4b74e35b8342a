package report_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/eventscore/internal/domain/model"
	"github.com/okian/eventscore/internal/domain/report"
)

func scored(name string, total int) model.ScoredEvent {
	return model.ScoredEvent{
		EventID:          "id-" + name,
		CompanyName:      name,
		TotalScore:       total,
		Notes:            "note for " + name,
		NextStepStrategy: "step",
		Problems:         []string{},
	}
}

func TestAssemble(t *testing.T) {
	Convey("Given scored events in arbitrary order", t, func() {
		in := []model.ScoredEvent{
			scored("Bravo", 40),
			scored("Alpha", 75),
			scored("Delta", 10),
			scored("Charlie", 40),
		}
		before := make([]model.ScoredEvent, len(in))
		copy(before, in)

		r := report.Assemble(in, 6, 2)

		Convey("Then rows are ranked by total with name tie-breaks", func() {
			names := make([]string, len(r.Ranked))
			for i, row := range r.Ranked {
				names[i] = row.CompanyName
				So(row.Rank, ShouldEqual, i+1)
			}
			So(names, ShouldResemble, []string{"Alpha", "Bravo", "Charlie", "Delta"})
		})

		Convey("And counts reflect the whole input", func() {
			So(r.TotalInput, ShouldEqual, 6)
			So(r.Scored, ShouldEqual, 4)
			So(r.Skipped, ShouldEqual, 2)
			So(r.Qualified, ShouldEqual, 3)
			So(r.QualifyThreshold, ShouldEqual, 30)
		})

		Convey("And the input slice is left untouched", func() {
			So(cmp.Diff(before, in), ShouldBeEmpty)
		})

		Convey("And drafts are rendered for the three leaders", func() {
			So(r.Drafts, ShouldHaveLength, 3)
			So(r.Drafts[0].CompanyName, ShouldEqual, "Alpha")
			So(r.Drafts[0].Subject, ShouldEqual, "Hosting a future Alpha at our convention centre")
			So(r.Drafts[0].Body, ShouldStartWith, "Dear Organizing Committee,")
		})
	})

	Convey("Given more events than the ranked section holds", t, func() {
		var in []model.ScoredEvent
		for i := 0; i < 30; i++ {
			in = append(in, scored(fmt.Sprintf("Event %02d", i), i*3))
		}

		r := report.Assemble(in, len(in), 0, report.WithTopN(5), report.WithQualifyThreshold(60), report.WithDraftCount(0))

		Convey("Then only the top N are listed but all qualified are counted", func() {
			So(r.Ranked, ShouldHaveLength, 5)
			So(r.Ranked[0].CompanyName, ShouldEqual, "Event 29")
			So(r.Qualified, ShouldEqual, 10)
			So(r.Drafts, ShouldBeEmpty)
		})
	})

	Convey("Given a well-described top event", t, func() {
		avg := 450
		ev := scored("ASEAN Law Forum", 90)
		ev.KeyPersonName = "Dr. Mai Tran"
		ev.KeyPersonEmail = "mai@alf.org"
		ev.VietnamEventCount = 2
		ev.AverageDelegates = &avg

		r := report.Assemble([]model.ScoredEvent{ev}, 1, 0, report.WithVenue("Riverside Convention Center"))

		Convey("Then the draft is personalised from its fields", func() {
			So(r.Drafts, ShouldHaveLength, 1)
			d := r.Drafts[0]
			So(d.To, ShouldEqual, "mai@alf.org")
			So(d.Body, ShouldContainSubstring, "Dear Dr. Mai Tran,")
			So(d.Body, ShouldContainSubstring, "held in Vietnam 2 time(s)")
			So(d.Body, ShouldContainSubstring, "around 450 onsite delegates")
			So(d.Body, ShouldContainSubstring, "Riverside Convention Center")
		})
	})

	Convey("Given leaders without Vietnam editions", t, func() {
		one := scored("Nordic Forum", 80)
		one.DistinctCountries = 1
		many := scored("Global Summit", 70)
		many.DistinctCountries = 4

		r := report.Assemble([]model.ScoredEvent{one, many}, 2, 0)

		Convey("Then the country count agrees in number", func() {
			So(r.Drafts, ShouldHaveLength, 2)
			So(r.Drafts[0].Body, ShouldContainSubstring, "has travelled to 1 country so far")
			So(r.Drafts[1].Body, ShouldContainSubstring, "has travelled to 4 countries so far")
		})
	})

	Convey("Given no scored events", t, func() {
		r := report.Assemble(nil, 3, 3)
		So(r.Ranked, ShouldBeEmpty)
		So(r.Drafts, ShouldBeEmpty)
		So(r.Markdown(), ShouldContainSubstring, "No events scored yet.")
	})
}

func TestMarkdown(t *testing.T) {
	Convey("Given an assembled report", t, func() {
		ev := scored("Pipe | Summit", 55)
		ev.Notes = "line one\nline two"
		r := report.Assemble([]model.ScoredEvent{ev, scored("Quiet Meetup", 5)}, 2, 0, report.WithDraftCount(1))
		md := r.Markdown()

		Convey("Then it carries the summary, table and drafts", func() {
			So(md, ShouldStartWith, "# Event Scoring Report\n")
			So(md, ShouldContainSubstring, "Scored 2 of 2 events (0 skipped). Qualified (total >= 30): 1.")
			So(md, ShouldContainSubstring, `| 1 | Pipe \| Summit | 0 | 0 | 0 | 0 | 55 | line one line two | step |`)
			So(md, ShouldContainSubstring, "| 2 | Quiet Meetup |")
			So(md, ShouldContainSubstring, "## Outreach drafts")
			So(strings.Count(md, "### "), ShouldEqual, 1)
		})
	})
}
