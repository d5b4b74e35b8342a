package matching_test

import (
	"errors"
	"testing"

	"github.com/okian/eventscore/internal/domain/matching"
	"github.com/okian/eventscore/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func contact(fields model.Row) model.ContactRecord {
	return model.ContactRecord{Fields: fields}
}

func TestMatch(t *testing.T) {
	Convey("Given an event with an organization identifier", t, func() {
		event := model.EventRecord{Name: "Asia Pacific Dental Congress", OrganizationID: " ORG-7 "}

		Convey("When a contact shares the identifier but names a different organization", func() {
			contacts := []model.ContactRecord{
				contact(model.Row{"Organization ID": "ORG-7", "Organization": "APDF Secretariat", "email": "sec@apdf.org"}),
				contact(model.Row{"Organization ID": "ORG-8", "Organization": "World Dental Federation"}),
			}
			res := matching.Match(event, contacts)

			Convey("Then the identifier alone links it", func() {
				So(res.Matches, ShouldHaveLength, 1)
				So(res.Matches[0].Index, ShouldEqual, 0)
				So(res.Matches[0].Rule, ShouldEqual, matching.RuleIdentifier)
				So(res.Warnings, ShouldBeEmpty)
			})
		})

		Convey("When a contact matches by identifier and by name", func() {
			contacts := []model.ContactRecord{
				contact(model.Row{"ORG_ID": "ORG-7", "Company": "asia pacific dental congress"}),
			}
			res := matching.Match(event, contacts)

			Convey("Then it is included once with an ambiguity warning", func() {
				So(res.Matches, ShouldHaveLength, 1)
				So(res.Matches[0].Rule, ShouldEqual, matching.RuleIdentifier)
				So(res.Warnings, ShouldHaveLength, 1)
				So(res.Warnings[0].Rules, ShouldResemble, []matching.Rule{matching.RuleIdentifier, matching.RuleName})
				So(errors.Is(res.Warnings[0], matching.ErrAmbiguousMatch), ShouldBeTrue)
				So(res.Warnings[0].Error(), ShouldEqual, "contact 0 matched by identifier+name")
			})
		})
	})

	Convey("Given an event without identifiers", t, func() {
		event := model.EventRecord{Name: "ASEAN Law Forum"}

		Convey("When organization names vary in case and length", func() {
			contacts := []model.ContactRecord{
				contact(model.Row{"organizationName": "Regional Bar Council"}),
				contact(model.Row{"organizationName": "asean law forum"}),
				contact(model.Row{"Organisation": "ASEAN Law Forum Secretariat"}),
				contact(model.Row{"Organisation": "ASEAN"}),
			}
			res := matching.Match(event, contacts)

			Convey("Then equality and containment link in input order", func() {
				So(res.Matches, ShouldHaveLength, 2)
				So(res.Matches[0].Index, ShouldEqual, 1)
				So(res.Matches[1].Index, ShouldEqual, 2)
				So(res.Contacts(), ShouldHaveLength, 2)
			})
		})

		Convey("When the event name is a short acronym", func() {
			short := model.EventRecord{Name: "ICC"}
			res := matching.Match(short, []model.ContactRecord{
				contact(model.Row{"Organization": "ICC Secretariat", "Email": "office@icc.org"}),
				contact(model.Row{"Organization": "icc"}),
				contact(model.Row{"Organization": "World Trade Body"}),
			})

			Convey("Then containment links it like any other name", func() {
				So(res.Matches, ShouldHaveLength, 2)
				So(res.Matches[0].Index, ShouldEqual, 0)
				So(res.Matches[1].Index, ShouldEqual, 1)
			})
		})
	})

	Convey("Given a legacy dataset keyed by series identifiers", t, func() {
		event := model.EventRecord{Name: "Congress", SeriesID: "S-100"}
		res := matching.Match(event, []model.ContactRecord{
			contact(model.Row{"Series ID": "S-100"}),
			contact(model.Row{"Series ID": "S-101"}),
		})

		So(res.Matches, ShouldHaveLength, 1)
		So(res.Matches[0].Rule, ShouldEqual, matching.RuleSeries)
	})

	Convey("Given no contacts", t, func() {
		res := matching.Match(model.EventRecord{Name: "Anything"}, nil)
		So(res.Matches, ShouldBeEmpty)
		So(res.Contacts(), ShouldBeEmpty)
	})
}

func TestPrimary(t *testing.T) {
	Convey("Given several linked contacts", t, func() {
		titled := contact(model.Row{"fullName": "Titled Only", "title": "Chair"})
		emailed := contact(model.Row{"fullName": "Email Only", "email": "e@org.example"})
		both := contact(model.Row{"fullName": "Both", "email": "b@org.example", "title": "Director"})
		bothLater := contact(model.Row{"fullName": "Both Later", "email": "l@org.example", "title": "Officer"})

		Convey("Then email and title outrank input order", func() {
			p, ok := matching.Primary([]model.ContactRecord{titled, emailed, both, bothLater})
			So(ok, ShouldBeTrue)
			name, _ := matching.Name(p)
			So(name, ShouldEqual, "Both")
		})

		Convey("Then email outranks title", func() {
			p, _ := matching.Primary([]model.ContactRecord{titled, emailed})
			name, _ := matching.Name(p)
			So(name, ShouldEqual, "Email Only")
		})

		Convey("Then an empty list has no primary", func() {
			_, ok := matching.Primary(nil)
			So(ok, ShouldBeFalse)
		})
	})
}

func TestResolvers(t *testing.T) {
	Convey("Given contacts with drifting schemas", t, func() {
		Convey("Name falls back from full name to parts to other fields", func() {
			n, ok := matching.Name(contact(model.Row{"Full Name": "Tran Thi Mai", "firstName": "X"}))
			So(ok, ShouldBeTrue)
			So(n, ShouldEqual, "Tran Thi Mai")

			n, _ = matching.Name(contact(model.Row{"FIRST_NAME": "Nguyen", "Middle Name": "Van", "lastName": "An"}))
			So(n, ShouldEqual, "Nguyen Van An")

			n, _ = matching.Name(contact(model.Row{"First Name": "Le", "Surname": " "}))
			So(n, ShouldEqual, "Le")

			n, _ = matching.Name(contact(model.Row{"Representative": "Dr. Lim"}))
			So(n, ShouldEqual, "Dr. Lim")

			_, ok = matching.Name(contact(model.Row{}))
			So(ok, ShouldBeFalse)
		})

		Convey("Email falls back to a scan for an @ token", func() {
			e, ok := matching.Email(contact(model.Row{"email": "n/a", "notes": "reach at <a.b@org.vn> or phone"}))
			So(ok, ShouldBeTrue)
			So(e, ShouldEqual, "a.b@org.vn")

			e, _ = matching.Email(contact(model.Row{"E-mail": "mailto:x@y.io; z@y.io"}))
			So(e, ShouldEqual, "x@y.io")

			_, ok = matching.Email(contact(model.Row{"email": "broken@", "other": "no address"}))
			So(ok, ShouldBeFalse)
		})

		Convey("Phone requires seven digits", func() {
			p, ok := matching.Phone(contact(model.Row{"Telephone": "+84 24 123"}))
			So(ok, ShouldBeTrue)
			So(p, ShouldEqual, "+84 24 123")

			_, ok = matching.Phone(contact(model.Row{"phone": "123-45"}))
			So(ok, ShouldBeFalse)
		})

		Convey("Title uses its synonym list", func() {
			title, ok := matching.Title(contact(model.Row{"Designation": "Secretary General"}))
			So(ok, ShouldBeTrue)
			So(title, ShouldEqual, "Secretary General")
		})
	})
}

func TestValidators(t *testing.T) {
	Convey("Email shape validation", t, func() {
		So(matching.ValidEmail("a@b.co"), ShouldBeTrue)
		So(matching.ValidEmail(" a@b.co "), ShouldBeTrue)
		So(matching.ValidEmail("a@b"), ShouldBeFalse)
		So(matching.ValidEmail("a b@c.io"), ShouldBeFalse)
		So(matching.ValidEmail(""), ShouldBeFalse)
	})

	Convey("Phone digit validation", t, func() {
		So(matching.ValidPhone("(028) 3822-1234"), ShouldBeTrue)
		So(matching.ValidPhone("1234567"), ShouldBeTrue)
		So(matching.ValidPhone("123456"), ShouldBeFalse)
	})
}
