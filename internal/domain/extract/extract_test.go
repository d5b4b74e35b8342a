package extract_test

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/okian/eventscore/internal/domain/extract"
	"github.com/okian/eventscore/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestValue(t *testing.T) {
	Convey("Given rows with drifting column names", t, func() {
		Convey("When the exact key exists", func() {
			row := model.Row{"City": "Hanoi", "city": "Saigon"}
			v, ok := extract.Value(row, "City")

			Convey("Then the exact match wins over case variants", func() {
				So(ok, ShouldBeTrue)
				So(v, ShouldEqual, "Hanoi")
			})
		})

		Convey("When only a case variant exists", func() {
			row := model.Row{"LOCATION CITY": "  Da Nang  "}
			v, ok := extract.Value(row, "city", "Location City")

			Convey("Then the case-insensitive match is trimmed and returned", func() {
				So(ok, ShouldBeTrue)
				So(v, ShouldEqual, "Da Nang")
			})
		})

		Convey("When the first candidate is empty", func() {
			row := model.Row{"city": "   ", "Location City": "Bangkok"}
			v, ok := extract.Value(row, "city", "Location City")

			Convey("Then the next candidate is used", func() {
				So(ok, ShouldBeTrue)
				So(v, ShouldEqual, "Bangkok")
			})
		})

		Convey("When the exact key is empty but a case variant has a value", func() {
			row := model.Row{"City": "", "CITY": "Singapore"}
			v, ok := extract.Value(row, "City")

			Convey("Then the case variant is accepted", func() {
				So(ok, ShouldBeTrue)
				So(v, ShouldEqual, "Singapore")
			})
		})

		Convey("When candidate order disagrees with row order", func() {
			row := model.Row{"Location City": "Bangkok", "city": "Hanoi"}
			v, _ := extract.Value(row, "Location City", "city")

			Convey("Then candidate order decides", func() {
				So(v, ShouldEqual, "Bangkok")
			})
		})

		Convey("When values are numeric", func() {
			row := model.Row{"year": 2022.0, "count": 400, "nan": math.NaN(), "inf": math.Inf(1), "num": json.Number("12.5")}

			Convey("Then finite numbers are stringified", func() {
				v, ok := extract.Value(row, "year")
				So(ok, ShouldBeTrue)
				So(v, ShouldEqual, "2022")

				v, ok = extract.Value(row, "count")
				So(ok, ShouldBeTrue)
				So(v, ShouldEqual, "400")

				v, ok = extract.Value(row, "num")
				So(ok, ShouldBeTrue)
				So(v, ShouldEqual, "12.5")
			})

			Convey("And non-finite numbers are rejected", func() {
				_, ok := extract.Value(row, "nan", "inf")
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When nothing matches", func() {
			_, ok := extract.Value(model.Row{"a": true, "b": nil}, "a", "b", "c")

			Convey("Then no value is returned", func() {
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When the row is nil", func() {
			_, ok := extract.Value(nil, "city")
			So(ok, ShouldBeFalse)
		})
	})
}

func TestLookup(t *testing.T) {
	Convey("Given a contact row using spreadsheet headers", t, func() {
		row := model.Row{"EMAIL ADDRESS": "jane@org.example", "Job Title": "Director"}

		Convey("Then synonym tables resolve logical fields", func() {
			email, ok := extract.Lookup(row, extract.ContactEmail)
			So(ok, ShouldBeTrue)
			So(email, ShouldEqual, "jane@org.example")

			title, ok := extract.Lookup(row, extract.ContactTitle)
			So(ok, ShouldBeTrue)
			So(title, ShouldEqual, "Director")

			_, ok = extract.Lookup(row, extract.ContactPhone)
			So(ok, ShouldBeFalse)
		})
	})

	Convey("Every logical field has at least one candidate", t, func() {
		for f, keys := range extract.Synonyms {
			So(string(f), ShouldNotBeEmpty)
			So(len(keys), ShouldBeGreaterThan, 0)
		}
	})
}

func TestScan(t *testing.T) {
	Convey("Given a row with several candidate values", t, func() {
		row := model.Row{"zeta": "z@x.io", "alpha": "a@x.io", "notes": "call later"}

		Convey("When scanning for an @ token", func() {
			v, ok := extract.Scan(row, func(s string) (string, bool) {
				return s, strings.Contains(s, "@")
			})

			Convey("Then keys are visited in sorted order", func() {
				So(ok, ShouldBeTrue)
				So(v, ShouldEqual, "a@x.io")
			})
		})
	})
}

func TestNumber(t *testing.T) {
	Convey("Given loose numeric cells", t, func() {
		cases := []struct {
			in   any
			want float64
		}{
			{400, 400},
			{"1,200", 1200},
			{"approx. 350", 350},
			{" 512.5 ", 512.5},
			{"-40", -40},
			{json.Number("90"), 90},
		}
		for _, c := range cases {
			got, ok := extract.Number(c.in)
			So(ok, ShouldBeTrue)
			So(got, ShouldEqual, c.want)
		}

		for _, in := range []any{"n/a", "", nil, true, math.NaN()} {
			_, ok := extract.Number(in)
			So(ok, ShouldBeFalse)
		}
	})
}

func TestNormalize(t *testing.T) {
	Convey("Given Vietnamese place names with diacritics", t, func() {
		So(extract.Normalize("Hà Nội"), ShouldEqual, "ha noi")
		So(extract.Normalize("  ĐÀ   NẴNG "), ShouldEqual, "da nang")
		So(extract.Compact("Hồ Chí Minh"), ShouldEqual, "hochiminh")
		So(extract.Normalize("Việt Nam"), ShouldEqual, "viet nam")
	})
}
