package report

import "text/template"

const subjectTemplate = `Hosting a future {{.Event}} at {{.Venue}}`

const bodyTemplate = `Dear {{.Greeting}},

{{if .VietnamEditions}}{{.Event}} has already been held in Vietnam {{.VietnamEditions}} time(s), and we would be delighted to welcome it back.
{{else if .DistinctCountries}}{{.Event}} has travelled to {{.DistinctCountries}} {{if eq .DistinctCountries 1}}country{{else}}countries{{end}} so far, and we would love to be a future stop.
{{else}}We have been following {{.Event}} with great interest.
{{end}}{{if .AverageDelegates}}With around {{.AverageDelegates}} onsite delegates per edition, the event fits our plenary and breakout capacity well.
{{end}}
We would welcome the chance to host an upcoming edition at {{.Venue}} and can share availability, floor plans and delegate packages at your convenience.

Best regards,
Event Sales Team`

var (
	subjectTmpl = template.Must(template.New("subject").Parse(subjectTemplate))
	bodyTmpl    = template.Must(template.New("body").Parse(bodyTemplate))
)

type draftData struct {
	Event             string
	Greeting          string
	Venue             string
	VietnamEditions   int
	DistinctCountries int
	AverageDelegates  int
}
