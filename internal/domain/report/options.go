package report

// Option applies a configuration option to Assemble.
type Option func(*settings)

type settings struct {
	topN             int
	qualifyThreshold int
	draftCount       int
	venue            string
}

const (
	defaultTopN             = 20
	defaultQualifyThreshold = 30
	defaultDraftCount       = 3
	defaultVenue            = "our convention centre"
)

func defaults() settings {
	return settings{
		topN:             defaultTopN,
		qualifyThreshold: defaultQualifyThreshold,
		draftCount:       defaultDraftCount,
		venue:            defaultVenue,
	}
}

// WithTopN bounds the ranked section.
func WithTopN(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.topN = n
		}
	}
}

// WithQualifyThreshold sets the minimum total counted as qualified.
func WithQualifyThreshold(n int) Option {
	return func(s *settings) {
		if n >= 0 {
			s.qualifyThreshold = n
		}
	}
}

// WithDraftCount sets how many outreach drafts are rendered. Zero disables
// drafts.
func WithDraftCount(n int) Option {
	return func(s *settings) {
		if n >= 0 {
			s.draftCount = n
		}
	}
}

// WithVenue sets the venue name used in outreach drafts.
func WithVenue(name string) Option {
	return func(s *settings) {
		if name != "" {
			s.venue = name
		}
	}
}
