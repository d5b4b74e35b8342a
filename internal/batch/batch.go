// Package batch reads scoring batches from YAML or JSON files.
package batch

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/okian/eventscore/internal/domain/model"
)

// Stdin is the path that selects standard input.
const Stdin = "-"

// Sentinel kinds for batch errors.
var (
	ErrRead    = errors.New("read batch")
	ErrDecode  = errors.New("decode batch")
	ErrNoEvent = errors.New("batch has no events")
)

// Batch is one run's worth of input.
type Batch struct {
	IdempotencyKey string                 `json:"idempotency_key,omitempty" yaml:"idempotency_key,omitempty"`
	Events         []model.EventRecord    `json:"events" yaml:"events"`
	Contacts       []model.ContactRecord  `json:"contacts,omitempty" yaml:"contacts,omitempty"`
	Criteria       *model.ScoringCriteria `json:"criteria,omitempty" yaml:"criteria,omitempty"`
}

// CriteriaOr returns the batch criteria, or def when the batch has none.
func (b *Batch) CriteriaOr(def model.ScoringCriteria) model.ScoringCriteria {
	if b.Criteria == nil {
		return def
	}
	return *b.Criteria
}

// Load reads a batch from path. Stdin reads from in.
func Load(path string, in io.Reader) (*Batch, error) {
	var (
		data []byte
		err  error
	)
	if path == Stdin {
		data, err = io.ReadAll(in)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrRead, path, err)
	}
	return Decode(data)
}

// Decode parses a batch document. JSON is accepted as a subset of YAML.
func Decode(data []byte) (*Batch, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrNoEvent
	}
	var b Batch
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if len(b.Events) == 0 {
		return nil, ErrNoEvent
	}
	for i := range b.Events {
		b.Events[i].Name = strings.TrimSpace(b.Events[i].Name)
	}
	return &b, nil
}
