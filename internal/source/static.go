package source

import "context"

// StaticSource serves records defined inline in the configuration. Used for
// bootstrap setups without a Notion database and throughout the tests.
type StaticSource struct {
	records []Record
}

// NewStaticSource creates a static source over the given records.
func NewStaticSource(records []Record) *StaticSource {
	return &StaticSource{records: records}
}

// Name returns "static".
func (s *StaticSource) Name() string {
	return "static"
}

// List returns a copy of the configured records.
func (s *StaticSource) List(ctx context.Context) ([]Record, error) {
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out, nil
}

// Validate always succeeds; there is nothing to connect to.
func (s *StaticSource) Validate(ctx context.Context) error {
	return nil
}
