package fakes

import (
	"context"

	"github.com/Activ8-AI/maosec/internal/source"
)

// FakeSource is a canned source.Source for tests.
type FakeSource struct {
	SourceName  string
	Records     []source.Record
	ListErr     error
	ValidateErr error
}

// NewFakeSource creates a fake source with the given records.
func NewFakeSource(records ...source.Record) *FakeSource {
	return &FakeSource{SourceName: "fake", Records: records}
}

func (f *FakeSource) Name() string {
	return f.SourceName
}

func (f *FakeSource) List(ctx context.Context) ([]source.Record, error) {
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	return append([]source.Record(nil), f.Records...), nil
}

func (f *FakeSource) Validate(ctx context.Context) error {
	return f.ValidateErr
}
