package saverules

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophsync/internal/server/models"
	"github.com/google/uuid"
)

// UUIDFilter rejects writes whose uuid does not parse.
type UUIDFilter struct{}

func NewUUIDFilter() *UUIDFilter { return &UUIDFilter{} }

func (f *UUIDFilter) Name() string { return "uuid" }

func (f *UUIDFilter) Check(_ context.Context, in Input) (Verdict, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(in.ItemHash.UUID); err != nil {
		return fail(f.Name(), in, models.ConflictUUIDFormat)
	}
	return pass()
}

// ContentTypeFilter rejects unknown content types. Deletions carry no
// meaningful content type and are let through.
type ContentTypeFilter struct{}

func NewContentTypeFilter() *ContentTypeFilter { return &ContentTypeFilter{} }

func (f *ContentTypeFilter) Name() string { return "content_type" }

func (f *ContentTypeFilter) Check(_ context.Context, in Input) (Verdict, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if in.ItemHash.Deleted || in.ItemHash.ContentType.Known() {
		return pass()
	}
	return fail(f.Name(), in, models.ConflictContentType)
}

// ContentFilter caps the payload size of a single item. A non-positive limit
// disables the check.
type ContentFilter struct {
	maxBytes int64
}

func NewContentFilter(maxBytes int64) *ContentFilter {
	return &ContentFilter{maxBytes: maxBytes}
}

func (f *ContentFilter) Name() string { return "content" }

func (f *ContentFilter) Check(_ context.Context, in Input) (Verdict, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if f.maxBytes <= 0 || in.ItemHash.Deleted || in.ItemHash.ContentSize() <= f.maxBytes {
		return pass()
	}
	return fail(f.Name(), in, models.ConflictContent)
}

// TimeDifferenceFilter detects edits made on a stale copy: the client must
// send back the updated_at_timestamp it last saw, within leeway.
type TimeDifferenceFilter struct {
	leewayMicros int64
}

func NewTimeDifferenceFilter(leeway time.Duration) *TimeDifferenceFilter {
	micros := leeway.Microseconds()
	if micros < 1 {
		micros = 1
	}
	return &TimeDifferenceFilter{leewayMicros: micros}
}

func (f *TimeDifferenceFilter) Name() string { return "time_difference" }

func (f *TimeDifferenceFilter) Check(_ context.Context, in Input) (Verdict, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if in.ExistingItem == nil {
		return pass()
	}

	diff := in.ItemHash.UpdatedAtTimestamp - in.ExistingItem.UpdatedAtTimestamp
	if diff < 0 {
		diff = -diff
	}
	if diff < f.leewayMicros {
		return pass()
	}

	server := *in.ExistingItem
	return Failed{
		Rule: f.Name(),
		Conflict: models.Conflict{
			UnsavedItem: *in.ItemHash,
			ServerItem:  &server,
			Type:        models.ConflictSync,
		},
	}, nil
}
