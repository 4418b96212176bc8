package models

import (
	"fmt"

	"github.com/dmitrijs2005/gophsync/internal/common"
	"github.com/google/uuid"
)

// ItemContentSizeDescriptor pairs an item uuid with its stored content size.
// It exists only for transfer-limit and quota arithmetic.
type ItemContentSizeDescriptor struct {
	uuid        string
	contentSize int64
}

// NewItemContentSizeDescriptor validates its input: the uuid must parse and
// the size must not be negative.
func NewItemContentSizeDescriptor(itemUUID string, contentSize int64) (ItemContentSizeDescriptor, error) {
	if _, err := uuid.Parse(itemUUID); err != nil {
		return ItemContentSizeDescriptor{}, fmt.Errorf("%w: malformed uuid %q", common.ErrInvalidDescriptor, itemUUID)
	}
	if contentSize < 0 {
		return ItemContentSizeDescriptor{}, fmt.Errorf("%w: negative content size %d", common.ErrInvalidDescriptor, contentSize)
	}
	return ItemContentSizeDescriptor{uuid: itemUUID, contentSize: contentSize}, nil
}

func (d ItemContentSizeDescriptor) UUID() string { return d.uuid }

func (d ItemContentSizeDescriptor) ContentSize() int64 { return d.contentSize }
