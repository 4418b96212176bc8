// Package saverules holds the ordered validation rules every incoming item
// write passes before it is persisted. A rule either passes the write or
// fails it with a conflict; lookup errors are returned separately and never
// turned into verdicts.
package saverules

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophsync/internal/common"
	"github.com/dmitrijs2005/gophsync/internal/server/models"
)

// Input is the validation context of one write attempt. Rules must not
// modify it.
type Input struct {
	// UserUUID is the acting user.
	UserUUID string
	// ItemHash is the incoming write.
	ItemHash *models.ItemHash
	// ExistingItem is the stored item with the same uuid, nil on first write.
	ExistingItem *models.Item
}

func (in Input) validate() error {
	if in.UserUUID == "" {
		return fmt.Errorf("%w: empty acting user", common.ErrPrecondition)
	}
	if in.ItemHash == nil {
		return fmt.Errorf("%w: nil item hash", common.ErrPrecondition)
	}
	return nil
}

// Verdict is either Passed or Failed. The set is closed: only this package
// can add variants.
type Verdict interface {
	isVerdict()
}

// Passed accepts the write.
type Passed struct{}

// Failed rejects the write. Rule names the rule that produced the conflict.
type Failed struct {
	Rule     string
	Conflict models.Conflict
}

func (Passed) isVerdict() {}
func (Failed) isVerdict() {}

// Rule is one step of the chain.
type Rule interface {
	Name() string
	Check(ctx context.Context, in Input) (Verdict, error)
}

func pass() (Verdict, error) {
	return Passed{}, nil
}

func fail(rule string, in Input, t models.ConflictType) (Verdict, error) {
	return Failed{
		Rule: rule,
		Conflict: models.Conflict{
			UnsavedItem: *in.ItemHash,
			Type:        t,
		},
	}, nil
}
