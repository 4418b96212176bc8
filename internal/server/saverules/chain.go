package saverules

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophsync/internal/server/models"
)

// Chain runs rules in the order given to NewChain and stops at the first
// failure. It holds no mutable state and is safe for concurrent use.
type Chain struct {
	rules []Rule
}

func NewChain(rules ...Rule) *Chain {
	return &Chain{rules: rules}
}

// NewDefaultChain wires the production rule order. Cheap format checks run
// first, then authorization, then the payload and staleness checks that only
// make sense for an authorized write.
func NewDefaultChain(groups GroupFinder, permissions PermissionResolver, maxContentBytes int64, syncLeeway time.Duration) *Chain {
	return NewChain(
		NewUUIDFilter(),
		NewContentTypeFilter(),
		NewOwnershipFilter(groups, permissions),
		NewContentFilter(maxContentBytes),
		NewTimeDifferenceFilter(syncLeeway),
	)
}

// Rules returns the rule names in evaluation order.
func (c *Chain) Rules() []string {
	names := make([]string, len(c.rules))
	for i, r := range c.rules {
		names[i] = r.Name()
	}
	return names
}

func (c *Chain) Check(ctx context.Context, in Input) (Verdict, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	for _, r := range c.rules {
		v, err := r.Check(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", r.Name(), err)
		}
		if f, ok := v.(Failed); ok {
			return f, nil
		}
	}

	return Passed{}, nil
}

// ConflictOf extracts the conflict from a verdict, if any.
func ConflictOf(v Verdict) (models.Conflict, bool) {
	switch v := v.(type) {
	case Failed:
		return v.Conflict, true
	case Passed:
		return models.Conflict{}, false
	default:
		panic(fmt.Sprintf("saverules: unexpected verdict %T", v))
	}
}
