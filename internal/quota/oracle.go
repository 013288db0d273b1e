package quota

import (
	"context"
	"fmt"
	"strings"

	"github.com/sakif/stepwise/internal/identity"
)

// PlanOracle answers "which plan is this identity on".
type PlanOracle interface {
	ResolvePlan(ctx context.Context, id identity.Identity) (Plan, error)
}

// BillingDirectory is the part of the identity provider's backend API the
// oracle reads. *identity.Client implements it.
type BillingDirectory interface {
	ListSubscriptions(ctx context.Context, userID string) ([]identity.Subscription, error)
	GetPublicMetadata(ctx context.Context, userID string) (identity.Metadata, error)
}

var _ BillingDirectory = (*identity.Client)(nil)

// ProviderOracle resolves plans against the identity provider. First match
// wins:
//
//  1. entitlement tags on the session token
//  2. an active or trialing subscription whose plan name (or slug) is a
//     known tag
//  3. public_metadata.plan, set by an operator
//  4. Free
//
// Within each step Max beats Pro. Provider errors abort the resolution; the
// caller decides whether to degrade.
type ProviderOracle struct {
	dir BillingDirectory
}

var _ PlanOracle = (*ProviderOracle)(nil)

// NewProviderOracle returns an oracle reading from dir.
func NewProviderOracle(dir BillingDirectory) *ProviderOracle {
	return &ProviderOracle{dir: dir}
}

func (o *ProviderOracle) ResolvePlan(ctx context.Context, id identity.Identity) (Plan, error) {
	if plan, ok := fromEntitlements(id); ok {
		return plan, nil
	}

	subs, err := o.dir.ListSubscriptions(ctx, id.ID)
	if err != nil {
		return "", fmt.Errorf("quota: listing subscriptions: %w", err)
	}
	if plan, ok := fromSubscriptions(subs); ok {
		return plan, nil
	}

	meta, err := o.dir.GetPublicMetadata(ctx, id.ID)
	if err != nil {
		return "", fmt.Errorf("quota: reading plan metadata: %w", err)
	}
	if plan, ok := MatchTag(meta.Plan); ok {
		return plan, nil
	}

	return PlanFree, nil
}

func fromEntitlements(id identity.Identity) (Plan, bool) {
	for _, pt := range planTags {
		for _, tag := range pt.tags {
			if id.HasEntitlement(tag) {
				return pt.plan, true
			}
		}
	}
	return "", false
}

func fromSubscriptions(subs []identity.Subscription) (Plan, bool) {
	best, found := Plan(""), false
	for _, s := range subs {
		if !countsAsSubscribed(s.Status) {
			continue
		}
		plan, ok := MatchTag(s.PlanName)
		if !ok {
			plan, ok = MatchTag(s.PlanSlug)
		}
		if !ok {
			continue
		}
		if plan == PlanMax {
			return PlanMax, true
		}
		best, found = plan, true
	}
	return best, found
}

func countsAsSubscribed(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "active", "trialing":
		return true
	}
	return false
}
