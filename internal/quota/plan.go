// Package quota decides which plan a caller is on and whether they may solve
// another problem this month.
package quota

import "strings"

// Plan is a billing tier.
type Plan string

const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
	PlanMax  Plan = "max"
)

// Unlimited is the Limit of plans without a monthly cap.
const Unlimited = -1

// monthly solve limits per plan
var limits = map[Plan]int{
	PlanFree: 2,
	PlanPro:  8,
	PlanMax:  Unlimited,
}

// Limit returns the monthly solve limit, Unlimited for Max. Unknown plans
// get the Free limit.
func (p Plan) Limit() int {
	if l, ok := limits[p]; ok {
		return l
	}
	return limits[PlanFree]
}

// Every paid plan is known to the provider under two tags: its display name
// and its short slug.
var planTags = []struct {
	plan Plan
	tags []string
}{
	// Max is listed first: a caller matching both resolves to Max.
	{PlanMax, []string{"Max Plan", "max"}},
	{PlanPro, []string{"Pro Plan", "pro"}},
}

// MatchTag maps a provider plan tag to a paid Plan. Matching ignores case and
// surrounding whitespace. ok is false for anything unrecognised.
func MatchTag(tag string) (Plan, bool) {
	t := strings.TrimSpace(tag)
	for _, pt := range planTags {
		for _, candidate := range pt.tags {
			if strings.EqualFold(t, candidate) {
				return pt.plan, true
			}
		}
	}
	return "", false
}
