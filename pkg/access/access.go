// Package access holds the pure time and state computations that gate book
// content: the access decision derived from a lead record, the recurring CV
// submission window, and the countdown shown on the dashboard. Nothing in this
// package reads the clock or touches storage; callers pass "now" explicitly.
package access

import (
	"time"

	"skywardportal/pkg/domain"
)

// Decision is the derived access state for one account. It is recomputed on
// every evaluation and never persisted; expiry is not written back.
type Decision string

const (
	NoLead          Decision = "no_lead"
	Pending         Decision = "pending"
	Blocked         Decision = "blocked"
	ApprovedActive  Decision = "approved_active"
	ApprovedExpired Decision = "approved_expired"
)

// GrantDuration is the access window granted on approval. The product copy
// calls it "6 months" but the grant is a fixed 180-day duration, not
// calendar-month arithmetic.
const GrantDuration = 180 * 24 * time.Hour

// Evaluate derives the access decision from a lead record and the current
// time. A nil lead means the account has no lead at all. Approved leads with a
// missing or past AccessUntil evaluate as expired, never active.
func Evaluate(lead *domain.Lead, now time.Time) Decision {
	if lead == nil {
		return NoLead
	}
	switch lead.Status {
	case domain.LeadBlocked:
		return Blocked
	case domain.LeadPending:
		return Pending
	case domain.LeadApproved:
		if lead.AccessUntil != nil && lead.AccessUntil.After(now) {
			return ApprovedActive
		}
		return ApprovedExpired
	default:
		return NoLead
	}
}

// CanReadFullContent reports whether the decision unlocks the full book.
// Every other state renders a blocking message with no content payload.
func (d Decision) CanReadFullContent() bool {
	return d == ApprovedActive
}
