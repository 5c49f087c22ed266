package app

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"skywardportal/pkg/access"
	"skywardportal/pkg/auth"
	"skywardportal/pkg/domain"
)

// LeadEvent is the payload published on lead lifecycle changes.
type LeadEvent struct {
	LeadID      string     `json:"leadId"`
	FullName    string     `json:"fullName"`
	Status      string     `json:"status"`
	AccessUntil *time.Time `json:"accessUntil,omitempty"`
	OccurredAt  time.Time  `json:"occurredAt"`
}

// CaptureLead records a prospective customer from the purchase form. When the
// caller is signed in, the lead is linked to their account so the dashboard
// can evaluate it later.
func (a *App) CaptureLead(ctx context.Context, fullName string, age int, userID string) (domain.Lead, error) {
	fullName = strings.TrimSpace(fullName)
	if err := auth.ValidateFullName(fullName); err != nil {
		return domain.Lead{}, err
	}
	if err := auth.ValidateAge(age); err != nil {
		return domain.Lead{}, err
	}
	lead := domain.Lead{
		ID:        uuid.NewString(),
		FullName:  fullName,
		Age:       age,
		Status:    domain.LeadPending,
		UserID:    userID,
		CreatedAt: a.now().UTC(),
	}
	if err := a.store.SaveLead(lead); err != nil {
		return domain.Lead{}, fmt.Errorf("save lead: %w", err)
	}
	a.publish(ctx, "lead.captured", LeadEvent{
		LeadID:     lead.ID,
		FullName:   lead.FullName,
		Status:     string(lead.Status),
		OccurredAt: lead.CreatedAt,
	})
	return lead, nil
}

// HandoffLink builds the Telegram deep link the purchase page redirects to
// after capturing a lead.
func (a *App) HandoffLink(lead domain.Lead) string {
	message := fmt.Sprintf("Salom! Men kitob sotib olmoqchiman.\nIsm: %s\nYosh: %d", lead.FullName, lead.Age)
	return fmt.Sprintf("https://t.me/%s?text=%s", a.telegramHandle, url.QueryEscape(message))
}

// ApproveLead grants the lead a fresh access window. Re-approving resets the
// window from now; it never stacks onto the previous one.
func (a *App) ApproveLead(ctx context.Context, id string) (domain.Lead, error) {
	lead, ok, err := a.store.GetLead(id)
	if err != nil {
		return domain.Lead{}, fmt.Errorf("get lead: %w", err)
	}
	if !ok {
		return domain.Lead{}, ErrLeadNotFound
	}
	until := a.now().UTC().Add(access.GrantDuration)
	lead.Status = domain.LeadApproved
	lead.AccessUntil = &until
	if err := a.store.SaveLead(lead); err != nil {
		return domain.Lead{}, fmt.Errorf("save lead: %w", err)
	}
	a.publish(ctx, "lead.approved", LeadEvent{
		LeadID:      lead.ID,
		FullName:    lead.FullName,
		Status:      string(lead.Status),
		AccessUntil: lead.AccessUntil,
		OccurredAt:  a.now().UTC(),
	})
	return lead, nil
}

// BlockLead revokes access immediately and clears the window.
func (a *App) BlockLead(ctx context.Context, id string) (domain.Lead, error) {
	lead, ok, err := a.store.GetLead(id)
	if err != nil {
		return domain.Lead{}, fmt.Errorf("get lead: %w", err)
	}
	if !ok {
		return domain.Lead{}, ErrLeadNotFound
	}
	lead.Status = domain.LeadBlocked
	lead.AccessUntil = nil
	if err := a.store.SaveLead(lead); err != nil {
		return domain.Lead{}, fmt.Errorf("save lead: %w", err)
	}
	a.publish(ctx, "lead.blocked", LeadEvent{
		LeadID:     lead.ID,
		FullName:   lead.FullName,
		Status:     string(lead.Status),
		OccurredAt: a.now().UTC(),
	})
	return lead, nil
}

// ListLeads returns leads newest-first, optionally filtered by status.
func (a *App) ListLeads(status domain.LeadStatus) ([]domain.Lead, error) {
	switch status {
	case "", domain.LeadPending, domain.LeadApproved, domain.LeadBlocked:
	default:
		return nil, fmt.Errorf("unknown lead status %q", status)
	}
	return a.store.ListLeads(status)
}

// SubmitCV stores a CV for the caller's lead. Accepted only from the lead's
// owner, only while the monthly window is open, only once, and only for PDF
// files up to 5MB. The submitted flag never goes back to false.
func (a *App) SubmitCV(ctx context.Context, userID, leadID, fileName string, content io.Reader, size int64) (domain.Lead, error) {
	lead, ok, err := a.store.GetLead(leadID)
	if err != nil {
		return domain.Lead{}, fmt.Errorf("get lead: %w", err)
	}
	if !ok {
		return domain.Lead{}, ErrLeadNotFound
	}
	if lead.UserID == "" || lead.UserID != userID {
		return domain.Lead{}, ErrNotLeadOwner
	}
	now := a.now()
	if !access.InWindow(now, access.SubmissionWindowStart, access.SubmissionWindowEnd) {
		return domain.Lead{}, ErrCVWindowClosed
	}
	if lead.HasCVSubmitted {
		return domain.Lead{}, ErrCVAlreadySent
	}
	if !strings.EqualFold(path.Ext(fileName), ".pdf") {
		return domain.Lead{}, ErrCVNotPDF
	}
	if size <= 0 || size > maxCVSize {
		return domain.Lead{}, ErrCVTooLarge
	}

	key := fmt.Sprintf("cv/%s/%d_%s", lead.ID, now.UTC().Unix(), sanitizeObjectName(fileName))
	if err := a.objects.Put(ctx, key, content, size, "application/pdf"); err != nil {
		return domain.Lead{}, fmt.Errorf("store cv: %w", err)
	}
	lead.HasCVSubmitted = true
	if err := a.store.SaveLead(lead); err != nil {
		return domain.Lead{}, fmt.Errorf("save lead: %w", err)
	}
	return lead, nil
}

// SubmissionWindow describes the monthly CV window for the dashboard.
type SubmissionWindow struct {
	Open      bool             `json:"open"`
	StartDay  int              `json:"startDay"`
	EndDay    int              `json:"endDay"`
	NextStart time.Time        `json:"nextStart"`
	Countdown access.Countdown `json:"countdown"`
}

// AccessReport is the dashboard payload: the derived decision plus the
// numbers the countdown and progress widgets render. It is recomputed on
// every request; clients refresh it rather than ticking state locally.
type AccessReport struct {
	Decision         access.Decision  `json:"decision"`
	CanReadFull      bool             `json:"canReadFullContent"`
	Lead             *domain.Lead     `json:"lead,omitempty"`
	AccessUntil      *time.Time       `json:"accessUntil,omitempty"`
	Countdown        access.Countdown `json:"countdown"`
	RemainingPercent float64          `json:"remainingPercent"`
	SubmissionWindow SubmissionWindow `json:"submissionWindow"`
}

// BuildAccessReport evaluates the caller's newest lead against the clock.
func (a *App) BuildAccessReport(userID string) (AccessReport, error) {
	now := a.now()
	report := AccessReport{
		SubmissionWindow: a.submissionWindow(now),
	}

	lead, ok, err := a.store.LatestLeadForUser(userID)
	if err != nil {
		return AccessReport{}, fmt.Errorf("latest lead: %w", err)
	}
	if !ok {
		report.Decision = access.NoLead
		return report, nil
	}

	report.Lead = &lead
	report.Decision = access.Evaluate(&lead, now)
	report.CanReadFull = report.Decision.CanReadFullContent()
	if report.Decision == access.ApprovedActive {
		report.AccessUntil = lead.AccessUntil
		report.Countdown = access.Until(*lead.AccessUntil, now)
		report.RemainingPercent = access.RemainingPercent(*lead.AccessUntil, access.GrantDuration, now)
	}
	return report, nil
}

func (a *App) submissionWindow(now time.Time) SubmissionWindow {
	nextStart := access.NextWindowStart(now, access.SubmissionWindowStart, access.SubmissionWindowEnd)
	return SubmissionWindow{
		Open:      access.InWindow(now, access.SubmissionWindowStart, access.SubmissionWindowEnd),
		StartDay:  access.SubmissionWindowStart,
		EndDay:    access.SubmissionWindowEnd,
		NextStart: nextStart,
		Countdown: access.Until(nextStart, now),
	}
}
