package domain

import "time"

type LeadStatus string

const (
	LeadPending  LeadStatus = "pending"
	LeadApproved LeadStatus = "approved"
	LeadBlocked  LeadStatus = "blocked"
)

// RoleAdmin is the only privileged role. Membership lives in the user_roles
// table rather than as a column on users.
const RoleAdmin = "admin"

// Lead is one prospective customer captured by the purchase form.
// AccessUntil is non-nil only while the lead is approved; blocking clears it.
type Lead struct {
	ID             string     `json:"id"`
	FullName       string     `json:"fullName"`
	Age            int        `json:"age"`
	Status         LeadStatus `json:"status"`
	AccessUntil    *time.Time `json:"accessUntil,omitempty"`
	HasCVSubmitted bool       `json:"hasCvSubmitted"`
	UserID         string     `json:"userId,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// Book is one catalog entry backed by a stored file. At most one book is
// primary at any time; the application enforces it, not the database.
type Book struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	FilePath     string    `json:"-"`
	FileName     string    `json:"fileName"`
	FileSize     int64     `json:"fileSize"`
	IsPrimary    bool      `json:"isPrimary"`
	DisplayOrder int       `json:"displayOrder"`
	PageCount    int       `json:"pageCount,omitempty"`
	ContentType  string    `json:"contentType,omitempty"`
	CreatedBy    string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Profile mirrors the profiles table: one row per authenticated account.
type Profile struct {
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	FullName  string    `json:"fullName,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
