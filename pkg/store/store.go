package store

import "skywardportal/pkg/domain"

// Store defines persistence over the portal tables: users, profiles,
// user_roles, leads, and books.
type Store interface {
	// users
	SaveUser(domain.User) error
	HasUserEmail(email string) (bool, error)
	GetUserByEmail(email string) (domain.User, bool, error)
	GetUserByID(id string) (domain.User, bool, error)
	UserCount() (int, error)

	// profiles
	SaveProfile(domain.Profile) error
	GetProfile(userID string) (domain.Profile, bool, error)

	// roles
	AddRole(userID, role string) error
	HasRole(userID, role string) (bool, error)

	// leads
	SaveLead(domain.Lead) error
	GetLead(id string) (domain.Lead, bool, error)
	// ListLeads returns leads newest-first, optionally filtered by status
	// (empty status means all).
	ListLeads(status domain.LeadStatus) ([]domain.Lead, error)
	// LatestLeadForUser returns the newest lead linked to the user.
	LatestLeadForUser(userID string) (domain.Lead, bool, error)

	// books
	SaveBook(domain.Book) error
	GetBook(id string) (domain.Book, bool, error)
	// ListBooks returns the catalog ordered by display_order ascending.
	ListBooks() ([]domain.Book, error)
	BookCount() (int, error)
	GetPrimaryBook() (domain.Book, bool, error)
	// ClearPrimaryFlags unsets is_primary on every book. Together with
	// SaveBook this forms the two-step primary switch; the pair is not
	// atomic and a crash in between can briefly leave no primary.
	ClearPrimaryFlags() error
	DeleteBook(id string) error
}

// SessionStore issues and validates session tokens.
type SessionStore interface {
	NewSession(userID string) (string, error)
	GetUserIDByToken(token string) (string, bool, error)
	DeleteSession(token string) error
}
