package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type UserModel struct {
	ID           string `gorm:"primaryKey"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time
}

type ProfileModel struct {
	UserID    string `gorm:"primaryKey"`
	Email     string `gorm:"not null;index"`
	FullName  string
	CreatedAt time.Time `gorm:"not null"`
}

type UserRoleModel struct {
	UserID    string `gorm:"primaryKey"`
	Role      string `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
}

type LeadModel struct {
	ID             string `gorm:"primaryKey"`
	FullName       string `gorm:"not null"`
	Age            int    `gorm:"not null"`
	Status         string `gorm:"not null;index"`
	AccessUntil    *time.Time
	HasCVSubmitted bool      `gorm:"column:has_cv_submitted;not null"`
	UserID         string    `gorm:"index"`
	CreatedAt      time.Time `gorm:"not null;index"`
}

type BookModel struct {
	ID           string `gorm:"primaryKey"`
	Title        string `gorm:"not null"`
	Description  string
	FilePath     string `gorm:"not null"`
	FileName     string `gorm:"not null"`
	FileSize     int64  `gorm:"not null"`
	IsPrimary    bool   `gorm:"not null;index"`
	DisplayOrder int    `gorm:"not null;index"`
	Metadata     datatypes.JSON `gorm:"type:jsonb"`
	CreatedBy    string
	CreatedAt    time.Time `gorm:"not null"`
}

func (UserModel) TableName() string    { return "users" }
func (ProfileModel) TableName() string { return "profiles" }
func (UserRoleModel) TableName() string { return "user_roles" }
func (LeadModel) TableName() string    { return "leads" }
func (BookModel) TableName() string    { return "books" }

// bookMetadata is the shape stored in the books.metadata JSON column.
type bookMetadata struct {
	PageCount   int    `json:"pageCount,omitempty"`
	ContentType string `json:"contentType,omitempty"`
}
