package store

import (
	"encoding/json"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"skywardportal/pkg/domain"
)

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(&UserModel{}, &ProfileModel{}, &UserRoleModel{}, &LeadModel{}, &BookModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// SaveUser registers or updates a user.
func (s *GormStore) SaveUser(u domain.User) error {
	model := userToModel(u)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "password_hash", "updated_at"}),
	}).Create(&model).Error
}

// HasUserEmail checks if email exists.
func (s *GormStore) HasUserEmail(email string) (bool, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetUserByEmail looks up a user by email.
func (s *GormStore) GetUserByEmail(email string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.Where("email = ?", email).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(id string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// UserCount returns number of users.
func (s *GormStore) UserCount() (int, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

// SaveProfile stores or updates the profile row for a user.
func (s *GormStore) SaveProfile(p domain.Profile) error {
	model := ProfileModel{
		UserID:    p.UserID,
		Email:     p.Email,
		FullName:  p.FullName,
		CreatedAt: p.CreatedAt,
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "full_name"}),
	}).Create(&model).Error
}

// GetProfile returns the profile for a user.
func (s *GormStore) GetProfile(userID string) (domain.Profile, bool, error) {
	var model ProfileModel
	if err := s.db.First(&model, "user_id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Profile{}, false, nil
		}
		return domain.Profile{}, false, err
	}
	return domain.Profile{
		UserID:    model.UserID,
		Email:     model.Email,
		FullName:  model.FullName,
		CreatedAt: model.CreatedAt,
	}, true, nil
}

// AddRole grants a role to a user; granting twice is a no-op.
func (s *GormStore) AddRole(userID, role string) error {
	model := UserRoleModel{UserID: userID, Role: role}
	return s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&model).Error
}

// HasRole tests role membership.
func (s *GormStore) HasRole(userID, role string) (bool, error) {
	var count int64
	err := s.db.Model(&UserRoleModel{}).
		Where("user_id = ? AND role = ?", userID, role).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// SaveLead stores or updates a lead.
func (s *GormStore) SaveLead(l domain.Lead) error {
	model := leadToModel(l)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"full_name", "age", "status", "access_until", "has_cv_submitted", "user_id"}),
	}).Create(&model).Error
}

// GetLead retrieves a lead by ID.
func (s *GormStore) GetLead(id string) (domain.Lead, bool, error) {
	var model LeadModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Lead{}, false, nil
		}
		return domain.Lead{}, false, err
	}
	return leadFromModel(model), true, nil
}

// ListLeads returns leads newest-first, optionally filtered by status.
func (s *GormStore) ListLeads(status domain.LeadStatus) ([]domain.Lead, error) {
	var models []LeadModel
	tx := s.db.Order("created_at DESC")
	if status != "" {
		tx = tx.Where("status = ?", string(status))
	}
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Lead, 0, len(models))
	for _, m := range models {
		res = append(res, leadFromModel(m))
	}
	return res, nil
}

// LatestLeadForUser returns the newest lead linked to the user.
func (s *GormStore) LatestLeadForUser(userID string) (domain.Lead, bool, error) {
	var model LeadModel
	err := s.db.Where("user_id = ?", userID).Order("created_at DESC").First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Lead{}, false, nil
		}
		return domain.Lead{}, false, err
	}
	return leadFromModel(model), true, nil
}

// SaveBook stores or updates a book.
func (s *GormStore) SaveBook(b domain.Book) error {
	model, err := bookToModel(b)
	if err != nil {
		return err
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "description", "is_primary", "display_order", "metadata"}),
	}).Create(&model).Error
}

// GetBook retrieves a book.
func (s *GormStore) GetBook(id string) (domain.Book, bool, error) {
	var model BookModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Book{}, false, nil
		}
		return domain.Book{}, false, err
	}
	return bookFromModel(model), true, nil
}

// ListBooks returns the catalog ordered by display_order.
func (s *GormStore) ListBooks() ([]domain.Book, error) {
	var models []BookModel
	if err := s.db.Order("display_order ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Book, 0, len(models))
	for _, m := range models {
		res = append(res, bookFromModel(m))
	}
	return res, nil
}

// BookCount returns the number of catalog entries.
func (s *GormStore) BookCount() (int, error) {
	var count int64
	if err := s.db.Model(&BookModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

// GetPrimaryBook returns the book currently flagged primary.
func (s *GormStore) GetPrimaryBook() (domain.Book, bool, error) {
	var model BookModel
	if err := s.db.Where("is_primary = ?", true).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Book{}, false, nil
		}
		return domain.Book{}, false, err
	}
	return bookFromModel(model), true, nil
}

// ClearPrimaryFlags unsets is_primary on all books.
func (s *GormStore) ClearPrimaryFlags() error {
	return s.db.Model(&BookModel{}).Where("is_primary = ?", true).
		Update("is_primary", false).Error
}

// DeleteBook removes the metadata row.
func (s *GormStore) DeleteBook(id string) error {
	return s.db.Delete(&BookModel{}, "id = ?", id).Error
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:           m.ID,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func leadToModel(l domain.Lead) LeadModel {
	return LeadModel{
		ID:             l.ID,
		FullName:       l.FullName,
		Age:            l.Age,
		Status:         string(l.Status),
		AccessUntil:    l.AccessUntil,
		HasCVSubmitted: l.HasCVSubmitted,
		UserID:         l.UserID,
		CreatedAt:      l.CreatedAt,
	}
}

func leadFromModel(m LeadModel) domain.Lead {
	return domain.Lead{
		ID:             m.ID,
		FullName:       m.FullName,
		Age:            m.Age,
		Status:         domain.LeadStatus(m.Status),
		AccessUntil:    m.AccessUntil,
		HasCVSubmitted: m.HasCVSubmitted,
		UserID:         m.UserID,
		CreatedAt:      m.CreatedAt,
	}
}

func bookToModel(b domain.Book) (BookModel, error) {
	meta, err := json.Marshal(bookMetadata{
		PageCount:   b.PageCount,
		ContentType: b.ContentType,
	})
	if err != nil {
		return BookModel{}, fmt.Errorf("marshal book metadata: %w", err)
	}
	return BookModel{
		ID:           b.ID,
		Title:        b.Title,
		Description:  b.Description,
		FilePath:     b.FilePath,
		FileName:     b.FileName,
		FileSize:     b.FileSize,
		IsPrimary:    b.IsPrimary,
		DisplayOrder: b.DisplayOrder,
		Metadata:     meta,
		CreatedBy:    b.CreatedBy,
		CreatedAt:    b.CreatedAt,
	}, nil
}

func bookFromModel(m BookModel) domain.Book {
	var meta bookMetadata
	if len(m.Metadata) > 0 {
		_ = json.Unmarshal(m.Metadata, &meta)
	}
	return domain.Book{
		ID:           m.ID,
		Title:        m.Title,
		Description:  m.Description,
		FilePath:     m.FilePath,
		FileName:     m.FileName,
		FileSize:     m.FileSize,
		IsPrimary:    m.IsPrimary,
		DisplayOrder: m.DisplayOrder,
		PageCount:    meta.PageCount,
		ContentType:  meta.ContentType,
		CreatedBy:    m.CreatedBy,
		CreatedAt:    m.CreatedAt,
	}
}
