package database

import (
	"context"

	"gorm.io/gorm"

	"github.com/smartsubmit/smartsubmit/core/assignment"
	"github.com/smartsubmit/smartsubmit/core/roster"
	"github.com/smartsubmit/smartsubmit/core/school"
	"github.com/smartsubmit/smartsubmit/core/user"
)

// Store implements the domain repositories over GORM.
type Store struct {
	db *gorm.DB
}

var (
	_ user.Repository       = (*Store)(nil)
	_ roster.Repository     = (*Store)(nil)
	_ assignment.Repository = (*Store)(nil)
)

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Atomic runs fn inside one transaction; the Repository handed to fn routes
// all writes through that transaction.
func (s *Store) Atomic(ctx context.Context, fn func(tx roster.Repository) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// user.Repository

func (s *Store) CreateUser(ctx context.Context, usr user.User, roleIDs ...int) (user.User, error) {
	exists, err := s.EmailExists(ctx, usr.Email)
	if err != nil {
		return user.User{}, err
	}
	if exists {
		return user.User{}, user.ErrEmailExists
	}

	row := userRow{
		FirstName:    usr.FirstName,
		LastName:     usr.LastName,
		Email:        usr.Email,
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		for _, roleID := range roleIDs {
			if err := tx.Create(&userRoleRow{UserID: row.ID, RoleID: roleID}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return user.User{}, err
	}
	return s.GetUserByID(ctx, row.ID)
}

func (s *Store) GetUserByID(ctx context.Context, id int) (user.User, error) {
	var row userRow
	if err := s.db.WithContext(ctx).First(&row, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	roles, err := s.userRoles(ctx, row.ID)
	if err != nil {
		return user.User{}, err
	}
	return row.toDomain(roles), nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	var row userRow
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&row).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}
	roles, err := s.userRoles(ctx, row.ID)
	if err != nil {
		return user.User{}, err
	}
	return row.toDomain(roles), nil
}

func (s *Store) userRoles(ctx context.Context, userID int) ([]user.Role, error) {
	var rows []roleRow
	err := s.db.WithContext(ctx).
		Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ?", userID).
		Order("roles.id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	roles := make([]user.Role, 0, len(rows))
	for _, r := range rows {
		roles = append(roles, user.Role{ID: r.ID, Label: r.Label, Description: r.Description})
	}
	return roles, nil
}

func (s *Store) EmailExists(ctx context.Context, email string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&userRow{}).Where("email = ?", email).Count(&count).Error
	return count > 0, err
}

func (s *Store) UserHasRole(ctx context.Context, userID, roleID int) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&userRoleRow{}).
		Where("user_id = ? AND role_id = ?", userID, roleID).
		Count(&count).Error
	return count > 0, err
}

// AddUserRole grants a role to an existing user; used by the admin CLI.
func (s *Store) AddUserRole(ctx context.Context, userID, roleID int) error {
	return s.db.WithContext(ctx).Create(&userRoleRow{UserID: userID, RoleID: roleID}).Error
}

// UpdatePassword replaces a user's password hash; used by the admin CLI.
func (s *Store) UpdatePassword(ctx context.Context, userID int, hash []byte) error {
	return s.db.WithContext(ctx).Model(&userRow{}).
		Where("id = ?", userID).
		Update("password_hash", hash).Error
}

func (s *Store) AdminExists(ctx context.Context) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&userRoleRow{}).
		Where("role_id = ?", user.RoleAdmin).
		Count(&count).Error
	return count > 0, err
}

// roster.Repository / assignment.Repository shared lookups

// FindOrCreateClass resolves a class by its (name, cohort year) dedup key,
// creating it on miss. There is no DB-level uniqueness guard on the pair;
// concurrent callers can race and create duplicates (documented limitation).
func (s *Store) FindOrCreateClass(ctx context.Context, name string, year int) (school.Class, error) {
	var row classRow
	err := s.db.WithContext(ctx).
		Where("name = ? AND cohort_year = ?", name, year).
		First(&row).Error
	if err == gorm.ErrRecordNotFound {
		row = classRow{Name: name, Year: year}
		err = s.db.WithContext(ctx).Create(&row).Error
	}
	if err != nil {
		return school.Class{}, err
	}
	return school.Class{ID: row.ID, Name: row.Name, Year: row.Year}, nil
}

// FindOrCreateSubject resolves a subject by its short code, creating it on
// miss with the code as its display name until renamed.
func (s *Store) FindOrCreateSubject(ctx context.Context, code string) (school.Subject, error) {
	var row subjectRow
	err := s.db.WithContext(ctx).Where("code = ?", code).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		row = subjectRow{Code: code, Name: code}
		err = s.db.WithContext(ctx).Create(&row).Error
	}
	if err != nil {
		return school.Subject{}, err
	}
	return school.Subject{ID: row.ID, Code: row.Code, Name: row.Name}, nil
}

func (s *Store) AddUserClass(ctx context.Context, userID, classID int) error {
	return s.db.WithContext(ctx).Create(&userClassRow{UserID: userID, ClassID: classID}).Error
}

func (s *Store) UserHasSubject(ctx context.Context, userID, subjectID int) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&userSubjectRow{}).
		Where("user_id = ? AND subject_id = ?", userID, subjectID).
		Count(&count).Error
	return count > 0, err
}

func (s *Store) AddUserSubject(ctx context.Context, userID, subjectID int) error {
	return s.db.WithContext(ctx).Create(&userSubjectRow{UserID: userID, SubjectID: subjectID}).Error
}

// assignment.Repository

func (s *Store) CreateAssignment(ctx context.Context, a assignment.Assignment) (assignment.Assignment, error) {
	row := assignmentRow{
		Title:       a.Title,
		Description: a.Description,
		DueAt:       a.DueAt,
		ClassID:     a.ClassID,
		SubjectID:   a.SubjectID,
		TeacherID:   a.TeacherID,
		Attachments: a.Attachments,
		CreatedAt:   a.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return assignment.Assignment{}, err
	}
	return row.toDomain(), nil
}
