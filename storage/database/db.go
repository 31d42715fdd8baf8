package database

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/smartsubmit/smartsubmit/core"
	"github.com/smartsubmit/smartsubmit/core/assignment"
	"github.com/smartsubmit/smartsubmit/core/user"
)

// Open connects to the configured database engine.
func Open(conf *core.Config) (*gorm.DB, error) {
	logLevel := logger.Silent
	if conf.Debug {
		logLevel = logger.Warn
	}
	gconf := &gorm.Config{Logger: logger.Default.LogMode(logLevel)}

	switch conf.Database.Engine {
	case "postgres":
		return gorm.Open(postgres.Open(conf.Database.DSN), gconf)
	case "sqlite":
		return gorm.Open(sqlite.Open(conf.Database.DSN), gconf)
	default:
		return nil, fmt.Errorf("unknown database engine %q", conf.Database.Engine)
	}
}

// Migrate creates/updates the schema and seeds the fixed role set when the
// roles table is empty.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&userRow{},
		&roleRow{},
		&userRoleRow{},
		&classRow{},
		&subjectRow{},
		&userClassRow{},
		&userSubjectRow{},
		&assignmentRow{},
	); err != nil {
		return errors.Wrap(err, "auto migrate")
	}
	return seedRoles(db)
}

func seedRoles(db *gorm.DB) error {
	var count int64
	if err := db.Model(&roleRow{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	rows := make([]roleRow, 0, len(user.Roles))
	for _, r := range user.Roles {
		rows = append(rows, roleRow{ID: r.ID, Label: r.Label, Description: r.Description})
	}
	return errors.Wrap(db.Create(&rows).Error, "seeding roles")
}

// row types

type userRow struct {
	ID           int    `gorm:"primaryKey"`
	FirstName    string `gorm:"not null"`
	LastName     string `gorm:"not null"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash []byte `gorm:"not null"`
	CreatedAt    time.Time
}

func (userRow) TableName() string { return "users" }

func (r userRow) toDomain(roles []user.Role) user.User {
	return user.User{
		ID:           r.ID,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Roles:        roles,
		CreatedAt:    r.CreatedAt,
	}
}

type roleRow struct {
	ID          int    `gorm:"primaryKey"`
	Label       string `gorm:"not null"`
	Description string
}

func (roleRow) TableName() string { return "roles" }

type userRoleRow struct {
	UserID int `gorm:"primaryKey;autoIncrement:false"`
	RoleID int `gorm:"primaryKey;autoIncrement:false"`
}

func (userRoleRow) TableName() string { return "user_roles" }

type classRow struct {
	ID   int    `gorm:"primaryKey"`
	Name string `gorm:"index;not null"`
	Year int    `gorm:"column:cohort_year;not null"`
}

func (classRow) TableName() string { return "classes" }

type subjectRow struct {
	ID   int    `gorm:"primaryKey"`
	Code string `gorm:"uniqueIndex;not null"`
	Name string
}

func (subjectRow) TableName() string { return "subjects" }

type userClassRow struct {
	UserID  int `gorm:"primaryKey;autoIncrement:false"`
	ClassID int `gorm:"primaryKey;autoIncrement:false"`
}

func (userClassRow) TableName() string { return "user_classes" }

type userSubjectRow struct {
	UserID    int `gorm:"primaryKey;autoIncrement:false"`
	SubjectID int `gorm:"primaryKey;autoIncrement:false"`
}

func (userSubjectRow) TableName() string { return "user_subjects" }

type assignmentRow struct {
	ID          int    `gorm:"primaryKey"`
	Title       string `gorm:"not null"`
	Description string
	DueAt       time.Time
	ClassID     int `gorm:"index;not null"`
	SubjectID   int `gorm:"index;not null"`
	TeacherID   int `gorm:"index;not null"`
	Attachments attachmentList `gorm:"type:text"`
	CreatedAt   time.Time
}

func (assignmentRow) TableName() string { return "assignments" }

func (r assignmentRow) toDomain() assignment.Assignment {
	return assignment.Assignment{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		DueAt:       r.DueAt,
		ClassID:     r.ClassID,
		SubjectID:   r.SubjectID,
		TeacherID:   r.TeacherID,
		Attachments: r.Attachments,
		CreatedAt:   r.CreatedAt,
	}
}

// attachmentList persists the attachment metadata as a serialized JSON text
// column (an opaque blob as far as the schema is concerned).
type attachmentList []assignment.Attachment

func (l attachmentList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return nil, nil
	}
	b, err := json.Marshal([]assignment.Attachment(l))
	return string(b), err
}

func (l *attachmentList) Scan(src interface{}) error {
	if src == nil {
		*l = nil
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported attachments column type %T", src)
	}
	if len(data) == 0 {
		*l = nil
		return nil
	}
	return json.Unmarshal(data, (*[]assignment.Attachment)(l))
}
