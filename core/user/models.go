package user

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/smartsubmit/smartsubmit/core"
)

// Role IDs. The roles table is seeded once at startup with exactly these three.
const (
	RoleStudent = 1
	RoleTeacher = 2
	RoleAdmin   = 3
)

type Role struct {
	ID          int    `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// Roles is the fixed role set seeded into an empty roles table.
var Roles = []Role{
	{ID: RoleStudent, Label: "Student", Description: "Can submit assignments"},
	{ID: RoleTeacher, Label: "Teacher", Description: "Can create, grade and manage assignments"},
	{ID: RoleAdmin, Label: "Admin", Description: "Can manage the system"},
}

type User struct {
	ID           int       `json:"id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email"`
	PasswordHash []byte    `json:"-"`
	Roles        []Role    `json:"roles,omitempty"`
	CreatedAt    time.Time `json:"created_at"` // UTC
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) HasRole(roleID int) bool {
	for _, r := range u.Roles {
		if r.ID == roleID {
			return true
		}
	}
	return false
}

// HasRoleLabel reports whether the user holds a role matching label, case-insensitively.
func (u *User) HasRoleLabel(label string) bool {
	for _, r := range u.Roles {
		if strings.EqualFold(r.Label, label) {
			return true
		}
	}
	return false
}

func (u *User) IsStudent() bool { return u.HasRole(RoleStudent) }
func (u *User) IsTeacher() bool { return u.HasRole(RoleTeacher) }
func (u *User) IsAdmin() bool   { return u.HasRole(RoleAdmin) }

// NewUser contains information needed to register a new User.
type NewUser struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
	RoleID    int    `json:"role_id" validate:"required,min=1,max=3"`
}

func (nu *NewUser) Validate() error {
	nu.FirstName = core.CleanString(nu.FirstName)
	nu.LastName = core.CleanString(nu.LastName)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	return core.Validate.Struct(nu)
}

// Credentials is a login request body. Role optionally restricts the login
// to users holding the given role label ("admin" for the admin portal).
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role"`
}

func (c *Credentials) Validate() error {
	c.Email = core.CleanString(c.Email, true /* lower */)
	c.Role = core.CleanString(c.Role)
	return core.Validate.Struct(c)
}
