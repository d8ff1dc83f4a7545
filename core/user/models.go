package user

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/masomo/core"
)

// Roles
const (
	// Admin
	RoleAdmin          = "admin:"
	RoleAdminOwner     = "admin:owner"
	RoleAdminPrincipal = "admin:principal"

	// Teacher
	RoleTeacher = "teacher:"

	// Student
	RoleStudent = "student:"
)

// Kinds: the portal a user belongs to, derived from their roles.
const (
	KindAdmin   = "admin"
	KindTeacher = "teacher"
	KindStudent = "student"
)

var (
	AdminRoles   = []string{RoleAdmin, RoleAdminOwner, RoleAdminPrincipal}
	TeacherRoles = []string{RoleTeacher}
	StudentRoles = []string{RoleStudent}
	AllRoles     = getAllRoles()

	// StaffKinds are the kinds listed in the users table.
	StaffKinds = []string{KindAdmin, KindTeacher}

	rolePriorities = map[string]int{
		// Admins: 30 - 21
		RoleAdminOwner:     30,
		RoleAdminPrincipal: 29,
		RoleAdmin:          21,

		// Teachers: 20 - 11
		RoleTeacher: 11,

		// Students: 10 - 1
		RoleStudent: 1,
	}
)

func getAllRoles() []string {
	all := make([]string, 0, 5)
	all = append(all, AdminRoles...)
	all = append(all, TeacherRoles...)
	all = append(all, StudentRoles...)
	return all
}

func RolePriority(role string) int {
	return rolePriorities[role]
}

func MaxRolePriority(roles []string) int {
	var max int
	for _, role := range roles {
		if RolePriority(role) > max {
			max = RolePriority(role)
		}
	}
	return max
}

// KindOf returns the kind matching the highest priority role; users without roles are students.
func KindOf(roles []string) string {
	switch max := MaxRolePriority(roles); {
	case max > rolePriorities[RoleTeacher]:
		return KindAdmin
	case max > rolePriorities[RoleStudent]:
		return KindTeacher
	}
	return KindStudent
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	IsActive     bool      `json:"is_active"`
	Roles        []string  `json:"roles"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
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

func (u *User) Kind() string {
	return KindOf(u.Roles)
}

func (u *User) IsAdmin() bool {
	return u.Kind() == KindAdmin
}

func (u *User) IsTeacher() bool {
	return u.Kind() == KindTeacher
}

func (u *User) IsStudent() bool {
	return u.Kind() == KindStudent
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string   `json:"name" validate:"required"`
	Username        string   `json:"username" validate:"required,min=4,alphanum_"`
	Email           string   `json:"email" validate:"omitempty,email"`
	Password        string   `json:"password" validate:"required,min=8"`
	PasswordConfirm string   `json:"password_confirm" validate:"required,eqfield=Password"`
	Roles           []string `json:"roles" validate:"omitempty,allroles"`
}

// Clean normalizes the user input before validation.
func (nu *NewUser) Clean() {
	nu.Name = core.CleanString(nu.Name)
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
}

func (nu *NewUser) Validate(validate *validator.Validate) error {
	nu.Clean()
	return validate.Struct(nu)
}

// UpdateUser defines what information may be provided to modify an existing User.
// Empty fields keep their current value.
type UpdateUser struct {
	Name            string   `json:"name"`
	Username        string   `json:"username" validate:"omitempty,min=4,alphanum_"`
	Email           string   `json:"email" validate:"omitempty,email"`
	IsActive        *bool    `json:"is_active"`
	Roles           []string `json:"roles" validate:"omitempty,allroles"`
	Password        string   `json:"password" validate:"omitempty,min=8"`
	PasswordConfirm string   `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

// Validate fills the empty fields from origUsr, then validates the result.
func (uu *UpdateUser) Validate(origUsr User, validate *validator.Validate) error {
	if name := core.CleanString(uu.Name); name != "" {
		uu.Name = name
	} else {
		uu.Name = origUsr.Name
	}

	if uname := core.CleanString(uu.Username, true /* lower */); uname != "" {
		uu.Username = uname
	} else {
		uu.Username = origUsr.Username
	}

	if email := core.CleanString(uu.Email, true /* lower */); email != "" {
		uu.Email = email
	} else {
		uu.Email = origUsr.Email
	}
	return validate.Struct(uu)
}
