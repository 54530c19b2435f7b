package domain

import "time"

// Organization is the institution the deployment is configured for.
// At most one is expected; the rule is enforced by the service layer.
type Organization struct {
	ID        uint      `gorm:"primaryKey"`
	Name      string    `gorm:"type:varchar(200);not null"`
	Address   string    `gorm:"type:text"`
	Phone     string    `gorm:"type:varchar(30)"`
	Email     string    `gorm:"type:varchar(254)"`
	Website   string    `gorm:"type:varchar(300)"`
	LogoPath  string    `gorm:"type:varchar(500)"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// DepartmentType classifies an organizational sub-unit
type DepartmentType string

const (
	DepartmentTypeCoordination DepartmentType = "coordination"
	DepartmentTypeUnit         DepartmentType = "unit"
	DepartmentTypeSection      DepartmentType = "section"
)

// IsValid checks if the department type is valid
func (t DepartmentType) IsValid() bool {
	switch t {
	case DepartmentTypeCoordination, DepartmentTypeUnit, DepartmentTypeSection:
		return true
	}
	return false
}

// Department is an organizational sub-unit. CoordinatorID is a weak
// reference that is cleared when the coordinating staff member is removed.
type Department struct {
	ID            uint           `gorm:"primaryKey"`
	Name          string         `gorm:"type:varchar(200);not null;index"`
	Type          DepartmentType `gorm:"type:varchar(20);not null"`
	CoordinatorID *uint          `gorm:"index"`
	Coordinator   *Staff         `gorm:"foreignKey:CoordinatorID;constraint:OnDelete:SET NULL"`
	Description   string         `gorm:"type:text"`
	CreatedAt     time.Time      `gorm:"not null"`
}

// UserRoleType is the role carried by an account
type UserRoleType string

const (
	RoleSuperuser   UserRoleType = "superuser"
	RoleAdmin       UserRoleType = "admin"
	RoleCoordinator UserRoleType = "coordinator"
	RoleStaff       UserRoleType = "staff"
)

// IsValid checks if the role is valid
func (r UserRoleType) IsValid() bool {
	switch r {
	case RoleSuperuser, RoleAdmin, RoleCoordinator, RoleStaff:
		return true
	}
	return false
}

// Account is the authentication identity owned by a Staff record
type Account struct {
	ID           uint         `gorm:"primaryKey"`
	Username     string       `gorm:"type:varchar(150);not null;uniqueIndex"`
	Email        string       `gorm:"type:varchar(254);not null;uniqueIndex"`
	FirstName    string       `gorm:"type:varchar(150)"`
	LastName     string       `gorm:"type:varchar(150)"`
	PasswordHash string       `gorm:"type:varchar(100);not null"`
	Role         UserRoleType `gorm:"type:varchar(20);not null;index"`
	IsActive     bool         `gorm:"not null"`
	LastLoginAt  *time.Time
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// IsSuperuser reports whether the account bypasses permission checks
func (a *Account) IsSuperuser() bool {
	return a.Role == RoleSuperuser
}

// Staff is a person working for the organization, linked 1:1 to an Account
type Staff struct {
	ID                uint        `gorm:"primaryKey"`
	AccountID         uint        `gorm:"not null;uniqueIndex"`
	Account           *Account    `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE"`
	NationalID        string      `gorm:"type:varchar(20);not null;uniqueIndex"`
	FirstName         string      `gorm:"type:varchar(100);not null"`
	LastName          string      `gorm:"type:varchar(100);not null;index:idx_staff_name"`
	BirthDate         time.Time   `gorm:"type:date;not null"`
	HireDate          time.Time   `gorm:"type:date;not null"`
	DepartmentID      *uint       `gorm:"index"`
	Department        *Department `gorm:"foreignKey:DepartmentID;constraint:OnDelete:SET NULL"`
	Phone             string      `gorm:"type:varchar(30)"`
	Address           string      `gorm:"type:text"`
	AccountCreated    bool        `gorm:"not null"`
	TemporaryPassword bool        `gorm:"not null"`
	FirstAccessAt     *time.Time
	CreatedAt         time.Time `gorm:"not null"`
	UpdatedAt         time.Time `gorm:"not null"`
}

func (Staff) TableName() string {
	return "staff"
}

// FullName returns "first last"
func (s *Staff) FullName() string {
	return s.FirstName + " " + s.LastName
}
