package models

// Organization is the tenant root. Organizations are deactivated, never deleted.
type Organization struct {
	Base
	Name     string `gorm:"uniqueIndex;not null" json:"name"`
	IsActive bool   `gorm:"not null;default:true" json:"is_active"`

	// Relationships
	Users []User `gorm:"foreignKey:OrganizationID" json:"-"`
	Cases []Case `gorm:"foreignKey:OrganizationID" json:"-"`
}

func (Organization) TableName() string {
	return "organizations"
}
