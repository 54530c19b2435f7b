package domain

import "time"

// Region is the top level of the geographic hierarchy
type Region struct {
	ID          uint       `gorm:"primaryKey"`
	Name        string     `gorm:"type:varchar(100);not null"`
	Description string     `gorm:"type:text"`
	Districts   []District `gorm:"foreignKey:RegionID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time  `gorm:"not null"`
}

// District belongs to a Region. Code is unique across all districts.
type District struct {
	ID         uint       `gorm:"primaryKey"`
	RegionID   uint       `gorm:"not null;index"`
	Region     *Region    `gorm:"foreignKey:RegionID"`
	Name       string     `gorm:"type:varchar(100);not null"`
	Code       string     `gorm:"type:varchar(10);not null;uniqueIndex"`
	Localities []Locality `gorm:"foreignKey:DistrictID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time  `gorm:"not null"`
}

// Locality belongs to a District; (district, code) is unique.
// DistrictCode is a denormalized copy of the parent district's code.
type Locality struct {
	ID           uint      `gorm:"primaryKey"`
	DistrictID   uint      `gorm:"not null;uniqueIndex:idx_localities_district_code"`
	District     *District `gorm:"foreignKey:DistrictID"`
	Name         string    `gorm:"type:varchar(100);not null"`
	Code         string    `gorm:"type:varchar(10);not null;uniqueIndex:idx_localities_district_code"`
	DistrictCode string    `gorm:"type:varchar(10);not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (Locality) TableName() string {
	return "localities"
}
