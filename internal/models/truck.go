package models

import "gorm.io/gorm"

// Truck represents a truck in the company fleet
type Truck struct {
	gorm.Model
	PlateNumber  string  `json:"plateNumber" gorm:"unique;not null"`
	Make         string  `json:"make" gorm:"not null"`
	TruckModel   string  `json:"model" gorm:"column:truck_model"`
	CapacityTons float64 `json:"capacityTons" gorm:"not null;default:0"`
	IsActive     bool    `json:"isActive" gorm:"not null;default:true"`
	Notes        string  `json:"notes,omitempty"`
}

// TableName specifies the table name
func (Truck) TableName() string {
	return "trucks"
}
