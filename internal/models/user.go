package models

import (
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type UserType string

const (
	UserTypeCustomer UserType = "customer"
	UserTypeDriver   UserType = "driver"
	UserTypeAdmin    UserType = "admin"
)

type User struct {
	gorm.Model
	Username      string `json:"username" gorm:"column:username;unique;not null"`
	Email         string `json:"email" gorm:"column:email;unique;not null"`
	Password      string `json:"-" gorm:"-:migration"` // Temporary field for password handling
	PasswordHash  string `json:"-" gorm:"column:password_hash;not null"`
	PhoneNumber   string `json:"phoneNumber" gorm:"column:phone_number"`
	UserType      string `json:"userType" gorm:"column:user_type;not null"`
	FCMToken      string `json:"-" gorm:"column:fcm_token"`
	LicenseNumber string `json:"licenseNumber,omitempty" gorm:"column:license_number"`
	CompanyName   string `json:"companyName,omitempty" gorm:"column:company_name"`
}

// TableName specifies the table name
func (User) TableName() string {
	return "users"
}

func (u *User) HashPassword() error {
	if u.Password == "" {
		return nil
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
}

// IsDriver reports whether the user is a driver account
func (u *User) IsDriver() bool {
	return u.UserType == string(UserTypeDriver)
}

// IsAdmin reports whether the user is an admin account
func (u *User) IsAdmin() bool {
	return u.UserType == string(UserTypeAdmin)
}
