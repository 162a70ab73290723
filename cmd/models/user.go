package models

import (
	"gorm.io/gorm"
)

// Actor roles carried in the verified identity token. Account and session
// management live outside this service; we only consume the result.
const (
	RoleClient = "client"
	RoleExpert = "expert"
	RoleAdmin  = "admin"
)

type User struct {
	gorm.Model
	FullName string `gorm:"column:full_name;size:255;not null" json:"full_name"`
	Role     string `gorm:"column:role;size:50;not null" json:"role"`
}

func (User) TableName() string {
	return "users"
}
