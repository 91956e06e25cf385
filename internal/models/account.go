package models

import (
	"time"
)

// Account represents a signed-up user. Accounts are immutable after
// signup and are looked up by API key on every data request.
type Account struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"size:80;not null" json:"name"`
	LastName  string    `gorm:"size:80;not null" json:"last_name"`
	Email     string    `gorm:"size:254;uniqueIndex;not null" json:"email"`
	APIKey    string    `gorm:"size:120;uniqueIndex;not null" json:"api_key"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (Account) TableName() string {
	return "accounts"
}

// SignupRequest is the body of POST /signup. Field limits mirror the
// accounts table columns.
type SignupRequest struct {
	Name     string `json:"name" binding:"required,max=80"`
	LastName string `json:"last_name" binding:"required,max=80"`
	Email    string `json:"email" binding:"required,email,max=254"`
}

// SignupResponse carries the freshly issued key back to the caller.
type SignupResponse struct {
	APIKey string `json:"api_key"`
}
