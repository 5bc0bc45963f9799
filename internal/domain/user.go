package domain

import "time"

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

type User struct {
	Base
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role"`
	Phone        string     `json:"phone,omitempty"`
	Address      *Address   `json:"address,omitempty"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
}

func (u User) Clone() User {
	if u.Address != nil {
		a := *u.Address
		u.Address = &a
	}
	if u.LastLoginAt != nil {
		t := *u.LastLoginAt
		u.LastLoginAt = &t
	}
	return u
}
