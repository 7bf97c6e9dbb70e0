package model

import "fmt"

type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	FirstName string `json:"first_name" validate:"required,min=1,max=100"`
	LastName  string `json:"last_name" validate:"required,min=1,max=100"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
}

// String redacts the password so the struct is safe to log.
func (r RegisterRequest) String() string {
	return fmt.Sprintf("RegisterRequest{Email:%s FirstName:%s LastName:%s Password:********}",
		r.Email, r.FirstName, r.LastName)
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

func (r LoginRequest) String() string {
	return fmt.Sprintf("LoginRequest{Email:%s Password:********}", r.Email)
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required,uuid4"`
}

func (r RefreshRequest) String() string {
	return "RefreshRequest{RefreshToken:********}"
}
