package models

import "github.com/golang-jwt/jwt/v5"

// Roles carried in access tokens.
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
)

// LoginRequest is the credential payload for both roles. Students log in by
// email, teachers by name.
type LoginRequest struct {
	Role     string `json:"role" validate:"required,oneof=student teacher"`
	Email    string `json:"email" validate:"required_if=Role student,omitempty,email"`
	Name     string `json:"name" validate:"required_if=Role teacher"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the issued access token and display identity.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	UserID      int64  `json:"user_id"`
	Name        string `json:"name"`
}

// JWTClaims are the registered claims plus role and numeric identity.
type JWTClaims struct {
	jwt.RegisteredClaims
	Role   string `json:"role"`
	UserID int64  `json:"uid"`
	Name   string `json:"name"`
}
