package domain

import (
	"github.com/golang-jwt/jwt/v5"
)

// SetForgeClaims represents custom JWT claims for SetForge auth
type SetForgeClaims struct {
	UserID string `json:"user_id"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}
