package models

import "time"

// LoginResponse is returned by POST /login.
type LoginResponse struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	Tenant    string    `json:"tenant"`
	SessionID string    `json:"sessionId"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// LogoutResponse is returned by POST /logout.
type LogoutResponse struct {
	Success bool `json:"success"`
}

// MeResponse describes the caller of GET /me.
type MeResponse struct {
	UserID    string    `json:"userId"`
	Code      string    `json:"code"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	Tenant    string    `json:"tenant"`
	SessionID string    `json:"sessionId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// RevokeResponse is returned by the admin revocation endpoints.
type RevokeResponse struct {
	Revoked int `json:"revoked"`
}
