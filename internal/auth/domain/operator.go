package domain

import "errors"

// RoleAdmin is the only role allowed to call operator routes
const RoleAdmin = "admin"

// Operator is the identity carried by an operator token
type Operator struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrForbidden    = errors.New("operator role required")
)
