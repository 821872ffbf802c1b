package models

import (
	"strings"

	"salesgate/pkg/validation"
)

// LoginRequest is the POST /login body. The tenant comes from the
// x-tenant-subdomain header, not the body.
type LoginRequest struct {
	Code     string `json:"code" validate:"required,notblank,max=64"`
	Password string `json:"password" validate:"required,max=256"`

	// Set by the handler from request metadata.
	TenantScope string `json:"-"`
	UserAgent   string `json:"-"`
}

func (r *LoginRequest) Normalize() {
	r.Code = strings.TrimSpace(r.Code)
}

func (r *LoginRequest) Validate() error {
	return validation.Validate(r)
}
