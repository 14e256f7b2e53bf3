package types

import "github.com/mdsalahuddin2001/storefront-backend/pkg/pagination"

type SuccessEnvelope struct {
	Data any `json:"data"`
}

// PageEnvelope wraps a list page with its pagination metadata.
type PageEnvelope struct {
	Data       any              `json:"data"`
	Pagination *pagination.Info `json:"pagination,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
