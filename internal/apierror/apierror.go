// Package apierror provides standardized error response structures for the API.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string `json:"detail"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// Validation wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "Error de validacion", Fields: fields}
}

// PartialCommit is returned when a sale header was written but its lines
// were not. VentaID addresses the orphaned header for the line retry.
type PartialCommit struct {
	Detail  string `json:"detail"`
	VentaID string `json:"venta_id"`
}

func NewPartialCommit(ventaID string) *PartialCommit {
	return &PartialCommit{
		Detail:  "La venta quedo registrada sin detalle; reintente el detalle o concilie manualmente",
		VentaID: ventaID,
	}
}
