// Package models defines the request and response bodies exchanged with
// clients of the code service.
package models

import "time"

// GenerateRequest asks for a new code.
type GenerateRequest struct {
	// URL is the redirect target.
	URL string `json:"url"`

	// Expires is a zone-less local time, e.g. "2030-01-01T10:00".
	Expires string `json:"expires"`
}

// GenerateResponse points at the rendered image.
type GenerateResponse struct {
	QRCodeURL string `json:"qr_code_url"`
}

// ErrorResponse carries a client facing error message.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ActiveCode is one entry of the audit listing.
type ActiveCode struct {
	ID        string    `json:"id"`
	Target    string    `json:"target"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}
