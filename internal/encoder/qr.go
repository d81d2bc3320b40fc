// Package encoder renders payload strings into scannable images.
package encoder

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

const (
	// DefaultSize is the image width and height in pixels.
	DefaultSize = 256

	extPNG = "png"
)

// QR encodes payloads as PNG QR codes.
type QR struct {
	Level qrcode.RecoveryLevel
	Size  int
}

// NewQR returns an encoder with medium error recovery at DefaultSize.
func NewQR() QR {
	return QR{Level: qrcode.Medium, Size: DefaultSize}
}

// Encode returns the PNG bytes for payload.
func (q QR) Encode(payload string) ([]byte, error) {
	if payload == "" {
		return nil, fmt.Errorf("encode qr: empty payload")
	}

	png, err := qrcode.Encode(payload, q.Level, q.Size)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}

// Extension is the file extension of the produced images.
func (q QR) Extension() string {
	return extPNG
}

// FileName returns the artifact name for a record id.
func FileName(id, ext string) string {
	return "qrcode_" + id + "." + ext
}
