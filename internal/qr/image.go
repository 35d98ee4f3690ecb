package qr

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// DefaultImageSize is the pixel width used when callers pass size <= 0.
const DefaultImageSize = 256

// Image renders an encoded voucher payload as a PNG QR image. The
// payload should come from Encode; rendering does not validate it.
func Image(encoded string, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultImageSize
	}
	png, err := qrcode.Encode(encoded, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to render QR image: %w", err)
	}
	return png, nil
}
