package export

import (
	"fmt"
	"strings"

	"github.com/skip2/go-qrcode"
)

// QRLines encodes text as a QR code drawn with half-block characters,
// two module rows per terminal line.
func QRLines(text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("nothing to encode")
	}
	q, err := qrcode.New(text, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("encoding qr: %w", err)
	}
	s := q.ToSmallString(false)
	return strings.Split(strings.TrimRight(s, "\n"), "\n"), nil
}
