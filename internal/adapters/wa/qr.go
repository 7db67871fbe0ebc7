package wa

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"

	qrcode "github.com/skip2/go-qrcode"
)

const qrImageSize = 256

// RenderQRDataURI encodes a pairing code as a PNG QR image and wraps it in
// an RFC 2397 data URI the front-end can drop into an <img> tag.
func RenderQRDataURI(code string) (string, error) {
	png, err := qrcode.Encode(code, qrcode.Medium, qrImageSize)
	if err != nil {
		return "", fmt.Errorf("encode qr: %w", err)
	}
	return BuildDataURI(bytes.NewReader(png))
}

// BuildDataURI sniffs the MIME type from the leading bytes and assembles a
// base64 data URI.
func BuildDataURI(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read data: %w", err)
	}

	mimeType := http.DetectContentType(data[:min(512, len(data))])
	b64 := base64.StdEncoding.EncodeToString(data)

	return fmt.Sprintf("data:%s;base64,%s", mimeType, b64), nil
}
