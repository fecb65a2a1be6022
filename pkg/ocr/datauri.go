package ocr

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
)

// EncodeDataURI wraps raw image bytes as a base64 data URI. An empty mime
// type is sniffed from the content.
func EncodeDataURI(mimeType string, data []byte) string {
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURI returns the mime type and payload of a base64 data URI.
func DecodeDataURI(uri string) (string, []byte, error) {
	header, payload, ok := strings.Cut(uri, ",")
	if !ok || !strings.HasPrefix(header, "data:") {
		return "", nil, fmt.Errorf("%w: missing data: header", ErrInvalidDataURI)
	}
	meta := strings.TrimPrefix(header, "data:")
	if !strings.HasSuffix(meta, ";base64") {
		return "", nil, fmt.Errorf("%w: only base64 payloads are supported", ErrInvalidDataURI)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidDataURI, err)
	}
	if len(data) == 0 {
		return "", nil, fmt.Errorf("%w: empty payload", ErrInvalidDataURI)
	}
	return strings.TrimSuffix(meta, ";base64"), data, nil
}
