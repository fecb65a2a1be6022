package utils

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
)

var (
	// key=VALUE, api_key=VALUE, apiKey=VALUE, subscription-key=VALUE in query strings
	keyPattern = regexp.MustCompile(`([?&])(api[_\-]?[kK]ey|key|subscription-key)=([^&\s"]+)`)
	// Bearer tokens from Google OAuth
	bearerPattern = regexp.MustCompile(`Bearer\s+([A-Za-z0-9_\-\.]+)`)
	// Ocp-Apim-Subscription-Key headers (Azure)
	azureKeyPattern = regexp.MustCompile(`Ocp-Apim-Subscription-Key:\s*([^\s]+)`)
	// private_key fields of service account JSON
	privateKeyPattern = regexp.MustCompile(`"private_key"\s*:\s*"[^"]*"`)
	// base64 image payloads
	dataURIPattern = regexp.MustCompile(`data:([a-zA-Z0-9.+/\-]*);base64,([A-Za-z0-9+/=]+)`)
)

// MaskSensitiveData masks credentials in strings so they never reach the
// logs, and shortens inline image data URIs to their size.
func MaskSensitiveData(s string) string {
	if s == "" {
		return s
	}

	s = keyPattern.ReplaceAllString(s, `${1}${2}=***MASKED***`)
	s = bearerPattern.ReplaceAllString(s, `Bearer ***MASKED***`)
	s = azureKeyPattern.ReplaceAllString(s, `Ocp-Apim-Subscription-Key: ***MASKED***`)
	s = privateKeyPattern.ReplaceAllString(s, `"private_key": "***MASKED***"`)
	s = dataURIPattern.ReplaceAllStringFunc(s, func(m string) string {
		parts := dataURIPattern.FindStringSubmatch(m)
		return fmt.Sprintf("data:%s;base64,<%d chars>", parts[1], len(parts[2]))
	})

	return s
}

// MaskSensitiveError wraps an error and masks sensitive data when the error is converted to string
func MaskSensitiveError(err error) error {
	if err == nil {
		return nil
	}
	return &maskedError{err: err}
}

type maskedError struct {
	err error
}

func (e *maskedError) Error() string {
	return MaskSensitiveData(e.err.Error())
}

func (e *maskedError) Unwrap() error {
	return e.err
}

func ExitOnError(msg string, err error) {
	slog.Error(msg, "err", MaskSensitiveError(err))
	os.Exit(1)
}
