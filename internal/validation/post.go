package validation

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"
)

const (
	MaxTitleLength   = 300
	MaxContentLength = 50000
)

// ValidateTitle requires a non-blank title of at most MaxTitleLength characters.
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("title is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return fmt.Errorf("title must not exceed %d characters", MaxTitleLength)
	}
	return nil
}

// ValidateContent requires non-blank content of at most MaxContentLength characters.
func ValidateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("content is required")
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return fmt.Errorf("content must not exceed %d characters", MaxContentLength)
	}
	return nil
}

// ValidateImageRef accepts an http(s) URL, a path under /media/, or an inline
// data:image/...;base64 blob whose decoded size is at most maxBytes.
func ValidateImageRef(ref string, maxBytes int64) error {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return fmt.Errorf("image is required")
	case strings.HasPrefix(ref, "/media/"):
		if strings.Contains(ref, "..") {
			return fmt.Errorf("invalid image path")
		}
		return nil
	case strings.HasPrefix(ref, "data:"):
		return validateDataURI(ref, maxBytes)
	}

	u, err := url.Parse(ref)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("image must be an http(s) URL, an uploaded image path or an inline image")
	}
	return nil
}

func validateDataURI(ref string, maxBytes int64) error {
	header, data, ok := strings.Cut(strings.TrimPrefix(ref, "data:"), ",")
	if !ok || !strings.HasPrefix(header, "image/") || !strings.HasSuffix(header, ";base64") {
		return fmt.Errorf("inline image must be a base64 data:image URI")
	}
	if int64(base64.StdEncoding.DecodedLen(len(data))) > maxBytes+2 {
		return fmt.Errorf("image must be %dMB or smaller", maxBytes>>20)
	}
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return fmt.Errorf("inline image is not valid base64")
	}
	if int64(len(decoded)) > maxBytes {
		return fmt.Errorf("image must be %dMB or smaller", maxBytes>>20)
	}
	return nil
}
