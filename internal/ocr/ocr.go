// Package ocr reads container numbers and license plates from photos.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/dmitrijs2005/containertracker/internal/common"
	"github.com/dmitrijs2005/containertracker/internal/rpc"
)

// MaxImageSize is the decoded size limit of an image.
const MaxImageSize = 10 * 1024 * 1024

var (
	ErrInvalidImage = errors.New("invalid image")
	ErrUnknownKind  = errors.New("unknown extraction kind")
)

var validPrefixes = []string{"data:image/jpeg", "data:image/png", "data:image/webp", "data:image/gif"}

// Extractor returns the recognised text or common.UnableToRead.
type Extractor interface {
	Extract(ctx context.Context, kind, image string) (string, error)
}

// ValidateImageData accepts JPEG, PNG, WebP and GIF data URLs up to
// MaxImageSize.
func ValidateImageData(image string) error {
	if image == "" {
		return fmt.Errorf("%w: no image data provided", ErrInvalidImage)
	}
	ok := false
	for _, p := range validPrefixes {
		if strings.HasPrefix(image, p) {
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Errorf("%w: supported formats are JPEG, PNG, WebP, GIF", ErrInvalidImage)
	}
	if len(image)*3/4 > MaxImageSize {
		return fmt.Errorf("%w: maximum size is 10MB", ErrInvalidImage)
	}
	return nil
}

const (
	containerPrompt = "Extract the shipping container number from this image. A container number is " +
		"an ISO 6346 code: a 4-letter owner code followed by 6 digits and a check digit. Return ONLY " +
		"the uppercase letters and digits, with no spaces or special characters. If you cannot read " +
		"the container number clearly, return '" + common.UnableToRead + "'."
	platePrompt = "Extract the license plate number from this image. Return ONLY the alphanumeric " +
		"characters you see on the license plate, with no spaces or special characters. If you " +
		"cannot read the license plate clearly, return '" + common.UnableToRead + "'."
)

// Prompt returns the model instruction for kind.
func Prompt(kind string) (string, error) {
	switch kind {
	case rpc.KindContainerNumber:
		return containerPrompt, nil
	case rpc.KindLicensePlate:
		return platePrompt, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

// Normalize turns a model answer into the stored form: uppercase
// alphanumerics only. Empty answers and refusals become common.UnableToRead.
func Normalize(answer string) string {
	if strings.Contains(strings.ToUpper(answer), common.UnableToRead) {
		return common.UnableToRead
	}
	var b strings.Builder
	for _, r := range strings.ToUpper(answer) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return common.UnableToRead
	}
	return b.String()
}

// Static answers from a fixed table keyed by kind. It is used by the dev
// server when no model is configured.
type Static struct {
	Answers map[string]string
}

func (s Static) Extract(ctx context.Context, kind, image string) (string, error) {
	if _, err := Prompt(kind); err != nil {
		return "", err
	}
	if err := ValidateImageData(image); err != nil {
		return "", err
	}
	if a, ok := s.Answers[kind]; ok {
		return Normalize(a), nil
	}
	return common.UnableToRead, nil
}
