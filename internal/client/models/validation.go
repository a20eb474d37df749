package models

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"
)

var ErrValidation = errors.New("validation failed")

var (
	nameRe = regexp.MustCompile(`^[A-Za-z\s]+$`)
	codeRe = regexp.MustCompile(`^[A-Z0-9]{5}$`)
)

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// NormalizeLogin trims and checks staff login input.
func NormalizeLogin(name, code string) (string, string, error) {
	name = strings.TrimSpace(name)
	code = strings.TrimSpace(code)

	switch n := utf8.RuneCountInString(name); {
	case n < 2:
		return "", "", invalid("name must be at least 2 characters")
	case n > 50:
		return "", "", invalid("name must be less than 50 characters")
	case !nameRe.MatchString(name):
		return "", "", invalid("name can only contain letters and spaces")
	}

	if len(code) != 5 {
		return "", "", invalid("code must be exactly 5 characters")
	}
	if !codeRe.MatchString(code) {
		return "", "", invalid("code must contain only uppercase letters and numbers")
	}
	return name, code, nil
}

// NormalizeContainerNumber trims and upper-cases a container number.
func NormalizeContainerNumber(s string) (string, error) {
	s = strings.ToUpper(strings.Join(strings.Fields(s), ""))
	if s == "" {
		return "", invalid("container number is required")
	}
	return s, nil
}

// ParseContainerSize accepts the sizes in ContainerSizes, case-insensitively.
func ParseContainerSize(s string) (ContainerSize, error) {
	s = strings.TrimSpace(s)
	i := slices.IndexFunc(ContainerSizes, func(c ContainerSize) bool {
		return strings.EqualFold(string(c), s)
	})
	if i < 0 {
		return "", invalid(fmt.Sprintf("unknown container size %q", s))
	}
	return ContainerSizes[i], nil
}

// ParseEntryType accepts "receiving" or "clearing".
func ParseEntryType(s string) (EntryType, error) {
	switch t := EntryType(strings.ToLower(strings.TrimSpace(s))); t {
	case EntryTypeReceiving, EntryTypeClearing:
		return t, nil
	}
	return "", invalid(fmt.Sprintf("unknown entry type %q", s))
}
