package domain

import (
	"strings"
	"unicode/utf8"
)

// ValidateCreate checks a NewComment before it is handed to storage.
func ValidateCreate(in NewComment) error {
	if strings.TrimSpace(in.Body) == "" {
		return Invalid("body", "must not be empty")
	}
	if utf8.RuneCountInString(in.Body) > MaxBodyLength {
		return Invalid("body", "must be at most 10000 characters")
	}
	if in.ParentID != nil && *in.ParentID < 1 {
		return Invalid("parent_id", "must be a positive integer")
	}
	if in.AuthorID < 1 {
		return Invalid("author_id", "is required")
	}
	return nil
}
