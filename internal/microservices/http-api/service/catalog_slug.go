package service

import (
	"strings"

	"github.com/gosimple/slug"
)

// resolveSlug validates a supplied slug or derives one from name.
func resolveSlug(supplied, name string) (string, error) {
	if strings.TrimSpace(supplied) != "" {
		return ValidateSlug("slug", supplied)
	}
	derived := slug.Make(name)
	if len(derived) > maxSlugLen {
		derived = strings.TrimRight(derived[:maxSlugLen], "-")
	}
	if derived == "" {
		return "", validationError("slug", "cannot derive a slug from name %q, provide one", name)
	}
	return ValidateSlug("slug", derived)
}
