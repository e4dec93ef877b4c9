package launcher

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

const (
	MinNameLength = 3
	MaxNameLength = 40
	MinAlloc      = 512
	MaxAlloc      = 16384
	MinWidth      = 800
	MaxWidth      = 3840
	MinHeight     = 600
	MaxHeight     = 2160
)

// ValidationError reports a field rejected before any transition is proposed.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

func validateName(name string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	if n < MinNameLength || n > MaxNameLength {
		return &ValidationError{Field: "name", Message: fmt.Sprintf("must be between %d and %d characters", MinNameLength, MaxNameLength)}
	}
	return nil
}

func validateVersion(v Version) error {
	if v.Vid == "" {
		return &ValidationError{Field: "version", Message: "version id is required"}
	}
	if v.Provider == ProviderUnknown || v.Provider == "" {
		return &ValidationError{Field: "version", Message: fmt.Sprintf("unsupported provider %q", v.Provider)}
	}
	return nil
}

func validateScreen(s Screen) error {
	switch s.Kind {
	case ScreenFullscreen:
		return nil
	case ScreenResolution:
		if s.Width < MinWidth || s.Width > MaxWidth {
			return &ValidationError{Field: "screen.width", Message: fmt.Sprintf("must be between %d and %d", MinWidth, MaxWidth)}
		}
		if s.Height < MinHeight || s.Height > MaxHeight {
			return &ValidationError{Field: "screen.height", Message: fmt.Sprintf("must be between %d and %d", MinHeight, MaxHeight)}
		}
		return nil
	default:
		return &ValidationError{Field: "screen", Message: fmt.Sprintf("unknown screen kind %q", s.Kind)}
	}
}

func validateAlloc(alloc int) error {
	if alloc < MinAlloc || alloc > MaxAlloc {
		return &ValidationError{Field: "alloc", Message: fmt.Sprintf("must be between %d and %d MiB", MinAlloc, MaxAlloc)}
	}
	return nil
}

func validatePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return &ValidationError{Field: "path", Message: "path is required"}
	}
	if !filepath.IsAbs(path) {
		return &ValidationError{Field: "path", Message: fmt.Sprintf("%s is not an absolute path", path)}
	}
	return nil
}

// ValidateDraft checks a draft the way the create form does.
func ValidateDraft(d *InstanceDraft) error {
	if d == nil {
		return &ValidationError{Field: "instance", Message: "draft is required"}
	}
	errs := []error{
		validateName(d.Name),
		validateVersion(d.Version),
		validateScreen(d.Screen),
		validateAlloc(d.Alloc),
	}
	// an empty path is derived from the name later
	if d.Path != "" {
		errs = append(errs, validatePath(d.Path))
	}
	return errors.Join(errs...)
}

// ValidatePatch checks only the fields present in the patch.
func ValidatePatch(p *InstancePatch) error {
	if p == nil {
		return nil
	}
	var errs []error
	if p.Name != nil {
		errs = append(errs, validateName(*p.Name))
	}
	if p.Version != nil {
		errs = append(errs, validateVersion(*p.Version))
	}
	if p.Path != nil {
		errs = append(errs, validatePath(*p.Path))
	}
	if p.Screen != nil {
		errs = append(errs, validateScreen(*p.Screen))
	}
	if p.Alloc != nil {
		errs = append(errs, validateAlloc(*p.Alloc))
	}
	return errors.Join(errs...)
}

func ValidateRootPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return &ValidationError{Field: "root_path", Message: "path is required"}
	}
	if !filepath.IsAbs(path) {
		return &ValidationError{Field: "root_path", Message: fmt.Sprintf("%s is not an absolute path", path)}
	}
	return nil
}

func ValidateNickname(nickname string) error {
	if strings.TrimSpace(nickname) == "" {
		return &ValidationError{Field: "nickname", Message: "nickname is required"}
	}
	return nil
}
