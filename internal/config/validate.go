package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("toml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks field constraints and cross references between the router
// settings and the declared routes.
func (c *Config) Validate() error {
	var fields []FieldError

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		for _, fe := range verrs {
			fields = append(fields, FieldError{
				Field:   trimNamespace(fe.Namespace()),
				Message: describe(fe),
			})
		}
	}

	names := make(map[string]int)
	patterns := make(map[string]bool)
	for i, r := range c.Routes {
		patterns[r.Pattern] = true
		if r.Name == "" {
			continue
		}
		if first, dup := names[r.Name]; dup {
			fields = append(fields, FieldError{
				Field:   fmt.Sprintf("routes[%d].name", i),
				Message: fmt.Sprintf("duplicate of routes[%d]", first),
			})
			continue
		}
		names[r.Name] = i
	}

	refs := []struct{ field, path string }{
		{"router.not_found_path", c.Router.NotFoundPath},
		{"router.login_path", c.Router.LoginPath},
		{"router.error_path", c.Router.ErrorPath},
	}
	for _, ref := range refs {
		if ref.path != "" && len(c.Routes) > 0 && !patterns[ref.path] {
			fields = append(fields, FieldError{Field: ref.field, Message: fmt.Sprintf("no route declared for %q", ref.path)})
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// trimNamespace drops the leading struct name: "Config.router.max_redirects"
// becomes "router.max_redirects".
func trimNamespace(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of " + fe.Param()
	case "startswith":
		return fmt.Sprintf("must start with %q", fe.Param())
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "min":
		return "needs at least " + fe.Param() + " entries"
	case "url":
		return "must be a URL"
	default:
		return fmt.Sprintf("failed %s check", fe.Tag())
	}
}
