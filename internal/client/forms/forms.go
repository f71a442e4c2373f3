// Package forms validates client input before it is submitted, producing
// per-field messages a form can show next to each input.
package forms

import (
	"errors"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldErrors maps a field name to the message shown under it.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	msgs := make([]string, 0, len(fields))
	for _, f := range fields {
		msgs = append(msgs, fe[f])
	}
	return strings.Join(msgs, "; ")
}

type Login struct {
	Email    string `form:"email"    validate:"required"`
	Password string `form:"password" validate:"required"`
}

type Registration struct {
	Name     string `form:"name"     validate:"required"`
	Email    string `form:"email"    validate:"required,endswith=@gmail.com"`
	Password string `form:"password" validate:"min=8,maxbytes=72"`
}

type ChangePassword struct {
	OldPassword string `form:"oldPassword"     validate:"required"`
	NewPassword string `form:"newPassword"     validate:"min=8,maxbytes=72,nefield=OldPassword"`
	Confirm     string `form:"confirmPassword" validate:"eqfield=NewPassword"`
}

func (l Login) Validate() error          { return check(l) }
func (r Registration) Validate() error   { return check(r) }
func (c ChangePassword) Validate() error { return check(c) }

// messages are keyed by field then validation tag.
var messages = map[string]map[string]string{
	"name": {"required": "Name is required"},
	"email": {
		"required": "Email is required",
		"endswith": "Use @gmail.com as your email format",
	},
	"password": {
		"required": "Password is required",
		"min":      "Your password must be at least 8 characters",
		"maxbytes": "Your password is too long",
	},
	"oldPassword": {"required": "Current password is required"},
	"newPassword": {
		"min":      "Your password must be at least 8 characters",
		"maxbytes": "Your password is too long",
		"nefield":  "New password must differ from the current one",
	},
	"confirmPassword": {"eqfield": "Passwords do not match"},
}

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("form"); name != "" {
			return name
		}
		return f.Name
	})
	_ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		limit, err := strconv.Atoi(fl.Param())
		return err == nil && len(fl.Field().String()) <= limit
	})
	return v
}

// check returns nil or FieldErrors holding the first failure per field.
func check(form any) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}

	out := make(FieldErrors, len(ve))
	for _, fe := range ve {
		field := fe.Field()
		if _, seen := out[field]; seen {
			continue
		}
		msg, ok := messages[field][fe.Tag()]
		if !ok {
			msg = field + " is invalid"
		}
		out[field] = msg
	}
	return out
}
