package users

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	autherrors "github.com/jrsteele09/newsfeed-auth/internal/errors"
)

const (
	UsernameMinLength = 3
	UsernameMaxLength = 50
	PasswordMinLength = 8
)

var (
	usernamePattern   = regexp.MustCompile(`^[a-z0-9]+$`)
	emailPattern      = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@.]+$`)
	disallowedPattern = regexp.MustCompile(`[^a-z0-9]`)
)

// Credentials is the signup input. It is validated before any network call and
// never persisted.
type Credentials struct {
	Username        string `json:"username" validate:"required,min=3,max=50,username"`
	Email           string `json:"email" validate:"required,emaillite"`
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"-" validate:"omitempty,eqfield=Password"`
}

// LoginCredentials is the direct-credential login input.
type LoginCredentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return strings.ToLower(fld.Name)
		}
		return name
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("emaillite", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	return v
}

// Validate checks the signup rules and reports the first failure only.
func (c Credentials) Validate() error {
	return firstValidationError(validate.Struct(c))
}

// ValidateWithConfirmation applies Validate and additionally requires the
// repeated password to be present. Interactive signup uses it.
func (c Credentials) ValidateWithConfirmation() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.PasswordConfirm == "" {
		return &autherrors.ValidationError{Field: "passwordconfirm", Message: "please confirm your password"}
	}
	return nil
}

// Validate checks that both login fields are present.
func (c LoginCredentials) Validate() error {
	return firstValidationError(validate.Struct(c))
}

// NormalizeUsername lower-cases the input and strips characters a username may
// not contain. It is meant for as-you-type feedback; Validate still rejects the
// raw value at submission.
func NormalizeUsername(input string) string {
	return disallowedPattern.ReplaceAllString(strings.ToLower(input), "")
}

func firstValidationError(err error) error {
	if err == nil {
		return nil
	}
	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok || len(validationErrs) == 0 {
		return &autherrors.ValidationError{Message: err.Error()}
	}
	fe := validationErrs[0]
	return &autherrors.ValidationError{Field: fe.Field(), Message: messageFor(fe)}
}

func messageFor(fe validator.FieldError) string {
	switch fe.Field() {
	case "username":
		switch fe.Tag() {
		case "required":
			return "username is required"
		case "min", "max":
			return "username must be between 3 and 50 characters"
		default:
			return "username must contain only lowercase letters and numbers"
		}
	case "email":
		if fe.Tag() == "required" {
			return "email is required"
		}
		return "invalid email format"
	case "password":
		if fe.Tag() == "required" {
			return "password is required"
		}
		return "password must be at least 8 characters"
	case "passwordconfirm":
		return "passwords do not match"
	}
	return fe.Field() + " is invalid"
}
