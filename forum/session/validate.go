package session

import (
	"strconv"

	"github.com/Brace1000/forum-client-go/forum/rest"
)

const msgRequired = "This field is required"

// ValidateRegisterForm checks the registration form before any network call:
// every field must be non-empty and the password confirmation must match.
// A nil return means the form may be submitted.
func ValidateRegisterForm(form rest.RegisterForm) rest.FieldErrors {
	errs := rest.FieldErrors{}

	required := map[string]string{
		"username":        form.Username,
		"email":           form.Email,
		"password":        form.Password,
		"confirmpassword": form.ConfirmPassword,
		"firstname":       form.FirstName,
		"lastname":        form.LastName,
		"age":             form.Age,
		"gender":          form.Gender,
	}
	for field, value := range required {
		if value == "" {
			errs[field] = msgRequired
		}
	}

	if form.Password != "" && form.ConfirmPassword != "" && form.Password != form.ConfirmPassword {
		errs["confirmpassword"] = "Passwords do not match"
	}
	if form.Age != "" {
		if n, err := strconv.Atoi(form.Age); err != nil || n <= 0 {
			errs["age"] = "Age must be a positive number"
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}
