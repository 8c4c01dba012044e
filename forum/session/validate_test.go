package session

import (
	"testing"

	"github.com/Brace1000/forum-client-go/forum/rest"
)

func validForm() rest.RegisterForm {
	return rest.RegisterForm{
		Username: "alice", Email: "a@example.com",
		Password: "secret", ConfirmPassword: "secret",
		FirstName: "Alice", LastName: "Ng", Age: "30", Gender: "female",
	}
}

func TestValidateRegisterFormOK(t *testing.T) {
	if errs := ValidateRegisterForm(validForm()); errs != nil {
		t.Fatalf("expected no errors, got %v", errs)
	}
}

func TestValidateRegisterFormRequired(t *testing.T) {
	errs := ValidateRegisterForm(rest.RegisterForm{})
	if len(errs) != 8 {
		t.Fatalf("expected every field flagged, got %v", errs)
	}
	if errs["email"] != msgRequired {
		t.Fatalf("unexpected message %q", errs["email"])
	}
}

func TestValidateRegisterFormPasswordMismatch(t *testing.T) {
	form := validForm()
	form.ConfirmPassword = "other"
	errs := ValidateRegisterForm(form)
	if errs["confirmpassword"] != "Passwords do not match" {
		t.Fatalf("unexpected errors %v", errs)
	}
	if len(errs) != 1 {
		t.Fatalf("expected a single error, got %v", errs)
	}
}

func TestValidateRegisterFormAge(t *testing.T) {
	for _, bad := range []string{"abc", "0", "-4", "3.5"} {
		form := validForm()
		form.Age = bad
		errs := ValidateRegisterForm(form)
		if errs["age"] != "Age must be a positive number" {
			t.Fatalf("age %q: unexpected errors %v", bad, errs)
		}
	}
}
