package main

import (
	"github.com/isseis/go-log-redactor/internal/redacted"
	"github.com/isseis/go-log-redactor/internal/typecatalog"
)

// Person is an employee record with personal data.
type Person struct {
	Name string
	SSN  *string  `sensitive:"true"`
	// Emails is redacted as a whole.
	Emails []string `sensitive:"true"`
	// Fields logged on their own as scalars need redacted.Value.
	Username *redacted.Value[string] `sensitive:"true"`
	Password *redacted.Value[string] `sensitive:"true"`
}

// Company groups employees.
type Company struct {
	Name      string
	Employees []Person
}

func init() {
	typecatalog.Register[Person](typecatalog.Default)
	typecatalog.Register[Company](typecatalog.Default)
}

func secret(s string) *redacted.Value[string] {
	v := redacted.New(s)
	return &v
}

func newCompany() Company {
	ssn := "123-45-6789"
	return Company{
		Name: "Fake Inc.",
		Employees: []Person{
			{
				Name:     "John Doe",
				SSN:      &ssn,
				Emails:   []string{"john.doe@fake.com", "j.doe@fake.com"},
				Username: secret("j-doe"),
				Password: secret("P@ssw0rd!"),
			},
			{
				Name: "Jane Doe",
			},
		},
	}
}
