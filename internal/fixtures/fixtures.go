// Package fixtures holds the test data for the OpenCart browser journeys:
// registration users tagged with their expected outcome, login credentials,
// catalog data and the store's expected messages.
package fixtures

import (
	"bytes"
	_ "embed"
	"fmt"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed data/opencart.yaml
var opencartYAML []byte

// Outcome is the expected result of submitting a registration.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeError   Outcome = "error"
)

// User is one registration form fixture.
type User struct {
	Name                string   `yaml:"-"`
	FirstName           string   `yaml:"firstName"`
	LastName            string   `yaml:"lastName"`
	Email               string   `yaml:"email"`
	Telephone           string   `yaml:"telephone"`
	Password            string   `yaml:"password"`
	ConfirmPassword     string   `yaml:"confirmPassword"`
	SubscribeNewsletter bool     `yaml:"subscribeNewsletter"`
	AgreePrivacyPolicy  bool     `yaml:"agreePrivacyPolicy"`
	Expected            Outcome  `yaml:"expected"`
	Messages            []string `yaml:"messages"`
}

// ExpectsSuccess reports whether registering u should reach the success page.
func (u User) ExpectsSuccess() bool {
	return u.Expected == OutcomeSuccess
}

type Product struct {
	Name        string `yaml:"name"`
	Price       string `yaml:"price"`
	Category    string `yaml:"category"`
	Description string `yaml:"description"`
}

type Products struct {
	Featured    []Product `yaml:"featured"`
	Categories  []string  `yaml:"categories"`
	SearchTerms []string  `yaml:"searchTerms"`
}

// Timeouts are in milliseconds, as the store's suites declare them.
type Timeouts struct {
	Short  int `yaml:"short"`
	Medium int `yaml:"medium"`
	Long   int `yaml:"long"`
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func (t Timeouts) ShortDuration() time.Duration  { return ms(t.Short) }
func (t Timeouts) MediumDuration() time.Duration { return ms(t.Medium) }
func (t Timeouts) LongDuration() time.Duration   { return ms(t.Long) }

// App describes the store under test.
type App struct {
	BaseURL  string            `yaml:"baseURL"`
	Titles   map[string]string `yaml:"titles"`
	Messages map[string]string `yaml:"messages"`
	Timeouts Timeouts          `yaml:"timeouts"`
}

type Navigation struct {
	MainMenu       []string `yaml:"mainMenu"`
	AccountSidebar []string `yaml:"accountSidebar"`
}

// RegistrationScenario pairs a user fixture with its expected outcome.
type RegistrationScenario struct {
	Name     string  `yaml:"name"`
	UserRef  string  `yaml:"user"`
	Expected Outcome `yaml:"expected"`
	User     User    `yaml:"-"`
}

type Credentials struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

// Data is the whole fixture set.
type Data struct {
	Users                 map[string]User        `yaml:"users"`
	Products              Products               `yaml:"products"`
	App                   App                    `yaml:"app"`
	Navigation            Navigation             `yaml:"navigation"`
	RegistrationScenarios []RegistrationScenario `yaml:"registrationScenarios"`
	Login                 map[string]Credentials `yaml:"login"`
}

var loadOpenCart = sync.OnceValues(func() (*Data, error) {
	return Parse(opencartYAML)
})

// OpenCart returns the embedded OpenCart fixtures. The result is shared and
// must not be modified.
func OpenCart() (*Data, error) {
	return loadOpenCart()
}

// Parse decodes a fixture document, rejecting unknown keys, and resolves
// the user of each registration scenario.
func Parse(data []byte) (*Data, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var d Data
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	for name, u := range d.Users {
		u.Name = name
		switch u.Expected {
		case OutcomeSuccess, OutcomeError:
		default:
			return nil, fmt.Errorf("user %s: expected must be %q or %q, got %q", name, OutcomeSuccess, OutcomeError, u.Expected)
		}
		d.Users[name] = u
	}
	for i := range d.RegistrationScenarios {
		sc := &d.RegistrationScenarios[i]
		u, ok := d.Users[sc.UserRef]
		if !ok {
			return nil, fmt.Errorf("registration scenario %q: unknown user %q", sc.Name, sc.UserRef)
		}
		if sc.Expected != u.Expected {
			return nil, fmt.Errorf("registration scenario %q: expects %s but user %s expects %s", sc.Name, sc.Expected, u.Name, u.Expected)
		}
		sc.User = u
	}
	return &d, nil
}

// User returns the named user fixture.
func (d *Data) User(name string) (User, error) {
	u, ok := d.Users[name]
	if !ok {
		return User{}, fmt.Errorf("unknown user fixture %q", name)
	}
	return u, nil
}

// UserNames returns the user fixture names, sorted.
func (d *Data) UserNames() []string {
	names := make([]string, 0, len(d.Users))
	for name := range d.Users {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Credentials returns the named login fixture.
func (d *Data) Credentials(name string) (Credentials, error) {
	c, ok := d.Login[name]
	if !ok {
		return Credentials{}, fmt.Errorf("unknown login fixture %q", name)
	}
	return c, nil
}

// Message returns an expected store message by key, or "" if unknown.
func (d *Data) Message(key string) string {
	return d.App.Messages[key]
}
