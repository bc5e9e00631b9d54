// Package pagestest simulates the OpenCart account pages on top of
// browsertest.Fake, closely enough for page and journey tests.
package pagestest

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/wesleyorama2/shopcheck/internal/browser/browsertest"
	"github.com/wesleyorama2/shopcheck/internal/pages"
)

// Messages the store shows, as worded by OpenCart 2.
const (
	MsgCongratulations  = "Congratulations! Your new account has been successfully created!"
	MsgMemberPrivileges = "You can now take advantage of member privileges to enhance your online shopping experience with us."
	MsgQuestions        = "If you have ANY questions about the operation of this online shop, please e-mail the store owner."
	MsgConfirmation     = "A confirmation has been sent to the provided e-mail address."
	MsgPrivacyPolicy    = "Warning: You must agree to the Privacy Policy!"
	MsgEmailRegistered  = "Warning: E-Mail Address is already registered!"
	MsgPasswordMismatch = "Password confirmation does not match password!"
	MsgInvalidEmail     = "E-Mail Address does not appear to be valid!"
	MsgFirstName        = "First Name must be between 1 and 32 characters!"
	MsgLastName         = "Last Name must be between 1 and 32 characters!"
	MsgTelephone        = "Telephone must be between 3 and 32 characters!"
	MsgPassword         = "Password must be between 4 and 20 characters!"
	MsgLoginFailed      = "Warning: No match for E-Mail Address and/or Password."
	MsgResetSent        = "An email with a confirmation link has been sent your email address."
	MsgResetUnknown     = "Warning: The E-Mail Address was not found in our records, please try again!"
)

const (
	selContinue    = `input[type="submit"][value="Continue"]`
	selMyAccount   = `a[title="My Account"]`
	selRegister    = `a[href*="account/register"]`
	selLogin       = `a[href*="account/login"]`
	selLoginButton = `input[type="submit"][value="Login"]`
	selForgotten   = `a[href*="account/forgotten"]`
	selEmail       = `input[name="email"]`
	selPassword    = `input[name="password"]`
	selAgree       = `input[name="agree"]`
	selFieldError  = ".text-danger"
	selAlert       = ".alert-danger"
	selAlertOK     = ".alert-success"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Store is a fake OpenCart store. Its hooks read the form values the page
// objects filled and react like the real account controllers.
type Store struct {
	*browsertest.Fake
	BaseURL string

	accounts    map[string]string
	fieldErrors []string
	alerts      []string
	registered  []string
}

// NewOpenCart returns a store at baseURL with no page loaded.
func NewOpenCart(baseURL string) *Store {
	s := &Store{
		Fake:     browsertest.New(),
		BaseURL:  strings.TrimRight(baseURL, "/"),
		accounts: make(map[string]string),
	}

	s.Route(s.Link(pages.RouteHome), s.home)
	s.Route(s.Link(pages.RouteRegister), s.register)
	s.Route(s.Link(pages.RouteSuccess), s.success)
	s.Route(s.Link(pages.RouteLogin), s.login)
	s.Route(s.Link(pages.RouteForgotten), s.forgotten)
	s.Route(s.Link(pages.RouteAccount), s.account)

	s.OnClick(selMyAccount, func(f *browsertest.Fake) {
		f.Show(".dropdown-menu", "")
		f.Show(selRegister, "Register")
		f.Show(selLogin, "Login")
	})
	s.OnClick(selRegister, s.goTo(pages.RouteRegister))
	s.OnClick(`a[href*="account/register"]:has-text("Continue")`, s.goTo(pages.RouteRegister))
	s.OnClick(selLogin, s.goTo(pages.RouteLogin))
	s.OnClick(`a[href*="account/login"]:has-text("Back")`, s.goTo(pages.RouteLogin))
	s.OnClick(selForgotten, s.goTo(pages.RouteForgotten))
	s.OnClick(selContinue, s.submitContinue)
	s.OnClick(selLoginButton, s.submitLogin)
	s.OnEvaluate(s.evaluate)
	return s
}

// Link is the address of route on this store.
func (s *Store) Link(route string) string {
	return pages.OpenCartURL(s.BaseURL, route)
}

// AddAccount registers a customer.
func (s *Store) AddAccount(email, password string) {
	s.accounts[email] = password
}

// Registered returns the emails registered through the form, in order.
func (s *Store) Registered() []string {
	return s.registered
}

func (s *Store) goTo(route string) browsertest.Hook {
	return func(f *browsertest.Fake) { f.Navigate(s.Link(route)) }
}

func (s *Store) reset() {
	s.fieldErrors, s.alerts = nil, nil
}

func (s *Store) page(f *browsertest.Fake, title, heading, body string) {
	s.reset()
	f.SetTitle(title)
	f.Show("h1", heading)
	f.Set("body", browsertest.Element{Text: body, InnerText: body, Visible: true})
	f.Show("#column-right", "")
}

func (s *Store) home(f *browsertest.Fake) {
	s.page(f, "Your Store", "Your Store", "Your Store Featured MacBook iPhone Apple Cinema 30\" Canon EOS 5D")
	f.Show("h1 a", "Your Store")
	f.Show(selMyAccount, "My Account")
	f.Set(".dropdown-menu", browsertest.Element{})
	f.Set(selRegister, browsertest.Element{Text: "Register"})
	f.Set(selLogin, browsertest.Element{Text: "Login"})
	f.Show(`input[name="search"]`, "")
	f.Show(`button[type="button"]`, "")
	f.Show(`button[title="Shopping Cart"]`, " 0 item(s) - $0.00")
	f.Show(`h3:has-text("Featured")`, "Featured")
	f.Show("#footer", "")
	for _, path := range []string{"20", "18", "25", "57", "17", "24", "33", "34"} {
		f.Show(fmt.Sprintf(`a[href*="product/category&path=%s"]`, path), "")
	}
	f.Remove("#column-right")
}

func (s *Store) register(f *browsertest.Fake) {
	s.page(f, "Register Account", "Register Account", "Register Account If you already have an account with us, please login at the login page.")
	f.Show(`fieldset legend:has-text("Your Personal Details")`, "Your Personal Details")
	for _, name := range []string{"firstname", "lastname", "email", "telephone", "password", "confirm"} {
		f.Show(fmt.Sprintf(`input[name="%s"]`, name), "")
	}
	f.Set(`input[name="newsletter"][value="1"]`, browsertest.Element{Visible: true, Type: "radio"})
	f.Set(`input[name="newsletter"][value="0"]`, browsertest.Element{Visible: true, Type: "radio", Checked: true})
	f.Set(selAgree, browsertest.Element{Visible: true, Type: "checkbox"})
	f.Show(selContinue, "")
	f.Show(selLogin, "login page")
	s.sidebar(f, "login", "register", "forgotten", "account")
}

func (s *Store) success(f *browsertest.Fake) {
	s.page(f, "Your Account Has Been Created!", "Your Account Has Been Created!",
		strings.Join([]string{MsgCongratulations, MsgMemberPrivileges, MsgQuestions, MsgConfirmation}, "\n"))
	f.Show(`p:has-text("Congratulations! Your new account has been successfully created!")`, MsgCongratulations)
	f.Show(`p:has-text("You can now take advantage of member privileges")`, MsgMemberPrivileges)
	f.Show(`p:has-text("If you have ANY questions about the operation")`, MsgQuestions)
	f.Show(`p:has-text("A confirmation has been sent to the provided e-mail address")`, MsgConfirmation)
	f.Show(`a[href*="information/contact"]`, "contact us")
	f.Show(`a[href*="account/account"]:has-text("Continue")`, "Continue")
	s.sidebar(f, "account", "edit", "password", "address", "wishlist", "order",
		"download", "recurring", "reward", "return", "transaction", "newsletter", "logout")
}

func (s *Store) login(f *browsertest.Fake) {
	s.page(f, "Account Login", "Account Login", "New Customer Returning Customer I am a returning customer")
	f.Show(`h2:has-text("New Customer")`, "New Customer")
	f.Show(`h2:has-text("Returning Customer")`, "Returning Customer")
	f.Show(`a[href*="account/register"]:has-text("Continue")`, "Continue")
	f.Show(selEmail, "")
	f.Show(selPassword, "")
	f.Show(selLoginButton, "")
	f.Show(selForgotten, "Forgotten Password")
	s.sidebar(f, "login", "register", "forgotten", "account")
}

func (s *Store) forgotten(f *browsertest.Fake) {
	s.page(f, "Forgot Your Password?", "Forgot Your Password?", "Enter the e-mail address associated with your account.")
	f.Show(`p:has-text("Enter the e-mail address associated with your account")`,
		"Enter the e-mail address associated with your account. Click submit to have a password reset link e-mailed to you.")
	f.Show(selEmail, "")
	f.Show(selContinue, "")
	f.Show(`a[href*="account/login"]:has-text("Back")`, "Back")
	s.sidebar(f, "login", "register", "forgotten", "account")
}

func (s *Store) account(f *browsertest.Fake) {
	s.page(f, "My Account", "My Account", "My Account Edit your account information")
	s.sidebar(f, "account", "edit", "password", "logout")
}

func (s *Store) sidebar(f *browsertest.Fake, links ...string) {
	for _, l := range links {
		f.Set(fmt.Sprintf(`#column-right a[href*="account/%s"]`, l), browsertest.Element{
			Visible: true,
			Attrs:   map[string]string{"href": s.Link("account/" + l)},
		})
	}
}

func (s *Store) value(sel string) string {
	el, _ := s.Element(sel)
	return el.Value
}

func (s *Store) checked(sel string) bool {
	el, _ := s.Element(sel)
	return el.Checked
}

func (s *Store) submitContinue(f *browsertest.Fake) {
	switch f.CurrentURL() {
	case s.Link(pages.RouteRegister):
		s.submitRegistration(f)
	case s.Link(pages.RouteForgotten):
		s.submitReset(f)
	}
}

func between(v string, lo, hi int) bool {
	n := utf8.RuneCountInString(v)
	return n >= lo && n <= hi
}

func (s *Store) submitRegistration(f *browsertest.Fake) {
	s.reset()
	for _, name := range []string{"firstname", "lastname", "email", "telephone", "password", "confirm"} {
		f.Remove(fmt.Sprintf(`input[name="%s"] + .text-danger`, name))
	}
	f.Remove(selFieldError)
	f.Remove(selAlert)

	email := s.value(selEmail)
	password := s.value(selPassword)
	fieldErr := func(name, msg string) {
		s.fieldErrors = append(s.fieldErrors, msg)
		f.Show(fmt.Sprintf(`input[name="%s"] + .text-danger`, name), msg)
	}

	if !between(s.value(`input[name="firstname"]`), 1, 32) {
		fieldErr("firstname", MsgFirstName)
	}
	if !between(s.value(`input[name="lastname"]`), 1, 32) {
		fieldErr("lastname", MsgLastName)
	}
	if !between(email, 1, 96) || !emailRe.MatchString(email) {
		fieldErr("email", MsgInvalidEmail)
	} else if _, ok := s.accounts[email]; ok {
		s.alerts = append(s.alerts, MsgEmailRegistered)
	}
	if !between(s.value(`input[name="telephone"]`), 3, 32) {
		fieldErr("telephone", MsgTelephone)
	}
	if !between(password, 4, 20) {
		fieldErr("password", MsgPassword)
	}
	if s.value(`input[name="confirm"]`) != password {
		fieldErr("confirm", MsgPasswordMismatch)
	}
	if !s.checked(selAgree) {
		s.alerts = append(s.alerts, MsgPrivacyPolicy)
	}

	if len(s.fieldErrors) == 0 && len(s.alerts) == 0 {
		s.accounts[email] = password
		s.registered = append(s.registered, email)
		f.Navigate(s.Link(pages.RouteSuccess))
		return
	}
	if len(s.fieldErrors) > 0 {
		f.Set(selFieldError, browsertest.Element{Text: s.fieldErrors[0], Visible: true, N: len(s.fieldErrors)})
	}
	if len(s.alerts) > 0 {
		f.Set(selAlert, browsertest.Element{Text: s.alerts[0], Visible: true, N: len(s.alerts)})
	}
}

func (s *Store) submitLogin(f *browsertest.Fake) {
	s.reset()
	email, password := s.value(selEmail), s.value(selPassword)
	if pw, ok := s.accounts[email]; ok && pw == password {
		f.Navigate(s.Link(pages.RouteAccount))
		return
	}
	s.alerts = []string{MsgLoginFailed}
	f.Show(selAlert, MsgLoginFailed)
}

func (s *Store) submitReset(f *browsertest.Fake) {
	s.reset()
	if _, ok := s.accounts[s.value(selEmail)]; ok {
		f.Navigate(s.Link(pages.RouteLogin))
		f.Show(selAlertOK, MsgResetSent)
		return
	}
	s.alerts = []string{MsgResetUnknown}
	f.Show(selAlert, MsgResetUnknown)
}

// evaluate answers the page layer's "texts of all matches" script.
func (s *Store) evaluate(js string, args []any) (any, error) {
	if !strings.Contains(js, "querySelectorAll") || len(args) != 1 {
		return nil, nil
	}
	var texts []string
	switch args[0] {
	case selFieldError:
		texts = s.fieldErrors
	case selAlert:
		texts = s.alerts
	}
	out := make([]any, len(texts))
	for i, t := range texts {
		out[i] = t
	}
	return out, nil
}
