package pages

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// LoginElement names an element of the OpenCart login page.
type LoginElement string

const (
	LoginHeading           LoginElement = "pageTitle"
	LoginNewCustomer       LoginElement = "newCustomerSection"
	LoginNewCustomerText   LoginElement = "newCustomerDescription"
	LoginRegisterContinue  LoginElement = "registerContinueButton"
	LoginReturningCustomer LoginElement = "returningCustomerSection"
	LoginReturningText     LoginElement = "returningCustomerDescription"
	LoginEmail             LoginElement = "emailInput"
	LoginPassword          LoginElement = "passwordInput"
	LoginButton            LoginElement = "loginButton"
	LoginForgottenPassword LoginElement = "forgottenPasswordLink"
	LoginError             LoginElement = "loginError"
	LoginEmailError        LoginElement = "emailError"
	LoginPasswordError     LoginElement = "passwordError"
	LoginResetConfirmation LoginElement = "resetConfirmation"
)

var loginSelectors = Selectors[LoginElement]{
	LoginHeading:           "h1",
	LoginNewCustomer:       `h2:has-text("New Customer")`,
	LoginNewCustomerText:   `p:has-text("By creating an account")`,
	LoginRegisterContinue:  `a[href*="account/register"]:has-text("Continue")`,
	LoginReturningCustomer: `h2:has-text("Returning Customer")`,
	LoginReturningText:     `p:has-text("I am a returning customer")`,
	LoginEmail:             `input[name="email"]`,
	LoginPassword:          `input[name="password"]`,
	LoginButton:            `input[type="submit"][value="Login"]`,
	LoginForgottenPassword: `a[href*="account/forgotten"]`,
	LoginError:             ".alert-danger",
	LoginEmailError:        "#input-email + .text-danger",
	LoginPasswordError:     "#input-password + .text-danger",
	LoginResetConfirmation: ".alert-success",
}

// Login is the OpenCart account login page.
type Login struct {
	Base[LoginElement]
	Sidebar *Sidebar
}

func NewLogin(s Session) *Login {
	return &Login{
		Base:    NewBase(s, "login", loginSelectors),
		Sidebar: newSidebar(s, "login", guestLinks...),
	}
}

// Navigate opens the login page directly.
func (p *Login) Navigate(ctx context.Context) error {
	return p.Base.Navigate(ctx, p.url(RouteLogin))
}

// VerifyLoaded waits for the heading, the email field and the Login button.
func (p *Login) VerifyLoaded(ctx context.Context) error {
	if err := p.driver.WaitForLoad(ctx); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	for _, el := range []LoginElement{LoginHeading, LoginEmail, LoginButton} {
		if err := p.WaitFor(ctx, el, p.timeouts.Wait); err != nil {
			return err
		}
	}
	return nil
}

// FillLoginForm fills email, then password.
func (p *Login) FillLoginForm(ctx context.Context, email, password string) error {
	if err := p.Fill(ctx, LoginEmail, email); err != nil {
		return err
	}
	return p.Fill(ctx, LoginPassword, password)
}

// Login fills the form and clicks Login.
func (p *Login) Login(ctx context.Context, email, password string) error {
	p.action("login", zap.String("email", email))
	if err := p.FillLoginForm(ctx, email, password); err != nil {
		return err
	}
	return p.Click(ctx, LoginButton)
}

// LoginError returns the warning alert text.
func (p *Login) LoginError(ctx context.Context) (string, error) {
	return p.trimmed(ctx, LoginError)
}

func (p *Login) EmailError(ctx context.Context) (string, error) {
	return p.trimmed(ctx, LoginEmailError)
}

func (p *Login) PasswordError(ctx context.Context) (string, error) {
	return p.trimmed(ctx, LoginPasswordError)
}

// HasLoginError reports whether the warning alert is on the page.
func (p *Login) HasLoginError(ctx context.Context) (bool, error) {
	n, err := p.Count(ctx, LoginError)
	return n > 0, err
}

func (p *Login) trimmed(ctx context.Context, el LoginElement) (string, error) {
	text, err := p.Text(ctx, el)
	return strings.TrimSpace(text), err
}

// ResetConfirmation returns the alert shown after a password reset request
// redirects back to login.
func (p *Login) ResetConfirmation(ctx context.Context) (string, error) {
	return p.trimmed(ctx, LoginResetConfirmation)
}

// IsTitleCorrect reports whether the heading mentions Account or Login.
func (p *Login) IsTitleCorrect(ctx context.Context) (bool, error) {
	title, err := p.Text(ctx, LoginHeading)
	if err != nil {
		return false, err
	}
	return strings.Contains(title, "Account") || strings.Contains(title, "Login"), nil
}

func (p *Login) IsNewCustomerSectionVisible(ctx context.Context) bool {
	return p.IsVisible(ctx, LoginNewCustomer)
}

func (p *Login) IsReturningCustomerSectionVisible(ctx context.Context) bool {
	return p.IsVisible(ctx, LoginReturningCustomer)
}

func (p *Login) IsForgottenPasswordLinkVisible(ctx context.Context) bool {
	return p.IsVisible(ctx, LoginForgottenPassword)
}

func (p *Login) ClickForgottenPassword(ctx context.Context) error {
	return p.Click(ctx, LoginForgottenPassword)
}

// ClickRegisterContinue follows the New Customer Continue button.
func (p *Login) ClickRegisterContinue(ctx context.Context) error {
	return p.Click(ctx, LoginRegisterContinue)
}

// ClickSidebarLink follows an entry of the account column.
func (p *Login) ClickSidebarLink(ctx context.Context, link SidebarLink) error {
	return p.Sidebar.ClickLink(ctx, link)
}

// ClearAll empties email and password.
func (p *Login) ClearAll(ctx context.Context) error {
	if err := p.Clear(ctx, LoginEmail); err != nil {
		return err
	}
	return p.Clear(ctx, LoginPassword)
}
