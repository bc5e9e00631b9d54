package pages

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// ForgottenElement names an element of the OpenCart password reset page.
type ForgottenElement string

const (
	ForgottenHeading      ForgottenElement = "pageTitle"
	ForgottenInstructions ForgottenElement = "instructionsText"
	ForgottenEmail        ForgottenElement = "emailInput"
	ForgottenContinue     ForgottenElement = "continueButton"
	ForgottenBack         ForgottenElement = "backButton"
	ForgottenSuccess      ForgottenElement = "successMessage"
	ForgottenError        ForgottenElement = "errorMessage"
	ForgottenEmailError   ForgottenElement = "emailError"
)

var forgottenSelectors = Selectors[ForgottenElement]{
	ForgottenHeading:      "h1",
	ForgottenInstructions: `p:has-text("Enter the e-mail address associated with your account")`,
	ForgottenEmail:        `input[name="email"]`,
	ForgottenContinue:     `input[type="submit"][value="Continue"]`,
	ForgottenBack:         `a[href*="account/login"]:has-text("Back")`,
	ForgottenSuccess:      ".alert-success",
	ForgottenError:        ".alert-danger",
	ForgottenEmailError:   "#input-email + .text-danger",
}

// ForgottenPassword is the OpenCart password reset request page.
type ForgottenPassword struct {
	Base[ForgottenElement]
	Sidebar *Sidebar
}

func NewForgottenPassword(s Session) *ForgottenPassword {
	return &ForgottenPassword{
		Base:    NewBase(s, "forgotten-password", forgottenSelectors),
		Sidebar: newSidebar(s, "forgotten-password", guestLinks...),
	}
}

// Navigate opens the reset page directly.
func (p *ForgottenPassword) Navigate(ctx context.Context) error {
	return p.Base.Navigate(ctx, p.url(RouteForgotten))
}

// VerifyLoaded waits for the heading, the email field and Continue.
func (p *ForgottenPassword) VerifyLoaded(ctx context.Context) error {
	if err := p.driver.WaitForLoad(ctx); err != nil {
		return fmt.Errorf("forgotten password: %w", err)
	}
	for _, el := range []ForgottenElement{ForgottenHeading, ForgottenEmail, ForgottenContinue} {
		if err := p.WaitFor(ctx, el, p.timeouts.Wait); err != nil {
			return err
		}
	}
	return nil
}

// RequestPasswordReset fills the email and clicks Continue.
func (p *ForgottenPassword) RequestPasswordReset(ctx context.Context, email string) error {
	p.action("request password reset", zap.String("email", email))
	if err := p.Fill(ctx, ForgottenEmail, email); err != nil {
		return err
	}
	return p.Click(ctx, ForgottenContinue)
}

func (p *ForgottenPassword) SuccessMessage(ctx context.Context) (string, error) {
	return p.trimmed(ctx, ForgottenSuccess)
}

func (p *ForgottenPassword) ErrorMessage(ctx context.Context) (string, error) {
	return p.trimmed(ctx, ForgottenError)
}

func (p *ForgottenPassword) EmailError(ctx context.Context) (string, error) {
	return p.trimmed(ctx, ForgottenEmailError)
}

func (p *ForgottenPassword) InstructionsText(ctx context.Context) (string, error) {
	return p.trimmed(ctx, ForgottenInstructions)
}

func (p *ForgottenPassword) trimmed(ctx context.Context, el ForgottenElement) (string, error) {
	text, err := p.Text(ctx, el)
	return strings.TrimSpace(text), err
}

// IsTitleCorrect reports whether the heading mentions Account or Forgot.
func (p *ForgottenPassword) IsTitleCorrect(ctx context.Context) (bool, error) {
	title, err := p.Text(ctx, ForgottenHeading)
	if err != nil {
		return false, err
	}
	return strings.Contains(title, "Account") || strings.Contains(title, "Forgot"), nil
}

func (p *ForgottenPassword) IsSuccessVisible(ctx context.Context) bool {
	return p.IsVisible(ctx, ForgottenSuccess)
}

func (p *ForgottenPassword) IsErrorVisible(ctx context.Context) bool {
	return p.IsVisible(ctx, ForgottenError)
}

func (p *ForgottenPassword) AreInstructionsVisible(ctx context.Context) bool {
	return p.IsVisible(ctx, ForgottenInstructions)
}

// ClickBack returns to the login page.
func (p *ForgottenPassword) ClickBack(ctx context.Context) error {
	return p.Click(ctx, ForgottenBack)
}

func (p *ForgottenPassword) ClearEmail(ctx context.Context) error {
	return p.Clear(ctx, ForgottenEmail)
}
