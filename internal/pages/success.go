package pages

import (
	"context"
	"fmt"
	"strings"
)

// SuccessElement names an element of the "account created" page.
type SuccessElement string

const (
	SuccessHeading          SuccessElement = "pageTitle"
	SuccessMessage          SuccessElement = "successMessage"
	SuccessMemberPrivileges SuccessElement = "memberPrivilegesMessage"
	SuccessQuestions        SuccessElement = "questionsMessage"
	SuccessConfirmation     SuccessElement = "confirmationMessage"
	SuccessContactUs        SuccessElement = "contactUsLink"
	SuccessContinue         SuccessElement = "continueButton"
	SuccessAccountSidebar   SuccessElement = "accountSidebar"
)

var successSelectors = Selectors[SuccessElement]{
	SuccessHeading:          "h1",
	SuccessMessage:          `p:has-text("Congratulations! Your new account has been successfully created!")`,
	SuccessMemberPrivileges: `p:has-text("You can now take advantage of member privileges")`,
	SuccessQuestions:        `p:has-text("If you have ANY questions about the operation")`,
	SuccessConfirmation:     `p:has-text("A confirmation has been sent to the provided e-mail address")`,
	SuccessContactUs:        `a[href*="information/contact"]`,
	SuccessContinue:         `a[href*="account/account"]:has-text("Continue")`,
	SuccessAccountSidebar:   "#column-right",
}

// errorSelectors are the markers that must be absent after a registration.
var errorSelectors = []string{".text-danger", ".alert-danger", ".alert-error", ".error"}

// Success is shown after a completed registration.
type Success struct {
	Base[SuccessElement]
	Sidebar *Sidebar
}

func NewSuccess(s Session) *Success {
	return &Success{
		Base:    NewBase(s, "success", successSelectors),
		Sidebar: newSidebar(s, "success", accountLinks...),
	}
}

// VerifyLoaded waits for the heading, the congratulation and Continue.
func (p *Success) VerifyLoaded(ctx context.Context) error {
	if err := p.driver.WaitForLoad(ctx); err != nil {
		return fmt.Errorf("success: %w", err)
	}
	for _, el := range []SuccessElement{SuccessHeading, SuccessMessage, SuccessContinue} {
		if err := p.WaitFor(ctx, el, p.timeouts.Wait); err != nil {
			return err
		}
	}
	return nil
}

// AreAllSuccessMessagesPresent probes the four paragraphs in page order.
func (p *Success) AreAllSuccessMessagesPresent(ctx context.Context) bool {
	for _, el := range []SuccessElement{SuccessMessage, SuccessMemberPrivileges, SuccessQuestions, SuccessConfirmation} {
		if !p.IsVisible(ctx, el) {
			return false
		}
	}
	return true
}

func (p *Success) SuccessMessage(ctx context.Context) (string, error) {
	return p.trimmed(ctx, SuccessMessage)
}

func (p *Success) MemberPrivilegesMessage(ctx context.Context) (string, error) {
	return p.trimmed(ctx, SuccessMemberPrivileges)
}

func (p *Success) QuestionsMessage(ctx context.Context) (string, error) {
	return p.trimmed(ctx, SuccessQuestions)
}

func (p *Success) ConfirmationMessage(ctx context.Context) (string, error) {
	return p.trimmed(ctx, SuccessConfirmation)
}

func (p *Success) trimmed(ctx context.Context, el SuccessElement) (string, error) {
	text, err := p.Text(ctx, el)
	return strings.TrimSpace(text), err
}

// IsTitleCorrect reports whether the heading mentions Account, Success or
// Created.
func (p *Success) IsTitleCorrect(ctx context.Context) (bool, error) {
	title, err := p.Text(ctx, SuccessHeading)
	if err != nil {
		return false, err
	}
	for _, w := range []string{"Account", "Success", "Created"} {
		if strings.Contains(title, w) {
			return true, nil
		}
	}
	return false, nil
}

// IsContinueEnabled reports whether Continue is visible and enabled.
func (p *Success) IsContinueEnabled(ctx context.Context) (bool, error) {
	if !p.IsVisible(ctx, SuccessContinue) {
		return false, nil
	}
	return p.IsEnabled(ctx, SuccessContinue)
}

// IsURLCorrect reports whether the browser is on account/success.
func (p *Success) IsURLCorrect(ctx context.Context) (bool, error) {
	return p.URLContains(ctx, RouteSuccess)
}

// HasNoErrorMessages reports whether none of the error markers is present.
func (p *Success) HasNoErrorMessages(ctx context.Context) (bool, error) {
	for _, sel := range errorSelectors {
		n, err := p.count(ctx, sel)
		if err != nil {
			return false, err
		}
		if n > 0 {
			return false, nil
		}
	}
	return true, nil
}

// PageContainsText reports whether the page text contains text.
func (p *Success) PageContainsText(ctx context.Context, text string) (bool, error) {
	return p.BodyContains(ctx, text)
}

// AccountSidebarLinks returns the hrefs of the account column.
func (p *Success) AccountSidebarLinks(ctx context.Context) ([]string, error) {
	return p.Sidebar.Links(ctx)
}

func (p *Success) IsAccountSidebarVisible(ctx context.Context) bool {
	return p.IsVisible(ctx, SuccessAccountSidebar)
}

// Continue follows the Continue button to My Account.
func (p *Success) Continue(ctx context.Context) error {
	return p.Click(ctx, SuccessContinue)
}

// CompleteSuccessFlow leaves the page through Continue.
func (p *Success) CompleteSuccessFlow(ctx context.Context) error {
	p.action("complete success flow")
	return p.Continue(ctx)
}

func (p *Success) ClickContactUs(ctx context.Context) error {
	return p.Click(ctx, SuccessContactUs)
}

// Logout follows the sidebar Logout link.
func (p *Success) Logout(ctx context.Context) error {
	return p.Sidebar.ClickLink(ctx, SidebarLogout)
}
