package pages

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// RegisterElement names an element of the OpenCart registration form.
type RegisterElement string

const (
	RegisterHeading           RegisterElement = "pageTitle"
	RegisterBreadcrumbHome    RegisterElement = "breadcrumbHome"
	RegisterPersonalDetails   RegisterElement = "personalDetailsSection"
	RegisterFirstName         RegisterElement = "firstNameInput"
	RegisterLastName          RegisterElement = "lastNameInput"
	RegisterEmail             RegisterElement = "emailInput"
	RegisterTelephone         RegisterElement = "telephoneInput"
	RegisterPasswordSection   RegisterElement = "passwordSection"
	RegisterPassword          RegisterElement = "passwordInput"
	RegisterConfirmPassword   RegisterElement = "confirmPasswordInput"
	RegisterNewsletterSection RegisterElement = "newsletterSection"
	RegisterNewsletterYes     RegisterElement = "newsletterYesRadio"
	RegisterNewsletterNo      RegisterElement = "newsletterNoRadio"
	RegisterPrivacyPolicy     RegisterElement = "privacyPolicyCheckbox"
	RegisterPrivacyPolicyLink RegisterElement = "privacyPolicyLink"
	RegisterContinue          RegisterElement = "continueButton"
	RegisterFieldErrors       RegisterElement = "errorMessages"
	RegisterAlert             RegisterElement = "alertDanger"
	RegisterLoginLink         RegisterElement = "loginPageLink"
	RegisterAccountSidebar    RegisterElement = "accountSidebar"
)

var registerSelectors = Selectors[RegisterElement]{
	RegisterHeading:           "h1",
	RegisterBreadcrumbHome:    `a[href*="common/home"]`,
	RegisterPersonalDetails:   `fieldset legend:has-text("Your Personal Details")`,
	RegisterFirstName:         `input[name="firstname"]`,
	RegisterLastName:          `input[name="lastname"]`,
	RegisterEmail:             `input[name="email"]`,
	RegisterTelephone:         `input[name="telephone"]`,
	RegisterPasswordSection:   `fieldset legend:has-text("Your Password")`,
	RegisterPassword:          `input[name="password"]`,
	RegisterConfirmPassword:   `input[name="confirm"]`,
	RegisterNewsletterSection: `fieldset legend:has-text("Newsletter")`,
	RegisterNewsletterYes:     `input[name="newsletter"][value="1"]`,
	RegisterNewsletterNo:      `input[name="newsletter"][value="0"]`,
	RegisterPrivacyPolicy:     `input[name="agree"]`,
	RegisterPrivacyPolicyLink: `a[href*="information/information/agree&information_id=3"]`,
	RegisterContinue:          `input[type="submit"][value="Continue"]`,
	RegisterFieldErrors:       ".text-danger",
	RegisterAlert:             ".alert-danger",
	RegisterLoginLink:         `a[href*="account/login"]`,
	RegisterAccountSidebar:    "#column-right",
}

// guestLinks is the account column shown to visitors.
var guestLinks = []SidebarLink{
	SidebarLogin, SidebarRegister, SidebarForgottenPassword, SidebarMyAccount,
	SidebarAddressBook, SidebarWishList, SidebarOrderHistory, SidebarDownloads,
	SidebarRecurringPayments, SidebarRewardPoints, SidebarReturns,
	SidebarTransactions, SidebarNewsletter,
}

// RegistrationForm is the input of the registration form.
type RegistrationForm struct {
	FirstName           string
	LastName            string
	Email               string
	Telephone           string
	Password            string
	ConfirmPassword     string
	SubscribeNewsletter bool
	AgreePrivacyPolicy  bool
}

// Register is the OpenCart account registration page.
type Register struct {
	Base[RegisterElement]
	Sidebar *Sidebar
}

func NewRegister(s Session) *Register {
	return &Register{
		Base:    NewBase(s, "register", registerSelectors),
		Sidebar: newSidebar(s, "register", guestLinks...),
	}
}

// Navigate opens the registration form directly.
func (p *Register) Navigate(ctx context.Context) error {
	return p.Base.Navigate(ctx, p.url(RouteRegister))
}

// VerifyLoaded waits for the heading, the first field and Continue.
func (p *Register) VerifyLoaded(ctx context.Context) error {
	if err := p.driver.WaitForLoad(ctx); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	for _, el := range []RegisterElement{RegisterHeading, RegisterFirstName, RegisterContinue} {
		if err := p.WaitFor(ctx, el, p.timeouts.Wait); err != nil {
			return err
		}
	}
	return nil
}

// FillRegistrationForm fills every field in form order, then picks the
// newsletter option and, if agreed, checks the privacy policy.
func (p *Register) FillRegistrationForm(ctx context.Context, form RegistrationForm) error {
	p.action("fill registration form", zap.String("email", form.Email))
	fields := []struct {
		el    RegisterElement
		value string
	}{
		{RegisterFirstName, form.FirstName},
		{RegisterLastName, form.LastName},
		{RegisterEmail, form.Email},
		{RegisterTelephone, form.Telephone},
		{RegisterPassword, form.Password},
		{RegisterConfirmPassword, form.ConfirmPassword},
	}
	for _, f := range fields {
		if err := p.Fill(ctx, f.el, f.value); err != nil {
			return err
		}
	}
	if err := p.SelectNewsletter(ctx, form.SubscribeNewsletter); err != nil {
		return err
	}
	if form.AgreePrivacyPolicy {
		return p.Check(ctx, RegisterPrivacyPolicy)
	}
	return nil
}

// Submit clicks Continue.
func (p *Register) Submit(ctx context.Context) error {
	return p.Click(ctx, RegisterContinue)
}

// CompleteRegistration fills the form, then submits it.
func (p *Register) CompleteRegistration(ctx context.Context, form RegistrationForm) error {
	if err := p.FillRegistrationForm(ctx, form); err != nil {
		return err
	}
	p.action("submit registration")
	return p.Submit(ctx)
}

func (p *Register) FillFirstName(ctx context.Context, v string) error {
	return p.Fill(ctx, RegisterFirstName, v)
}

func (p *Register) FillLastName(ctx context.Context, v string) error {
	return p.Fill(ctx, RegisterLastName, v)
}

func (p *Register) FillEmail(ctx context.Context, v string) error {
	return p.Fill(ctx, RegisterEmail, v)
}

func (p *Register) FillTelephone(ctx context.Context, v string) error {
	return p.Fill(ctx, RegisterTelephone, v)
}

func (p *Register) FillPassword(ctx context.Context, v string) error {
	return p.Fill(ctx, RegisterPassword, v)
}

func (p *Register) FillConfirmPassword(ctx context.Context, v string) error {
	return p.Fill(ctx, RegisterConfirmPassword, v)
}

// SelectNewsletter picks the Yes or No radio.
func (p *Register) SelectNewsletter(ctx context.Context, subscribe bool) error {
	if subscribe {
		return p.Check(ctx, RegisterNewsletterYes)
	}
	return p.Check(ctx, RegisterNewsletterNo)
}

// SetPrivacyPolicy clicks the agree checkbox only when its state differs
// from agree.
func (p *Register) SetPrivacyPolicy(ctx context.Context, agree bool) error {
	checked, err := p.IsChecked(ctx, RegisterPrivacyPolicy)
	if err != nil {
		return err
	}
	if checked == agree {
		return nil
	}
	return p.Click(ctx, RegisterPrivacyPolicy)
}

// HasErrorMessages reports whether a field error or an alert is visible.
func (p *Register) HasErrorMessages(ctx context.Context) (bool, error) {
	for _, el := range []RegisterElement{RegisterFieldErrors, RegisterAlert} {
		n, err := p.Count(ctx, el)
		if err != nil {
			return false, err
		}
		if n > 0 && p.IsVisible(ctx, el) {
			return true, nil
		}
	}
	return false, nil
}

// ErrorMessages returns the trimmed text of every field error, then of
// every alert.
func (p *Register) ErrorMessages(ctx context.Context) ([]string, error) {
	var out []string
	for _, el := range []RegisterElement{RegisterFieldErrors, RegisterAlert} {
		sel, err := p.Selector(el)
		if err != nil {
			return nil, err
		}
		texts, err := p.texts(ctx, sel)
		if err != nil {
			return nil, err
		}
		out = append(out, texts...)
	}
	return out, nil
}

// FieldHasError reports whether an input has an error message next to it.
func (p *Register) FieldHasError(ctx context.Context, field RegisterElement) (bool, error) {
	sel, err := p.Selector(field)
	if err != nil {
		return false, err
	}
	if !strings.HasPrefix(sel, "input") {
		return false, nil
	}
	errSel, err := p.Selector(RegisterFieldErrors)
	if err != nil {
		return false, err
	}
	n, err := p.count(ctx, sel+" + "+errSel)
	return n > 0, err
}

// FieldValue returns the current value of an input.
func (p *Register) FieldValue(ctx context.Context, field RegisterElement) (string, error) {
	return p.Value(ctx, field)
}

func (p *Register) IsPrivacyPolicyChecked(ctx context.Context) (bool, error) {
	return p.IsChecked(ctx, RegisterPrivacyPolicy)
}

// IsNewsletterSelected reports whether the Yes (subscribe) or No radio is
// checked.
func (p *Register) IsNewsletterSelected(ctx context.Context, subscribe bool) (bool, error) {
	if subscribe {
		return p.IsChecked(ctx, RegisterNewsletterYes)
	}
	return p.IsChecked(ctx, RegisterNewsletterNo)
}

// IsTitleCorrect reports whether the heading mentions Account or Register.
func (p *Register) IsTitleCorrect(ctx context.Context) (bool, error) {
	title, err := p.Text(ctx, RegisterHeading)
	if err != nil {
		return false, err
	}
	return strings.Contains(title, "Account") || strings.Contains(title, "Register"), nil
}

// ClearAll empties every field, unchecks the policy and picks No for the
// newsletter.
func (p *Register) ClearAll(ctx context.Context) error {
	p.action("clear registration form")
	for _, el := range []RegisterElement{
		RegisterFirstName, RegisterLastName, RegisterEmail,
		RegisterTelephone, RegisterPassword, RegisterConfirmPassword,
	} {
		if err := p.Clear(ctx, el); err != nil {
			return err
		}
	}
	if err := p.SetPrivacyPolicy(ctx, false); err != nil {
		return err
	}
	return p.SelectNewsletter(ctx, false)
}

// GoToLogin follows the "login page" link in the form's intro.
func (p *Register) GoToLogin(ctx context.Context) error {
	return p.Click(ctx, RegisterLoginLink)
}
