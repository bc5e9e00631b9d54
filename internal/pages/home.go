package pages

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// ErrUnknownCategory is returned by NavigateToCategory for a name outside
// the top menu.
var ErrUnknownCategory = errors.New("unknown category")

// HomeElement names an element of the OpenCart home page.
type HomeElement string

const (
	HomeLogo            HomeElement = "logo"
	HomeHeading         HomeElement = "heading"
	HomeSearchInput     HomeElement = "searchInput"
	HomeSearchButton    HomeElement = "searchButton"
	HomeCartButton      HomeElement = "cartButton"
	HomeMyAccount       HomeElement = "myAccountDropdown"
	HomeMyAccountMenu   HomeElement = "myAccountMenu"
	HomeRegisterLink    HomeElement = "registerLink"
	HomeLoginLink       HomeElement = "loginLink"
	HomeDesktops        HomeElement = "desktopsLink"
	HomeLaptops         HomeElement = "laptopsLink"
	HomeComponents      HomeElement = "componentsLink"
	HomeTablets         HomeElement = "tabletsLink"
	HomeSoftware        HomeElement = "softwareLink"
	HomePhones          HomeElement = "phonesLink"
	HomeCameras         HomeElement = "camerasLink"
	HomeMP3Players      HomeElement = "mp3PlayersLink"
	HomeFeatured        HomeElement = "featuredSection"
	HomeProductLinks    HomeElement = "productLinks"
	HomeAddToCart       HomeElement = "addToCartButtons"
	HomeFooter          HomeElement = "footer"
	HomeInformation     HomeElement = "informationLinks"
	HomeCustomerService HomeElement = "customerServiceLinks"
	HomeExtras          HomeElement = "extrasLinks"
	HomeFooterAccount   HomeElement = "myAccountLinks"
)

var homeSelectors = Selectors[HomeElement]{
	HomeLogo:            "h1 a",
	HomeHeading:         "h1",
	HomeSearchInput:     `input[name="search"]`,
	HomeSearchButton:    `button[type="button"]`,
	HomeCartButton:      `button[title="Shopping Cart"]`,
	HomeMyAccount:       `a[title="My Account"]`,
	HomeMyAccountMenu:   ".dropdown-menu",
	HomeRegisterLink:    `a[href*="account/register"]`,
	HomeLoginLink:       `a[href*="account/login"]`,
	HomeDesktops:        `a[href*="product/category&path=20"]`,
	HomeLaptops:         `a[href*="product/category&path=18"]`,
	HomeComponents:      `a[href*="product/category&path=25"]`,
	HomeTablets:         `a[href*="product/category&path=57"]`,
	HomeSoftware:        `a[href*="product/category&path=17"]`,
	HomePhones:          `a[href*="product/category&path=24"]`,
	HomeCameras:         `a[href*="product/category&path=33"]`,
	HomeMP3Players:      `a[href*="product/category&path=34"]`,
	HomeFeatured:        `h3:has-text("Featured")`,
	HomeProductLinks:    ".product-layout .caption h4 a",
	HomeAddToCart:       `button[onclick*="cart.add"]`,
	HomeFooter:          "#footer",
	HomeInformation:     "#footer .col-sm-3:first-child a",
	HomeCustomerService: "#footer .col-sm-3:nth-child(2) a",
	HomeExtras:          "#footer .col-sm-3:nth-child(3) a",
	HomeFooterAccount:   "#footer .col-sm-3:last-child a",
}

var categories = map[string]HomeElement{
	"desktops":   HomeDesktops,
	"laptops":    HomeLaptops,
	"components": HomeComponents,
	"tablets":    HomeTablets,
	"software":   HomeSoftware,
	"phones":     HomePhones,
	"cameras":    HomeCameras,
	"mp3players": HomeMP3Players,
}

var cartItemsRe = regexp.MustCompile(`(\d+) item\(s\)`)

// Home is the OpenCart landing page.
type Home struct {
	Base[HomeElement]
}

func NewHome(s Session) *Home {
	return &Home{Base: NewBase(s, "home", homeSelectors)}
}

// Navigate loads the store's home page.
func (p *Home) Navigate(ctx context.Context) error {
	return p.Base.Navigate(ctx, p.url(RouteHome))
}

// VerifyLoaded waits for the heading and the My Account menu.
func (p *Home) VerifyLoaded(ctx context.Context) error {
	if err := p.driver.WaitForLoad(ctx); err != nil {
		return fmt.Errorf("home: %w", err)
	}
	if err := p.WaitFor(ctx, HomeHeading, p.timeouts.Wait); err != nil {
		return err
	}
	return p.WaitFor(ctx, HomeMyAccount, p.timeouts.Wait)
}

// OpenMyAccount opens the My Account dropdown.
func (p *Home) OpenMyAccount(ctx context.Context) error {
	if err := p.Click(ctx, HomeMyAccount); err != nil {
		return err
	}
	return p.WaitFor(ctx, HomeMyAccountMenu, 0)
}

// NavigateToRegister goes to the register form through My Account.
func (p *Home) NavigateToRegister(ctx context.Context) error {
	p.action("navigate to register")
	return p.throughMyAccount(ctx, HomeRegisterLink)
}

// NavigateToLogin goes to the login form through My Account.
func (p *Home) NavigateToLogin(ctx context.Context) error {
	p.action("navigate to login")
	return p.throughMyAccount(ctx, HomeLoginLink)
}

func (p *Home) throughMyAccount(ctx context.Context, link HomeElement) error {
	if err := p.Click(ctx, HomeMyAccount); err != nil {
		return err
	}
	if err := p.WaitFor(ctx, link, p.timeouts.Probe); err != nil {
		return err
	}
	return p.Click(ctx, link)
}

// SearchProduct types term into the header search and submits it.
func (p *Home) SearchProduct(ctx context.Context, term string) error {
	p.action("search", zap.String("term", term))
	if err := p.Fill(ctx, HomeSearchInput, term); err != nil {
		return err
	}
	return p.Click(ctx, HomeSearchButton)
}

// NavigateToCategory follows a top menu category, matched case-insensitively
// ("Desktops", "mp3players").
func (p *Home) NavigateToCategory(ctx context.Context, name string) error {
	el, ok := categories[strings.ToLower(name)]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCategory, name)
	}
	p.action("navigate to category", zap.String("category", name))
	return p.Click(ctx, el)
}

func (p *Home) IsLogoVisible(ctx context.Context) bool {
	return p.IsVisible(ctx, HomeLogo)
}

func (p *Home) IsFeaturedSectionVisible(ctx context.Context) bool {
	return p.IsVisible(ctx, HomeFeatured)
}

// PageContainsText reports whether the page text contains text.
func (p *Home) PageContainsText(ctx context.Context, text string) (bool, error) {
	return p.BodyContains(ctx, text)
}

func (p *Home) ClickCart(ctx context.Context) error {
	return p.Click(ctx, HomeCartButton)
}

// IsCartEmpty reports whether the header cart shows 0 item(s).
func (p *Home) IsCartEmpty(ctx context.Context) (bool, error) {
	n, err := p.CartItemCount(ctx)
	return n == 0 && err == nil, err
}

// CartItemCount parses "N item(s)" from the cart button; 0 when absent.
func (p *Home) CartItemCount(ctx context.Context) (int, error) {
	text, err := p.Text(ctx, HomeCartButton)
	if err != nil {
		return 0, err
	}
	m := cartItemsRe.FindStringSubmatch(text)
	if m == nil {
		return 0, nil
	}
	return strconv.Atoi(m[1])
}
