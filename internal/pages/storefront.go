package pages

import (
	"context"

	"go.uber.org/zap"
)

// StorefrontElement is the data-testid of an element on the storefront
// landing page.
type StorefrontElement string

const (
	StorefrontLogo         StorefrontElement = "logo"
	StorefrontNavigation   StorefrontElement = "navigation-menu"
	StorefrontHomeLink     StorefrontElement = "home-link"
	StorefrontProductsLink StorefrontElement = "products-link"
	StorefrontAboutLink    StorefrontElement = "about-link"
	StorefrontContactLink  StorefrontElement = "contact-link"
	StorefrontHero         StorefrontElement = "hero-section"
	StorefrontHeroTitle    StorefrontElement = "hero-title"
	StorefrontHeroSubtitle StorefrontElement = "hero-subtitle"
	StorefrontHeroButton   StorefrontElement = "hero-button"
	StorefrontFeatures     StorefrontElement = "features-section"
	StorefrontTestimonials StorefrontElement = "testimonials-section"
	StorefrontFooter       StorefrontElement = "footer"
	StorefrontSearchInput  StorefrontElement = "search-input"
	StorefrontSearchButton StorefrontElement = "search-button"
	StorefrontNewsletter   StorefrontElement = "newsletter-input"
	StorefrontSubscribe    StorefrontElement = "newsletter-button"
	StorefrontCTA          StorefrontElement = "cta-button"
	StorefrontLearnMore    StorefrontElement = "learn-more-button"
)

var storefrontSelectors = testIDs(
	StorefrontLogo, StorefrontNavigation, StorefrontHomeLink, StorefrontProductsLink,
	StorefrontAboutLink, StorefrontContactLink, StorefrontHero, StorefrontHeroTitle,
	StorefrontHeroSubtitle, StorefrontHeroButton, StorefrontFeatures,
	StorefrontTestimonials, StorefrontFooter, StorefrontSearchInput,
	StorefrontSearchButton, StorefrontNewsletter, StorefrontSubscribe,
	StorefrontCTA, StorefrontLearnMore,
)

// StorefrontHome is the landing page of the data-testid storefront.
type StorefrontHome struct {
	Base[StorefrontElement]
}

func NewStorefrontHome(s Session) *StorefrontHome {
	return &StorefrontHome{Base: NewBase(s, "storefront-home", storefrontSelectors)}
}

// Navigate loads the storefront root.
func (p *StorefrontHome) Navigate(ctx context.Context) error {
	return p.Base.Navigate(ctx, p.baseURL+"/")
}

// VerifyLoaded waits for the hero and the navigation menu.
func (p *StorefrontHome) VerifyLoaded(ctx context.Context) error {
	if err := p.WaitFor(ctx, StorefrontHero, 0); err != nil {
		return err
	}
	return p.WaitFor(ctx, StorefrontNavigation, 0)
}

func (p *StorefrontHome) HeroTitle(ctx context.Context) (string, error) {
	return p.Text(ctx, StorefrontHeroTitle)
}

func (p *StorefrontHome) HeroSubtitle(ctx context.Context) (string, error) {
	return p.Text(ctx, StorefrontHeroSubtitle)
}

// Search types term and clicks the search button.
func (p *StorefrontHome) Search(ctx context.Context, term string) error {
	p.action("search", zap.String("term", term))
	if err := p.Fill(ctx, StorefrontSearchInput, term); err != nil {
		return err
	}
	return p.Click(ctx, StorefrontSearchButton)
}

// SubscribeNewsletter types email and clicks subscribe.
func (p *StorefrontHome) SubscribeNewsletter(ctx context.Context, email string) error {
	p.action("subscribe newsletter", zap.String("email", email))
	if err := p.Fill(ctx, StorefrontNewsletter, email); err != nil {
		return err
	}
	return p.Click(ctx, StorefrontSubscribe)
}

func (p *StorefrontHome) ClickHeroButton(ctx context.Context) error {
	return p.Click(ctx, StorefrontHeroButton)
}

func (p *StorefrontHome) ClickCTA(ctx context.Context) error {
	return p.Click(ctx, StorefrontCTA)
}

func (p *StorefrontHome) ClickLearnMore(ctx context.Context) error {
	return p.Click(ctx, StorefrontLearnMore)
}

func (p *StorefrontHome) GoToProducts(ctx context.Context) error {
	return p.Click(ctx, StorefrontProductsLink)
}

func (p *StorefrontHome) GoToAbout(ctx context.Context) error {
	return p.Click(ctx, StorefrontAboutLink)
}

func (p *StorefrontHome) GoToContact(ctx context.Context) error {
	return p.Click(ctx, StorefrontContactLink)
}

func (p *StorefrontHome) ScrollToFeatures(ctx context.Context) error {
	return p.ScrollTo(ctx, StorefrontFeatures)
}

func (p *StorefrontHome) ScrollToTestimonials(ctx context.Context) error {
	return p.ScrollTo(ctx, StorefrontTestimonials)
}

func (p *StorefrontHome) ScrollToFooter(ctx context.Context) error {
	return p.ScrollTo(ctx, StorefrontFooter)
}

func (p *StorefrontHome) IsHeroVisible(ctx context.Context) bool {
	return p.IsVisible(ctx, StorefrontHero)
}

func (p *StorefrontHome) IsNavigationVisible(ctx context.Context) bool {
	return p.IsVisible(ctx, StorefrontNavigation)
}

func (p *StorefrontHome) IsLogoVisible(ctx context.Context) bool {
	return p.IsVisible(ctx, StorefrontLogo)
}

func (p *StorefrontHome) IsFeaturesVisible(ctx context.Context) bool {
	return p.IsVisible(ctx, StorefrontFeatures)
}

func (p *StorefrontHome) IsTestimonialsVisible(ctx context.Context) bool {
	return p.IsVisible(ctx, StorefrontTestimonials)
}

// PageContainsText reports whether the page text contains text.
func (p *StorefrontHome) PageContainsText(ctx context.Context, text string) (bool, error) {
	return p.BodyContains(ctx, text)
}
