package pages_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesleyorama2/shopcheck/internal/browser/browsertest"
	"github.com/wesleyorama2/shopcheck/internal/pages"
)

func testID(id string) string {
	return `[data-testid="` + id + `"]`
}

func TestProduct_AddToCart(t *testing.T) {
	ctx := context.Background()
	f := browsertest.New()
	f.Route("https://shop.test/products/3", func(f *browsertest.Fake) {
		f.Show(testID("product-title"), "Wireless Headphones")
		f.Show(testID("product-price"), "$99.99")
		f.Show(testID("add-to-cart-button"), "Add to cart")
		f.Set(testID("quantity-input"), browsertest.Element{Value: "1", Visible: true})
	})
	f.OnClick(testID("add-to-cart-button"), func(f *browsertest.Fake) {
		f.Show(testID("success-message"), "Added to cart")
	})
	product := pages.NewProduct(session(f))

	require.NoError(t, product.Open(ctx, "/products/3"))
	require.NoError(t, product.VerifyLoaded(ctx))

	title, err := product.ProductTitle(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Wireless Headphones", title)

	require.NoError(t, product.SetQuantity(ctx, 3))
	qty, err := f.Value(ctx, testID("quantity-input"))
	require.NoError(t, err)
	assert.Equal(t, "3", qty)
	assert.Error(t, product.SetQuantity(ctx, -1))

	assert.False(t, product.IsAddedToCart(ctx))
	f.ResetCalls()
	require.NoError(t, product.AddToCart(ctx))
	calls := f.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "Click", calls[0].Method)
	assert.Equal(t, "WaitVisible", calls[1].Method)
	assert.Equal(t, testID("success-message"), calls[1].Selector)
	assert.True(t, product.IsAddedToCart(ctx))
}

func TestProduct_MissingElements(t *testing.T) {
	ctx := context.Background()
	f := browsertest.New()
	product := pages.NewProduct(session(f))

	assert.False(t, product.HasRelatedProducts(ctx))
	assert.False(t, product.IsImageVisible(ctx))
	assert.Error(t, product.BuyNow(ctx))
	assert.Error(t, product.VerifyLoaded(ctx))
}

func TestStorefrontHome(t *testing.T) {
	ctx := context.Background()
	f := browsertest.New()
	f.Route("https://shop.test/", func(f *browsertest.Fake) {
		f.Show(testID("hero-section"), "")
		f.Show(testID("hero-title"), "Welcome")
		f.Show(testID("navigation-menu"), "")
		f.Show(testID("search-input"), "")
		f.Show(testID("search-button"), "Search")
		f.Show(testID("newsletter-input"), "")
		f.Show(testID("newsletter-button"), "Subscribe")
		f.Set("body", browsertest.Element{InnerText: "Welcome to the store", Visible: true})
	})
	home := pages.NewStorefrontHome(session(f))

	require.NoError(t, home.Navigate(ctx))
	require.NoError(t, home.VerifyLoaded(ctx))
	assert.True(t, home.IsHeroVisible(ctx))
	assert.False(t, home.IsTestimonialsVisible(ctx))

	title, err := home.HeroTitle(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Welcome", title)

	ok, err := home.PageContainsText(ctx, "the store")
	require.NoError(t, err)
	assert.True(t, ok)

	f.ResetCalls()
	require.NoError(t, home.Search(ctx, "headphones"))
	require.NoError(t, home.SubscribeNewsletter(ctx, "jane@example.com"))
	var got []string
	for _, c := range f.Calls() {
		got = append(got, c.String())
	}
	assert.Equal(t, []string{
		`Fill [data-testid="search-input"] "headphones"`,
		`Click [data-testid="search-button"]`,
		`Fill [data-testid="newsletter-input"] "jane@example.com"`,
		`Click [data-testid="newsletter-button"]`,
	}, got)
}
