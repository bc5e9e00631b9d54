package pages

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// ProductElement is the data-testid of an element on a product page.
type ProductElement string

const (
	ProductTitle          ProductElement = "product-title"
	ProductPrice          ProductElement = "product-price"
	ProductDescription    ProductElement = "product-description"
	ProductImage          ProductElement = "product-image"
	ProductRating         ProductElement = "product-rating"
	ProductReviews        ProductElement = "product-reviews"
	ProductAddToCart      ProductElement = "add-to-cart-button"
	ProductBuyNow         ProductElement = "buy-now-button"
	ProductWishlist       ProductElement = "wishlist-button"
	ProductShare          ProductElement = "share-button"
	ProductSize           ProductElement = "size-selector"
	ProductColor          ProductElement = "color-selector"
	ProductQuantity       ProductElement = "quantity-input"
	ProductQuantityUp     ProductElement = "quantity-increase"
	ProductQuantityDown   ProductElement = "quantity-decrease"
	ProductBreadcrumb     ProductElement = "breadcrumb"
	ProductBack           ProductElement = "back-button"
	ProductNext           ProductElement = "next-product-button"
	ProductPrevious       ProductElement = "previous-product-button"
	ProductDetails        ProductElement = "product-details"
	ProductSpecifications ProductElement = "specifications"
	ProductShippingInfo   ProductElement = "shipping-info"
	ProductReturnPolicy   ProductElement = "return-policy"
	ProductRelated        ProductElement = "related-products"
	ProductRelatedItem    ProductElement = "related-product-item"
	ProductReviewSection  ProductElement = "review-section"
	ProductWriteReview    ProductElement = "write-review-button"
	ProductReviewForm     ProductElement = "review-form"
	ProductSuccessMessage ProductElement = "success-message"
	ProductErrorMessage   ProductElement = "error-message"
	ProductLoadingSpinner ProductElement = "loading-spinner"
)

var productSelectors = testIDs(
	ProductTitle, ProductPrice, ProductDescription, ProductImage, ProductRating,
	ProductReviews, ProductAddToCart, ProductBuyNow, ProductWishlist, ProductShare,
	ProductSize, ProductColor, ProductQuantity, ProductQuantityUp, ProductQuantityDown,
	ProductBreadcrumb, ProductBack, ProductNext, ProductPrevious, ProductDetails,
	ProductSpecifications, ProductShippingInfo, ProductReturnPolicy, ProductRelated,
	ProductRelatedItem, ProductReviewSection, ProductWriteReview, ProductReviewForm,
	ProductSuccessMessage, ProductErrorMessage, ProductLoadingSpinner,
)

// Product is a product detail page of the data-testid storefront.
type Product struct {
	Base[ProductElement]
}

func NewProduct(s Session) *Product {
	return &Product{Base: NewBase(s, "product", productSelectors)}
}

// Open navigates to path on the storefront, e.g. /products/3.
func (p *Product) Open(ctx context.Context, path string) error {
	return p.Navigate(ctx, p.baseURL+"/"+strings.TrimLeft(path, "/"))
}

// VerifyLoaded waits for the title, the price and Add to cart.
func (p *Product) VerifyLoaded(ctx context.Context) error {
	for _, el := range []ProductElement{ProductTitle, ProductPrice, ProductAddToCart} {
		if err := p.WaitFor(ctx, el, 0); err != nil {
			return err
		}
	}
	return nil
}

func (p *Product) ProductTitle(ctx context.Context) (string, error) {
	return p.Text(ctx, ProductTitle)
}

func (p *Product) Price(ctx context.Context) (string, error) {
	return p.Text(ctx, ProductPrice)
}

func (p *Product) Description(ctx context.Context) (string, error) {
	return p.Text(ctx, ProductDescription)
}

func (p *Product) Rating(ctx context.Context) (string, error) {
	return p.Text(ctx, ProductRating)
}

func (p *Product) ShippingInfo(ctx context.Context) (string, error) {
	return p.Text(ctx, ProductShippingInfo)
}

func (p *Product) ReturnPolicy(ctx context.Context) (string, error) {
	return p.Text(ctx, ProductReturnPolicy)
}

func (p *Product) IsImageVisible(ctx context.Context) bool {
	return p.IsVisible(ctx, ProductImage)
}

// AddToCart clicks Add to cart and waits for the confirmation.
func (p *Product) AddToCart(ctx context.Context) error {
	p.action("add to cart")
	if err := p.Click(ctx, ProductAddToCart); err != nil {
		return err
	}
	return p.WaitFor(ctx, ProductSuccessMessage, 0)
}

func (p *Product) BuyNow(ctx context.Context) error {
	p.action("buy now")
	return p.Click(ctx, ProductBuyNow)
}

func (p *Product) AddToWishlist(ctx context.Context) error {
	return p.Click(ctx, ProductWishlist)
}

func (p *Product) Share(ctx context.Context) error {
	return p.Click(ctx, ProductShare)
}

func (p *Product) SelectSize(ctx context.Context, size string) error {
	return p.SelectOption(ctx, ProductSize, size)
}

func (p *Product) SelectColor(ctx context.Context, color string) error {
	return p.SelectOption(ctx, ProductColor, color)
}

// SetQuantity clears the quantity field, then types n.
func (p *Product) SetQuantity(ctx context.Context, n int) error {
	if n < 0 {
		return fmt.Errorf("quantity %d: must not be negative", n)
	}
	p.action("set quantity", zap.Int("quantity", n))
	if err := p.Clear(ctx, ProductQuantity); err != nil {
		return err
	}
	return p.Fill(ctx, ProductQuantity, strconv.Itoa(n))
}

func (p *Product) IncreaseQuantity(ctx context.Context) error {
	return p.Click(ctx, ProductQuantityUp)
}

func (p *Product) DecreaseQuantity(ctx context.Context) error {
	return p.Click(ctx, ProductQuantityDown)
}

func (p *Product) GoToNext(ctx context.Context) error {
	return p.Click(ctx, ProductNext)
}

func (p *Product) GoToPrevious(ctx context.Context) error {
	return p.Click(ctx, ProductPrevious)
}

func (p *Product) GoBack(ctx context.Context) error {
	return p.Click(ctx, ProductBack)
}

func (p *Product) ScrollToDetails(ctx context.Context) error {
	return p.ScrollTo(ctx, ProductDetails)
}

func (p *Product) ScrollToSpecifications(ctx context.Context) error {
	return p.ScrollTo(ctx, ProductSpecifications)
}

func (p *Product) ScrollToReviews(ctx context.Context) error {
	return p.ScrollTo(ctx, ProductReviewSection)
}

func (p *Product) ScrollToRelated(ctx context.Context) error {
	return p.ScrollTo(ctx, ProductRelated)
}

// WriteReview opens the review form and waits for it.
func (p *Product) WriteReview(ctx context.Context) error {
	p.action("write review")
	if err := p.Click(ctx, ProductWriteReview); err != nil {
		return err
	}
	return p.WaitFor(ctx, ProductReviewForm, 0)
}

func (p *Product) IsAddedToCart(ctx context.Context) bool {
	return p.IsVisible(ctx, ProductSuccessMessage)
}

func (p *Product) HasRelatedProducts(ctx context.Context) bool {
	return p.IsVisible(ctx, ProductRelated)
}

// ContainsProductInfo reports whether the page text contains info.
func (p *Product) ContainsProductInfo(ctx context.Context, info string) (bool, error) {
	return p.BodyContains(ctx, info)
}
