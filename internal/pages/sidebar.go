package pages

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// OpenCart routes, appended to the base URL as index.php?route=<route>.
const (
	RouteHome      = ""
	RouteRegister  = "account/register"
	RouteLogin     = "account/login"
	RouteForgotten = "account/forgotten"
	RouteSuccess   = "account/success"
	RouteAccount   = "account/account"
)

// OpenCartURL returns the URL of route on the store at base.
func OpenCartURL(base, route string) string {
	base = strings.TrimRight(base, "/")
	if route == RouteHome {
		return base + "/"
	}
	return base + "/index.php?route=" + route
}

// SidebarLink is an entry of the account column shown on account pages.
type SidebarLink string

const (
	SidebarLogin             SidebarLink = "login"
	SidebarRegister          SidebarLink = "register"
	SidebarForgottenPassword SidebarLink = "forgotten"
	SidebarMyAccount         SidebarLink = "account"
	SidebarEditAccount       SidebarLink = "edit"
	SidebarPassword          SidebarLink = "password"
	SidebarAddressBook       SidebarLink = "address"
	SidebarWishList          SidebarLink = "wishlist"
	SidebarOrderHistory      SidebarLink = "order"
	SidebarDownloads         SidebarLink = "download"
	SidebarRecurringPayments SidebarLink = "recurring"
	SidebarRewardPoints      SidebarLink = "reward"
	SidebarReturns           SidebarLink = "return"
	SidebarTransactions      SidebarLink = "transaction"
	SidebarNewsletter        SidebarLink = "newsletter"
	SidebarLogout            SidebarLink = "logout"
)

// accountLinks are the sidebar entries of a logged-in customer, in page order.
var accountLinks = []SidebarLink{
	SidebarMyAccount, SidebarEditAccount, SidebarPassword, SidebarAddressBook,
	SidebarWishList, SidebarOrderHistory, SidebarDownloads, SidebarRecurringPayments,
	SidebarRewardPoints, SidebarReturns, SidebarTransactions, SidebarNewsletter,
	SidebarLogout,
}

// sidebarSelectors builds the selector map for the given links.
func sidebarSelectors(links ...SidebarLink) Selectors[SidebarLink] {
	m := make(Selectors[SidebarLink], len(links))
	for _, l := range links {
		m[l] = fmt.Sprintf(`#column-right a[href*="account/%s"]`, string(l))
	}
	return m
}

// Sidebar is the account column (#column-right).
type Sidebar struct {
	Base[SidebarLink]
	links []SidebarLink
}

func newSidebar(s Session, page string, links ...SidebarLink) *Sidebar {
	return &Sidebar{
		Base:  NewBase(s, page+".sidebar", sidebarSelectors(links...)),
		links: links,
	}
}

// ClickLink follows a sidebar entry.
func (s *Sidebar) ClickLink(ctx context.Context, link SidebarLink) error {
	s.action("click sidebar link", zap.String("link", string(link)))
	return s.Click(ctx, link)
}

// Links returns the href of every sidebar entry present, in page order.
func (s *Sidebar) Links(ctx context.Context) ([]string, error) {
	var hrefs []string
	for _, l := range s.links {
		sel, err := s.Selector(l)
		if err != nil {
			return nil, err
		}
		n, err := s.count(ctx, sel)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			continue
		}
		href, ok, err := s.Attribute(ctx, l, "href")
		if err != nil {
			return nil, err
		}
		if ok && href != "" {
			hrefs = append(hrefs, href)
		}
	}
	return hrefs, nil
}
