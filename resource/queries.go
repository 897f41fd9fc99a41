package resource

import (
	"context"
	"net/url"
	"strconv"

	"github.com/krisalay/reviewhub-client/query"
)

// DefaultPageSize is used by the infinite listings when no limit is given.
const DefaultPageSize = 30

func (f MerchantFilter) values() url.Values {
	q := url.Values{}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.ExcludeDrafts {
		q.Set("excludeDrafts", "true")
	}
	return q
}

func pageValues(page, limit int) url.Values {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return q
}

//
// ================= FETCHERS =================
//

func (c *Client) FetchMerchants(ctx context.Context, f MerchantFilter) (MerchantPage, error) {
	return getAll[MerchantPage](ctx, c.http, "/merchants", f.values())
}

func (c *Client) FetchMerchant(ctx context.Context, slug string) (Merchant, error) {
	return getField[Merchant](ctx, c.http, "/merchants/"+url.PathEscape(slug), nil, "merchant")
}

func (c *Client) FetchReviews(ctx context.Context, slug string, page, limit int) (ReviewPage, error) {
	q := pageValues(page, limit)
	q.Set("merchantSlug", slug)
	return getAll[ReviewPage](ctx, c.http, "/reviews", q)
}

func (c *Client) FetchAds(ctx context.Context) ([]Ad, error) {
	return getField[[]Ad](ctx, c.http, "/ads", nil, "ads")
}

func (c *Client) FetchMe(ctx context.Context) (User, error) {
	return getField[User](ctx, c.http, "/auth/me", nil, "user")
}

func (c *Client) FetchAdminMerchants(ctx context.Context, f MerchantFilter) (MerchantPage, error) {
	return getAll[MerchantPage](ctx, c.http, "/admin/merchants", f.values())
}

func (c *Client) FetchAdminComments(ctx context.Context, page int) (CommentPage, error) {
	return getAll[CommentPage](ctx, c.http, "/admin/comments", pageValues(page, 0))
}

func (c *Client) FetchAdminUsers(ctx context.Context, page int) (UserPage, error) {
	return getAll[UserPage](ctx, c.http, "/admin/users", pageValues(page, 0))
}

func (c *Client) FetchAdminAds(ctx context.Context) ([]Ad, error) {
	return getField[[]Ad](ctx, c.http, "/admin/ads", nil, "ads")
}

func (c *Client) FetchAdminStats(ctx context.Context) (AdminStats, error) {
	return getField[AdminStats](ctx, c.http, "/admin/stats", nil, "stats")
}

//
// ================= QUERIES =================
//

// Merchants observes one page of the merchant listing.
func (c *Client) Merchants(f MerchantFilter, opts ...query.Option) *query.Observer[MerchantPage] {
	return query.Use(c.cache, MerchantsKey(f), func(ctx context.Context) (MerchantPage, error) {
		return c.FetchMerchants(ctx, f)
	}, opts...)
}

/*
MerchantList is the infinite merchant listing. f.Page is ignored; pages
are appended to the listing's key one by one.
*/
func (c *Client) MerchantList(f MerchantFilter, opts ...query.Option) *query.Infinite[Merchant] {
	f.Page = 0
	if f.Limit <= 0 {
		f.Limit = DefaultPageSize
	}
	fetch := func(ctx context.Context, page int) (query.Page[Merchant], error) {
		pf := f
		pf.Page = page
		mp, err := c.FetchMerchants(ctx, pf)
		if err != nil {
			return query.Page[Merchant]{}, err
		}
		return query.Page[Merchant]{Items: mp.Merchants, Page: mp.Pagination.Page, Pages: mp.Pagination.Pages}, nil
	}
	return query.UseInfinite(c.cache, MerchantsKey(f), fetch, func(m Merchant) string { return m.ID }, opts...)
}

// Merchant observes a merchant's detail page. It stays disabled until a slug is known.
func (c *Client) Merchant(slug string, opts ...query.Option) *query.Observer[Merchant] {
	opts = append([]query.Option{query.WithEnabled(slug != "")}, opts...)
	return query.Use(c.cache, MerchantDetailKey(slug), func(ctx context.Context) (Merchant, error) {
		return c.FetchMerchant(ctx, slug)
	}, opts...)
}

// Reviews is the infinite review listing of one merchant. It stays disabled until a slug is known.
func (c *Client) Reviews(slug string, limit int, opts ...query.Option) *query.Infinite[Review] {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	opts = append([]query.Option{query.WithEnabled(slug != "")}, opts...)
	fetch := func(ctx context.Context, page int) (query.Page[Review], error) {
		rp, err := c.FetchReviews(ctx, slug, page, limit)
		if err != nil {
			return query.Page[Review]{}, err
		}
		return query.Page[Review]{Items: rp.Reviews, Page: rp.Pagination.Page, Pages: rp.Pagination.Pages}, nil
	}
	base := ReviewsKey(slug).Append(map[string]int{"limit": limit})
	return query.UseInfinite(c.cache, base, fetch, func(r Review) string { return r.ID }, opts...)
}

func (c *Client) Ads(opts ...query.Option) *query.Observer[[]Ad] {
	return query.Use(c.cache, AdsKey(), c.FetchAds, opts...)
}

// Me observes the signed-in user. It is disabled while no token is stored.
func (c *Client) Me(opts ...query.Option) *query.Observer[User] {
	tok, _ := c.http.Tokens().Token()
	opts = append([]query.Option{query.WithEnabled(tok != "")}, opts...)
	return query.Use(c.cache, MeKey(), c.FetchMe, opts...)
}

func (c *Client) AdminMerchants(f MerchantFilter, opts ...query.Option) *query.Observer[MerchantPage] {
	return query.Use(c.cache, AdminMerchantsKey(f), func(ctx context.Context) (MerchantPage, error) {
		return c.FetchAdminMerchants(ctx, f)
	}, opts...)
}

func (c *Client) AdminComments(page int, opts ...query.Option) *query.Observer[CommentPage] {
	return query.Use(c.cache, AdminCommentsKey(page), func(ctx context.Context) (CommentPage, error) {
		return c.FetchAdminComments(ctx, page)
	}, opts...)
}

func (c *Client) AdminUsers(page int, opts ...query.Option) *query.Observer[UserPage] {
	return query.Use(c.cache, AdminUsersKey(page), func(ctx context.Context) (UserPage, error) {
		return c.FetchAdminUsers(ctx, page)
	}, opts...)
}

func (c *Client) AdminAds(opts ...query.Option) *query.Observer[[]Ad] {
	return query.Use(c.cache, AdminAdsKey(), c.FetchAdminAds, opts...)
}

func (c *Client) AdminStats(opts ...query.Option) *query.Observer[AdminStats] {
	return query.Use(c.cache, AdminStatsKey(), c.FetchAdminStats, opts...)
}
