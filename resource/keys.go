package resource

import "github.com/krisalay/reviewhub-client/key"

// Resource names, the first part of every key. Invalidating one of them
// alone refreshes every query of that resource.
const (
	Merchants          = "merchants"
	MerchantDetail     = "merchant-detail"
	ReviewsForMerchant = "reviews-for-merchant"
	Ads                = "ads"
	Me                 = "me"
	AdminMerchants     = "admin-merchants"
	AdminComments      = "admin-comments"
	AdminUsers         = "admin-users"
	AdminAds           = "admin-ads"
	AdminDashboard     = "admin-stats"
)

func MerchantsKey(f MerchantFilter) key.Key { return key.New(Merchants, f) }

func MerchantDetailKey(slug string) key.Key { return key.New(MerchantDetail, slug) }

// ReviewsKey is the base key of a merchant's review listing. Pages are
// appended to it, and mutations invalidate it to refresh every page.
func ReviewsKey(slug string) key.Key { return key.New(ReviewsForMerchant, slug) }

func AdsKey() key.Key { return key.New(Ads) }

func MeKey() key.Key { return key.New(Me) }

func AdminMerchantsKey(f MerchantFilter) key.Key { return key.New(AdminMerchants, f) }

func AdminCommentsKey(page int) key.Key { return key.New(AdminComments, page) }

func AdminUsersKey(page int) key.Key { return key.New(AdminUsers, page) }

func AdminAdsKey() key.Key { return key.New(AdminAds) }

func AdminStatsKey() key.Key { return key.New(AdminDashboard) }
