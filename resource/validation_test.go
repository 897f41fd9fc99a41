package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateUsesJSONFieldNames(t *testing.T) {
	v := newValidator()

	err := validate(v, LoginInput{Email: "not-an-email", Password: "123"})
	require.Error(t, err)

	ve, ok := err.(*ValidationError)
	require.True(t, ok)
	assert.True(t, ve.Has("email"))
	assert.True(t, ve.Has("password"))
	assert.Contains(t, ve.Error(), "password: min=6")
}

func TestValidateEmbeddedAndHiddenFields(t *testing.T) {
	v := newValidator()

	err := validate(v, MerchantStatusInput{Status: "archived"})
	require.Error(t, err)
	ve := err.(*ValidationError)
	assert.True(t, ve.Has("ID"), "json:\"-\" fields are reported by Go name")
	assert.True(t, ve.Has("status"))

	assert.NoError(t, validate(v, MerchantStatusInput{MerchantRef: MerchantRef{ID: "m1"}, Status: MerchantHidden}))
}

func TestMerchantFilterValues(t *testing.T) {
	q := MerchantFilter{Page: 2, Limit: 30, Category: "food", ExcludeDrafts: true}.values()
	assert.Equal(t, "2", q.Get("page"))
	assert.Equal(t, "30", q.Get("limit"))
	assert.Equal(t, "food", q.Get("category"))
	assert.Equal(t, "true", q.Get("excludeDrafts"))
	assert.False(t, q.Has("search"))
}

func TestKeysNestUnderResourceNames(t *testing.T) {
	assert.Equal(t, `["merchant-detail","abc"]`, MerchantDetailKey("abc").String())
	assert.True(t, ReviewsKey("abc").Append(map[string]int{"limit": 30}, 2).HasPrefix(ReviewsKey("abc")))
	assert.False(t, ReviewsKey("abcd").HasPrefix(ReviewsKey("abc")))
	assert.Equal(t,
		MerchantsKey(MerchantFilter{Category: "food", Limit: 30}).String(),
		MerchantsKey(MerchantFilter{Limit: 30, Category: "food"}).String())
}
