package resource

import (
	"context"
	"net/http"
	"net/url"

	"github.com/tidwall/gjson"

	"github.com/krisalay/reviewhub-client/key"
	"github.com/krisalay/reviewhub-client/mutation"
	"github.com/krisalay/reviewhub-client/slug"
	"github.com/krisalay/reviewhub-client/transport"
)

// Inputs carry a MerchantSlug that is not sent to the server: it only
// tells the invalidation rule which merchant's queries to refresh.

type CreateReviewInput struct {
	MerchantSlug string `json:"-" validate:"required"`
	MerchantID   string `json:"merchantId" validate:"required"`
	Title        string `json:"title" validate:"required,min=3,max=120"`
	Rating       int    `json:"rating" validate:"required,min=1,max=5"`
	Content      string `json:"content" validate:"required,min=10,max=5000"`
	DisplayName  string `json:"displayName,omitempty" validate:"omitempty,max=50"`
}

type CreateCommentInput struct {
	MerchantSlug string `json:"-" validate:"required"`
	ReviewID     string `json:"-" validate:"required"`
	Reaction     string `json:"reaction" validate:"required,oneof=like dislike"`
	Content      string `json:"content,omitempty" validate:"omitempty,max=1000"`
	DisplayName  string `json:"displayName,omitempty" validate:"omitempty,max=50"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type CreateMerchantInput struct {
	Name        string `json:"name" validate:"required,max=120"`
	Slug        string `json:"slug" validate:"omitempty,max=140"`
	Category    string `json:"category" validate:"omitempty,max=60"`
	Description string `json:"description" validate:"omitempty,max=5000"`
	Address     string `json:"address" validate:"omitempty,max=300"`

	Logo *transport.File `json:"-" validate:"-"`
}

type MerchantRef struct {
	ID   string `json:"-" validate:"required"`
	Slug string `json:"-"`
}

type MerchantStatusInput struct {
	MerchantRef
	Status string `json:"status" validate:"required,oneof=draft published hidden"`
}

type AdInput struct {
	ID     string `json:"-"`
	Title  string `json:"title" validate:"required,max=120"`
	Code   string `json:"code,omitempty" validate:"omitempty,max=64"`
	Image  string `json:"image,omitempty" validate:"omitempty,url"`
	Link   string `json:"link,omitempty" validate:"omitempty,url"`
	Active bool   `json:"active"`
}

type CommentModeration struct {
	ID           string `json:"-" validate:"required"`
	MerchantSlug string `json:"-"`
	Hidden       bool   `json:"hidden"`
}

type UserRoleInput struct {
	ID   string `json:"-" validate:"required"`
	Role string `json:"role" validate:"required,oneof=user admin"`
}

type UserBanInput struct {
	ID     string `json:"-" validate:"required"`
	Banned bool   `json:"banned"`
}

// validated runs fn only when in passes its field rules.
func validated[In, Out any](c *Client, fn mutation.Func[In, Out]) mutation.Func[In, Out] {
	return func(ctx context.Context, in In) (Out, error) {
		if err := validate(c.validate, in); err != nil {
			var zero Out
			return zero, err
		}
		return fn(ctx, in)
	}
}

// reviewsOf is the prefix of a merchant's review pages, or of every merchant's when slug is unknown.
func reviewsOf(slug string) key.Key {
	if slug == "" {
		return key.New(ReviewsForMerchant)
	}
	return ReviewsKey(slug)
}

func merchantDetailOf(slug string) key.Key {
	if slug == "" {
		return key.New(MerchantDetail)
	}
	return MerchantDetailKey(slug)
}

//
// ================= PUBLIC =================
//

/*
CreateReview posts a review. On success the merchant's review pages and
its detail (which carries reviewCount) are invalidated, as is the
merchant listing.
*/
func (c *Client) CreateReview(opts ...mutation.Option[CreateReviewInput, Review]) *mutation.Mutation[CreateReviewInput, Review] {
	fn := validated(c, func(ctx context.Context, in CreateReviewInput) (Review, error) {
		return sendField[Review](ctx, c.http, http.MethodPost, "/reviews", in, "review")
	})
	rule := mutation.WithInvalidation(func(in CreateReviewInput, _ Review) []key.Key {
		return []key.Key{ReviewsKey(in.MerchantSlug), MerchantDetailKey(in.MerchantSlug), key.New(Merchants)}
	})
	return mutation.New(c.cache, fn, append([]mutation.Option[CreateReviewInput, Review]{rule}, opts...)...)
}

// CreateComment reacts to a review, optionally with text.
func (c *Client) CreateComment(opts ...mutation.Option[CreateCommentInput, Comment]) *mutation.Mutation[CreateCommentInput, Comment] {
	fn := validated(c, func(ctx context.Context, in CreateCommentInput) (Comment, error) {
		path := "/reviews/" + url.PathEscape(in.ReviewID) + "/comments"
		return sendField[Comment](ctx, c.http, http.MethodPost, path, in, "comment")
	})
	rule := mutation.WithInvalidation(func(in CreateCommentInput, _ Comment) []key.Key {
		return []key.Key{ReviewsKey(in.MerchantSlug), key.New(AdminComments)}
	})
	return mutation.New(c.cache, fn, append([]mutation.Option[CreateCommentInput, Comment]{rule}, opts...)...)
}

// noTokenMessage is reported when the server accepts the credentials but sends no token.
const noTokenMessage = "Login failed, please try again"

// Login stores the returned token and refreshes the signed-in user.
func (c *Client) Login(opts ...mutation.Option[LoginInput, User]) *mutation.Mutation[LoginInput, User] {
	fn := validated(c, func(ctx context.Context, in LoginInput) (User, error) {
		raw, err := c.http.Post(ctx, "/auth/login", in)
		if err != nil {
			return User{}, err
		}
		tok := gjson.GetBytes(raw, "token")
		if tok.Type != gjson.String || tok.Str == "" {
			// keep whatever token is stored; a half-finished login must not sign the user out
			return User{}, &transport.Error{Kind: transport.KindApplication, Message: noTokenMessage}
		}
		u, err := field[User](raw, "user")
		if err != nil {
			return User{}, err
		}
		if err := c.http.Tokens().SetToken(tok.Str); err != nil {
			return User{}, err
		}
		return u, nil
	})
	rule := mutation.WithInvalidation(mutation.Keys[LoginInput, User](MeKey()))
	return mutation.New(c.cache, fn, append([]mutation.Option[LoginInput, User]{rule}, opts...)...)
}

/*
Logout forgets the stored token. Nothing is sent to the server; later
requests simply go out without an Authorization header. The signed-in
user and every admin listing are invalidated.
*/
func (c *Client) Logout(opts ...mutation.Option[struct{}, struct{}]) *mutation.Mutation[struct{}, struct{}] {
	fn := func(context.Context, struct{}) (struct{}, error) {
		return struct{}{}, c.http.Tokens().Clear()
	}
	rule := mutation.WithInvalidation(mutation.Keys[struct{}, struct{}](
		MeKey(),
		key.New(AdminMerchants), key.New(AdminComments), key.New(AdminUsers), key.New(AdminAds), key.New(AdminDashboard),
	))
	return mutation.New(c.cache, fn, append([]mutation.Option[struct{}, struct{}]{rule}, opts...)...)
}

//
// ================= ADMIN =================
//

func merchantKeys(slug string) []key.Key {
	return []key.Key{key.New(Merchants), key.New(AdminMerchants), merchantDetailOf(slug), key.New(AdminDashboard)}
}

/*
CreateMerchant uploads a new merchant as multipart form data. When no
slug is given it is derived from the name.
*/
func (c *Client) CreateMerchant(opts ...mutation.Option[CreateMerchantInput, Merchant]) *mutation.Mutation[CreateMerchantInput, Merchant] {
	fn := validated(c, func(ctx context.Context, in CreateMerchantInput) (Merchant, error) {
		s := in.Slug
		if s == "" {
			s = slug.Make(in.Name)
		}
		fields := map[string]string{"name": in.Name, "slug": s}
		for k, v := range map[string]string{"category": in.Category, "description": in.Description, "address": in.Address} {
			if v != "" {
				fields[k] = v
			}
		}
		var files []transport.File
		if in.Logo != nil {
			files = append(files, *in.Logo)
		}
		mp, err := transport.NewMultipart(fields, files...)
		if err != nil {
			return Merchant{}, err
		}
		raw, err := c.http.Upload(ctx, http.MethodPost, "/admin/merchants", mp)
		if err != nil {
			return Merchant{}, err
		}
		return field[Merchant](raw, "merchant")
	})
	rule := mutation.WithInvalidation(func(_ CreateMerchantInput, m Merchant) []key.Key { return merchantKeys(m.Slug) })
	return mutation.New(c.cache, fn, append([]mutation.Option[CreateMerchantInput, Merchant]{rule}, opts...)...)
}

// SetMerchantStatus publishes, hides or drafts a merchant.
func (c *Client) SetMerchantStatus(opts ...mutation.Option[MerchantStatusInput, Merchant]) *mutation.Mutation[MerchantStatusInput, Merchant] {
	fn := validated(c, func(ctx context.Context, in MerchantStatusInput) (Merchant, error) {
		path := "/admin/merchants/" + url.PathEscape(in.ID) + "/status"
		return sendField[Merchant](ctx, c.http, http.MethodPatch, path, in, "merchant")
	})
	rule := mutation.WithInvalidation(func(in MerchantStatusInput, m Merchant) []key.Key {
		s := in.Slug
		if s == "" {
			s = m.Slug
		}
		return merchantKeys(s)
	})
	return mutation.New(c.cache, fn, append([]mutation.Option[MerchantStatusInput, Merchant]{rule}, opts...)...)
}

func (c *Client) DeleteMerchant(opts ...mutation.Option[MerchantRef, struct{}]) *mutation.Mutation[MerchantRef, struct{}] {
	fn := validated(c, func(ctx context.Context, in MerchantRef) (struct{}, error) {
		return struct{}{}, c.deleteAt(ctx, "/admin/merchants/"+url.PathEscape(in.ID))
	})
	rule := mutation.WithInvalidation(func(in MerchantRef, _ struct{}) []key.Key { return merchantKeys(in.Slug) })
	return mutation.New(c.cache, fn, append([]mutation.Option[MerchantRef, struct{}]{rule}, opts...)...)
}

func adKeys(AdInput, Ad) []key.Key { return []key.Key{AdsKey(), AdminAdsKey()} }

// SaveAd creates an ad when in.ID is empty and replaces it otherwise.
func (c *Client) SaveAd(opts ...mutation.Option[AdInput, Ad]) *mutation.Mutation[AdInput, Ad] {
	fn := validated(c, func(ctx context.Context, in AdInput) (Ad, error) {
		if in.ID == "" {
			return sendField[Ad](ctx, c.http, http.MethodPost, "/admin/ads", in, "ad")
		}
		return sendField[Ad](ctx, c.http, http.MethodPut, "/admin/ads/"+url.PathEscape(in.ID), in, "ad")
	})
	return mutation.New(c.cache, fn, append([]mutation.Option[AdInput, Ad]{mutation.WithInvalidation(adKeys)}, opts...)...)
}

func (c *Client) DeleteAd(opts ...mutation.Option[string, struct{}]) *mutation.Mutation[string, struct{}] {
	fn := func(ctx context.Context, id string) (struct{}, error) {
		if id == "" {
			return struct{}{}, &ValidationError{Fields: []FieldError{{Field: "id", Rule: "required"}}}
		}
		return struct{}{}, c.deleteAt(ctx, "/admin/ads/"+url.PathEscape(id))
	}
	rule := mutation.WithInvalidation(mutation.Keys[string, struct{}](AdsKey(), AdminAdsKey()))
	return mutation.New(c.cache, fn, append([]mutation.Option[string, struct{}]{rule}, opts...)...)
}

func commentKeys(slug string) []key.Key {
	return []key.Key{key.New(AdminComments), reviewsOf(slug), key.New(AdminDashboard)}
}

// SetCommentHidden hides or restores a comment.
func (c *Client) SetCommentHidden(opts ...mutation.Option[CommentModeration, Comment]) *mutation.Mutation[CommentModeration, Comment] {
	fn := validated(c, func(ctx context.Context, in CommentModeration) (Comment, error) {
		return sendField[Comment](ctx, c.http, http.MethodPatch, "/admin/comments/"+url.PathEscape(in.ID), in, "comment")
	})
	rule := mutation.WithInvalidation(func(in CommentModeration, _ Comment) []key.Key { return commentKeys(in.MerchantSlug) })
	return mutation.New(c.cache, fn, append([]mutation.Option[CommentModeration, Comment]{rule}, opts...)...)
}

func (c *Client) DeleteComment(opts ...mutation.Option[CommentModeration, struct{}]) *mutation.Mutation[CommentModeration, struct{}] {
	fn := validated(c, func(ctx context.Context, in CommentModeration) (struct{}, error) {
		return struct{}{}, c.deleteAt(ctx, "/admin/comments/"+url.PathEscape(in.ID))
	})
	rule := mutation.WithInvalidation(func(in CommentModeration, _ struct{}) []key.Key { return commentKeys(in.MerchantSlug) })
	return mutation.New(c.cache, fn, append([]mutation.Option[CommentModeration, struct{}]{rule}, opts...)...)
}

func (c *Client) SetUserRole(opts ...mutation.Option[UserRoleInput, User]) *mutation.Mutation[UserRoleInput, User] {
	fn := validated(c, func(ctx context.Context, in UserRoleInput) (User, error) {
		return sendField[User](ctx, c.http, http.MethodPatch, "/admin/users/"+url.PathEscape(in.ID)+"/role", in, "user")
	})
	rule := mutation.WithInvalidation(mutation.Keys[UserRoleInput, User](key.New(AdminUsers), MeKey()))
	return mutation.New(c.cache, fn, append([]mutation.Option[UserRoleInput, User]{rule}, opts...)...)
}

func (c *Client) SetUserBanned(opts ...mutation.Option[UserBanInput, User]) *mutation.Mutation[UserBanInput, User] {
	fn := validated(c, func(ctx context.Context, in UserBanInput) (User, error) {
		return sendField[User](ctx, c.http, http.MethodPatch, "/admin/users/"+url.PathEscape(in.ID)+"/ban", in, "user")
	})
	rule := mutation.WithInvalidation(mutation.Keys[UserBanInput, User](key.New(AdminUsers), key.New(AdminDashboard)))
	return mutation.New(c.cache, fn, append([]mutation.Option[UserBanInput, User]{rule}, opts...)...)
}
