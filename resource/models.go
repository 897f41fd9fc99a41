package resource

import "time"

// Merchant statuses used by the admin back-office.
const (
	MerchantDraft     = "draft"
	MerchantPublished = "published"
	MerchantHidden    = "hidden"
)

// Comment reactions.
const (
	ReactionLike    = "like"
	ReactionDislike = "dislike"
)

// User roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type Merchant struct {
	ID            string    `json:"id"`
	Slug          string    `json:"slug"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	Category      string    `json:"category,omitempty"`
	Address       string    `json:"address,omitempty"`
	Logo          string    `json:"logo,omitempty"`
	Status        string    `json:"status,omitempty"`
	ReviewCount   int       `json:"reviewCount"`
	AverageRating float64   `json:"averageRating"`
	VisitCount    int       `json:"visitCount"`
	CreatedAt     time.Time `json:"createdAt"`
}

type Review struct {
	ID          string    `json:"id"`
	MerchantID  string    `json:"merchantId"`
	Title       string    `json:"title"`
	Rating      int       `json:"rating"`
	Content     string    `json:"content"`
	DisplayName string    `json:"displayName,omitempty"`
	Comments    []Comment `json:"comments,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Comment struct {
	ID          string    `json:"id"`
	ReviewID    string    `json:"reviewId"`
	Reaction    string    `json:"reaction"`
	Content     string    `json:"content,omitempty"`
	DisplayName string    `json:"displayName,omitempty"`
	Hidden      bool      `json:"hidden"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Ad is a gift-code promotion shown next to merchant listings.
type Ad struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Code     string    `json:"code,omitempty"`
	Image    string    `json:"image,omitempty"`
	Link     string    `json:"link,omitempty"`
	Active   bool      `json:"active"`
	StartsAt time.Time `json:"startsAt,omitempty"`
	EndsAt   time.Time `json:"endsAt,omitempty"`
}

type User struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name,omitempty"`
	Role   string `json:"role"`
	Banned bool   `json:"banned"`
}

// Pagination is the server's paging envelope. Pages is the total page count.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

type MerchantPage struct {
	Merchants  []Merchant `json:"merchants"`
	Pagination Pagination `json:"pagination"`
}

type ReviewPage struct {
	Reviews    []Review   `json:"reviews"`
	Pagination Pagination `json:"pagination"`
}

type CommentPage struct {
	Comments   []Comment  `json:"comments"`
	Pagination Pagination `json:"pagination"`
}

type UserPage struct {
	Users      []User     `json:"users"`
	Pagination Pagination `json:"pagination"`
}

// AdminStats is the back-office dashboard summary.
type AdminStats struct {
	Merchants int `json:"merchants"`
	Reviews   int `json:"reviews"`
	Comments  int `json:"comments"`
	Users     int `json:"users"`
	Visits    int `json:"visits"`
}

// MerchantFilter selects a merchant listing. The zero value lists every published merchant.
type MerchantFilter struct {
	Page          int    `json:"page,omitempty"`
	Limit         int    `json:"limit,omitempty"`
	Category      string `json:"category,omitempty"`
	Status        string `json:"status,omitempty"`
	Search        string `json:"search,omitempty"`
	ExcludeDrafts bool   `json:"excludeDrafts,omitempty"`
}
