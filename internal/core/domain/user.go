package domain

import (
	"strings"
	"time"
)

// MaxPasswordBytes is the longest password bcrypt accepts. The limit is in
// bytes, so multibyte passwords hit it with fewer characters.
const MaxPasswordBytes = 72

// User models a stored account. PasswordHash never leaves the server.
type User struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	Name           string    `json:"name"`
	Photo          string    `json:"photo"`
	FirstTimeLogin bool      `json:"firstTimeLogin"`
	IsAdmin        bool      `json:"isAdmin"`
	CreatedAt      time.Time `json:"createdAt"`
	Tier           Tier      `json:"tier"`
}

// SanitizedUser is the client-safe projection of User. It is the only user
// shape that is returned over the API or embedded in a session token.
type SanitizedUser struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Photo          string `json:"photo"`
	FirstTimeLogin bool   `json:"firstTimeLogin"`
	IsAdmin        bool   `json:"isAdmin"`
	CreatedAt      string `json:"createdAt"`
	Tier           Tier   `json:"tier"`
}

// OAuthProfile is what the identity provider tells us about a user.
type OAuthProfile struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Image string `json:"image"`
}

// UserPatch lists the fields a single update may overwrite. Nil fields are
// left untouched.
type UserPatch struct {
	Name           *string
	Photo          *string
	FirstTimeLogin *bool
	Tier           *Tier
	PasswordHash   *string
}

// IsEmpty reports whether the patch would change nothing.
func (p UserPatch) IsEmpty() bool {
	return p.Name == nil && p.Photo == nil && p.FirstTimeLogin == nil && p.Tier == nil && p.PasswordHash == nil
}

// Sanitize strips the password hash and fills in defaults for optional fields.
func Sanitize(u *User) SanitizedUser {
	createdAt := u.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	tier := u.Tier
	if tier == "" {
		tier = TierFree
	}
	return SanitizedUser{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		Photo:          u.Photo,
		FirstTimeLogin: u.FirstTimeLogin,
		IsAdmin:        u.IsAdmin,
		CreatedAt:      createdAt.UTC().Format(time.RFC3339),
		Tier:           tier,
	}
}

// NormalizeEmail trims and lower-cases an address so lookups and the unique
// index agree on one spelling.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
