package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/99minutos/member-portal/internal/core/domain"
)

// TokenTTL is the fixed lifetime of a session token.
const TokenTTL = 7 * 24 * time.Hour

// sessionClaims carries every SanitizedUser field. Claims reflect the user at
// issue time; changes made afterwards are not visible until a new token is issued.
type sessionClaims struct {
	jwt.RegisteredClaims
	UserID         string      `json:"id"`
	Name           string      `json:"name"`
	Email          string      `json:"email"`
	Photo          string      `json:"photo"`
	FirstTimeLogin bool        `json:"firstTimeLogin"`
	IsAdmin        bool        `json:"isAdmin"`
	CreatedAt      string      `json:"createdAt"`
	Tier           domain.Tier `json:"paymentType"`
}

// JWTService implements ports.TokenService with HS256.
type JWTService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewJWTService(secret string) (*JWTService, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	return &JWTService{secret: []byte(secret), ttl: TokenTTL, now: time.Now}, nil
}

func (s *JWTService) Issue(user domain.SanitizedUser) (string, error) {
	now := s.now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		UserID:         user.ID,
		Name:           user.Name,
		Email:          user.Email,
		Photo:          user.Photo,
		FirstTimeLogin: user.FirstTimeLogin,
		IsAdmin:        user.IsAdmin,
		CreatedAt:      user.CreatedAt,
		Tier:           user.Tier,
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.secret)
}

func (s *JWTService) Verify(token string) (domain.SanitizedUser, bool) {
	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return domain.SanitizedUser{}, false
	}

	return domain.SanitizedUser{
		ID:             claims.UserID,
		Name:           claims.Name,
		Email:          claims.Email,
		Photo:          claims.Photo,
		FirstTimeLogin: claims.FirstTimeLogin,
		IsAdmin:        claims.IsAdmin,
		CreatedAt:      claims.CreatedAt,
		Tier:           claims.Tier,
	}, true
}
