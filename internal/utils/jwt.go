package utils // package utils provides helpers for staff tokens and table tokens

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/table-service/internal/model"
)

// ErrInvalidToken is returned by ParseActor for any token that cannot be
// trusted: bad signature, wrong algorithm, expired, or missing claims.
var ErrInvalidToken = errors.New("invalid token")

// AccessToken represents a signed staff JWT along with its expiry.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// NewAccessToken builds and signs an HS256 JWT for a staff member.  The
// claims carry the subject (actor ID), role and restaurant_id that the
// lifecycle engine authorizes against.  Issuing tokens for real users is
// the identity provider's job; this exists for the staff-token dev tool
// and for tests.
func NewAccessToken(secret string, actor model.Actor, ttl time.Duration) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := jwt.MapClaims{
		"sub":           strconv.FormatUint(actor.ID, 10),
		"role":          actor.Role,
		"restaurant_id": actor.RestaurantID,
		"exp":           exp.Unix(),
		"iat":           now.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseActor verifies raw with secret and returns the actor it names.
func ParseActor(secret, raw string) (model.Actor, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		// Reject anything that is not HMAC so an attacker cannot pick "none".
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithExpirationRequired())
	if err != nil || !tok.Valid {
		return model.Actor{}, ErrInvalidToken
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return model.Actor{}, ErrInvalidToken
	}

	var a model.Actor
	if a.ID, ok = claimUint(claims["sub"]); !ok || a.ID == 0 {
		return model.Actor{}, ErrInvalidToken
	}
	if a.RestaurantID, ok = claimUint(claims["restaurant_id"]); !ok || a.RestaurantID == 0 {
		return model.Actor{}, ErrInvalidToken
	}
	if a.Role, ok = claims["role"].(string); !ok || !model.ValidRole(a.Role) {
		return model.Actor{}, ErrInvalidToken
	}
	return a, nil
}

// claimUint accepts numeric claims as JSON numbers or decimal strings.
func claimUint(v interface{}) (uint64, bool) {
	switch t := v.(type) {
	case float64:
		if t < 0 {
			return 0, false
		}
		return uint64(t), true
	case string:
		n, err := strconv.ParseUint(t, 10, 64)
		return n, err == nil
	}
	return 0, false
}
