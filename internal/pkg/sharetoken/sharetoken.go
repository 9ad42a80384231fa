// Package sharetoken implements the short-lived bearer credential handed out
// after a successful extraction-code check. A token binds a share id to an
// expiry; nothing else is carried.
package sharetoken

import (
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

type Codec struct {
	secret []byte
}

func NewCodec(secret []byte) *Codec {
	return &Codec{secret: secret}
}

type claims struct {
	ShareID string `json:"share_id"`
	jwtlib.RegisteredClaims
}

// Result is the typed outcome of decoding. Expired and malformed tokens are
// ordinary outcomes, not errors.
type Result struct {
	Valid    bool
	Expired  bool
	ShareID  string
	ExpireAt time.Time
}

func (c *Codec) Encode(shareID string, expireAt time.Time) (string, error) {
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims{
		ShareID: shareID,
		RegisteredClaims: jwtlib.RegisteredClaims{
			ExpiresAt: jwtlib.NewNumericDate(expireAt),
			IssuedAt:  jwtlib.NewNumericDate(time.Now()),
		},
	})
	return token.SignedString(c.secret)
}

func (c *Codec) Decode(tokenString string) Result {
	token, err := jwtlib.ParseWithClaims(tokenString, &claims{}, func(token *jwtlib.Token) (interface{}, error) {
		if token.Method.Alg() != jwtlib.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return c.secret, nil
	})
	if err != nil {
		return Result{Expired: errors.Is(err, jwtlib.ErrTokenExpired)}
	}
	parsed, ok := token.Claims.(*claims)
	if !ok || !token.Valid || parsed.ShareID == "" {
		return Result{}
	}
	var expireAt time.Time
	if parsed.ExpiresAt != nil {
		expireAt = parsed.ExpiresAt.Time
	}
	return Result{Valid: true, ShareID: parsed.ShareID, ExpireAt: expireAt}
}
