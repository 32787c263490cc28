package utils // package utils provides helper functions for admin tokens and password hashing

import (
    "time"

    "github.com/golang-jwt/jwt/v5"
)

// RoleAdmin is the only role the admin API accepts.
const RoleAdmin = "ADMIN"

// AccessToken is a signed JWT along with its expiry.  It is sent in the
// Authorization header when calling the admin API.
type AccessToken struct {
    Token string    `json:"access_token"`
    Exp   time.Time `json:"expires_at"`
}

// NewAccessToken builds and signs an HS256 JWT for subject with the given
// role.  The JWT carries sub, role, exp and iat claims.
func NewAccessToken(secret, subject, role string, ttl time.Duration) (AccessToken, error) {
    now := time.Now().UTC()
    exp := now.Add(ttl)
    claims := jwt.MapClaims{
        "sub":  subject,
        "role": role,
        "exp":  exp.Unix(),
        "iat":  now.Unix(),
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := t.SignedString([]byte(secret))
    if err != nil {
        return AccessToken{}, err
    }
    return AccessToken{Token: signed, Exp: exp}, nil
}
