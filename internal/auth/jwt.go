package auth

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role is the single role a signed-in user holds.
type Role string

const (
	RoleStudent Role = "student"
	RoleStaff   Role = "staff"
	RoleHOD     Role = "hod"
	RoleUnknown Role = ""
)

// ParseRole maps a wire role string onto a known Role. Unrecognized values
// degrade to RoleUnknown rather than failing; navigation still has to work
// for a user whose role string we do not recognize.
func ParseRole(s string) Role {
	switch s {
	case "student":
		return RoleStudent
	case "staff":
		return RoleStaff
	case "hod":
		return RoleHOD
	}
	return RoleUnknown
}

// RoleValue decodes the wire's `roles` claim, which some issuers emit as a
// plain string and others as a one-element array. A Claims value always holds
// exactly one role; the array form collapses to its first element here, at
// the codec boundary.
type RoleValue string

func (r *RoleValue) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*r = RoleValue(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return errors.New("roles claim is neither string nor array")
	}
	if len(list) == 0 {
		*r = ""
		return nil
	}
	*r = RoleValue(list[0])
	return nil
}

func (r RoleValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(r))
}

// Claims is the JWT payload carried by a portal bearer token.
type Claims struct {
	RollNo string    `json:"rollNo"`
	Roles  RoleValue `json:"roles"`
	jwt.RegisteredClaims
}

// Role returns the normalized role held by these claims.
func (c Claims) Role() Role {
	return ParseRole(string(c.Roles))
}

// Issue signs an HS256 access token for the given identity.
func Issue(rollNo string, role Role, issuer, key string, ttl time.Duration) (string, time.Time, error) {
	exp := time.Now().Add(ttl)
	claims := Claims{
		RollNo: rollNo,
		Roles:  RoleValue(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   rollNo,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	if err != nil {
		return "", time.Time{}, err
	}
	return token, exp, nil
}

// Parse validates a token and returns its claims.
func Parse(tokenStr, key, issuer string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(key), nil
	})
	if err != nil {
		return Claims{}, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, errors.New("invalid token")
	}
	if issuer != "" && claims.Issuer != issuer {
		return Claims{}, errors.New("issuer mismatch")
	}
	return *claims, nil
}
