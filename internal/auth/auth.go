package auth

import (
	"context"
	"crypto/rsa"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// User is the authenticated caller as seen by the rest of the system:
// identity plus the flattened permission set embedded in the token.
type User struct {
	ID          int64    `json:"id"`
	Email       string   `json:"email"`
	Roles       []string `json:"roles,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// Claims is the token payload. Roles and permissions are resolved once
// at issuance; role changes only take effect on re-issue, bounding
// staleness by the token lifetime.
type Claims struct {
	UserID      int64    `json:"user_id"`
	Email       string   `json:"email"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}

// TokenGenerator mints and verifies access tokens.
type TokenGenerator interface {
	GenerateAccessToken(user *User) (token string, err error)
	ValidateToken(tokenString string) (*Claims, error)
}

// ServiceAPI is the surface the HTTP layer and the admin collaborator
// consume; no other component may mint tokens.
type ServiceAPI interface {
	Authenticate(ctx context.Context, dto LoginDTO) (*LoginResult, error)
	Register(ctx context.Context, dto RegisterDTO) (*User, error)
	ForcePasswordChange(ctx context.Context, dto ForcePasswordChangeDTO) error
	ValidateAccessToken(tokenString string) (*Claims, error)
}

var (
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrPasswordChangeRequired = errors.New("password change required")
	ErrInvalidToken           = errors.New("invalid token")
	ErrTokenExpired           = errors.New("token expired")
	ErrUserInactive           = errors.New("user is inactive")
	ErrEmailTaken             = errors.New("email already registered")
	ErrWeakPassword           = errors.New("password does not meet complexity policy")
	ErrPasswordReused         = errors.New("new password must differ from current password")
	ErrPasswordChangeNotSet   = errors.New("password change not required for this user")
	ErrPermissionDenied       = errors.New("insufficient permissions")
)

// JWTTokenGenerator signs with the auth service's RSA private key;
// verification uses only the public key, so holding a verifier never
// grants the ability to forge identity.
type JWTTokenGenerator struct {
	PrivateKey     *rsa.PrivateKey
	PublicKey      *rsa.PublicKey
	AccessTokenTTL time.Duration
	Issuer         string
	Audience       string
}

func NewJWTTokenGenerator(privateKey *rsa.PrivateKey, publicKey *rsa.PublicKey, ttl time.Duration, issuer, audience string) *JWTTokenGenerator {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &JWTTokenGenerator{
		PrivateKey:     privateKey,
		PublicKey:      publicKey,
		AccessTokenTTL: ttl,
		Issuer:         issuer,
		Audience:       audience,
	}
}

// NewVerifier builds a generator that can only validate tokens. It is
// what every component other than the auth service gets.
func NewVerifier(publicKey *rsa.PublicKey, issuer, audience string) *JWTTokenGenerator {
	return &JWTTokenGenerator{
		PublicKey: publicKey,
		Issuer:    issuer,
		Audience:  audience,
	}
}

func (j *JWTTokenGenerator) GenerateAccessToken(user *User) (string, error) {
	if j.PrivateKey == nil {
		return "", errors.New("token generator has no signing key")
	}

	now := time.Now()
	claims := &Claims{
		UserID:      user.ID,
		Email:       user.Email,
		Roles:       user.Roles,
		Permissions: user.Permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   jwtSubject(user.ID),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.AccessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    j.Issuer,
			Audience:  jwt.ClaimStrings{j.Audience},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(j.PrivateKey)
}

// ValidateToken verifies signature, expiry, issuer and audience. Any
// token that does not claim RS256 is rejected outright, which closes
// the algorithm-downgrade hole where an HS256 token is keyed on the
// public key bytes.
func (j *JWTTokenGenerator) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodRS256.Alg() {
			return nil, ErrInvalidToken
		}
		return j.PublicKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(j.Issuer),
		jwt.WithAudience(j.Audience),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func jwtSubject(id int64) string {
	return strconv.FormatInt(id, 10)
}
