package app

import (
	"fmt"
	"time"

	"github.com/form3tech-oss/jwt-go"
)

// TokenService issues signed access tokens for the read-only surfaces of a
// match: monitor overlays and guest spectators. Tokens are self-contained
// so the overlay renderer can be hosted apart from the game server.
type TokenService struct {
	secret string
	issuer string
	ttl    time.Duration
}

const (
	TokenRoleMonitor = "monitor"
	TokenRoleGuest   = "guest"
)

func NewTokenService(secret, issuer string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenService{
		secret: secret,
		issuer: issuer,
		ttl:    ttl,
	}
}

// GenerateToken signs a token granting the subject read access to one match
// under the given role. Only the spectator roles are issuable; moderator and
// player access always goes through authenticated sessions.
func (s *TokenService) GenerateToken(subject, role, matchID string) (string, error) {
	if s == nil {
		return "", fmt.Errorf("token service is nil")
	}
	if subject == "" {
		return "", fmt.Errorf("subject is required")
	}
	if matchID == "" {
		return "", fmt.Errorf("match id is required")
	}
	if s.secret == "" || s.issuer == "" {
		return "", fmt.Errorf("token config is incomplete")
	}
	if role != TokenRoleMonitor && role != TokenRoleGuest {
		return "", fmt.Errorf("unsupported token role: %s", role)
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"iss": s.issuer,
		"sub": subject,
		"iat": now.Unix(),
		"exp": now.Add(s.ttl).Unix(),
		"rol": role,
		"mid": matchID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secret))
}

// VerifyToken checks the signature and expiry and returns the role and
// match id carried by the token.
func (s *TokenService) VerifyToken(tokenString string) (role, matchID string, err error) {
	if s == nil || s.secret == "" {
		return "", "", fmt.Errorf("token config is incomplete")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.secret), nil
	})
	if err != nil {
		return "", "", err
	}
	if !token.Valid {
		return "", "", fmt.Errorf("token is invalid")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", fmt.Errorf("unexpected claims type")
	}
	role, _ = claims["rol"].(string)
	matchID, _ = claims["mid"].(string)
	if role != TokenRoleMonitor && role != TokenRoleGuest {
		return "", "", fmt.Errorf("unsupported token role: %s", role)
	}
	if matchID == "" {
		return "", "", fmt.Errorf("token carries no match id")
	}
	return role, matchID, nil
}
