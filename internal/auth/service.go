package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/plannr/plannr/blueprint-go/internal/typeid"
)

var ErrInvalidToken = errors.New("invalid token")

const DefaultTokenTTL = 24 * time.Hour

// Identity is the actor behind a request or websocket connection.
type Identity struct {
	ActorID     string `json:"actorId"`
	DisplayName string `json:"displayName"`
}

type Service struct {
	jwtSecret []byte
	ttl       time.Duration
	now       func() time.Time
}

func NewService(jwtSecret string) *Service {
	return &Service{
		jwtSecret: []byte(jwtSecret),
		ttl:       DefaultTokenTTL,
		now:       time.Now,
	}
}

// IssueGuest creates a fresh actor id for displayName and signs a token for it.
func (s *Service) IssueGuest(displayName string) (string, Identity, error) {
	id := Identity{ActorID: typeid.NewActorID(), DisplayName: displayName}
	token, err := s.IssueToken(id)
	if err != nil {
		return "", Identity{}, err
	}
	return token, id, nil
}

func (s *Service) IssueToken(id Identity) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":  id.ActorID,
		"name": id.DisplayName,
		"iat":  now.Unix(),
		"exp":  now.Add(s.ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

func (s *Service) ValidateToken(tokenString string) (Identity, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Identity{}, ErrInvalidToken
	}

	actorID, ok := claims["sub"].(string)
	if !ok || actorID == "" {
		return Identity{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	name, _ := claims["name"].(string)
	if name == "" {
		name = actorID
	}

	return Identity{ActorID: actorID, DisplayName: name}, nil
}
