package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"vibedojo-ledger/logger"
)

var ErrUnauthorized = errors.New("unauthorized")

// AuthServiceClient resolves a Supabase access token to a user. With a JWT secret it verifies
// the token locally, otherwise it asks Supabase's /auth/v1/user.
type AuthServiceClient struct {
	BaseURL   string
	AnonKey   string
	JWTSecret string
	Client    *http.Client
	log       *logger.Logger
}

type ValidateResponse struct {
	UserID string   `json:"user_id"`
	Email  string   `json:"email,omitempty"`
	Roles  []string `json:"roles"`
}

type supabaseUser struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	AppMetadata struct {
		Roles []string `json:"roles"`
	} `json:"app_metadata"`
}

type supabaseClaims struct {
	Email       string `json:"email"`
	Role        string `json:"role"`
	AppMetadata struct {
		Roles []string `json:"roles"`
	} `json:"app_metadata"`
	jwt.RegisteredClaims
}

func NewAuthServiceClient(baseURL, anonKey, jwtSecret string, log *logger.Logger) *AuthServiceClient {
	return &AuthServiceClient{
		BaseURL:   baseURL,
		AnonKey:   anonKey,
		JWTSecret: jwtSecret,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log.With("service", "AuthServiceClient"),
	}
}

func (c *AuthServiceClient) ValidateToken(ctx context.Context, accessToken string) (*ValidateResponse, error) {
	if accessToken == "" {
		return nil, ErrUnauthorized
	}
	if c.JWTSecret != "" {
		return c.validateLocal(accessToken)
	}
	return c.validateRemote(ctx, accessToken)
}

func (c *AuthServiceClient) validateLocal(accessToken string) (*ValidateResponse, error) {
	parsed, err := jwt.ParseWithClaims(accessToken, &supabaseClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(c.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	claims, ok := parsed.Claims.(*supabaseClaims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("%w: invalid claims", ErrUnauthorized)
	}
	return &ValidateResponse{
		UserID: claims.Subject,
		Email:  claims.Email,
		Roles:  mergeRoles(claims.Role, claims.AppMetadata.Roles),
	}, nil
}

func (c *AuthServiceClient) validateRemote(ctx context.Context, accessToken string) (*ValidateResponse, error) {
	if c.BaseURL == "" {
		return nil, fmt.Errorf("%w: no auth backend configured", ErrUnauthorized)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", c.AnonKey)
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode != http.StatusOK {
		c.log.Warn("supabase /auth/v1/user rejected token", "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: auth backend returned %d", ErrUnauthorized, resp.StatusCode)
	}

	var u supabaseUser
	if err := json.Unmarshal(body, &u); err != nil {
		return nil, err
	}
	if u.ID == "" {
		return nil, fmt.Errorf("%w: empty user id", ErrUnauthorized)
	}
	return &ValidateResponse{UserID: u.ID, Email: u.Email, Roles: mergeRoles(u.Role, u.AppMetadata.Roles)}, nil
}

func mergeRoles(primary string, extra []string) []string {
	roles := make([]string, 0, len(extra)+1)
	if primary != "" {
		roles = append(roles, primary)
	}
	for _, r := range extra {
		if r != "" && r != primary {
			roles = append(roles, r)
		}
	}
	return roles
}
