package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"

	"github.com/jonathan/longform-writer/internal/config"
)

// Claims carries the authenticated subject inside a signed token.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// JWTService issues and validates access tokens for the API.
type JWTService struct {
	config *config.JWTConfig
}

// NewJWTService creates a JWT service with the given configuration.
func NewJWTService(cfg *config.JWTConfig) *JWTService {
	return &JWTService{config: cfg}
}

// GenerateToken signs a token for the given account email.
func (s *JWTService) GenerateToken(email string) (string, error) {
	now := time.Now()
	claims := &Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(s.config.ExpirationHours) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken verifies a token signature and expiry and returns its claims.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("token string is empty")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("token is not valid")
	}
	return claims, nil
}

type contextKey string

const accountEmailKey contextKey = "accountEmail"

// requireAuth validates the Bearer token and stores the account email in the
// request context.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Fields(r.Header.Get("Authorization"))
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		claims, err := s.jwtService.ValidateToken(parts[1])
		if err != nil {
			s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		ctx := context.WithValue(r.Context(), accountEmailKey, claims.Email)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AccountEmail extracts the authenticated account email from the request context.
func AccountEmail(r *http.Request) (string, error) {
	email, ok := r.Context().Value(accountEmailKey).(string)
	if !ok {
		return "", fmt.Errorf("account email not found in request context")
	}
	return email, nil
}

// adminCredentials holds the single operator account configured through the
// environment. The server has no user table; runs are system-scoped.
type adminCredentials struct {
	Email        string
	PasswordHash string
	passwords    *config.PasswordConfig
}

// loadAdminCredentials reads ADMIN_EMAIL and ADMIN_PASSWORD_HASH. The hash is
// a bcrypt digest produced with the same pepper the server runs with.
func loadAdminCredentials() (*adminCredentials, error) {
	email := os.Getenv("ADMIN_EMAIL")
	hash := os.Getenv("ADMIN_PASSWORD_HASH")
	if email == "" || hash == "" {
		return nil, fmt.Errorf("ADMIN_EMAIL and ADMIN_PASSWORD_HASH are required")
	}

	passwords, err := config.NewPasswordConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to create password config: %w", err)
	}

	return &adminCredentials{Email: email, PasswordHash: hash, passwords: passwords}, nil
}

func (c *adminCredentials) verify(email, password string) bool {
	if email != c.Email {
		return false
	}
	return c.passwords.VerifyPassword(password, c.PasswordHash)
}

// LoginRequest is the request body for /auth/login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is the response body for /auth/login
type LoginResponse struct {
	Token string `json:"token"`
	Email string `json:"email"`
}

// handleLogin verifies operator credentials and issues a token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := s.validator.Struct(req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	if !s.admin.verify(req.Email, req.Password) {
		invalid := &ErrInvalidCredentials{}
		s.errorResponse(w, HTTPStatus(invalid), invalid.Error())
		return
	}

	token, err := s.jwtService.GenerateToken(req.Email)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	s.jsonResponse(w, http.StatusOK, LoginResponse{Token: token, Email: req.Email})
}

// validationMessage flattens validator errors into a readable message.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s failed on %q", fe.Field(), fe.Tag()))
		}
		return "validation failed: " + strings.Join(fields, "; ")
	}
	return err.Error()
}
