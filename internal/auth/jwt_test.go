package auth

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/prathamps/Sculpt/internal/config"
	"github.com/prathamps/Sculpt/internal/logging"
)

func init() {
	cfg := logging.DefaultConfig()
	cfg.Output = io.Discard
	logging.Init(cfg)
}

func testSecurityConfig() *config.SecurityConfig {
	return &config.SecurityConfig{
		JWTSecret:      "0123456789abcdef0123456789abcdef",
		SessionTimeout: time.Hour,
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	m, err := NewJWTManager(testSecurityConfig())
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}

	token, err := m.GenerateToken("u1", "u1@example.com")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.UserID != "u1" || claims.Email != "u1@example.com" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestValidateTokenFailures(t *testing.T) {
	m, _ := NewJWTManager(testSecurityConfig())
	other, _ := NewJWTManager(&config.SecurityConfig{
		JWTSecret:      "ffffffffffffffffffffffffffffffff",
		SessionTimeout: time.Hour,
	})
	expired, _ := NewJWTManager(&config.SecurityConfig{
		JWTSecret:      testSecurityConfig().JWTSecret,
		SessionTimeout: -time.Minute,
	})

	otherToken, _ := other.GenerateToken("u1", "")
	expiredToken, _ := expired.GenerateToken("u1", "")
	missingUser, _ := m.GenerateToken("", "")

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not.a.token"},
		{"empty", ""},
		{"wrong secret", otherToken},
		{"expired", expiredToken},
		{"missing user id", missingUser},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := m.ValidateToken(tt.token); err == nil {
				t.Errorf("ValidateToken(%q) succeeded, want error", tt.token)
			}
		})
	}
}

func TestNewJWTManagerRequiresSecret(t *testing.T) {
	_, err := NewJWTManager(&config.SecurityConfig{})
	if err == nil || !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Errorf("err = %v, want JWT_SECRET error", err)
	}
}

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter22")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !CheckPassword(hash, "hunter22") {
		t.Error("correct password rejected")
	}
	if CheckPassword(hash, "hunter23") {
		t.Error("wrong password accepted")
	}
}
