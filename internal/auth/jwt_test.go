package auth_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/tavola-pos/api/internal/auth"
	"github.com/tavola-pos/api/internal/enum"
)

func TestGenerateAndValidateToken(t *testing.T) {
	secret := "test-secret"
	userID := uuid.New()

	token, err := auth.GenerateToken(secret, userID, enum.RoleCashier)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	claims, err := auth.ValidateToken(secret, token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}

	if claims.UserID != userID {
		t.Errorf("user ID: got %v, want %v", claims.UserID, userID)
	}
	if claims.Role != enum.RoleCashier {
		t.Errorf("role: got %v, want CASHIER", claims.Role)
	}
}

func TestValidateTokenWithWrongSecret(t *testing.T) {
	token, err := auth.GenerateToken("secret-a", uuid.New(), enum.RoleManager)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	if _, err := auth.ValidateToken("secret-b", token); err == nil {
		t.Fatal("expected validation to fail with wrong secret")
	}
}

func TestValidateGarbageToken(t *testing.T) {
	if _, err := auth.ValidateToken("secret", "not-a-jwt"); err == nil {
		t.Fatal("expected validation to fail for garbage token")
	}
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	secret := "test-secret"
	userID := uuid.New()

	token, err := auth.GenerateRefreshToken(secret, userID)
	if err != nil {
		t.Fatalf("generate refresh token: %v", err)
	}

	got, err := auth.ValidateRefreshToken(secret, token)
	if err != nil {
		t.Fatalf("validate refresh token: %v", err)
	}
	if got != userID {
		t.Errorf("subject: got %v, want %v", got, userID)
	}
}

func TestRefreshTokenRejectedAsAccessTokenSecretMismatch(t *testing.T) {
	token, err := auth.GenerateRefreshToken("secret-a", uuid.New())
	if err != nil {
		t.Fatalf("generate refresh token: %v", err)
	}
	if _, err := auth.ValidateRefreshToken("secret-b", token); err == nil {
		t.Fatal("expected validation to fail with wrong secret")
	}
}
