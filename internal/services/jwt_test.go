package services_test

import (
	"testing"
	"time"

	"fairplay-backend/internal/config"
	"fairplay-backend/internal/services"
)

func TestJWTService(t *testing.T) {
	svc := services.NewJWTService(&config.Config{JWTSecret: "test-secret", JWTIssuer: "fairplay"})

	token, err := svc.GenerateToken(42, "session-1", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.UserID != 42 || claims.SessionID != "session-1" {
		t.Errorf("Unexpected claims: %+v", claims)
	}

	expired, _ := svc.GenerateToken(42, "session-1", -time.Minute)
	if _, err := svc.ValidateToken(expired); err == nil {
		t.Error("Expired token should be rejected")
	}

	other := services.NewJWTService(&config.Config{JWTSecret: "other-secret", JWTIssuer: "fairplay"})
	if _, err := other.ValidateToken(token); err == nil {
		t.Error("Token signed with another secret should be rejected")
	}

	if _, err := svc.ValidateToken("not-a-token"); err == nil {
		t.Error("Garbage should be rejected")
	}
}
