package service

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/MorseWayne/shelf_hub/internal/config"
)

func testJWTConfig() *config.Config {
	cfg := &config.Config{}
	cfg.App.Name = "test-service"
	cfg.JWT.Secret = "test-secret-key"
	cfg.JWT.AccessTokenTTL = 15 * time.Minute
	cfg.JWT.RefreshTokenTTL = 24 * time.Hour
	return cfg
}

func newTestJWTService(userRepo *MockUserRepository) JWTService {
	return NewJWTService(testJWTConfig(), userRepo, zap.NewNop())
}

func TestJWTService_GenerateAndValidate(t *testing.T) {
	env := newTestEnv()
	jwtService := newTestJWTService(env.userRepo)
	user := env.seedUser(t, "alice")

	tokenPair, err := jwtService.GenerateTokenPair(user)
	if err != nil {
		t.Fatalf("GenerateTokenPair failed: %v", err)
	}
	if tokenPair.AccessToken == "" || tokenPair.RefreshToken == "" {
		t.Fatal("tokens should not be empty")
	}

	claims, err := jwtService.ValidateAccessToken(tokenPair.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccessToken failed: %v", err)
	}
	if claims.UserID != user.ID || claims.Email != user.Email || claims.Name != user.Name {
		t.Errorf("unexpected claims: %+v", claims)
	}
	if claims.Type != "access" {
		t.Errorf("expected type access, got %s", claims.Type)
	}

	refreshClaims, err := jwtService.ValidateRefreshToken(tokenPair.RefreshToken)
	if err != nil {
		t.Fatalf("ValidateRefreshToken failed: %v", err)
	}
	if refreshClaims.Type != "refresh" {
		t.Errorf("expected type refresh, got %s", refreshClaims.Type)
	}
}

// 访问令牌不能当作刷新令牌使用，反之亦然
func TestJWTService_TokenTypeMismatch(t *testing.T) {
	env := newTestEnv()
	jwtService := newTestJWTService(env.userRepo)
	user := env.seedUser(t, "alice")

	tokenPair, err := jwtService.GenerateTokenPair(user)
	if err != nil {
		t.Fatalf("GenerateTokenPair failed: %v", err)
	}

	if _, err := jwtService.ValidateRefreshToken(tokenPair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for access-as-refresh, got %v", err)
	}
	if _, err := jwtService.ValidateAccessToken(tokenPair.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for refresh-as-access, got %v", err)
	}
}

func TestJWTService_WrongSecret(t *testing.T) {
	env := newTestEnv()
	jwtService := newTestJWTService(env.userRepo)
	user := env.seedUser(t, "alice")

	tokenPair, err := jwtService.GenerateTokenPair(user)
	if err != nil {
		t.Fatalf("GenerateTokenPair failed: %v", err)
	}

	otherCfg := testJWTConfig()
	otherCfg.JWT.Secret = "different-secret"
	other := NewJWTService(otherCfg, env.userRepo, zap.NewNop())

	if _, err := other.ValidateAccessToken(tokenPair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken with wrong secret, got %v", err)
	}
}

func TestJWTService_ValidateGarbage(t *testing.T) {
	env := newTestEnv()
	jwtService := newTestJWTService(env.userRepo)

	if _, err := jwtService.ValidateAccessToken("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestJWTService_RefreshTokenPair(t *testing.T) {
	env := newTestEnv()
	jwtService := newTestJWTService(env.userRepo)
	user := env.seedUser(t, "alice")

	tokenPair, err := jwtService.GenerateTokenPair(user)
	if err != nil {
		t.Fatalf("GenerateTokenPair failed: %v", err)
	}

	newPair, err := jwtService.RefreshTokenPair(tokenPair.RefreshToken)
	if err != nil {
		t.Fatalf("RefreshTokenPair failed: %v", err)
	}

	claims, err := jwtService.ValidateAccessToken(newPair.AccessToken)
	if err != nil {
		t.Fatalf("new access token invalid: %v", err)
	}
	if claims.UserID != user.ID {
		t.Errorf("expected user %d, got %d", user.ID, claims.UserID)
	}
}

// 被停用的账号不能用旧的刷新令牌换取新令牌
func TestJWTService_RefreshTokenPair_InactiveUser(t *testing.T) {
	env := newTestEnv()
	jwtService := newTestJWTService(env.userRepo)
	user := env.seedUser(t, "alice")

	tokenPair, err := jwtService.GenerateTokenPair(user)
	if err != nil {
		t.Fatalf("GenerateTokenPair failed: %v", err)
	}

	if err := env.userRepo.UpdateStatus(user.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	_, err = jwtService.RefreshTokenPair(tokenPair.RefreshToken)
	if !errors.Is(err, ErrUserInactive) {
		t.Fatalf("expected ErrUserInactive, got %v", err)
	}
}

func TestJWTService_ExpiredToken(t *testing.T) {
	env := newTestEnv()
	cfg := testJWTConfig()
	cfg.JWT.AccessTokenTTL = -time.Minute // 签发即过期
	jwtService := NewJWTService(cfg, env.userRepo, zap.NewNop())
	user := env.seedUser(t, "alice")

	tokenPair, err := jwtService.GenerateTokenPair(user)
	if err != nil {
		t.Fatalf("GenerateTokenPair failed: %v", err)
	}

	if _, err := jwtService.ValidateAccessToken(tokenPair.AccessToken); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}
}

func TestJWTService_IssuerMismatch(t *testing.T) {
	env := newTestEnv()
	jwtService := newTestJWTService(env.userRepo)
	user := env.seedUser(t, "alice")

	tokenPair, err := jwtService.GenerateTokenPair(user)
	if err != nil {
		t.Fatalf("GenerateTokenPair failed: %v", err)
	}

	otherCfg := testJWTConfig()
	otherCfg.App.Name = "another-service"
	other := NewJWTService(otherCfg, env.userRepo, zap.NewNop())

	if _, err := other.ValidateAccessToken(tokenPair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for issuer mismatch, got %v", err)
	}
}
