package util

import (
	"testing"
	"time"

	"teachtrack_backend/internal/model"

	"github.com/golang-jwt/jwt/v5"
)

func testUser() *model.User {
	u := &model.User{Email: "t@example.com", Role: model.RoleTeacher}
	u.ID = 42
	return u
}

func TestGenerateAndParseJWT(t *testing.T) {
	token, err := GenerateJWT(testUser(), "secret", time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT() error = %v", err)
	}

	claims, err := ParseJWT(token, "secret")
	if err != nil {
		t.Fatalf("ParseJWT() error = %v", err)
	}
	if claims.UserID != 42 || claims.Role != model.RoleTeacher || claims.Email != "t@example.com" {
		t.Errorf("claims = %+v", claims)
	}
	if claims.Issuer != "teachtrack-backend" || claims.Subject != "42" {
		t.Errorf("registered claims = issuer %q subject %q", claims.Issuer, claims.Subject)
	}
}

func TestParseJWTWrongSecret(t *testing.T) {
	token, _ := GenerateJWT(testUser(), "secret", time.Hour)
	if _, err := ParseJWT(token, "other"); err == nil {
		t.Fatal("expected an error for a wrong secret")
	}
}

func TestParseJWTExpired(t *testing.T) {
	token, _ := GenerateJWT(testUser(), "secret", -time.Minute)
	if _, err := ParseJWT(token, "secret"); err == nil {
		t.Fatal("expected an error for an expired token")
	}
}

func TestParseJWTRejectsForeignIssuer(t *testing.T) {
	claims := &Claims{
		UserID: 42,
		Role:   model.RoleTeacher,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if _, err := ParseJWT(token, "secret"); err == nil {
		t.Fatal("expected an error for a token from another issuer")
	}
}

func TestParseJWTRejectsUnsignedToken(t *testing.T) {
	claims := &Claims{
		UserID: 42,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "teachtrack-backend",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, _ := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if _, err := ParseJWT(token, "secret"); err == nil {
		t.Fatal("expected an error for an alg=none token")
	}
}
