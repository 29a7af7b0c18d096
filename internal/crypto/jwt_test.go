package crypto

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestIssueAndParseAccessToken(t *testing.T) {
	token, err := IssueAccessToken("alice", "test-secret", time.Hour)
	if err != nil {
		t.Fatalf("IssueAccessToken() unexpected error: %v", err)
	}

	username, err := ParseAccessToken(token, "test-secret")
	if err != nil {
		t.Fatalf("ParseAccessToken() unexpected error: %v", err)
	}
	if username != "alice" {
		t.Errorf("ParseAccessToken() = %q, want %q", username, "alice")
	}
}

func TestParseAccessTokenRejects(t *testing.T) {
	valid, err := IssueAccessToken("alice", "right-secret", time.Hour)
	if err != nil {
		t.Fatalf("IssueAccessToken() unexpected error: %v", err)
	}
	expired, err := IssueAccessToken("alice", "right-secret", -time.Minute)
	if err != nil {
		t.Fatalf("IssueAccessToken() unexpected error: %v", err)
	}

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			Audience:  jwt.ClaimStrings{audience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Username: "alice",
	})
	foreignToken, err := foreign.SignedString([]byte("right-secret"))
	if err != nil {
		t.Fatalf("SignedString() unexpected error: %v", err)
	}

	tests := []struct {
		name   string
		token  string
		secret string
	}{
		{"garbage", "not-a-token", "right-secret"},
		{"wrong secret", valid, "wrong-secret"},
		{"expired", expired, "right-secret"},
		{"wrong issuer", foreignToken, "right-secret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseAccessToken(tt.token, tt.secret); err != ErrInvalidToken {
				t.Errorf("ParseAccessToken() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}
