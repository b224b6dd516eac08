package csrf

import "testing"

func TestToken(t *testing.T) {
	token := Token("user-1", "secret")

	if token == "" {
		t.Fatal("Token() returned empty token")
	}
	if token != Token("user-1", "secret") {
		t.Error("Token() should be stable for the same user and secret")
	}
	if token == Token("user-2", "secret") {
		t.Error("Token() should differ per user")
	}
	if token == Token("user-1", "other-secret") {
		t.Error("Token() should differ per secret")
	}
}

func TestValid(t *testing.T) {
	token := Token("user-1", "secret")

	tests := []struct {
		name   string
		token  string
		userID string
		want   bool
	}{
		{"matching token", token, "user-1", true},
		{"wrong user", token, "user-2", false},
		{"tampered token", token + "x", "user-1", false},
		{"empty token", "", "user-1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Valid(tt.token, tt.userID, "secret"); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}
