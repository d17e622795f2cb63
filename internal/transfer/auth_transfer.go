package transfer

import "github.com/golang-jwt/jwt/v5"

const (
	PurposeSession    = "session"
	PurposeOAuthState = "oauth_state"
	PurposeLoginState = "login_state"
)

type CustomClaims struct {
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

type GoogleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}
