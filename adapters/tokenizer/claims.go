package tokenizer

import "github.com/golang-jwt/jwt/v5"

// AccessClaims combines standard claims with the subject fields the gate needs
type AccessClaims struct {
	jwt.RegisteredClaims
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
}
