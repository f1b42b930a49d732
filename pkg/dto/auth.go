package dto

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dgrijalva/jwt-go"
)

type Auth struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

func (a Auth) IsValid() error {
	var loginErr, passwordErr error

	if strings.TrimSpace(a.Login) == "" {
		loginErr = fmt.Errorf("login is required")
	}

	if strings.TrimSpace(a.Password) == "" {
		passwordErr = fmt.Errorf("password is required")
	}

	return errors.Join(loginErr, passwordErr)
}

// Claims is the payload of the bearer token.
type Claims struct {
	Role string `json:"role"`
	jwt.StandardClaims
}

type Token struct {
	Token string `json:"token"`
}
