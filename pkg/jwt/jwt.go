package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims incluye los claims estándar JWT más la identidad del operador y sus privilegios.
// El middleware arma el llamador sin consultar la DB.
type Claims struct {
	jwt.RegisteredClaims
	UserID         string          `json:"user_id"`
	Name           string          `json:"name,omitempty"`
	AccountType    string          `json:"account_type"`
	RegisterNumber string          `json:"register_number,omitempty"` // caja asignada (cuentas CAIXA)
	Privileges     map[string]bool `json:"privileges,omitempty"`
}

// Identity datos del operador que se firman en el token.
type Identity struct {
	UserID         string
	Name           string
	AccountType    string
	RegisterNumber string
	Privileges     map[string]bool
}

// Generate genera un token JWT HS256 firmado con la identidad del operador.
func Generate(secret, issuer string, id Identity, expMinutes int) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("jwt: secret vacío")
	}
	if id.UserID == "" {
		return "", fmt.Errorf("jwt: user_id vacío")
	}
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(expMinutes) * time.Minute)),
		},
		UserID:         id.UserID,
		Name:           id.Name,
		AccountType:    id.AccountType,
		RegisterNumber: id.RegisterNumber,
		Privileges:     id.Privileges,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// Parse valida el token y devuelve sus claims.
// Retorna error si el token es inválido, expirado o tiene firma incorrecta.
func Parse(secret, tokenString string) (*Claims, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt: secret vacío")
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("método de firma inesperado: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("claims inválidos")
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("claims sin user_id")
	}
	return claims, nil
}
