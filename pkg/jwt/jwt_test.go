package jwt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgjwt "github.com/jhoicas/caja-api/pkg/jwt"
)

const secret = "test-secret"

func TestGenerateParse_ConservaIdentidad(t *testing.T) {
	tok, err := pkgjwt.Generate(secret, "caja-test", pkgjwt.Identity{
		UserID:         "u1",
		Name:           "Ana",
		AccountType:    "CAIXA",
		RegisterNumber: "3",
		Privileges:     map[string]bool{"DOWN_STORAGE": true},
	}, 5)
	require.NoError(t, err)

	claims, err := pkgjwt.Parse(secret, tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "Ana", claims.Name)
	assert.Equal(t, "3", claims.RegisterNumber)
	assert.True(t, claims.Privileges["DOWN_STORAGE"])
}

func TestParse_FirmaIncorrecta(t *testing.T) {
	tok, err := pkgjwt.Generate(secret, "caja-test", pkgjwt.Identity{UserID: "u1"}, 5)
	require.NoError(t, err)

	_, err = pkgjwt.Parse("otro-secret", tok)
	assert.Error(t, err)
}

func TestParse_Expirado(t *testing.T) {
	tok, err := pkgjwt.Generate(secret, "caja-test", pkgjwt.Identity{UserID: "u1"}, -1)
	require.NoError(t, err)

	_, err = pkgjwt.Parse(secret, tok)
	assert.Error(t, err)
}

func TestGenerate_SinSecret(t *testing.T) {
	_, err := pkgjwt.Generate("", "x", pkgjwt.Identity{UserID: "u1"}, 5)
	assert.Error(t, err)
}
