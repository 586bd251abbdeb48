package magiclink

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	id "immersion/pkg/domain"
	dErrors "immersion/pkg/domain-errors"
)

func TestGenerateAndValidate(t *testing.T) {
	svc := NewService("test-signing-key")
	conventionID := id.NewConventionID()

	token, err := svc.Generate(conventionID, id.RoleBeneficiary, "nadia@example.test", time.Hour)
	require.NoError(t, err)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	require.Equal(t, conventionID.String(), claims.ConventionID)
	require.Equal(t, string(id.RoleBeneficiary), claims.Role)
	require.Equal(t, "nadia@example.test", claims.Email)
}

func TestValidateRejectsExpired(t *testing.T) {
	svc := NewService("test-signing-key")

	token, err := svc.Generate(id.NewConventionID(), id.RoleBeneficiary, "nadia@example.test", -time.Minute)
	require.NoError(t, err)

	_, err = svc.Validate(token)
	require.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	require.ErrorContains(t, err, "expired")
}

func TestValidateRejectsWrongKey(t *testing.T) {
	token, err := NewService("key-one").Generate(id.NewConventionID(), id.RoleBeneficiary, "nadia@example.test", time.Hour)
	require.NoError(t, err)

	_, err = NewService("key-two").Validate(token)
	require.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}
