package token

import (
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/andrevks/qrdine/internal/models"
)

var dbSeq int

func testDB(t *testing.T) *gorm.DB {
	dbSeq++
	dsn := fmt.Sprintf("file:token_test_%d?mode=memory&cache=shared", dbSeq)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.RefreshToken{}))
	return db
}

func TestRotateTokenRevokesOldToken(t *testing.T) {
	db := testDB(t)
	svc := &TokenService{
		DB:            db,
		JWTSecret:     []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
	}

	refresh, err := SignRefreshToken(1, models.RoleCustomer, svc.RefreshSecret)
	require.NoError(t, err)
	require.NoError(t, SaveRefreshToken(db, refresh, 1, models.RoleCustomer))

	newAccess, newRefresh, claims, err := svc.RotateToken(refresh)
	require.NoError(t, err)
	require.NotEmpty(t, newAccess)
	require.NotEmpty(t, newRefresh)
	require.NotEqual(t, refresh, newRefresh)
	require.Equal(t, float64(1), claims["sub"])

	// old token is now revoked, rotating again fails
	_, _, _, err = svc.RotateToken(refresh)
	require.Error(t, err)

	// the new token still works
	_, _, _, err = svc.RotateToken(newRefresh)
	require.NoError(t, err)
}

func TestValidateRefreshRejectsAccessToken(t *testing.T) {
	db := testDB(t)
	secret := []byte("refresh-secret")

	access, err := SignAccessToken(1, models.RoleCustomer, secret)
	require.NoError(t, err)

	_, err = ValidateRefresh(access, secret, db)
	require.Error(t, err)
}

func TestValidateRefreshUnknownToken(t *testing.T) {
	db := testDB(t)
	secret := []byte("refresh-secret")

	refresh, err := SignRefreshToken(1, models.RoleCustomer, secret)
	require.NoError(t, err)
	// never saved

	_, err = ValidateRefresh(refresh, secret, db)
	require.Error(t, err)
}

func TestValidateRefreshWrongSecret(t *testing.T) {
	db := testDB(t)

	refresh, err := SignRefreshToken(1, models.RoleCustomer, []byte("secret-a"))
	require.NoError(t, err)
	require.NoError(t, SaveRefreshToken(db, refresh, 1, models.RoleCustomer))

	_, err = ValidateRefresh(refresh, []byte("secret-b"), db)
	require.Error(t, err)
}
