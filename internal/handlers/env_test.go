package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/andrevks/qrdine/internal/config"
	"github.com/andrevks/qrdine/internal/events"
	"github.com/andrevks/qrdine/internal/hash"
	"github.com/andrevks/qrdine/internal/models"
)

type testEnv struct {
	T          *testing.T
	E          *echo.Echo
	DB         *gorm.DB
	Auth       *AuthHandler
	Restaurant *RestaurantHandler
	Menu       *MenuHandler
	Cart       *CartHandler
	Order      *OrderHandler
	KPI        *KPIHandler
	Hub        *events.Hub
}

var testEnvSeq int

func newTestEnv(t *testing.T) *testEnv {
	testEnvSeq++
	dsn := fmt.Sprintf("file:handlers_test_%d?mode=memory&cache=shared", testEnvSeq)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))

	hub := events.NewHub()
	jwtSecret := []byte("test-secret")
	refreshSecret := []byte("test-refresh-secret")

	return &testEnv{
		T:          t,
		E:          echo.New(),
		DB:         db,
		Auth:       &AuthHandler{DB: db, JWTSecret: jwtSecret, RefreshSecret: refreshSecret},
		Restaurant: &RestaurantHandler{DB: db, PublicBaseURL: "http://localhost:3000"},
		Menu:       &MenuHandler{DB: db, ESIndex: "menu_items"},
		Cart:       &CartHandler{DB: db},
		Order:      &OrderHandler{DB: db, Hub: hub},
		KPI:        &KPIHandler{DB: db},
		Hub:        hub,
	}
}

func (env *testEnv) doJSONRequest(method, target string, body any) (*httptest.ResponseRecorder, echo.Context) {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(env.T, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := env.E.NewContext(req, rec)
	return rec, c
}

// asUser plants the auth context values the login middleware would set.
func asUser(c echo.Context, u *models.User) {
	c.Set("userID", u.ID)
	c.Set("role", u.Role)
}

func (env *testEnv) createUser(name, email, role string) *models.User {
	passwordHash, err := hash.HashPassword("password123")
	require.NoError(env.T, err)
	u := &models.User{Name: name, Email: email, PasswordHash: passwordHash, Role: role}
	require.NoError(env.T, env.DB.Create(u).Error)
	return u
}

func (env *testEnv) createRestaurant(owner *models.User, name, code string) *models.Restaurant {
	r := &models.Restaurant{Name: name, Code: code, OwnerID: owner.ID}
	require.NoError(env.T, env.DB.Create(r).Error)
	return r
}

func (env *testEnv) createMenuItem(r *models.Restaurant, name, category string, price float64) *models.MenuItem {
	item := &models.MenuItem{
		RestaurantID: r.ID,
		Name:         name,
		Description:  name + " description",
		Price:        price,
		Category:     category,
	}
	require.NoError(env.T, env.DB.Create(item).Error)
	return item
}

func httpStatus(t *testing.T, err error) int {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected *echo.HTTPError, got %v", err)
	return he.Code
}
