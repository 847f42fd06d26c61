package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/andrevks/qrdine/internal/models"
)

func checkoutEnv(t *testing.T) (*testEnv, *models.User, *models.Restaurant) {
	env := newTestEnv(t)
	staff := env.createUser("Bia", "bia@example.com", models.RoleStaff)
	restaurant := env.createRestaurant(staff, "Cantina", "cantina")
	customer := env.createUser("Ana", "ana@example.com", models.RoleCustomer)
	return env, customer, restaurant
}

func TestCheckoutSnapshotsCartAndClearsIt(t *testing.T) {
	env, customer, restaurant := checkoutEnv(t)

	burger := env.createMenuItem(restaurant, "Burger", "Mains", 12.99)
	salad := env.createMenuItem(restaurant, "Salad", "Starters", 8.00)
	env.DB.Create(&models.CartItem{UserID: customer.ID, MenuItemID: burger.ID, Name: "Burger", Price: 12.99, Quantity: 2})
	env.DB.Create(&models.CartItem{UserID: customer.ID, MenuItemID: salad.ID, Name: "Salad", Price: 8.00, Quantity: 1})

	rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/orders", map[string]any{"restaurant_code": "cantina"})
	asUser(c, customer)
	require.NoError(t, env.Order.Checkout(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var order models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &order))
	require.InDelta(t, 33.98, order.Total, 0.001)
	require.Equal(t, models.OrderStatusNew, order.Status)
	require.Equal(t, restaurant.ID, order.RestaurantID)
	require.Equal(t, "Ana", order.CustomerName)
	require.NotEmpty(t, order.Number)
	require.Len(t, order.Items, 2)

	var cartCount int64
	env.DB.Model(&models.CartItem{}).Where("user_id = ?", customer.ID).Count(&cartCount)
	require.Equal(t, int64(0), cartCount)
}

func TestCheckoutEmptyCart(t *testing.T) {
	env, customer, _ := checkoutEnv(t)

	_, c := env.doJSONRequest(http.MethodPost, "/api/v1/orders", map[string]any{"restaurant_code": "cantina"})
	asUser(c, customer)
	err := env.Order.Checkout(c)
	require.Error(t, err)
	require.Equal(t, http.StatusBadRequest, httpStatus(t, err))
}

func TestCheckoutTotalSurvivesMenuPriceChange(t *testing.T) {
	env, customer, restaurant := checkoutEnv(t)

	burger := env.createMenuItem(restaurant, "Burger", "Mains", 12.99)
	env.DB.Create(&models.CartItem{UserID: customer.ID, MenuItemID: burger.ID, Name: "Burger", Price: 12.99, Quantity: 1})

	rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/orders", map[string]any{"restaurant_code": "cantina"})
	asUser(c, customer)
	require.NoError(t, env.Order.Checkout(c))

	var order models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &order))

	// menu price goes up, the placed order does not move
	env.DB.Model(&models.MenuItem{}).Where("id = ?", burger.ID).Update("price", 99.99)

	var reloaded models.Order
	require.NoError(t, env.DB.Preload("Items").First(&reloaded, order.ID).Error)
	require.InDelta(t, 12.99, reloaded.Total, 0.001)
	require.InDelta(t, 12.99, reloaded.Items[0].Price, 0.001)
}

func placeOrder(t *testing.T, env *testEnv, customer *models.User, restaurant *models.Restaurant, status string) *models.Order {
	order := &models.Order{
		Number:       "order-" + status,
		RestaurantID: restaurant.ID,
		UserID:       customer.ID,
		Total:        10,
		Status:       status,
		CreatedAt:    1700000000,
		Items: []models.OrderItem{
			{MenuItemID: 1, Name: "Burger", Price: 10, Quantity: 1},
		},
	}
	require.NoError(t, env.DB.Create(order).Error)
	return order
}

func advance(t *testing.T, env *testEnv, staff *models.User, orderID string) (*models.Order, error) {
	rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/staff/orders/"+orderID+"/advance", nil)
	asUser(c, staff)
	c.SetParamNames("id")
	c.SetParamValues(orderID)
	if err := env.Order.Advance(c); err != nil {
		return nil, err
	}
	var order models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &order))
	return &order, nil
}

func TestAdvanceWalksTheLifecycleForwardOnly(t *testing.T) {
	env, customer, restaurant := checkoutEnv(t)
	var staff models.User
	require.NoError(t, env.DB.Where("role = ?", models.RoleStaff).First(&staff).Error)

	placed := placeOrder(t, env, customer, restaurant, models.OrderStatusNew)

	want := []string{
		models.OrderStatusInProgress,
		models.OrderStatusReady,
		models.OrderStatusCompleted,
	}
	for _, expected := range want {
		order, err := advance(t, env, &staff, "1")
		require.NoError(t, err)
		require.Equal(t, expected, order.Status)
	}

	// terminal state: one more advance conflicts
	_, err := advance(t, env, &staff, "1")
	require.Error(t, err)
	require.Equal(t, http.StatusConflict, httpStatus(t, err))

	var reloaded models.Order
	require.NoError(t, env.DB.First(&reloaded, placed.ID).Error)
	require.Equal(t, models.OrderStatusCompleted, reloaded.Status)
}

func TestAdvanceForeignRestaurantOrder(t *testing.T) {
	env, customer, restaurant := checkoutEnv(t)
	placeOrder(t, env, customer, restaurant, models.OrderStatusNew)

	other := env.createUser("Eve", "eve@example.com", models.RoleStaff)
	env.createRestaurant(other, "Other", "other")

	_, err := advance(t, env, other, "1")
	require.Error(t, err)
	require.Equal(t, http.StatusNotFound, httpStatus(t, err))
}

func rate(env *testEnv, user *models.User, orderID string, rating int, review string) (*httptest.ResponseRecorder, error) {
	rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/orders/"+orderID+"/rating", map[string]any{
		"rating": rating,
		"review": review,
	})
	asUser(c, user)
	c.SetParamNames("id")
	c.SetParamValues(orderID)
	return rec, env.Order.Rate(c)
}

func TestRateOnlyWhenCompleted(t *testing.T) {
	env, customer, restaurant := checkoutEnv(t)
	placeOrder(t, env, customer, restaurant, models.OrderStatusReady)

	_, err := rate(env, customer, "1", 5, "Great")
	require.Error(t, err)
	require.Equal(t, http.StatusConflict, httpStatus(t, err))
}

func TestRateCompletedOrderOnce(t *testing.T) {
	env, customer, restaurant := checkoutEnv(t)
	placeOrder(t, env, customer, restaurant, models.OrderStatusCompleted)

	rec, err := rate(env, customer, "1", 5, "Great")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)

	var order models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &order))
	require.NotNil(t, order.Rating)
	require.Equal(t, 5, *order.Rating)
	require.Equal(t, "Great", order.Review)

	// second submission conflicts and the stored rating does not move
	_, err = rate(env, customer, "1", 4, "Changed my mind")
	require.Error(t, err)
	require.Equal(t, http.StatusConflict, httpStatus(t, err))

	var reloaded models.Order
	require.NoError(t, env.DB.First(&reloaded, order.ID).Error)
	require.Equal(t, 5, *reloaded.Rating)
	require.Equal(t, "Great", reloaded.Review)
}

func TestRateLosesRaceToEarlierRating(t *testing.T) {
	env, customer, restaurant := checkoutEnv(t)
	placed := placeOrder(t, env, customer, restaurant, models.OrderStatusCompleted)

	// another submission lands between this handler's read and its write
	require.NoError(t, env.DB.Model(&models.Order{}).
		Where("id = ?", placed.ID).
		Update("rating", 4).Error)

	_, err := rate(env, customer, "1", 5, "")
	require.Error(t, err)
	require.Equal(t, http.StatusConflict, httpStatus(t, err))

	var reloaded models.Order
	require.NoError(t, env.DB.First(&reloaded, placed.ID).Error)
	require.Equal(t, 4, *reloaded.Rating)
}

func TestRateClampsToRange(t *testing.T) {
	env, customer, restaurant := checkoutEnv(t)
	placeOrder(t, env, customer, restaurant, models.OrderStatusCompleted)

	rec, err := rate(env, customer, "1", 12, "")
	require.NoError(t, err)

	var order models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &order))
	require.Equal(t, 5, *order.Rating)
}

func TestRateForeignOrderForbidden(t *testing.T) {
	env, customer, restaurant := checkoutEnv(t)
	placeOrder(t, env, customer, restaurant, models.OrderStatusCompleted)

	stranger := env.createUser("Eve", "eve@example.com", models.RoleCustomer)
	_, err := rate(env, stranger, "1", 5, "")
	require.Error(t, err)
	require.Equal(t, http.StatusForbidden, httpStatus(t, err))
}

func TestStaffQueueFiltersByStatus(t *testing.T) {
	env, customer, restaurant := checkoutEnv(t)
	var staff models.User
	require.NoError(t, env.DB.Where("role = ?", models.RoleStaff).First(&staff).Error)

	placeOrder(t, env, customer, restaurant, models.OrderStatusNew)
	o2 := placeOrder(t, env, customer, restaurant, models.OrderStatusReady)

	rec, c := env.doJSONRequest(http.MethodGet, "/api/v1/staff/orders?status=ready", nil)
	asUser(c, &staff)
	c.QueryParams().Set("status", models.OrderStatusReady)
	require.NoError(t, env.Order.StaffQueue(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var orders []models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &orders))
	require.Len(t, orders, 1)
	require.Equal(t, o2.ID, orders[0].ID)
}

func TestListOrdersNewestFirst(t *testing.T) {
	env, customer, restaurant := checkoutEnv(t)

	first := placeOrder(t, env, customer, restaurant, models.OrderStatusCompleted)
	second := &models.Order{
		Number:       "order-later",
		RestaurantID: restaurant.ID,
		UserID:       customer.ID,
		Total:        20,
		Status:       models.OrderStatusNew,
		CreatedAt:    first.CreatedAt + 60,
	}
	require.NoError(t, env.DB.Create(second).Error)

	rec, c := env.doJSONRequest(http.MethodGet, "/api/v1/orders", nil)
	asUser(c, customer)
	require.NoError(t, env.Order.ListOrders(c))

	var orders []models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &orders))
	require.Len(t, orders, 2)
	require.Equal(t, second.ID, orders[0].ID)
	require.Equal(t, first.ID, orders[1].ID)
}
