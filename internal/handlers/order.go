package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/andrevks/qrdine/internal/cache"
	"github.com/andrevks/qrdine/internal/events"
	"github.com/andrevks/qrdine/internal/models"
	"github.com/andrevks/qrdine/internal/mykafka"
	"github.com/andrevks/qrdine/internal/service/token"
	"github.com/andrevks/qrdine/internal/util"
)

type OrderHandler struct {
	DB       *gorm.DB
	Cache    *cache.RestaurantCache
	Producer *mykafka.Producer
	Hub      *events.Hub
}

// Checkout turns the current cart into an order. One transaction snapshots
// the cart rows into order items, computes the total and clears the cart, so
// a failed write leaves the cart untouched.
func (h *OrderHandler) Checkout(c echo.Context) error {
	userID, err := token.UserID(c)
	if err != nil {
		return err
	}

	var req struct {
		RestaurantCode string `json:"restaurant_code"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.RestaurantCode == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "restaurant_code is required")
	}

	restaurant, err := findRestaurantByCode(c, h.DB, h.Cache, req.RestaurantCode)
	if err != nil {
		return err
	}

	var user models.User
	if err := h.DB.First(&user, userID).Error; err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "unknown user")
	}

	var order models.Order
	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		var items []models.CartItem
		if err := tx.Where("user_id = ?", userID).Order("id ASC").Find(&items).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		if len(items) == 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "no items in cart")
		}

		var total float64
		orderItems := make([]models.OrderItem, 0, len(items))
		for _, it := range items {
			total += it.Price * float64(it.Quantity)
			orderItems = append(orderItems, models.OrderItem{
				MenuItemID: it.MenuItemID,
				Name:       it.Name,
				Price:      it.Price,
				Quantity:   it.Quantity,
			})
		}

		order = models.Order{
			Number:        uuid.NewString(),
			RestaurantID:  restaurant.ID,
			UserID:        userID,
			CustomerName:  user.Name,
			CustomerEmail: user.Email,
			Total:         total,
			Status:        models.OrderStatusNew,
			CreatedAt:     time.Now().Unix(),
			Items:         orderItems,
		}
		if err := tx.Create(&order).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}

		if err := tx.Where("user_id = ?", userID).Delete(&models.CartItem{}).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return nil
	})
	if txErr != nil {
		if he, ok := txErr.(*echo.HTTPError); ok {
			return he
		}
		return echo.NewHTTPError(http.StatusInternalServerError, txErr.Error())
	}

	publish(c, h.Producer, "order_events", fmt.Sprint(order.ID), map[string]any{
		"type":         "order_created",
		"orderID":      order.ID,
		"number":       order.Number,
		"restaurantID": restaurant.ID,
		"userID":       userID,
		"total":        order.Total,
	})

	return c.JSON(http.StatusCreated, order)
}

// ListOrders is the customer's order history, newest first.
func (h *OrderHandler) ListOrders(c echo.Context) error {
	userID, err := token.UserID(c)
	if err != nil {
		return err
	}

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	var orders []models.Order
	if err := h.DB.
		Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&orders).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, orders)
}

// loadOrder fetches the order and checks that the caller may see it: the
// owning customer, or staff owning the restaurant.
func (h *OrderHandler) loadOrder(c echo.Context, id int) (*models.Order, error) {
	userID, err := token.UserID(c)
	if err != nil {
		return nil, err
	}

	var order models.Order
	if err := h.DB.Preload("Items").First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, echo.NewHTTPError(http.StatusNotFound, "order not found")
		}
		return nil, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if order.UserID == userID {
		return &order, nil
	}
	if token.Role(c) == models.RoleStaff {
		restaurant, err := restaurantOf(h.DB, userID)
		if err == nil && restaurant.ID == order.RestaurantID {
			return &order, nil
		}
	}
	return nil, echo.NewHTTPError(http.StatusForbidden, "not your order")
}

func (h *OrderHandler) GetOrder(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	order, err := h.loadOrder(c, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, order)
}

// StreamOrder pushes status snapshots over SSE until the client disconnects.
func (h *OrderHandler) StreamOrder(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	order, err := h.loadOrder(c, id)
	if err != nil {
		return err
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)

	ch, unsubscribe := h.Hub.Subscribe(order.ID)
	defer unsubscribe()

	writeSnapshot := func(snap events.OrderSnapshot) error {
		data, err := json.Marshal(snap)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(res, "data: %s\n\n", data); err != nil {
			return err
		}
		res.Flush()
		return nil
	}

	// current state first, so late subscribers do not miss the status they
	// joined in.
	if err := writeSnapshot(events.OrderSnapshot{OrderID: order.ID, Status: order.Status, Rating: order.Rating}); err != nil {
		return nil
	}

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-ch:
			if !ok {
				return nil
			}
			if err := writeSnapshot(snap); err != nil {
				return nil
			}
		}
	}
}

// StaffQueue lists the restaurant's orders, optionally filtered by status.
func (h *OrderHandler) StaffQueue(c echo.Context) error {
	userID, err := token.UserID(c)
	if err != nil {
		return err
	}
	restaurant, err := restaurantOf(h.DB, userID)
	if err != nil {
		return err
	}

	q := h.DB.Preload("Items").Where("restaurant_id = ?", restaurant.ID)
	if status := c.QueryParam("status"); status != "" {
		q = q.Where("status = ?", status)
	}

	var orders []models.Order
	if err := q.Order("created_at ASC").Find(&orders).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, orders)
}

// Advance moves the order exactly one step forward. The target status is
// derived from the current one, so skipping or reversing is impossible;
// advancing a completed order is a conflict.
func (h *OrderHandler) Advance(c echo.Context) error {
	userID, err := token.UserID(c)
	if err != nil {
		return err
	}
	restaurant, err := restaurantOf(h.DB, userID)
	if err != nil {
		return err
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var order models.Order
	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND restaurant_id = ?", id, restaurant.ID).First(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return echo.NewHTTPError(http.StatusNotFound, "order not found")
			}
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}

		next := models.NextStatus(order.Status)
		if next == "" {
			return echo.NewHTTPError(http.StatusConflict, "order already completed")
		}

		// guard against a concurrent advance landing first
		result := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", order.ID, order.Status).
			Update("status", next)
		if result.Error != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, result.Error.Error())
		}
		if result.RowsAffected == 0 {
			return echo.NewHTTPError(http.StatusConflict, "order status changed concurrently")
		}
		order.Status = next
		return nil
	})
	if txErr != nil {
		if he, ok := txErr.(*echo.HTTPError); ok {
			return he
		}
		return echo.NewHTTPError(http.StatusInternalServerError, txErr.Error())
	}

	h.Hub.Publish(events.OrderSnapshot{OrderID: order.ID, Status: order.Status, Rating: order.Rating})
	publish(c, h.Producer, "order_events", fmt.Sprint(order.ID), map[string]any{
		"type":    "order_status_updated",
		"orderID": order.ID,
		"status":  order.Status,
	})

	return c.JSON(http.StatusOK, order)
}

// Rate attaches the customer's rating and review to a completed order. One
// shot: a second submission is rejected.
func (h *OrderHandler) Rate(c echo.Context) error {
	userID, err := token.UserID(c)
	if err != nil {
		return err
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var req struct {
		Rating int    `json:"rating"`
		Review string `json:"review"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	rating := req.Rating
	if rating < 1 {
		rating = 1
	}
	if rating > 5 {
		rating = 5
	}

	var order models.Order
	if err := h.DB.First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if order.UserID != userID {
		return echo.NewHTTPError(http.StatusForbidden, "not your order")
	}
	if order.Status != models.OrderStatusCompleted {
		return echo.NewHTTPError(http.StatusConflict, "order is not completed yet")
	}
	// rating IS NULL in the predicate guards against a concurrent duplicate
	// submission, the same way Advance guards the status column.
	result := h.DB.Model(&models.Order{}).
		Where("id = ? AND rating IS NULL", order.ID).
		Updates(map[string]any{"rating": rating, "review": req.Review})
	if result.Error != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, result.Error.Error())
	}
	if result.RowsAffected == 0 {
		return echo.NewHTTPError(http.StatusConflict, "order already rated")
	}
	order.Rating = &rating
	order.Review = req.Review

	h.Hub.Publish(events.OrderSnapshot{OrderID: order.ID, Status: order.Status, Rating: order.Rating})
	publish(c, h.Producer, "order_events", fmt.Sprint(order.ID), map[string]any{
		"type":    "order_rated",
		"orderID": order.ID,
		"rating":  rating,
	})

	return c.JSON(http.StatusOK, order)
}
