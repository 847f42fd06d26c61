package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/andrevks/qrdine/internal/cache"
	"github.com/andrevks/qrdine/internal/models"
	"github.com/andrevks/qrdine/internal/mykafka"
)

type Response struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func errorResponse(c echo.Context, code int, err error) error {
	return c.JSON(code, Response{
		Status:  "error",
		Message: err.Error(),
	})
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

// publish sends a domain event to Kafka, best-effort. A nil producer (tests,
// broker not configured) and a failed delivery both degrade to a log line.
func publish(c echo.Context, p *mykafka.Producer, topic, key string, event map[string]any) {
	if p == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := p.PublishEvent(ctx, topic, key, event); err != nil {
		c.Logger().Errorf("kafka publish error: %v", err)
	}
}

// findRestaurantByCode resolves a human-entered restaurant code,
// case-insensitively, going through the Redis cache first.
func findRestaurantByCode(c echo.Context, db *gorm.DB, rc *cache.RestaurantCache, code string) (*models.Restaurant, error) {
	ctx := c.Request().Context()

	if r, ok := rc.Get(ctx, code); ok {
		return r, nil
	}

	var r models.Restaurant
	if err := db.Where("LOWER(code) = ?", strings.ToLower(code)).First(&r).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, echo.NewHTTPError(http.StatusNotFound, "restaurant not found")
		}
		return nil, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	rc.Set(ctx, &r)
	return &r, nil
}

// restaurantOf returns the restaurant owned by the staff user, 404 when the
// user has not created one yet.
func restaurantOf(db *gorm.DB, ownerID uint) (*models.Restaurant, error) {
	var r models.Restaurant
	if err := db.Where("owner_id = ?", ownerID).First(&r).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, echo.NewHTTPError(http.StatusNotFound, "restaurant not found")
		}
		return nil, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return &r, nil
}
