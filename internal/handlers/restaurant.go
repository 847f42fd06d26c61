package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	qrcode "github.com/skip2/go-qrcode"
	"gorm.io/gorm"

	"github.com/andrevks/qrdine/internal/cache"
	"github.com/andrevks/qrdine/internal/models"
	"github.com/andrevks/qrdine/internal/mykafka"
	"github.com/andrevks/qrdine/internal/service/token"
)

type RestaurantHandler struct {
	DB            *gorm.DB
	Cache         *cache.RestaurantCache
	Producer      *mykafka.Producer
	PublicBaseURL string
}

// CreateRestaurant registers the staff user's restaurant. One per owner,
// codes unique case-insensitively.
func (h *RestaurantHandler) CreateRestaurant(c echo.Context) error {
	userID, err := token.UserID(c)
	if err != nil {
		return err
	}

	var req struct {
		Name string `json:"name"`
		Code string `json:"code"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	req.Code = strings.TrimSpace(req.Code)
	if req.Name == "" || req.Code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name and code are required")
	}

	var existing models.Restaurant
	err = h.DB.Where("owner_id = ?", userID).First(&existing).Error
	if err == nil {
		return echo.NewHTTPError(http.StatusConflict, "restaurant already exists for this account")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	err = h.DB.Where("LOWER(code) = ?", strings.ToLower(req.Code)).First(&existing).Error
	if err == nil {
		return echo.NewHTTPError(http.StatusConflict, "code already taken")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	restaurant := models.Restaurant{
		Name:    req.Name,
		Code:    req.Code,
		OwnerID: userID,
	}
	// the LOWER(code) unique index backstops the pre-check above when two
	// creates race
	if err := h.DB.Create(&restaurant).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return echo.NewHTTPError(http.StatusConflict, "code already taken")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.Cache.Invalidate(c.Request().Context(), restaurant.Code)

	publish(c, h.Producer, "restaurant_events", fmt.Sprint(restaurant.ID), map[string]any{
		"type":         "restaurant_created",
		"restaurantID": restaurant.ID,
		"code":         restaurant.Code,
		"ownerID":      userID,
	})

	return c.JSON(http.StatusCreated, restaurant)
}

// GetByCode is the customer entry point: the code scanned from the QR placard.
func (h *RestaurantHandler) GetByCode(c echo.Context) error {
	restaurant, err := findRestaurantByCode(c, h.DB, h.Cache, c.Param("code"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, restaurant)
}

// GetMine returns the staff user's own restaurant.
func (h *RestaurantHandler) GetMine(c echo.Context) error {
	userID, err := token.UserID(c)
	if err != nil {
		return err
	}
	restaurant, err := restaurantOf(h.DB, userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, restaurant)
}

// QRCode renders the table placard PNG pointing at the customer menu URL.
func (h *RestaurantHandler) QRCode(c echo.Context) error {
	restaurant, err := findRestaurantByCode(c, h.DB, h.Cache, c.Param("code"))
	if err != nil {
		return err
	}

	target := fmt.Sprintf("%s/%s", strings.TrimRight(h.PublicBaseURL, "/"), restaurant.Code)
	size := parseIntDefault(c.QueryParam("size"), 256)
	if size < 64 || size > 1024 {
		size = 256
	}

	png, err := qrcode.Encode(target, qrcode.Medium, size)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.Blob(http.StatusOK, "image/png", png)
}
