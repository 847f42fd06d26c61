package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/andrevks/qrdine/internal/cache"
	"github.com/andrevks/qrdine/internal/es"
	"github.com/andrevks/qrdine/internal/models"
	"github.com/andrevks/qrdine/internal/mykafka"
	"github.com/andrevks/qrdine/internal/service/search"
	"github.com/andrevks/qrdine/internal/service/token"
	"github.com/andrevks/qrdine/internal/util"
)

type MenuHandler struct {
	DB       *gorm.DB
	Cache    *cache.RestaurantCache
	Producer *mykafka.Producer
	ES       *elasticsearch.Client
	ESIndex  string
}

type CategoryGroup struct {
	Category string            `json:"category"`
	Items    []models.MenuItem `json:"items"`
}

// GetMenu returns the restaurant's menu grouped by category, categories and
// items in alphabetical order.
func (h *MenuHandler) GetMenu(c echo.Context) error {
	restaurant, err := findRestaurantByCode(c, h.DB, h.Cache, c.Param("code"))
	if err != nil {
		return err
	}

	var items []models.MenuItem
	if err := h.DB.
		Where("restaurant_id = ?", restaurant.ID).
		Order("category ASC, name ASC").
		Find(&items).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	groups := make([]CategoryGroup, 0)
	for _, item := range items {
		if n := len(groups); n == 0 || groups[n-1].Category != item.Category {
			groups = append(groups, CategoryGroup{Category: item.Category})
		}
		last := &groups[len(groups)-1]
		last.Items = append(last.Items, item)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"restaurant": restaurant,
		"menu":       groups,
	})
}

// SearchMenu queries Elasticsearch for menu items of one restaurant.
func (h *MenuHandler) SearchMenu(c echo.Context) error {
	if h.ES == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "search unavailable")
	}

	q := c.QueryParam("q")
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query parameter q is required")
	}

	restaurant, err := findRestaurantByCode(c, h.DB, h.Cache, c.Param("code"))
	if err != nil {
		return err
	}

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	from, limit := util.Calculate(page, size)

	total, items, err := search.Search(c.Request().Context(), h.ES, h.ESIndex, restaurant.ID, q, from, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, echo.Map{"total": total, "items": items})
}

func (h *MenuHandler) indexItem(c echo.Context, item *models.MenuItem) {
	if h.ES == nil {
		return
	}
	if err := es.IndexMenuItem(c.Request().Context(), h.ES, h.ESIndex, item); err != nil {
		c.Logger().Errorf("es index error: %v", err)
	}
}

func (h *MenuHandler) ownedItem(c echo.Context, id int) (*models.MenuItem, *models.Restaurant, error) {
	userID, err := token.UserID(c)
	if err != nil {
		return nil, nil, err
	}
	restaurant, err := restaurantOf(h.DB, userID)
	if err != nil {
		return nil, nil, err
	}

	var item models.MenuItem
	if err := h.DB.Where("id = ? AND restaurant_id = ?", id, restaurant.ID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, echo.NewHTTPError(http.StatusNotFound, "menu item not found")
		}
		return nil, nil, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return &item, restaurant, nil
}

type menuItemRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	ImageURL    string  `json:"image_url"`
	ImageHint   string  `json:"image_hint"`
}

func (h *MenuHandler) CreateItem(c echo.Context) error {
	userID, err := token.UserID(c)
	if err != nil {
		return err
	}
	restaurant, err := restaurantOf(h.DB, userID)
	if err != nil {
		return err
	}

	var req menuItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Name == "" || req.Category == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name and category are required")
	}
	if req.Price < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "price must be >= 0")
	}

	item := models.MenuItem{
		RestaurantID: restaurant.ID,
		Name:         req.Name,
		Description:  req.Description,
		Price:        req.Price,
		Category:     req.Category,
		ImageURL:     req.ImageURL,
		ImageHint:    req.ImageHint,
	}
	if err := h.DB.Create(&item).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.indexItem(c, &item)
	publish(c, h.Producer, "menu_events", fmt.Sprint(restaurant.ID), map[string]any{
		"type":         "menu_item_created",
		"restaurantID": restaurant.ID,
		"menuItemID":   item.ID,
		"name":         item.Name,
	})

	return c.JSON(http.StatusCreated, item)
}

// menuItemPatch uses pointers so an omitted field stays untouched and only
// the fields present in the body are written.
type menuItemPatch struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price"`
	Category    *string  `json:"category"`
	ImageURL    *string  `json:"image_url"`
	ImageHint   *string  `json:"image_hint"`
}

func (h *MenuHandler) PatchItem(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}

	item, restaurant, err := h.ownedItem(c, id)
	if err != nil {
		return err
	}

	var req menuItemPatch
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Name != nil && *req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name must not be empty")
	}
	if req.Category != nil && *req.Category == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "category must not be empty")
	}
	if req.Price != nil && *req.Price < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "price must be >= 0")
	}

	if req.Name != nil {
		item.Name = *req.Name
	}
	if req.Category != nil {
		item.Category = *req.Category
	}
	if req.Description != nil {
		item.Description = *req.Description
	}
	if req.Price != nil {
		item.Price = *req.Price
	}
	if req.ImageURL != nil {
		item.ImageURL = *req.ImageURL
	}
	if req.ImageHint != nil {
		item.ImageHint = *req.ImageHint
	}

	if err := h.DB.Save(item).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.indexItem(c, item)
	publish(c, h.Producer, "menu_events", fmt.Sprint(restaurant.ID), map[string]any{
		"type":         "menu_item_updated",
		"restaurantID": restaurant.ID,
		"menuItemID":   item.ID,
		"name":         item.Name,
	})

	return c.JSON(http.StatusOK, item)
}

func (h *MenuHandler) DeleteItem(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}

	item, restaurant, err := h.ownedItem(c, id)
	if err != nil {
		return err
	}

	if err := h.DB.Delete(&models.MenuItem{}, item.ID).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if h.ES != nil {
		if err := es.DeleteMenuItem(c.Request().Context(), h.ES, h.ESIndex, item.ID); err != nil {
			c.Logger().Errorf("es delete error: %v", err)
		}
	}
	publish(c, h.Producer, "menu_events", fmt.Sprint(restaurant.ID), map[string]any{
		"type":         "menu_item_deleted",
		"restaurantID": restaurant.ID,
		"menuItemID":   item.ID,
	})

	return c.NoContent(http.StatusNoContent)
}
