package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/andrevks/qrdine/internal/models"
	"github.com/andrevks/qrdine/internal/mykafka"
	"github.com/andrevks/qrdine/internal/service/token"
)

type CartHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
}

// CartTotals derives the two display values from the current rows. Pure
// reduction, recomputed on every read.
func CartTotals(items []models.CartItem) (total float64, count uint) {
	for _, it := range items {
		total += it.Price * float64(it.Quantity)
		count += it.Quantity
	}
	return total, count
}

func (h *CartHandler) GetCart(c echo.Context) error {
	userID, err := token.UserID(c)
	if err != nil {
		return err
	}

	var items []models.CartItem
	if err := h.DB.Where("user_id = ?", userID).Order("id ASC").Find(&items).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	total, count := CartTotals(items)
	return c.JSON(http.StatusOK, echo.Map{
		"items":      items,
		"total":      total,
		"item_count": count,
	})
}

// AddToCart puts one unit of a menu item into the cart. An existing row for
// the same menu item gains quantity 1, otherwise a snapshot row is created.
// The read-modify-write runs in a transaction so rapid duplicate adds land
// on a single row.
func (h *CartHandler) AddToCart(c echo.Context) error {
	userID, err := token.UserID(c)
	if err != nil {
		return err
	}

	var req struct {
		MenuItemID uint `json:"menu_item_id"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.MenuItemID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "menu_item_id is required")
	}

	var result models.CartItem
	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		var item models.CartItem
		err := tx.Where("user_id = ? AND menu_item_id = ?", userID, req.MenuItemID).First(&item).Error
		if err == nil {
			item.Quantity += 1
			if err := tx.Save(&item).Error; err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
			}
			result = item
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}

		var menuItem models.MenuItem
		if err := tx.First(&menuItem, req.MenuItemID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return echo.NewHTTPError(http.StatusNotFound, "menu item not found")
			}
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}

		newItem := models.CartItem{
			UserID:      userID,
			MenuItemID:  menuItem.ID,
			Name:        menuItem.Name,
			Price:       menuItem.Price,
			Quantity:    1,
			ImageURL:    menuItem.ImageURL,
			Description: menuItem.Description,
			Category:    menuItem.Category,
		}
		if err := tx.Create(&newItem).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		result = newItem
		return nil
	})
	if txErr != nil {
		if he, ok := txErr.(*echo.HTTPError); ok {
			return he
		}
		return echo.NewHTTPError(http.StatusInternalServerError, txErr.Error())
	}

	publish(c, h.Producer, "cart_events", fmt.Sprint(userID), map[string]any{
		"type":       "cart_item_added",
		"userID":     userID,
		"menuItemID": req.MenuItemID,
		"quantity":   result.Quantity,
	})
	return c.JSON(http.StatusOK, result)
}

// UpdateQuantity sets the row's quantity. Zero or less deletes the row,
// matching removeFromCart.
func (h *CartHandler) UpdateQuantity(c echo.Context) error {
	userID, err := token.UserID(c)
	if err != nil {
		return err
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	var item models.CartItem
	if err := h.DB.Where("id = ? AND user_id = ?", id, userID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "cart item not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if req.Quantity <= 0 {
		if err := h.DB.Delete(&item).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		publish(c, h.Producer, "cart_events", fmt.Sprint(userID), map[string]any{
			"type":   "cart_item_removed",
			"userID": userID,
			"id":     item.ID,
		})
		return c.JSON(http.StatusOK, echo.Map{"deleted_item": item.ID})
	}

	item.Quantity = uint(req.Quantity)
	if err := h.DB.Save(&item).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	publish(c, h.Producer, "cart_events", fmt.Sprint(userID), map[string]any{
		"type":         "cart_quantity_updated",
		"userID":       userID,
		"id":           item.ID,
		"new_quantity": item.Quantity,
	})
	return c.JSON(http.StatusOK, item)
}

func (h *CartHandler) RemoveFromCart(c echo.Context) error {
	userID, err := token.UserID(c)
	if err != nil {
		return err
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	if err := h.DB.
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.CartItem{}).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	publish(c, h.Producer, "cart_events", fmt.Sprint(userID), map[string]any{
		"type":   "cart_item_removed",
		"userID": userID,
		"id":     id,
	})
	return c.NoContent(http.StatusNoContent)
}

// ClearCart removes every row of the user in one batched delete.
func (h *CartHandler) ClearCart(c echo.Context) error {
	userID, err := token.UserID(c)
	if err != nil {
		return err
	}

	if err := h.DB.Where("user_id = ?", userID).Delete(&models.CartItem{}).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	publish(c, h.Producer, "cart_events", fmt.Sprint(userID), map[string]any{
		"type":   "cart_cleared",
		"userID": userID,
	})
	return c.NoContent(http.StatusNoContent)
}
