package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/andrevks/qrdine/internal/models"
	"github.com/andrevks/qrdine/internal/service/kpi"
	"github.com/andrevks/qrdine/internal/service/token"
)

type KPIHandler struct {
	DB *gorm.DB
}

func (h *KPIHandler) report(c echo.Context) (*kpi.Report, error) {
	userID, err := token.UserID(c)
	if err != nil {
		return nil, err
	}
	restaurant, err := restaurantOf(h.DB, userID)
	if err != nil {
		return nil, err
	}

	var orders []models.Order
	if err := h.DB.
		Preload("Items").
		Where("restaurant_id = ? AND status = ?", restaurant.ID, models.OrderStatusCompleted).
		Find(&orders).Error; err != nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	report := kpi.Aggregate(orders)
	return &report, nil
}

func (h *KPIHandler) GetKPIs(c echo.Context) error {
	report, err := h.report(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report)
}

// Export writes the report as a two-sheet XLSX download.
func (h *KPIHandler) Export(c echo.Context) error {
	report, err := h.report(c)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	const revenueSheet = "Daily Revenue"
	const itemsSheet = "Top Items"

	f.SetSheetName("Sheet1", revenueSheet)
	f.SetCellValue(revenueSheet, "A1", "Date")
	f.SetCellValue(revenueSheet, "B1", "Total Revenue")
	for i, row := range report.DailyRevenue {
		f.SetCellValue(revenueSheet, fmt.Sprintf("A%d", i+2), row.Date)
		f.SetCellValue(revenueSheet, fmt.Sprintf("B%d", i+2), row.Total)
	}

	if _, err := f.NewSheet(itemsSheet); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	f.SetCellValue(itemsSheet, "A1", "Item")
	f.SetCellValue(itemsSheet, "B1", "Quantity Sold")
	for i, row := range report.TopItems {
		f.SetCellValue(itemsSheet, fmt.Sprintf("A%d", i+2), row.Name)
		f.SetCellValue(itemsSheet, fmt.Sprintf("B%d", i+2), row.Quantity)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="kpi_report.xlsx"`)
	return c.Blob(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		buf.Bytes())
}
