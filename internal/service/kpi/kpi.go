// Package kpi reduces a restaurant's completed orders into the two report
// series staff see on the dashboard: revenue per calendar day and the top
// selling items. The reduction is pure and recomputed in full on every view.
package kpi

import (
	"math"
	"sort"
	"time"

	"github.com/andrevks/qrdine/internal/models"
)

const TopItemsLimit = 5

type DailyRevenue struct {
	Date  string  `json:"date"`
	Total float64 `json:"total"`
}

type TopItem struct {
	MenuItemID uint   `json:"menu_item_id"`
	Name       string `json:"name"`
	Quantity   uint   `json:"quantity"`
}

type Report struct {
	DailyRevenue []DailyRevenue `json:"daily_revenue"`
	TopItems     []TopItem      `json:"top_items"`
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Aggregate builds the report from completed orders. Orders in any other
// status are ignored so callers may pass an unfiltered slice.
func Aggregate(orders []models.Order) Report {
	revenue := make(map[string]float64)
	type itemAgg struct {
		name     string
		quantity uint
	}
	items := make(map[uint]*itemAgg)

	for _, o := range orders {
		if o.Status != models.OrderStatusCompleted {
			continue
		}

		day := time.Unix(o.CreatedAt, 0).Format("2006-01-02")
		revenue[day] += o.Total

		for _, it := range o.Items {
			if agg, ok := items[it.MenuItemID]; ok {
				agg.quantity += it.Quantity
			} else {
				items[it.MenuItemID] = &itemAgg{name: it.Name, quantity: it.Quantity}
			}
		}
	}

	daily := make([]DailyRevenue, 0, len(revenue))
	for day, total := range revenue {
		daily = append(daily, DailyRevenue{Date: day, Total: round2(total)})
	}
	sort.Slice(daily, func(i, j int) bool { return daily[i].Date < daily[j].Date })

	top := make([]TopItem, 0, len(items))
	for id, agg := range items {
		top = append(top, TopItem{MenuItemID: id, Name: agg.name, Quantity: agg.quantity})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Quantity != top[j].Quantity {
			return top[i].Quantity > top[j].Quantity
		}
		return top[i].Name < top[j].Name
	})
	if len(top) > TopItemsLimit {
		top = top[:TopItemsLimit]
	}

	return Report{DailyRevenue: daily, TopItems: top}
}
