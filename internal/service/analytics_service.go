package service

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/fjod/go_cart/shop-api/internal/domain"
	"github.com/fjod/go_cart/shop-api/internal/pricing"
	"github.com/fjod/go_cart/shop-api/internal/store"
)

const (
	DefaultLowStockThreshold = 10
	DefaultSalesDays         = 30
	MaxSalesDays             = 365
	DefaultTopProducts       = 10
)

// AnalyticsService computes read-only reports. Revenue is the sum of the raw
// order totals of every order that was not cancelled.
type AnalyticsService struct {
	store *store.Store
	now   func() time.Time
}

func NewAnalyticsService(s *store.Store) *AnalyticsService {
	return &AnalyticsService{store: s, now: time.Now}
}

type Dashboard struct {
	TotalProducts     int                        `json:"totalProducts"`
	TotalUsers        int                        `json:"totalUsers"`
	TotalOrders       int                        `json:"totalOrders"`
	TotalRevenue      float64                    `json:"totalRevenue"`
	FormattedRevenue  string                     `json:"formattedRevenue"`
	AverageOrderValue float64                    `json:"averageOrderValue"`
	PendingOrders     int                        `json:"pendingOrders"`
	LowStockProducts  int                        `json:"lowStockProducts"`
	OrdersByStatus    map[domain.OrderStatus]int `json:"ordersByStatus"`
	TotalReviews      int                        `json:"totalReviews"`
}

type DailySales struct {
	Date    string  `json:"date"`
	Orders  int     `json:"orders"`
	Revenue float64 `json:"revenue"`
}

type SalesReport struct {
	Days         int          `json:"days"`
	TotalOrders  int          `json:"totalOrders"`
	TotalRevenue float64      `json:"totalRevenue"`
	Daily        []DailySales `json:"daily"`
}

type ProductSales struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	UnitsSold int     `json:"unitsSold"`
	Revenue   float64 `json:"revenue"`
}

type StockLevel struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	SKU       string `json:"sku,omitempty"`
	Stock     int    `json:"stock"`
}

type InventoryReport struct {
	Threshold       int          `json:"threshold"`
	TotalProducts   int          `json:"totalProducts"`
	TotalUnits      int          `json:"totalUnits"`
	InventoryValue  float64      `json:"inventoryValue"`
	OutOfStock      []StockLevel `json:"outOfStock"`
	LowStock        []StockLevel `json:"lowStock"`
	OutOfStockCount int          `json:"outOfStockCount"`
	LowStockCount   int          `json:"lowStockCount"`
}

func counted(o domain.Order) bool {
	return o.Status != domain.OrderStatusCancelled
}

func (s *AnalyticsService) Dashboard(_ context.Context) Dashboard {
	orders := s.store.Orders.FindAll()
	d := Dashboard{
		TotalProducts: s.store.Products.Count(nil),
		TotalUsers:    s.store.Users.Count(nil),
		TotalOrders:   len(orders),
		TotalReviews:  s.store.Reviews.Count(nil),
		LowStockProducts: s.store.Products.Count(func(p domain.Product) bool {
			return p.Stock < DefaultLowStockThreshold
		}),
		OrdersByStatus: make(map[domain.OrderStatus]int, len(domain.AllOrderStatuses)),
	}
	for _, st := range domain.AllOrderStatuses {
		d.OrdersByStatus[st] = 0
	}

	revenueOrders := 0
	for _, o := range orders {
		d.OrdersByStatus[o.Status]++
		if o.Status == domain.OrderStatusPending {
			d.PendingOrders++
		}
		if counted(o) {
			d.TotalRevenue += o.Totals.Total
			revenueOrders++
		}
	}
	d.TotalRevenue = pricing.Round2(d.TotalRevenue)
	d.FormattedRevenue = pricing.FormatCurrency(d.TotalRevenue)
	if revenueOrders > 0 {
		d.AverageOrderValue = pricing.Round2(d.TotalRevenue / float64(revenueOrders))
	}
	return d
}

// Sales reports orders and revenue per day for the last days days, today included.
func (s *AnalyticsService) Sales(_ context.Context, days int) (SalesReport, error) {
	if days == 0 {
		days = DefaultSalesDays
	}
	if days < 1 || days > MaxSalesDays {
		return SalesReport{}, domain.Invalid("days must be between 1 and %d", MaxSalesDays)
	}

	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	start := today.AddDate(0, 0, -(days - 1))

	report := SalesReport{Days: days, Daily: make([]DailySales, days)}
	index := make(map[string]int, days)
	for i := range days {
		date := start.AddDate(0, 0, i).Format(time.DateOnly)
		report.Daily[i] = DailySales{Date: date}
		index[date] = i
	}

	for _, o := range s.store.Orders.Find(counted) {
		i, ok := index[o.CreatedAt.In(now.Location()).Format(time.DateOnly)]
		if !ok {
			continue
		}
		report.Daily[i].Orders++
		report.Daily[i].Revenue += o.Totals.Total
		report.TotalOrders++
		report.TotalRevenue += o.Totals.Total
	}
	for i := range report.Daily {
		report.Daily[i].Revenue = pricing.Round2(report.Daily[i].Revenue)
	}
	report.TotalRevenue = pricing.Round2(report.TotalRevenue)
	return report, nil
}

// TopProducts ranks products by units sold.
func (s *AnalyticsService) TopProducts(_ context.Context, limit int) ([]ProductSales, error) {
	if limit == 0 {
		limit = DefaultTopProducts
	}
	if limit < 1 || limit > MaxPageSize {
		return nil, domain.Invalid("limit must be between 1 and %d", MaxPageSize)
	}

	byProduct := make(map[string]*ProductSales)
	var ranked []*ProductSales
	for _, o := range s.store.Orders.Find(counted) {
		for _, item := range o.Items {
			ps, ok := byProduct[item.ProductID]
			if !ok {
				ps = &ProductSales{ProductID: item.ProductID, Name: item.Name}
				byProduct[item.ProductID] = ps
				ranked = append(ranked, ps)
			}
			line := pricing.LineItem{UnitPrice: item.Price, Quantity: item.Quantity, DiscountPercent: item.DiscountPercent}
			ps.UnitsSold += item.Quantity
			ps.Revenue += line.Total()
		}
	}

	slices.SortStableFunc(ranked, func(a, b *ProductSales) int {
		if c := cmp.Compare(b.UnitsSold, a.UnitsSold); c != 0 {
			return c
		}
		return cmp.Compare(b.Revenue, a.Revenue)
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	top := make([]ProductSales, len(ranked))
	for i, ps := range ranked {
		top[i] = *ps
		top[i].Revenue = pricing.Round2(ps.Revenue)
	}
	return top, nil
}

// Inventory lists products that are out of stock or below threshold.
func (s *AnalyticsService) Inventory(_ context.Context, threshold int) (InventoryReport, error) {
	if threshold == 0 {
		threshold = DefaultLowStockThreshold
	}
	if threshold < 0 {
		return InventoryReport{}, domain.Invalid("threshold cannot be negative")
	}

	products := s.store.Products.FindAll()
	report := InventoryReport{
		Threshold:     threshold,
		TotalProducts: len(products),
		OutOfStock:    []StockLevel{},
		LowStock:      []StockLevel{},
	}
	for _, p := range products {
		report.TotalUnits += p.Stock
		report.InventoryValue += p.Price * float64(p.Stock)

		level := StockLevel{ProductID: p.ID, Name: p.Name, SKU: p.SKU, Stock: p.Stock}
		switch {
		case p.Stock == 0:
			report.OutOfStock = append(report.OutOfStock, level)
		case p.Stock < threshold:
			report.LowStock = append(report.LowStock, level)
		}
	}
	slices.SortStableFunc(report.LowStock, func(a, b StockLevel) int { return cmp.Compare(a.Stock, b.Stock) })

	report.InventoryValue = pricing.Round2(report.InventoryValue)
	report.OutOfStockCount = len(report.OutOfStock)
	report.LowStockCount = len(report.LowStock)
	return report, nil
}
