// controllers/report.go
package controllers

import (
	"net/http"
	"strconv"
	"time"

	"salonportal-backend/config"
	"salonportal-backend/models"
	"salonportal-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ReportController serves turnover analytics built from normalized sales.
type ReportController struct {
	now func() time.Time
}

func NewReportController() *ReportController {
	return &ReportController{now: time.Now}
}

// TurnoverSummary compares the current month, quarter and year to date
// with the same periods of the prior year.
type TurnoverSummary struct {
	SalonID              uuid.UUID         `json:"salonId"`
	LatestPeriod         string            `json:"latestPeriod"`
	CurrentMonth         float64           `json:"currentMonth"`
	MonthGrowth          *float64          `json:"monthGrowth"`
	CurrentQuarter       float64           `json:"currentQuarter"`
	QuarterGrowth        *float64          `json:"quarterGrowth"`
	YearToDate           float64           `json:"yearToDate"`
	YearGrowth           *float64          `json:"yearGrowth"`
	TopBrands            []BrandTurnover   `json:"topBrands"`
	Suppliers            []SupplierSummary `json:"suppliers"`
	ChemicalShareOfTotal float64           `json:"chemicalShare"`
}

type BrandTurnover struct {
	Brand    string  `json:"brand"`
	Turnover float64 `json:"turnover"`
}

type SupplierSummary struct {
	SupplierID uuid.UUID `json:"supplierId"`
	Name       string    `json:"name"`
	Turnover   float64   `json:"turnover"`
}

func (rc *ReportController) GetTurnoverReport(c *gin.Context) {
	salonID, ok := requestSalonID(c, nil)
	if !ok {
		return
	}

	now := rc.now()
	year := now.Year()
	if raw := c.Query("year"); raw != "" {
		if year, ok = parseYear(c, raw); !ok {
			return
		}
	}

	latest, err := rc.latestPeriod(salonID, year)
	if err != nil {
		respondError(c, err, "build turnover report")
		return
	}
	summary := TurnoverSummary{SalonID: salonID, LatestPeriod: latest, TopBrands: []BrandTurnover{}, Suppliers: []SupplierSummary{}}
	if latest == "" {
		c.JSON(http.StatusOK, summary)
		return
	}
	last, err := utils.ParsePeriod(latest)
	if err != nil {
		respondError(c, err, "build turnover report")
		return
	}
	month := last.Month()
	quarterStart := rc.getQuarterStart(month)

	type span struct {
		from, to time.Month
		current  *float64
		growth   **float64
	}
	for _, s := range []span{
		{month, month, &summary.CurrentMonth, &summary.MonthGrowth},
		{quarterStart, month, &summary.CurrentQuarter, &summary.QuarterGrowth},
		{time.January, month, &summary.YearToDate, &summary.YearGrowth},
	} {
		cur, err := rc.getTurnover(salonID, year, s.from, s.to)
		if err != nil {
			respondError(c, err, "build turnover report")
			return
		}
		prev, err := rc.getTurnover(salonID, year-1, s.from, s.to)
		if err != nil {
			respondError(c, err, "build turnover report")
			return
		}
		*s.current = cur
		*s.growth = rc.calculateGrowthPercentage(cur, prev)
	}

	if summary.TopBrands, err = rc.getTopBrands(salonID, year, 5); err != nil {
		respondError(c, err, "build turnover report")
		return
	}
	if summary.Suppliers, err = rc.getSupplierTurnover(salonID, year); err != nil {
		respondError(c, err, "build turnover report")
		return
	}
	chemical, err := rc.getTurnoverByType(salonID, year, models.ProductTypeChemical)
	if err != nil {
		respondError(c, err, "build turnover report")
		return
	}
	if summary.YearToDate > 0 {
		summary.ChemicalShareOfTotal = chemical / summary.YearToDate * 100
	}

	c.JSON(http.StatusOK, summary)
}

func (rc *ReportController) latestPeriod(salonID uuid.UUID, year int) (string, error) {
	var latest string
	err := config.DB.Model(&models.NormalizedSale{}).
		Where("salon_id = ? AND period LIKE ?", salonID, strconv.Itoa(year)+"-%").
		Select("COALESCE(MAX(period), '')").
		Scan(&latest).Error
	return latest, err
}

func (rc *ReportController) getTurnover(salonID uuid.UUID, year int, from, to time.Month) (float64, error) {
	var total float64
	err := config.DB.Model(&models.NormalizedSale{}).
		Where("salon_id = ? AND period BETWEEN ? AND ?", salonID, utils.FormatPeriod(year, from), utils.FormatPeriod(year, to)).
		Select("COALESCE(SUM(turnover), 0)").
		Scan(&total).Error
	return total, err
}

func (rc *ReportController) getTurnoverByType(salonID uuid.UUID, year int, productType string) (float64, error) {
	var total float64
	err := config.DB.Model(&models.NormalizedSale{}).
		Where("salon_id = ? AND period BETWEEN ? AND ? AND product_type = ?",
			salonID, utils.FormatPeriod(year, time.January), utils.FormatPeriod(year, time.December), productType).
		Select("COALESCE(SUM(turnover), 0)").
		Scan(&total).Error
	return total, err
}

func (rc *ReportController) getQuarterStart(month time.Month) time.Month {
	return time.Month((int(month)-1)/3*3 + 1)
}

// calculateGrowthPercentage is nil when there is nothing to compare with.
func (rc *ReportController) calculateGrowthPercentage(current, previous float64) *float64 {
	if previous == 0 {
		return nil
	}
	g := (current - previous) / previous * 100
	return &g
}

func (rc *ReportController) getTopBrands(salonID uuid.UUID, year, limit int) ([]BrandTurnover, error) {
	brands := []BrandTurnover{}
	err := config.DB.Model(&models.NormalizedSale{}).
		Select("brand, SUM(turnover) AS turnover").
		Where("salon_id = ? AND period BETWEEN ? AND ?",
			salonID, utils.FormatPeriod(year, time.January), utils.FormatPeriod(year, time.December)).
		Group("brand").
		Order("turnover DESC").
		Limit(limit).
		Scan(&brands).Error
	return brands, err
}

func (rc *ReportController) getSupplierTurnover(salonID uuid.UUID, year int) ([]SupplierSummary, error) {
	suppliers := []SupplierSummary{}
	err := config.DB.Table("normalized_sales").
		Select("normalized_sales.supplier_id, suppliers.name, SUM(normalized_sales.turnover) AS turnover").
		Joins("JOIN suppliers ON suppliers.id = normalized_sales.supplier_id").
		Where("normalized_sales.salon_id = ? AND normalized_sales.period BETWEEN ? AND ?",
			salonID, utils.FormatPeriod(year, time.January), utils.FormatPeriod(year, time.December)).
		Group("normalized_sales.supplier_id, suppliers.name").
		Order("turnover DESC").
		Scan(&suppliers).Error
	return suppliers, err
}
