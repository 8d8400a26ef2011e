package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"salonportal-backend/bonus"
	"salonportal-backend/config"
	"salonportal-backend/metrics"
	"salonportal-backend/models"
	"salonportal-backend/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrUnsupportedFile = errors.New("unsupported file type, use .xlsx or .csv")
	ErrMissingColumns  = errors.New("missing required columns")
	ErrEmptyFile       = errors.New("file has no data rows")
)

// Header aliases accepted in supplier files.
var columnAliases = map[string]string{
	"org_number":    "org_number",
	"orgnr":         "org_number",
	"org_nr":        "org_number",
	"organisasjon":  "org_number",
	"period":        "period",
	"periode":       "period",
	"brand":         "brand",
	"merke":         "brand",
	"product_group": "product_group",
	"produktgruppe": "product_group",
	"product_type":  "product_type",
	"produkttype":   "product_type",
	"type":          "product_type",
	"amount":        "amount",
	"belop":         "amount",
	"beløp":         "amount",
	"omsetning":     "amount",
	"turnover":      "amount",
}

var requiredColumns = []string{"org_number", "period", "product_type", "amount"}

// SaleRow is one parsed line of a supplier sales file.
type SaleRow struct {
	RowNumber    int
	OrgNumber    string
	Period       string
	Brand        string
	ProductGroup string
	ProductType  string
	Amount       float64
	Error        string
}

// ParseSalesFile reads an .xlsx (first sheet) or .csv upload. Rows that
// cannot be parsed are returned with Error set so they are stored and
// reported back, not dropped.
func ParseSalesFile(filename string, r io.Reader) ([]SaleRow, error) {
	var (
		records [][]string
		err     error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		records, err = readXLSX(r)
	case ".csv", ".txt":
		records, err = readCSV(r)
	default:
		return nil, ErrUnsupportedFile
	}
	if err != nil {
		return nil, err
	}
	return parseRecords(records)
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}
	return f.GetRows(sheets[0])
}

func readCSV(r io.Reader) ([][]string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	raw = bytes.TrimPrefix(raw, []byte("\ufeff"))
	first := raw
	if i := bytes.IndexByte(raw, '\n'); i >= 0 {
		first = raw[:i]
	}
	cr := csv.NewReader(bytes.NewReader(raw))
	if bytes.Count(first, []byte(";")) > bytes.Count(first, []byte(",")) {
		cr.Comma = ';'
	}
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return cr.ReadAll()
}

func parseRecords(records [][]string) ([]SaleRow, error) {
	if len(records) < 2 {
		return nil, ErrEmptyFile
	}
	index := map[string]int{}
	for i, h := range records[0] {
		key := strings.ToLower(strings.TrimSpace(h))
		key = strings.ReplaceAll(key, " ", "_")
		if col, ok := columnAliases[key]; ok {
			if _, seen := index[col]; !seen {
				index[col] = i
			}
		}
	}
	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	cell := func(rec []string, col string) string {
		i, ok := index[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	rows := make([]SaleRow, 0, len(records)-1)
	for n, rec := range records[1:] {
		if isBlank(rec) {
			continue
		}
		row := SaleRow{
			RowNumber:    n + 2,
			OrgNumber:    utils.NormalizeOrgNumber(cell(rec, "org_number")),
			Brand:        cell(rec, "brand"),
			ProductGroup: cell(rec, "product_group"),
		}
		row.Error = row.fill(cell(rec, "period"), cell(rec, "product_type"), cell(rec, "amount"))
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}
	return rows, nil
}

func (row *SaleRow) fill(period, productType, amount string) string {
	if len(row.OrgNumber) != 9 {
		return "org number must have 9 digits"
	}
	if len(period) > 7 {
		period = period[:7]
	}
	if _, err := utils.ParsePeriod(period); err != nil {
		return err.Error()
	}
	row.Period = period

	pt, ok := normalizeProductType(productType)
	if !ok {
		return fmt.Sprintf("unknown product type %q", productType)
	}
	row.ProductType = pt

	v, err := parseAmount(amount)
	if err != nil {
		return fmt.Sprintf("invalid amount %q", amount)
	}
	row.Amount = v
	return ""
}

func normalizeProductType(s string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "chemical", "kjemi", "kjemisk":
		return models.ProductTypeChemical, true
	case "resale", "videresalg", "retail":
		return models.ProductTypeResale, true
	}
	return "", false
}

// parseAmount accepts "1234.5", "1 234,50" and "1.234,50".
func parseAmount(s string) (float64, error) {
	s = strings.NewReplacer(" ", "", "\u00a0", "", "kr", "").Replace(s)
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}
	if s == "" {
		return 0, errors.New("empty")
	}
	return strconv.ParseFloat(s, 64)
}

func isBlank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

type SalesImportService struct {
	db *gorm.DB
}

func NewSalesImportService(db *gorm.DB) *SalesImportService {
	return &SalesImportService{db: db}
}

type ImportResult struct {
	BatchID  uuid.UUID `json:"batchId"`
	Total    int       `json:"total"`
	Valid    int       `json:"valid"`
	Rejected int       `json:"rejected"`
	Errors   []string  `json:"errors"`
}

// Import stores the parsed rows as one batch of ImportedSale.
func (s *SalesImportService) Import(ctx context.Context, supplierID uuid.UUID, rows []SaleRow) (*ImportResult, error) {
	var supplier models.Supplier
	if err := s.db.WithContext(ctx).First(&supplier, "id = ?", supplierID).Error; err != nil {
		return nil, err
	}

	res := &ImportResult{BatchID: uuid.New(), Total: len(rows), Errors: []string{}}
	imported := make([]models.ImportedSale, 0, len(rows))
	for _, r := range rows {
		imported = append(imported, models.ImportedSale{
			SupplierID:   supplierID,
			BatchID:      res.BatchID,
			RowNumber:    r.RowNumber,
			OrgNumber:    r.OrgNumber,
			Period:       r.Period,
			Brand:        r.Brand,
			ProductGroup: r.ProductGroup,
			ProductType:  r.ProductType,
			Amount:       r.Amount,
			Error:        r.Error,
		})
		if r.Error != "" {
			res.Rejected++
			res.Errors = append(res.Errors, fmt.Sprintf("row %d: %s", r.RowNumber, r.Error))
			continue
		}
		res.Valid++
	}
	if err := s.db.WithContext(ctx).CreateInBatches(&imported, 500).Error; err != nil {
		return nil, err
	}

	metrics.ImportedSaleRowsTotal.WithLabelValues("valid").Add(float64(res.Valid))
	metrics.ImportedSaleRowsTotal.WithLabelValues("rejected").Add(float64(res.Rejected))
	return res, nil
}

type NormalizeResult struct {
	BatchID    uuid.UUID `json:"batchId"`
	Normalized int       `json:"normalized"`
	Unmatched  int       `json:"unmatched"`
	Salons     int       `json:"salons"`
	Restated   int       `json:"restated"` // stored periods whose delta moved
}

type saleKey struct {
	salonID      uuid.UUID
	brand        string
	productGroup string
	productType  string
}

type keyedPeriod struct {
	key    saleKey
	period string
}

// Normalize turns the valid rows of a batch into NormalizedSale rows.
// Salons are resolved by org number. For cumulative suppliers the reported
// values are converted to deltas, using earlier periods already stored for
// the same year. Existing rows for the same supplier, salon, period, brand
// and product group are replaced.
func (s *SalesImportService) Normalize(ctx context.Context, batchID uuid.UUID) (*NormalizeResult, error) {
	res := &NormalizeResult{BatchID: batchID}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []models.ImportedSale
		if err := tx.Where("batch_id = ? AND error = ? AND normalized = ?", batchID, "", false).
			Order("row_number").Find(&rows).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		supplierID := rows[0].SupplierID

		var supplier models.Supplier
		if err := tx.First(&supplier, "id = ?", supplierID).Error; err != nil {
			return err
		}

		orgNumbers := make([]string, 0, len(rows))
		for _, r := range rows {
			orgNumbers = append(orgNumbers, r.OrgNumber)
		}
		var salons []models.Salon
		if err := tx.Where("org_number IN ?", orgNumbers).Find(&salons).Error; err != nil {
			return err
		}
		salonByOrg := make(map[string]uuid.UUID, len(salons))
		for _, sl := range salons {
			salonByOrg[sl.OrgNumber] = sl.ID
		}

		values := map[keyedPeriod]decimal.Decimal{}
		var matchedIDs []uuid.UUID
		for _, r := range rows {
			salonID, ok := salonByOrg[r.OrgNumber]
			if !ok {
				res.Unmatched++
				if err := tx.Model(&models.ImportedSale{}).Where("id = ?", r.ID).
					Update("error", "no salon with org number "+r.OrgNumber).Error; err != nil {
					return err
				}
				continue
			}
			kp := keyedPeriod{
				key:    saleKey{salonID: salonID, brand: r.Brand, productGroup: r.ProductGroup, productType: r.ProductType},
				period: r.Period,
			}
			values[kp] = values[kp].Add(decimal.NewFromFloat(r.Amount))
			matchedIDs = append(matchedIDs, r.ID)
		}

		normalized, restated, err := s.buildNormalized(tx, supplier, batchID, values)
		if err != nil {
			return err
		}
		res.Restated = restated

		touched := map[uuid.UUID]bool{}
		for _, n := range normalized {
			if err := tx.Where("supplier_id = ? AND salon_id = ? AND period = ? AND brand = ? AND product_group = ? AND product_type = ?",
				supplierID, n.SalonID, n.Period, n.Brand, n.ProductGroup, n.ProductType).
				Delete(&models.NormalizedSale{}).Error; err != nil {
				return err
			}
			touched[n.SalonID] = true
		}
		if len(normalized) > 0 {
			if err := tx.CreateInBatches(&normalized, 500).Error; err != nil {
				return err
			}
		}
		if len(matchedIDs) > 0 {
			if err := tx.Model(&models.ImportedSale{}).Where("id IN ?", matchedIDs).
				Update("normalized", true).Error; err != nil {
				return err
			}
		}
		res.Normalized = len(normalized)
		res.Salons = len(touched)
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.ImportedSaleRowsTotal.WithLabelValues("normalized").Add(float64(res.Normalized))
	metrics.ImportedSaleRowsTotal.WithLabelValues("unmatched").Add(float64(res.Unmatched))
	config.Log().Info("Sales batch normalized",
		zap.String("batch_id", batchID.String()),
		zap.Int("normalized", res.Normalized),
		zap.Int("unmatched", res.Unmatched),
		zap.Int("restated", res.Restated))
	return res, nil
}

// buildNormalized turns the batch values into rows. For cumulative suppliers
// the deltas are derived over the batch merged with the stored periods of
// the same year, and stored rows whose delta moved are restated in place.
func (s *SalesImportService) buildNormalized(tx *gorm.DB, supplier models.Supplier, batchID uuid.UUID, values map[keyedPeriod]decimal.Decimal) ([]models.NormalizedSale, int, error) {
	out := make([]models.NormalizedSale, 0, len(values))
	if !supplier.ReportsCumulative {
		for kp, v := range values {
			out = append(out, newNormalized(supplier.ID, batchID, kp, v.Round(2), nil))
		}
		return out, 0, nil
	}

	byKey := map[saleKey][]bonus.PeriodValue{}
	inBatch := map[keyedPeriod]bool{}
	for kp, v := range values {
		byKey[kp.key] = append(byKey[kp.key], bonus.PeriodValue{Period: kp.period, Value: v})
		inBatch[kp] = true
	}

	restated := 0
	for key, series := range byKey {
		years := map[string]bool{}
		for _, pv := range series {
			years[pv.Period[:4]] = true
		}
		storedByPeriod := map[string]models.NormalizedSale{}
		for year := range years {
			var stored []models.NormalizedSale
			if err := tx.Where("supplier_id = ? AND salon_id = ? AND brand = ? AND product_group = ? AND product_type = ? AND period LIKE ?",
				supplier.ID, key.salonID, key.brand, key.productGroup, key.productType, year+"-%").
				Find(&stored).Error; err != nil {
				return nil, 0, err
			}
			for _, st := range stored {
				if inBatch[keyedPeriod{key: key, period: st.Period}] || st.CumulativeTurnover == nil {
					continue
				}
				storedByPeriod[st.Period] = st
				series = append(series, bonus.PeriodValue{Period: st.Period, Value: decimal.NewFromFloat(*st.CumulativeTurnover)})
			}
		}
		for _, d := range bonus.DeriveDeltas(series) {
			kp := keyedPeriod{key: key, period: d.Period}
			delta := d.Delta.Round(2)
			if inBatch[kp] {
				cumulative := d.Cumulative.Round(2).InexactFloat64()
				out = append(out, newNormalized(supplier.ID, batchID, kp, delta, &cumulative))
				continue
			}
			st, ok := storedByPeriod[d.Period]
			if !ok || decimal.NewFromFloat(st.Turnover).Equal(delta) {
				continue
			}
			if err := tx.Model(&models.NormalizedSale{}).Where("id = ?", st.ID).
				Update("turnover", delta.InexactFloat64()).Error; err != nil {
				return nil, 0, err
			}
			restated++
		}
	}
	return out, restated, nil
}

func newNormalized(supplierID, batchID uuid.UUID, kp keyedPeriod, turnover decimal.Decimal, cumulative *float64) models.NormalizedSale {
	return models.NormalizedSale{
		SupplierID:         supplierID,
		SalonID:            kp.key.salonID,
		Period:             kp.period,
		Brand:              kp.key.brand,
		ProductGroup:       kp.key.productGroup,
		ProductType:        kp.key.productType,
		Turnover:           turnover.InexactFloat64(),
		CumulativeTurnover: cumulative,
		ImportBatchID:      batchID,
	}
}
