package services

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"salonportal-backend/models"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

func TestParseSalesFileCSV(t *testing.T) {
	data := "\ufeffOrgnr;Periode;Merke;Produktgruppe;Produkttype;Beløp\n" +
		"923 609 016;2025-01;Redken;Farge;kjemi;1 234,50\n" +
		";;;;;\n" +
		"12345;2025-01;Redken;Farge;kjemi;100\n" +
		"974760673;2025-13;Redken;Farge;kjemi;100\n" +
		"974760673;2025-02-15;Kerastase;Styling;retail;2.500,00\n" +
		"974760673;2025-02;Kerastase;Styling;mystery;10\n"

	rows, err := ParseSalesFile("salg.csv", strings.NewReader(data))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("expected 5 rows (blank skipped) got %d", len(rows))
	}

	first := rows[0]
	if first.Error != "" || first.OrgNumber != "923609016" || first.Amount != 1234.5 || first.ProductType != models.ProductTypeChemical {
		t.Fatalf("unexpected first row: %+v", first)
	}
	if first.RowNumber != 2 {
		t.Fatalf("row number: %d", first.RowNumber)
	}
	if rows[1].Error == "" || rows[1].RowNumber != 4 {
		t.Fatalf("short org number accepted: %+v", rows[1])
	}
	if rows[2].Error == "" {
		t.Fatalf("bad period accepted: %+v", rows[2])
	}
	if rows[3].Error != "" || rows[3].Period != "2025-02" || rows[3].Amount != 2500 || rows[3].ProductType != models.ProductTypeResale {
		t.Fatalf("unexpected date-like period row: %+v", rows[3])
	}
	if !strings.Contains(rows[4].Error, "unknown product type") {
		t.Fatalf("unknown type accepted: %+v", rows[4])
	}
}

func TestParseSalesFileErrors(t *testing.T) {
	if _, err := ParseSalesFile("salg.pdf", strings.NewReader("x")); !errors.Is(err, ErrUnsupportedFile) {
		t.Fatalf("expected ErrUnsupportedFile got %v", err)
	}
	if _, err := ParseSalesFile("salg.csv", strings.NewReader("orgnr,periode\n923609016,2025-01\n")); !errors.Is(err, ErrMissingColumns) {
		t.Fatalf("expected ErrMissingColumns got %v", err)
	}
	if _, err := ParseSalesFile("salg.csv", strings.NewReader("orgnr,periode,type,amount\n")); !errors.Is(err, ErrEmptyFile) {
		t.Fatalf("expected ErrEmptyFile got %v", err)
	}
}

func TestParseSalesFileXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, row := range [][]interface{}{
		{"org_number", "period", "brand", "product_type", "amount"},
		{"923609016", "2025-03", "Wella", "chemical", "4200"},
	} {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	rows, err := ParseSalesFile("salg.xlsx", &buf)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(rows) != 1 || rows[0].Error != "" || rows[0].Amount != 4200 || rows[0].Brand != "Wella" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestImportAndNormalize(t *testing.T) {
	db := newTestDB(t)
	s := NewSalesImportService(db)
	ctx := context.Background()

	supplier := &models.Supplier{Name: "Periodisk AS", IsActive: true}
	mustCreate(t, db, supplier)
	salon := &models.Salon{Name: "Salong A", OrgNumber: "923609016", IsActive: true}
	mustCreate(t, db, salon)

	rows := []SaleRow{
		{RowNumber: 2, OrgNumber: "923609016", Period: "2025-01", Brand: "Redken", ProductGroup: "Farge", ProductType: models.ProductTypeChemical, Amount: 1000},
		{RowNumber: 3, OrgNumber: "923609016", Period: "2025-01", Brand: "Redken", ProductGroup: "Farge", ProductType: models.ProductTypeChemical, Amount: 500},
		{RowNumber: 4, OrgNumber: "974760673", Period: "2025-01", Brand: "Redken", ProductGroup: "Farge", ProductType: models.ProductTypeChemical, Amount: 300},
		{RowNumber: 5, OrgNumber: "1", Error: "org number must have 9 digits"},
	}
	imported, err := s.Import(ctx, supplier.ID, rows)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if imported.Total != 4 || imported.Valid != 3 || imported.Rejected != 1 || len(imported.Errors) != 1 {
		t.Fatalf("unexpected import result: %+v", imported)
	}

	res, err := s.Normalize(ctx, imported.BatchID)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if res.Normalized != 1 || res.Unmatched != 1 || res.Salons != 1 {
		t.Fatalf("unexpected normalize result: %+v", res)
	}

	var sales []models.NormalizedSale
	db.Where("salon_id = ?", salon.ID).Find(&sales)
	if len(sales) != 1 || sales[0].Turnover != 1500 || sales[0].CumulativeTurnover != nil {
		t.Fatalf("unexpected normalized sales: %+v", sales)
	}

	var unmatched models.ImportedSale
	db.First(&unmatched, "batch_id = ? AND row_number = ?", imported.BatchID, 4)
	if !strings.Contains(unmatched.Error, "974760673") {
		t.Fatalf("unmatched row not flagged: %+v", unmatched)
	}

	// A corrected file for the same period replaces the stored values.
	again, err := s.Import(ctx, supplier.ID, rows[:1])
	if err != nil {
		t.Fatalf("reimport: %v", err)
	}
	if _, err := s.Normalize(ctx, again.BatchID); err != nil {
		t.Fatalf("renormalize: %v", err)
	}
	sales = nil
	db.Where("salon_id = ?", salon.ID).Find(&sales)
	if len(sales) != 1 || sales[0].Turnover != 1000 {
		t.Fatalf("expected replaced row, got %+v", sales)
	}
}

func TestNormalizeCumulativeSupplier(t *testing.T) {
	db := newTestDB(t)
	s := NewSalesImportService(db)
	ctx := context.Background()

	supplier := &models.Supplier{Name: "Kumulativ AS", ReportsCumulative: true, IsActive: true}
	mustCreate(t, db, supplier)
	salon := &models.Salon{Name: "Salong B", OrgNumber: "923609016", IsActive: true}
	mustCreate(t, db, salon)

	row := func(n int, period string, amount float64) SaleRow {
		return SaleRow{RowNumber: n, OrgNumber: "923609016", Period: period, Brand: "L'Oréal", ProductType: models.ProductTypeResale, Amount: amount}
	}

	first, err := s.Import(ctx, supplier.ID, []SaleRow{row(2, "2025-01", 1000), row(3, "2025-02", 2500)})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if _, err := s.Normalize(ctx, first.BatchID); err != nil {
		t.Fatalf("normalize: %v", err)
	}

	// March arrives in a later file and must build on February's total.
	second, err := s.Import(ctx, supplier.ID, []SaleRow{row(2, "2025-03", 4000)})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if _, err := s.Normalize(ctx, second.BatchID); err != nil {
		t.Fatalf("normalize: %v", err)
	}

	var sales []models.NormalizedSale
	db.Where("salon_id = ?", salon.ID).Order("period").Find(&sales)
	want := map[string]float64{"2025-01": 1000, "2025-02": 1500, "2025-03": 1500}
	if len(sales) != 3 {
		t.Fatalf("expected 3 periods got %d", len(sales))
	}
	for _, sale := range sales {
		if sale.Turnover != want[sale.Period] {
			t.Fatalf("%s: expected delta %v got %v", sale.Period, want[sale.Period], sale.Turnover)
		}
		if sale.CumulativeTurnover == nil {
			t.Fatalf("%s: cumulative value not kept", sale.Period)
		}
	}
	if *sales[2].CumulativeTurnover != 4000 {
		t.Fatalf("cumulative: %v", *sales[2].CumulativeTurnover)
	}
}

type cumulativeFixture struct {
	db       *gorm.DB
	svc      *SalesImportService
	supplier *models.Supplier
	salon    *models.Salon
}

func newCumulativeFixture(t *testing.T) cumulativeFixture {
	t.Helper()
	db := newTestDB(t)
	f := cumulativeFixture{
		db:       db,
		svc:      NewSalesImportService(db),
		supplier: &models.Supplier{Name: "Kumulativ AS", ReportsCumulative: true, IsActive: true},
		salon:    &models.Salon{Name: "Salong C", OrgNumber: "923609016", IsActive: true},
	}
	mustCreate(t, db, f.supplier)
	mustCreate(t, db, f.salon)
	return f
}

func (f cumulativeFixture) load(t *testing.T, rows ...SaleRow) *NormalizeResult {
	t.Helper()
	ctx := context.Background()
	for i := range rows {
		rows[i].RowNumber = i + 2
		rows[i].OrgNumber = f.salon.OrgNumber
		if rows[i].Brand == "" {
			rows[i].Brand = "Wella"
		}
		if rows[i].ProductType == "" {
			rows[i].ProductType = models.ProductTypeChemical
		}
	}
	imported, err := f.svc.Import(ctx, f.supplier.ID, rows)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	res, err := f.svc.Normalize(ctx, imported.BatchID)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	return res
}

func (f cumulativeFixture) deltas(t *testing.T, productType string) map[string]float64 {
	t.Helper()
	var sales []models.NormalizedSale
	if err := f.db.Where("salon_id = ? AND product_type = ?", f.salon.ID, productType).Find(&sales).Error; err != nil {
		t.Fatalf("load sales: %v", err)
	}
	out := map[string]float64{}
	for _, s := range sales {
		if _, dup := out[s.Period]; dup {
			t.Fatalf("duplicate row for %s", s.Period)
		}
		out[s.Period] = s.Turnover
	}
	return out
}

func sumDeltas(deltas map[string]float64, year string) float64 {
	total := 0.0
	for period, d := range deltas {
		if strings.HasPrefix(period, year) {
			total += d
		}
	}
	return total
}

func TestNormalizeCumulativeLatePeriodRestatesLaterRows(t *testing.T) {
	f := newCumulativeFixture(t)
	f.load(t, SaleRow{Period: "2025-01", Amount: 1000}, SaleRow{Period: "2025-03", Amount: 3000})

	res := f.load(t, SaleRow{Period: "2025-02", Amount: 1800})
	if res.Restated != 1 {
		t.Fatalf("expected March to be restated, got %+v", res)
	}

	got := f.deltas(t, models.ProductTypeChemical)
	want := map[string]float64{"2025-01": 1000, "2025-02": 800, "2025-03": 1200}
	for period, w := range want {
		if got[period] != w {
			t.Fatalf("%s: expected delta %v got %v", period, w, got[period])
		}
	}
	if total := sumDeltas(got, "2025"); total != 3000 {
		t.Fatalf("deltas through March sum to %v, latest cumulative is 3000", total)
	}
}

func TestNormalizeCumulativeCorrection(t *testing.T) {
	f := newCumulativeFixture(t)
	f.load(t,
		SaleRow{Period: "2025-01", Amount: 1000},
		SaleRow{Period: "2025-02", Amount: 2500},
		SaleRow{Period: "2025-03", Amount: 4000},
	)

	// February was overstated; the corrected file lowers it.
	f.load(t, SaleRow{Period: "2025-02", Amount: 2000})
	got := f.deltas(t, models.ProductTypeChemical)
	if got["2025-02"] != 1000 || got["2025-03"] != 2000 {
		t.Fatalf("unexpected deltas after correction: %v", got)
	}

	// A cumulative figure below the previous month is a negative delta.
	f.load(t, SaleRow{Period: "2025-04", Amount: 3700})
	got = f.deltas(t, models.ProductTypeChemical)
	if got["2025-04"] != -300 {
		t.Fatalf("negative correction: %v", got["2025-04"])
	}
	if total := sumDeltas(got, "2025"); total != 3700 {
		t.Fatalf("deltas sum to %v, latest cumulative is 3700", total)
	}
}

func TestNormalizeCumulativeYearBoundary(t *testing.T) {
	f := newCumulativeFixture(t)
	f.load(t, SaleRow{Period: "2024-11", Amount: 9000}, SaleRow{Period: "2024-12", Amount: 10000})

	res := f.load(t, SaleRow{Period: "2025-01", Amount: 700}, SaleRow{Period: "2024-10", Amount: 8000})
	got := f.deltas(t, models.ProductTypeChemical)
	if got["2025-01"] != 700 {
		t.Fatalf("January must reset: %v", got["2025-01"])
	}
	if got["2024-10"] != 8000 || got["2024-11"] != 1000 || got["2024-12"] != 1000 {
		t.Fatalf("unexpected 2024 deltas: %v", got)
	}
	if res.Restated != 1 {
		t.Fatalf("only November should be restated: %+v", res)
	}
}

func TestNormalizeKeepsOtherProductType(t *testing.T) {
	db := newTestDB(t)
	s := NewSalesImportService(db)
	ctx := context.Background()
	supplier := &models.Supplier{Name: "Blandet AS", IsActive: true}
	mustCreate(t, db, supplier)
	salon := &models.Salon{Name: "Salong D", OrgNumber: "923609016", IsActive: true}
	mustCreate(t, db, salon)

	row := func(n int, productType string, amount float64) SaleRow {
		return SaleRow{RowNumber: n, OrgNumber: "923609016", Period: "2025-05", Brand: "Wella", ProductGroup: "Pleie", ProductType: productType, Amount: amount}
	}
	for _, batch := range [][]SaleRow{
		{row(2, models.ProductTypeChemical, 400), row(3, models.ProductTypeResale, 600)},
		{row(2, models.ProductTypeChemical, 450)},
	} {
		imported, err := s.Import(ctx, supplier.ID, batch)
		if err != nil {
			t.Fatalf("import: %v", err)
		}
		if _, err := s.Normalize(ctx, imported.BatchID); err != nil {
			t.Fatalf("normalize: %v", err)
		}
	}

	var sales []models.NormalizedSale
	db.Where("salon_id = ?", salon.ID).Order("product_type").Find(&sales)
	if len(sales) != 2 || sales[0].Turnover != 450 || sales[1].Turnover != 600 {
		t.Fatalf("resale row lost or chemical not replaced: %+v", sales)
	}
}
