package controllers

import (
	"net/http"

	"salonportal-backend/config"
	"salonportal-backend/models"
	"salonportal-backend/services"
	"salonportal-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxUploadSize = 20 << 20

// SalesController receives supplier sales files and turns them into
// normalized turnover.
type SalesController struct {
	Sales *services.SalesImportService
}

type BatchSummary struct {
	BatchID    uuid.UUID `json:"batchId"`
	SupplierID uuid.UUID `json:"supplierId"`
	RowCount   int64     `json:"rows"`
	Rejected   int64     `json:"rejected"`
	Normalized int64     `json:"normalized"`
	ImportedAt string    `json:"importedAt"`
}

// Upload parses the multipart "file" and stores it as a new batch. With
// normalize=true the batch is normalized right away.
func (sc *SalesController) Upload(c *gin.Context) {
	supplierID, ok := requestSupplierID(c, c.PostForm("supplier_id"))
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)
	header, err := c.FormFile("file")
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "A sales file is required")
		return
	}
	f, err := header.Open()
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Could not read upload")
		return
	}
	defer f.Close()

	rows, err := services.ParseSalesFile(header.Filename, f)
	if err != nil {
		respondError(c, err, "parse sales file")
		return
	}

	ctx := c.Request.Context()
	imported, err := sc.Sales.Import(ctx, supplierID, rows)
	if err != nil {
		respondError(c, err, "import sales")
		return
	}
	config.RequestLogger(c).Info("Sales file imported",
		zap.String("supplier_id", supplierID.String()),
		zap.String("file", header.Filename),
		zap.String("batch_id", imported.BatchID.String()),
		zap.Int("valid", imported.Valid),
		zap.Int("rejected", imported.Rejected))

	response := gin.H{"import": imported}
	if c.PostForm("normalize") == "true" {
		normalized, err := sc.Sales.Normalize(ctx, imported.BatchID)
		if err != nil {
			respondError(c, err, "normalize sales")
			return
		}
		response["normalize"] = normalized
	}
	c.JSON(http.StatusCreated, response)
}

func (sc *SalesController) Normalize(c *gin.Context) {
	batchID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var first models.ImportedSale
	if err := config.DB.Where("batch_id = ?", batchID).First(&first).Error; err != nil {
		respondError(c, err, "retrieve batch")
		return
	}
	if _, ok := requestSupplierID(c, first.SupplierID.String()); !ok {
		return
	}

	res, err := sc.Sales.Normalize(c.Request.Context(), batchID)
	if err != nil {
		respondError(c, err, "normalize sales")
		return
	}
	c.JSON(http.StatusOK, res)
}

func (sc *SalesController) ListBatches(c *gin.Context) {
	supplierID, ok := requestSupplierID(c, c.Query("supplier_id"))
	if !ok {
		return
	}

	var batches []BatchSummary
	err := config.DB.Model(&models.ImportedSale{}).
		Select(`batch_id, supplier_id, COUNT(*) AS row_count,
			SUM(CASE WHEN error <> '' THEN 1 ELSE 0 END) AS rejected,
			SUM(CASE WHEN normalized THEN 1 ELSE 0 END) AS normalized,
			MIN(created_at) AS imported_at`).
		Where("supplier_id = ?", supplierID).
		Group("batch_id, supplier_id").
		Order("imported_at DESC").
		Scan(&batches).Error
	if err != nil {
		respondError(c, err, "retrieve batches")
		return
	}
	c.JSON(http.StatusOK, batches)
}

// BatchRows returns the raw rows of a batch; ?errors=true limits to
// rejected ones.
func (sc *SalesController) BatchRows(c *gin.Context) {
	batchID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	query := config.DB.Where("batch_id = ?", batchID)
	if callerRole(c).IsSupplierRole() {
		query = query.Where("supplier_id = ?", c.GetString("supplierId"))
	}
	if c.Query("errors") == "true" {
		query = query.Where("error <> ?", "")
	}
	var rows []models.ImportedSale
	if err := query.Order("row_number").Find(&rows).Error; err != nil {
		respondError(c, err, "retrieve batch rows")
		return
	}
	c.JSON(http.StatusOK, rows)
}

// ListSales returns normalized turnover filtered by supplier, salon and
// period prefix (YYYY or YYYY-MM).
func (sc *SalesController) ListSales(c *gin.Context) {
	page, limit, offset := utils.Pagination(c)
	query := config.DB.Model(&models.NormalizedSale{})

	switch role := callerRole(c); {
	case role.IsSupplierRole(), role.IsAdmin():
		if role.IsSupplierRole() {
			query = query.Where("supplier_id = ?", c.GetString("supplierId"))
		} else if supplier := c.Query("supplier_id"); supplier != "" {
			query = query.Where("supplier_id = ?", supplier)
		}
		if salon := c.Query("salon_id"); salon != "" {
			query = query.Where("salon_id = ?", salon)
		}
	default:
		salonID, ok := requestSalonID(c, nil)
		if !ok {
			return
		}
		query = query.Where("salon_id = ?", salonID)
	}
	if period := c.Query("period"); period != "" {
		query = query.Where("period LIKE ?", period+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		respondError(c, err, "retrieve sales")
		return
	}
	var sales []models.NormalizedSale
	if err := query.Order("period DESC, brand").Limit(limit).Offset(offset).Find(&sales).Error; err != nil {
		respondError(c, err, "retrieve sales")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"sales":      sales,
		"pagination": utils.PageMeta(page, limit, total),
	})
}
