package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"salonportal-backend/config"
	"salonportal-backend/models"
	"salonportal-backend/services"
	"salonportal-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EmployeeController serves the HR records of a salon.
type EmployeeController struct {
	Employees *services.EmployeeService
}

type CreateEmployeeInput struct {
	SalonID *uuid.UUID `json:"salonId"`
	services.EmployeeInput
}

type BulkEmployeeInput struct {
	SalonID *uuid.UUID               `json:"salonId"`
	Rows    []services.EmployeeInput `json:"rows" binding:"required"`
}

type CreateEmployeeUserInput struct {
	Role models.Role `json:"role"`
}

// loadEmployee fetches the :id employee and checks the caller may see it.
func loadEmployee(c *gin.Context) (*models.Employee, bool) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return nil, false
	}
	var e models.Employee
	if err := config.DB.First(&e, "id = ?", id).Error; err != nil {
		respondError(c, err, "retrieve employee")
		return nil, false
	}
	if !ensureSalonAccess(c, e.SalonID) {
		return nil, false
	}
	return &e, true
}

func employeeQuery(c *gin.Context, salonID uuid.UUID) ([]models.Employee, error) {
	query := config.DB.Where("salon_id = ?", salonID)
	if active := c.Query("active"); active != "" {
		query = query.Where("is_active = ?", active == "true")
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ?", like, like, like)
	}
	var employees []models.Employee
	err := query.Order("last_name, first_name").Find(&employees).Error
	return employees, err
}

func (ec *EmployeeController) List(c *gin.Context) {
	salonID, ok := requestSalonID(c, nil)
	if !ok {
		return
	}
	employees, err := employeeQuery(c, salonID)
	if err != nil {
		respondError(c, err, "retrieve employees")
		return
	}
	c.JSON(http.StatusOK, employees)
}

func (ec *EmployeeController) Get(c *gin.Context) {
	e, ok := loadEmployee(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, e)
}

func (ec *EmployeeController) Create(c *gin.Context) {
	var input CreateEmployeeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	salonID, ok := requestSalonID(c, input.SalonID)
	if !ok {
		return
	}

	e := models.Employee{SalonID: salonID, IsActive: true, EmploymentPercent: 100}
	if err := input.Apply(&e); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := config.DB.Create(&e).Error; err != nil {
		respondError(c, err, "create employee")
		return
	}
	c.JSON(http.StatusCreated, e)
}

func (ec *EmployeeController) Update(c *gin.Context) {
	e, ok := loadEmployee(c)
	if !ok {
		return
	}
	var input services.EmployeeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	if err := input.Apply(e); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := config.DB.Model(e).Select("*").Omit("id", "salon_id", "user_id", "created_at", "deleted_at").Updates(e).Error; err != nil {
		respondError(c, err, "update employee")
		return
	}
	c.JSON(http.StatusOK, e)
}

// Delete soft deletes the employee. A linked user keeps its login until an
// admin deactivates it.
func (ec *EmployeeController) Delete(c *gin.Context) {
	e, ok := loadEmployee(c)
	if !ok {
		return
	}
	if err := config.DB.Delete(e).Error; err != nil {
		respondError(c, err, "delete employee")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Employee deleted"})
}

func (ec *EmployeeController) BulkImport(c *gin.Context) {
	var input BulkEmployeeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	if len(input.Rows) == 0 {
		utils.RespondWithError(c, http.StatusBadRequest, "No rows to import")
		return
	}
	salonID, ok := requestSalonID(c, input.SalonID)
	if !ok {
		return
	}

	res, err := ec.Employees.BulkImport(c.Request.Context(), salonID, input.Rows)
	if err != nil {
		respondError(c, err, "import employees")
		return
	}
	config.RequestLogger(c).Info("Employees imported",
		zap.String("salon_id", salonID.String()),
		zap.Int("created", res.Created),
		zap.Int("failed", res.Failed))
	c.JSON(http.StatusOK, res)
}

// CreateUser gives the employee a login. The temporary password is only
// shown in this response.
func (ec *EmployeeController) CreateUser(c *gin.Context) {
	e, ok := loadEmployee(c)
	if !ok {
		return
	}
	var input CreateEmployeeUserInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
			return
		}
	}
	if input.Role != "" && !models.IsValidRole(string(input.Role)) {
		utils.RespondWithError(c, http.StatusBadRequest, models.ErrInvalidRole.Error())
		return
	}

	user, password, err := ec.Employees.CreateUser(c.Request.Context(), e.ID, input.Role)
	if err != nil {
		respondError(c, err, "create user")
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"user":              userSummary(user),
		"temporaryPassword": password,
	})
}

var employeeCSVHeader = []string{
	"Fornavn", "Etternavn", "E-post", "Telefon", "Ansettelsestype", "Stillingsprosent",
	"Lønnstype", "Timelønn", "Månedslønn", "Provisjon tjenester", "Provisjon varer",
	"Ferie", "Tariffstilling", "Startdato", "Aktiv",
}

func employeeCSVRow(e models.Employee) []string {
	active := "Nei"
	if e.IsActive {
		active = "Ja"
	}
	return []string{
		e.FirstName, e.LastName, e.Email, e.Phone, e.EmploymentType,
		strconv.FormatFloat(e.EmploymentPercent, 'f', -1, 64),
		e.WageType,
		utils.FormatAmount(e.HourlyWage),
		utils.FormatAmount(e.MonthlySalary),
		utils.FormatAmount(e.ServiceCommissionPct),
		utils.FormatAmount(e.ProductCommissionPct),
		e.VacationType, e.TariffPosition,
		utils.FormatNorwegianDate(e.StartDate),
		active,
	}
}

func (ec *EmployeeController) ExportCSV(c *gin.Context) {
	salonID, ok := requestSalonID(c, nil)
	if !ok {
		return
	}
	employees, err := employeeQuery(c, salonID)
	if err != nil {
		respondError(c, err, "export employees")
		return
	}

	rows := make([][]string, 0, len(employees))
	for _, e := range employees {
		rows = append(rows, employeeCSVRow(e))
	}
	data, err := utils.WriteCSV(employeeCSVHeader, rows)
	if err != nil {
		respondError(c, err, "export employees")
		return
	}
	utils.SendCSV(c, fmt.Sprintf("ansatte-%s.csv", time.Now().Format("2006-01-02")), data)
}
