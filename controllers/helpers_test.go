package controllers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"salonportal-backend/config"
	"salonportal-backend/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T, migrate bool) {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if migrate {
		if err := db.AutoMigrate(models.All()...); err != nil {
			t.Fatalf("migrate: %v", err)
		}
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	config.DB = db
}

func districtManagerContext(district uuid.UUID) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/employees", nil)
	c.Set("role", string(models.RoleDistrictManager))
	c.Set("districtId", district.String())
	return c, w
}

func TestEnsureSalonAccessByDistrict(t *testing.T) {
	openTestDB(t, true)
	district := &models.District{Name: "Vest"}
	config.DB.Create(district)
	inside := &models.Salon{Name: "Salong Inne", DistrictID: &district.ID, IsActive: true}
	outside := &models.Salon{Name: "Salong Ute", IsActive: true}
	config.DB.Create(inside)
	config.DB.Create(outside)

	c, _ := districtManagerContext(district.ID)
	if !ensureSalonAccess(c, inside.ID) {
		t.Fatalf("district manager denied own salon")
	}

	c, w := districtManagerContext(district.ID)
	if ensureSalonAccess(c, outside.ID) || w.Code != http.StatusForbidden {
		t.Fatalf("salon outside the district: %d", w.Code)
	}
}

func TestEnsureSalonAccessLookupFailure(t *testing.T) {
	// No tables: the scope lookup fails.
	openTestDB(t, false)

	c, w := districtManagerContext(uuid.New())
	if ensureSalonAccess(c, uuid.New()) {
		t.Fatalf("access granted although the lookup failed")
	}
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("lookup failure should be 500, got %d", w.Code)
	}
	if _, err := canAccessSalon(c, uuid.New()); err == nil {
		t.Fatalf("lookup error swallowed")
	}
}
