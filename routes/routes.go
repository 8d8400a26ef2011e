package routes

import (
	"net/http"

	"salonportal-backend/config"
	"salonportal-backend/controllers"
	"salonportal-backend/metrics"
	"salonportal-backend/models"
	"salonportal-backend/services"
	"salonportal-backend/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Services are the stateful collaborators the controllers need.
type Services struct {
	Users         *services.UserService
	Invitations   *services.InvitationService
	Employees     *services.EmployeeService
	Tariffs       *services.TariffService
	Bonus         *services.BonusService
	Sales         *services.SalesImportService
	POA           *services.POAService
	Announcements *services.AnnouncementService
	HubSpot       *services.HubSpotClient
}

func roles(rs ...models.Role) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, string(r))
	}
	return out
}

var (
	adminRoles = roles(models.RoleAdmin, models.RoleSuperAdmin)

	// salonManagerRoles may manage HR data of salons in their scope.
	salonManagerRoles = roles(models.RoleAdmin, models.RoleSuperAdmin, models.RoleDistrictManager,
		models.RoleChainOwner, models.RoleSalonOwner, models.RoleDagligLeder, models.RoleAvdelingsleder)

	inviterRoles = roles(models.RoleAdmin, models.RoleSuperAdmin, models.RoleSalonOwner,
		models.RoleDagligLeder, models.RoleSupplierAdmin)

	supplierRoles = roles(models.RoleAdmin, models.RoleSuperAdmin, models.RoleSupplierAdmin,
		models.RoleSupplierSales, models.RoleSupplierViewer)

	supplierWriteRoles = roles(models.RoleAdmin, models.RoleSuperAdmin, models.RoleSupplierAdmin)
)

func SetupRouter(cfg *config.Config, svc Services) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigin,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Request-ID"},
		AllowCredentials: true,
	}))

	r.Use(config.PerformanceLogger())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	employeeController := &controllers.EmployeeController{Employees: svc.Employees}
	bonusController := &controllers.BonusController{Bonus: svc.Bonus}
	salesController := &controllers.SalesController{Sales: svc.Sales}
	tariffController := &controllers.TariffController{Tariffs: svc.Tariffs}
	invitationController := &controllers.InvitationController{Invitations: svc.Invitations}
	userController := &controllers.UserController{Users: svc.Users}
	announcementController := &controllers.AnnouncementController{Announcements: svc.Announcements}
	poaController := &controllers.POAController{POA: svc.POA}
	hubspotController := &controllers.HubSpotController{HubSpot: svc.HubSpot}
	reportController := controllers.NewReportController()
	authenticate := utils.AuthMiddleware(controllers.LoadPrincipal)

	auth := r.Group("/auth")
	{
		auth.POST("/login", controllers.Login)
		auth.POST("/logout", controllers.Logout)

		auth.Use(authenticate)
		auth.GET("/me", controllers.Me)
		auth.PUT("/profile", controllers.UpdateProfile)
		auth.PUT("/password", controllers.ChangePassword)
	}

	// Public onboarding and power of attorney signing
	public := r.Group("/public")
	{
		public.GET("/invitations/:token", invitationController.Lookup)
		public.POST("/invitations/:token/accept", invitationController.Accept)

		public.POST("/poa", poaController.Create)
		public.POST("/poa/:id/send-otp", poaController.SendOTP)
		public.POST("/poa/:id/verify", poaController.Verify)
	}

	api := r.Group("/api")
	api.Use(authenticate)
	{
		api.GET("/dashboard", controllers.GetDashboardOverview)
		api.GET("/reports/turnover", reportController.GetTurnoverReport)
		api.GET("/announcements/feed", announcementController.Feed)

		// Organization
		api.GET("/salons", controllers.GetSalons)
		api.GET("/salons/:id", controllers.GetSalon)
		orgAdmin := api.Group("", utils.RequireRoles(adminRoles...))
		{
			orgAdmin.POST("/salons", controllers.CreateSalon)
			orgAdmin.PUT("/salons/:id", controllers.UpdateSalon)
			orgAdmin.DELETE("/salons/:id", controllers.DeleteSalon)

			orgAdmin.GET("/chains", controllers.GetChains)
			orgAdmin.POST("/chains", controllers.CreateChain)
			orgAdmin.PUT("/chains/:id", controllers.UpdateChain)
			orgAdmin.DELETE("/chains/:id", controllers.DeleteChain)

			orgAdmin.GET("/districts", controllers.GetDistricts)
			orgAdmin.POST("/districts", controllers.CreateDistrict)
			orgAdmin.PUT("/districts/:id", controllers.UpdateDistrict)
			orgAdmin.DELETE("/districts/:id", controllers.DeleteDistrict)
		}

		employees := api.Group("/employees", utils.RequireRoles(salonManagerRoles...))
		{
			employees.GET("", employeeController.List)
			employees.POST("", employeeController.Create)
			employees.GET("/export", employeeController.ExportCSV)
			employees.POST("/import", employeeController.BulkImport)
			employees.GET("/:id", employeeController.Get)
			employees.PUT("/:id", employeeController.Update)
			employees.DELETE("/:id", employeeController.Delete)
			employees.POST("/:id/user", employeeController.CreateUser)
		}

		invitations := api.Group("/invitations", utils.RequireRoles(inviterRoles...))
		{
			invitations.GET("", invitationController.List)
			invitations.POST("", invitationController.Create)
			invitations.POST("/:id/resend", invitationController.Resend)
			invitations.DELETE("/:id", invitationController.Revoke)
		}

		users := api.Group("/users", utils.RequireRoles(adminRoles...))
		{
			users.GET("", userController.List)
			users.GET("/roles", userController.Roles)
			users.POST("/bulk-role", userController.BulkUpdateRole)
			users.GET("/:id", userController.Get)
			users.PUT("/:id/role", userController.UpdateRole)
			users.GET("/:id/role-history", userController.RoleHistory)
			users.PUT("/:id/active", userController.SetActive)
		}

		tariffs := api.Group("/tariffs")
		{
			tariffs.GET("", tariffController.List)
			tariffs.GET("/years", tariffController.Years)

			tariffAdmin := tariffs.Group("", utils.RequireRoles(adminRoles...))
			tariffAdmin.POST("", tariffController.Create)
			tariffAdmin.POST("/copy", tariffController.CopyYear)
			tariffAdmin.PUT("/:id", tariffController.Update)
			tariffAdmin.DELETE("/:id", tariffController.Delete)
		}

		suppliers := api.Group("/suppliers", utils.RequireRoles(supplierRoles...))
		{
			suppliers.GET("", controllers.GetSuppliers)
			suppliers.GET("/:id", controllers.GetSupplier)
			suppliers.GET("/:id/salons", controllers.GetSupplierSalons)
			suppliers.GET("/:id/team", controllers.GetSupplierTeam)

			supplierAdmin := suppliers.Group("", utils.RequireRoles(adminRoles...))
			supplierAdmin.POST("", controllers.CreateSupplier)
			supplierAdmin.PUT("/:id", controllers.UpdateSupplier)
			supplierAdmin.DELETE("/:id", controllers.DeleteSupplier)
			supplierAdmin.POST("/:id/salons", controllers.LinkSupplierSalon)
			supplierAdmin.DELETE("/:id/salons/:salonId", controllers.UnlinkSupplierSalon)
			supplierAdmin.POST("/:id/hubspot-sync", hubspotController.SyncSupplier)
		}

		sales := api.Group("/sales")
		{
			sales.GET("", salesController.ListSales)

			supplierSales := sales.Group("", utils.RequireRoles(supplierRoles...))
			supplierSales.GET("/batches", salesController.ListBatches)
			supplierSales.GET("/batches/:id", salesController.BatchRows)

			upload := sales.Group("", utils.RequireRoles(supplierWriteRoles...))
			upload.POST("/upload", salesController.Upload)
			upload.POST("/batches/:id/normalize", salesController.Normalize)
		}

		bonus := api.Group("/bonus")
		{
			bonus.GET("/salon", bonusController.SalonBonuses)

			supplierBonus := bonus.Group("", utils.RequireRoles(supplierRoles...))
			supplierBonus.GET("/rules", bonusController.ListRules)
			supplierBonus.GET("/report", bonusController.Report)
			supplierBonus.GET("/report/export", bonusController.ExportCSV)

			bonusWrite := bonus.Group("", utils.RequireRoles(supplierWriteRoles...))
			bonusWrite.POST("/calculate", bonusController.Calculate)
			bonusWrite.POST("/report/send", bonusController.SendReport)

			bonusAdmin := bonus.Group("", utils.RequireRoles(adminRoles...))
			bonusAdmin.POST("/rules", bonusController.CreateRule)
			bonusAdmin.PUT("/rules/:id", bonusController.UpdateRule)
			bonusAdmin.DELETE("/rules/:id", bonusController.DeleteRule)
			bonusAdmin.POST("/approve", bonusController.Approve)
			bonusAdmin.POST("/calculations/:id/reopen", bonusController.Reopen)
			bonusAdmin.GET("/overrides", bonusController.ListOverrides)
			bonusAdmin.PUT("/overrides", bonusController.SetOverride)
			bonusAdmin.DELETE("/overrides/:id", bonusController.DeleteOverride)
		}

		announcements := api.Group("/announcements", utils.RequireRoles(adminRoles...))
		{
			announcements.GET("", announcementController.List)
			announcements.POST("", announcementController.Create)
			announcements.PUT("/reorder", announcementController.Reorder)
			announcements.PUT("/:id", announcementController.Update)
			announcements.DELETE("/:id", announcementController.Delete)
			announcements.POST("/:id/image", announcementController.GenerateImage)
		}

		api.GET("/poa", utils.RequireRoles(adminRoles...), poaController.List)

		hubspot := api.Group("/hubspot", utils.RequireRoles(adminRoles...))
		{
			hubspot.GET("/status", hubspotController.Status)
			hubspot.GET("/authorize", hubspotController.Authorize)
			hubspot.POST("/callback", hubspotController.Callback)
			hubspot.DELETE("/connection", hubspotController.Disconnect)
			hubspot.GET("/contacts", hubspotController.SearchContact)
			hubspot.POST("/contacts", hubspotController.CreateContact)
			hubspot.GET("/companies", hubspotController.SearchCompanies)
			hubspot.GET("/owners", hubspotController.Owners)
		}
	}

	return r
}
