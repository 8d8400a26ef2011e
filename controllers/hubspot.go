package controllers

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"

	"salonportal-backend/config"
	"salonportal-backend/services"
	"salonportal-backend/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const hubspotStateCookie = "hubspot_state"

type HubSpotController struct {
	HubSpot *services.HubSpotClient
}

type HubSpotCallbackInput struct {
	Code  string `json:"code" binding:"required"`
	State string `json:"state" binding:"required"`
}

type SyncSupplierInput struct {
	OrgNumber string `json:"orgNumber" binding:"required"`
}

func (hc *HubSpotController) Status(c *gin.Context) {
	conn, err := hc.HubSpot.Connection(c.Request.Context())
	if errors.Is(err, services.ErrHubSpotNotConnected) {
		c.JSON(http.StatusOK, gin.H{"connected": false})
		return
	}
	if err != nil {
		respondError(c, err, "read hubspot connection")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"connected":   true,
		"portalId":    conn.PortalID,
		"expiresAt":   conn.ExpiresAt,
		"connectedBy": conn.ConnectedBy,
		"connectedAt": conn.CreatedAt,
	})
}

// Authorize returns the HubSpot consent URL. The state is kept in a cookie
// and checked on callback.
func (hc *HubSpotController) Authorize(c *gin.Context) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		respondError(c, err, "start hubspot authorization")
		return
	}
	state := hex.EncodeToString(b)

	authURL, err := hc.HubSpot.AuthorizeURL(state)
	if err != nil {
		respondError(c, err, "start hubspot authorization")
		return
	}
	c.SetCookie(hubspotStateCookie, state, 600, "/", "", true, true)
	c.JSON(http.StatusOK, gin.H{"url": authURL})
}

func (hc *HubSpotController) Callback(c *gin.Context) {
	var input HubSpotCallbackInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "code and state are required")
		return
	}
	expected, err := c.Cookie(hubspotStateCookie)
	if err != nil || expected == "" || expected != input.State {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid authorization state")
		return
	}
	c.SetCookie(hubspotStateCookie, "", -1, "/", "", true, true)

	conn, err := hc.HubSpot.Exchange(c.Request.Context(), input.Code, callerID(c))
	if err != nil {
		respondError(c, err, "connect hubspot")
		return
	}
	c.JSON(http.StatusOK, gin.H{"connected": true, "portalId": conn.PortalID, "expiresAt": conn.ExpiresAt})
}

func (hc *HubSpotController) Disconnect(c *gin.Context) {
	if err := hc.HubSpot.Disconnect(c.Request.Context()); err != nil {
		respondError(c, err, "disconnect hubspot")
		return
	}
	config.RequestLogger(c).Info("HubSpot disconnected")
	c.JSON(http.StatusOK, gin.H{"connected": false})
}

func (hc *HubSpotController) SearchContact(c *gin.Context) {
	email := strings.TrimSpace(c.Query("email"))
	if email == "" {
		utils.RespondWithError(c, http.StatusBadRequest, "email is required")
		return
	}
	contact, err := hc.HubSpot.SearchContactByEmail(c.Request.Context(), email)
	if err != nil {
		respondError(c, err, "search contacts")
		return
	}
	if contact == nil {
		utils.RespondWithError(c, http.StatusNotFound, "Contact not found")
		return
	}
	c.JSON(http.StatusOK, contact)
}

func (hc *HubSpotController) CreateContact(c *gin.Context) {
	var input services.ContactInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	if strings.TrimSpace(input.Email) == "" {
		utils.RespondWithError(c, http.StatusBadRequest, "email is required")
		return
	}
	ctx := c.Request.Context()
	existing, err := hc.HubSpot.SearchContactByEmail(ctx, input.Email)
	if err != nil {
		respondError(c, err, "search contacts")
		return
	}
	if existing != nil {
		c.JSON(http.StatusOK, gin.H{"contact": existing, "created": false})
		return
	}
	contact, err := hc.HubSpot.CreateContact(ctx, input)
	if err != nil {
		respondError(c, err, "create contact")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"contact": contact, "created": true})
}

func (hc *HubSpotController) SearchCompanies(c *gin.Context) {
	org := utils.NormalizeOrgNumber(c.Query("org_number"))
	if org == "" {
		utils.RespondWithError(c, http.StatusBadRequest, "org_number is required")
		return
	}
	companies, err := hc.HubSpot.SearchCompaniesByOrgNumber(c.Request.Context(), org)
	if err != nil {
		respondError(c, err, "search companies")
		return
	}
	c.JSON(http.StatusOK, companies)
}

func (hc *HubSpotController) Owners(c *gin.Context) {
	owners, err := hc.HubSpot.ListOwners(c.Request.Context())
	if err != nil {
		respondError(c, err, "list owners")
		return
	}
	c.JSON(http.StatusOK, owners)
}

func (hc *HubSpotController) SyncSupplier(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var input SyncSupplierInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "orgNumber is required")
		return
	}
	org := utils.NormalizeOrgNumber(input.OrgNumber)
	if len(org) != 9 {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid organization number")
		return
	}

	supplier, company, err := hc.HubSpot.SyncSupplier(c.Request.Context(), id, org)
	if err != nil {
		respondError(c, err, "sync supplier")
		return
	}
	config.RequestLogger(c).Info("Supplier linked to HubSpot company",
		zap.String("supplier_id", supplier.ID.String()),
		zap.String("company_id", company.ID))
	c.JSON(http.StatusOK, gin.H{"supplier": supplier, "company": company})
}
