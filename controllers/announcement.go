package controllers

import (
	"net/http"

	"salonportal-backend/services"
	"salonportal-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AnnouncementController struct {
	Announcements *services.AnnouncementService
}

type ReorderInput struct {
	IDs []uuid.UUID `json:"ids" binding:"required"`
}

type GenerateImageInput struct {
	Prompt string `json:"prompt"`
}

func (ac *AnnouncementController) List(c *gin.Context) {
	rows, err := ac.Announcements.List(c.Request.Context())
	if err != nil {
		respondError(c, err, "retrieve announcements")
		return
	}
	c.JSON(http.StatusOK, rows)
}

// Feed returns the announcements visible to the caller's role.
func (ac *AnnouncementController) Feed(c *gin.Context) {
	rows, err := ac.Announcements.Feed(c.Request.Context(), callerRole(c))
	if err != nil {
		respondError(c, err, "retrieve announcements")
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (ac *AnnouncementController) Create(c *gin.Context) {
	var input services.AnnouncementInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	a, err := ac.Announcements.Create(c.Request.Context(), callerID(c), input)
	if err != nil {
		respondError(c, err, "create announcement")
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (ac *AnnouncementController) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var input services.AnnouncementInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	a, err := ac.Announcements.Update(c.Request.Context(), id, input)
	if err != nil {
		respondError(c, err, "update announcement")
		return
	}
	c.JSON(http.StatusOK, a)
}

func (ac *AnnouncementController) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := ac.Announcements.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err, "delete announcement")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Announcement deleted"})
}

func (ac *AnnouncementController) Reorder(c *gin.Context) {
	var input ReorderInput
	if err := c.ShouldBindJSON(&input); err != nil || len(input.IDs) == 0 {
		utils.RespondWithError(c, http.StatusBadRequest, "ids are required")
		return
	}
	if err := ac.Announcements.Reorder(c.Request.Context(), input.IDs); err != nil {
		respondError(c, err, "reorder announcements")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order saved"})
}

func (ac *AnnouncementController) GenerateImage(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var input GenerateImageInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
			return
		}
	}
	a, err := ac.Announcements.GenerateImage(c.Request.Context(), id, input.Prompt)
	if err != nil {
		respondError(c, err, "generate image")
		return
	}
	c.JSON(http.StatusOK, a)
}
