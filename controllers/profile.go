package controllers

import (
	"net/http"

	"acrevista-api/models"
	"acrevista-api/services"

	"github.com/gin-gonic/gin"
)

func ValidTitles(c *gin.Context) {
	c.JSON(http.StatusOK, models.ValidTitles())
}

func ValidCountries(c *gin.Context) {
	c.JSON(http.StatusOK, models.ValidCountries())
}

func (ctl *Controller) GetProfile(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	profile, err := ctl.svc.Accounts.GetProfile(c.Request.Context(), currentUser(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProfile(profile))
}

// UpdateProfile applies a partial update; omitted fields keep their values.
func (ctl *Controller) UpdateProfile(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var patch services.ProfilePatch
	if err := c.ShouldBind(&patch); err != nil {
		badPayload(c, err)
		return
	}
	profile, err := ctl.svc.Accounts.UpdateProfile(c.Request.Context(), currentUser(c), id, patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProfile(profile))
}
