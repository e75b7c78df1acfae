package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"acrevista-api/config"
	"acrevista-api/middleware"
	"acrevista-api/models"
	"acrevista-api/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Controller serves the JSON API.
type Controller struct {
	svc  *services.Services
	auth *middleware.Auth
}

func New(svc *services.Services, auth *middleware.Auth) *Controller {
	return &Controller{svc: svc, auth: auth}
}

func currentUser(c *gin.Context) *models.User {
	return middleware.CurrentUser(c)
}

// pathID parses an integer path parameter, answering 404 when it is not one.
func pathID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found."})
		return 0, false
	}
	return id, true
}

// respondError maps service errors onto HTTP responses.
func respondError(c *gin.Context, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, verr.Fields)
	case errors.Is(err, services.ErrInvalidCredentials), errors.Is(err, services.ErrInactiveUser):
		c.JSON(http.StatusBadRequest, gin.H{"non_field_errors": []string{err.Error()}})
	case errors.Is(err, services.ErrForbidden),
		errors.Is(err, services.ErrAlreadyReviewed),
		errors.Is(err, services.ErrAlreadyInvited):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found."})
	case errors.Is(err, services.ErrInvitationClosed),
		errors.Is(err, services.ErrTokenInvalid),
		errors.Is(err, services.ErrTokenExpired):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrDeliveryFailed):
		config.Log.Error("notification delivery failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": services.ErrDeliveryFailed.Error()})
	default:
		config.Log.Error("request failed",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func badPayload(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
}
