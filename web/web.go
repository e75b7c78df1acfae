package web

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"acrevista-api/config"
	"acrevista-api/middleware"
	"acrevista-api/models"
	"acrevista-api/services"
	"acrevista-api/utils"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	"go.uber.org/zap"
)

//go:embed templates
var templateFS embed.FS

var pages = []string{
	"home",
	"journal",
	"register",
	"register_done",
	"login",
	"dashboard",
	"personal_details",
	"email_change",
	"password_change",
	"password_reset",
	"password_reset_confirm",
	"submit",
	"history",
	"paper_detail",
	"review",
	"error",
}

// Handler serves the server-rendered pages. Sessions come from
// middleware.Auth; every page gets the current user and pending flashes.
type Handler struct {
	svc       *services.Services
	auth      *middleware.Auth
	siteName  string
	templates map[string]*template.Template
}

func New(svc *services.Services, auth *middleware.Auth, siteName string) (*Handler, error) {
	h := &Handler{svc: svc, auth: auth, siteName: siteName, templates: map[string]*template.Template{}}
	for _, page := range pages {
		tmpl, err := template.New("base.gohtml").Funcs(funcs).ParseFS(templateFS, "templates/base.gohtml", "templates/"+page+".gohtml")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", page, err)
		}
		h.templates[page] = tmpl
	}
	return h, nil
}

var funcs = template.FuncMap{
	"statusLabel":         func(s models.PaperStatus) string { return s.Label() },
	"recommendationLabel": func(r models.Recommendation) string { return r.Label() },
	"date":                func(t time.Time) string { return t.Format("02 Jan 2006") },
	"lines":               func(s string) []string { return strings.Split(s, "\n") },
	"dict": func(pairs ...any) (map[string]any, error) {
		if len(pairs)%2 != 0 {
			return nil, errors.New("dict expects key and value pairs")
		}
		out := make(map[string]any, len(pairs)/2)
		for i := 0; i < len(pairs); i += 2 {
			key, ok := pairs[i].(string)
			if !ok {
				return nil, fmt.Errorf("dict key %v is not a string", pairs[i])
			}
			out[key] = pairs[i+1]
		}
		return out, nil
	},
	"field": func(form map[string]string, name string) string { return form[name] },
	"fieldErrors": func(errs utils.FieldErrors, field string) []string {
		if errs == nil {
			return nil
		}
		return errs[field]
	},
}

// render writes page inside the base layout.
func (h *Handler) render(c *gin.Context, status int, page string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	if _, ok := data["Section"]; !ok {
		data["Section"] = ""
	}
	data["User"] = middleware.CurrentUser(c)
	data["Flashes"] = middleware.Flashes(c)
	data["SiteName"] = h.siteName
	c.Render(status, render.HTML{Template: h.templates[page], Name: "base", Data: data})
}

// fail renders the error page matching err.
func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		h.render(c, http.StatusNotFound, "error", gin.H{"Title": "Page not found", "Message": "The page you requested does not exist."})
	case errors.Is(err, services.ErrForbidden):
		h.render(c, http.StatusForbidden, "error", gin.H{"Title": "Forbidden", "Message": "You do not have permission to view this page."})
	default:
		config.Log.Error("web request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		h.render(c, http.StatusInternalServerError, "error", gin.H{"Title": "Server error", "Message": "Something went wrong. Please try again later."})
	}
}

// NotFound is used for unmatched routes outside /api.
func (h *Handler) NotFound(c *gin.Context) {
	h.fail(c, services.ErrNotFound)
}

func currentUser(c *gin.Context) *models.User {
	return middleware.CurrentUser(c)
}

// fieldErrorsOf extracts field messages from a validation failure.
func fieldErrorsOf(err error) (utils.FieldErrors, bool) {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		return verr.Fields, true
	}
	return nil, false
}

// safeNext only allows local redirect targets.
func safeNext(next, fallback string) string {
	if strings.HasPrefix(next, "/") && !strings.HasPrefix(next, "//") && !strings.HasPrefix(next, "/\\") {
		return next
	}
	return fallback
}

func formValues(c *gin.Context, names ...string) map[string]string {
	out := make(map[string]string, len(names))
	for _, name := range names {
		out[name] = c.PostForm(name)
	}
	return out
}

func ptr(s string) *string {
	return &s
}
