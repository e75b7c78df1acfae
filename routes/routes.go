package routes

import (
	"net/http"
	"strings"

	"acrevista-api/controllers"
	"acrevista-api/middleware"
	"acrevista-api/services"
	"acrevista-api/web"

	"github.com/gin-gonic/gin"
)

// Options carries what the router needs besides the handlers.
type Options struct {
	Auth   *middleware.Auth
	Tokens *services.LoginTokenService
	Limits Limiters
	API    *controllers.Controller
	Web    *web.Handler
}

// Limiters throttles the unauthenticated account endpoints. Each action keeps
// its own buckets.
type Limiters struct {
	Register      *middleware.IPRateLimiter
	PasswordReset *middleware.IPRateLimiter
	ResetConfirm  *middleware.IPRateLimiter
}

// NewLimiters builds one limiter per throttled action.
func NewLimiters(registerPerMinute, resetPerMinute int) Limiters {
	return Limiters{
		Register:      middleware.NewIPRateLimiter(registerPerMinute),
		PasswordReset: middleware.NewIPRateLimiter(resetPerMinute),
		ResetConfirm:  middleware.NewIPRateLimiter(resetPerMinute),
	}
}

func SetupRoutes(router *gin.Engine, opts Options) {
	setupAPI(router.Group("/api"), opts.API, opts.Auth, opts.Limits)
	setupWeb(router, opts.Web, opts.Auth, opts.Tokens, opts.Limits)

	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found."})
			return
		}
		opts.Web.NotFound(c)
	})
}

func setupAPI(api *gin.RouterGroup, ctl *controllers.Controller, auth *middleware.Auth, limits Limiters) {
	// Public routes
	api.POST("/token-auth", ctl.TokenAuth)
	api.POST("/token-refresh", ctl.TokenRefresh)
	api.POST("/token-verify", ctl.TokenVerify)
	api.POST("/register", limits.Register.Middleware(), ctl.Register)
	api.POST("/password-reset", limits.PasswordReset.Middleware(), ctl.ForgotPassword)
	api.POST("/password-reset/confirm", limits.ResetConfirm.Middleware(), ctl.ResetPassword)
	api.GET("/profile/valid_titles", controllers.ValidTitles)
	api.GET("/profile/valid_countries", controllers.ValidCountries)
	api.GET("/papers/count", ctl.CountPapers)

	protected := api.Group("")
	protected.Use(auth.RequireAPIUser())
	{
		protected.PUT("/change-password", ctl.ChangePassword)
		protected.PUT("/change-user-details", ctl.ChangeUserDetails)
		protected.GET("/account/users", ctl.ListUsers)

		protected.GET("/profile/:id", ctl.GetProfile)
		protected.PUT("/profile/:id", ctl.UpdateProfile)
		protected.PATCH("/profile/:id", ctl.UpdateProfile)

		papers := protected.Group("/papers")
		{
			papers.GET("", ctl.ListSubmittedPapers)
			papers.POST("", ctl.SubmitPaper)
			papers.GET("/all", ctl.ListAllPapers)
			papers.GET("/editor", ctl.ListEditorPapers)
			papers.GET("/editor/self", ctl.ListEditorSelfPapers)
			papers.GET("/reviewer", ctl.ListReviewerPapers)
			papers.GET("/no-editor", ctl.ListNoEditorPapers)

			papers.GET("/:id/detail", ctl.PaperDetail)
			papers.GET("/:id/history", ctl.PaperHistory)
			papers.GET("/:id/files/:kind", ctl.DownloadPaperFile)

			// Only staff can pick editors and reviewers
			papers.POST("/:id/editor", middleware.RequireStaff(), ctl.SetEditor)
			papers.DELETE("/:id/editor", middleware.RequireStaff(), ctl.ClearEditor)
			papers.PUT("/:id/reviewer", middleware.RequireStaff(), ctl.AddReviewer)
			papers.DELETE("/:id/reviewer", middleware.RequireStaff(), ctl.RemoveReviewer)

			papers.GET("/:id/review", ctl.GetOwnReview)
			papers.PUT("/:id/review", ctl.UpdateOwnReview)
			papers.PATCH("/:id/review", ctl.UpdateOwnReview)
			papers.GET("/:id/reviews", ctl.ListPaperReviews)
			papers.GET("/:id/reviews/editor", ctl.EditorReview)

			papers.GET("/:id/invitations", ctl.ListInvitations)
			papers.POST("/:id/invitations", ctl.CreateInvitation)
		}

		protected.POST("/review", ctl.CreateReview)
		protected.GET("/reviews/:id/file", ctl.DownloadReviewFile)
		protected.DELETE("/invitations/:id", ctl.CancelInvitation)
		protected.POST("/users/:id/login-token", middleware.RequireStaff(), ctl.IssueLoginToken)
	}
}

func setupWeb(router *gin.Engine, h *web.Handler, auth *middleware.Auth, tokens *services.LoginTokenService, limits Limiters) {
	site := router.Group("")
	site.Use(auth.WebSession(), middleware.LoginToken(tokens, auth))

	site.GET("/", h.Home)

	account := site.Group("/account")
	{
		account.GET("/register", h.RegisterForm)
		account.POST("/register", limits.Register.Middleware(), h.Register)
		account.GET("/login", h.LoginForm)
		account.POST("/login", h.Login)
		account.GET("/logout", h.Logout)
		account.POST("/logout", h.Logout)
		account.GET("/password-reset", h.PasswordResetForm)
		account.POST("/password-reset", limits.PasswordReset.Middleware(), h.PasswordReset)
		account.GET("/password-reset/confirm", h.PasswordResetConfirmForm)
		account.POST("/password-reset/confirm", limits.ResetConfirm.Middleware(), h.PasswordResetConfirm)
		account.GET("/invite/:token/accept", h.AcceptInvite)
		account.GET("/invite/:token/reject", h.RejectInvite)

		private := account.Group("")
		private.Use(middleware.RequireLogin())
		{
			private.GET("/", h.Dashboard)
			private.GET("/personal-details", h.PersonalDetailsForm)
			private.POST("/personal-details", h.PersonalDetails)
			private.GET("/email-change", h.EmailChangeForm)
			private.POST("/email-change", h.EmailChange)
			private.GET("/password-change", h.PasswordChangeForm)
			private.POST("/password-change", h.PasswordChange)
			private.POST("/invite", h.InviteUser)
			private.GET("/get-invite", h.GetInvitations)
			private.POST("/cancel-invite", h.CancelInvite)
		}
	}

	journal := site.Group("/journal")
	{
		journal.GET("/", h.Journal)

		private := journal.Group("")
		private.Use(middleware.RequireLogin())
		{
			private.GET("/submit", h.SubmitForm)
			private.POST("/submit", h.Submit)
			private.GET("/history", h.History)
			private.GET("/review", h.ReviewQueue)
			private.POST("/review", h.SubmitReview)
			private.GET("/paper/:id", h.PaperDetail)
			private.GET("/paper/:id/detail", h.PaperDetail)
			private.GET("/paper/:id/files/:kind", h.PaperFile)
		}
	}
}
