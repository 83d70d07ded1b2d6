package routes

import (
	"manuscript-review-api/controllers"
	"manuscript-review-api/middleware"
	"manuscript-review-api/models"
	"manuscript-review-api/store"

	"github.com/gin-gonic/gin"
)

// Handlers bundles the controllers the route table mounts.
type Handlers struct {
	Users         store.UserRepository
	Auth          *controllers.AuthController
	Manuscripts   *controllers.ManuscriptController
	Notifications *controllers.NotificationController
	Files         *controllers.FileController
}

func SetupRoutes(router *gin.Engine, h Handlers) {
	admin := middleware.RequireRole(models.RoleAdmin)
	reviewer := middleware.RequireRole(models.RolePeerReviewer)
	researcher := middleware.RequireRole(models.RoleResearcher)

	// API v1 group
	v1 := router.Group("/api/v1")
	{
		// Public routes
		public := v1.Group("")
		{
			public.POST("/login", h.Auth.Login)

			// Signed links carry their own authorisation
			public.GET("/files/download", h.Files.Download)

			public.GET("/health", func(c *gin.Context) {
				c.JSON(200, gin.H{
					"status":  "ok",
					"message": "Manuscript Review API is running",
				})
			})
		}

		// Protected routes (require authentication)
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(h.Users))
		{
			protected.GET("/profile", h.Auth.GetProfile)

			manuscripts := protected.Group("/manuscripts")
			{
				manuscripts.GET("", h.Manuscripts.ListManuscripts)
				manuscripts.POST("", middleware.RequireRole(models.RoleResearcher, models.RoleAdmin), h.Manuscripts.CreateManuscript)
				manuscripts.GET("/:id", h.Manuscripts.GetManuscript)
				manuscripts.GET("/:id/file-link", h.Manuscripts.FileLink)

				// Admin workflow
				manuscripts.POST("/:id/status", admin, h.Manuscripts.ChangeStatus)
				manuscripts.POST("/:id/reviewers", admin, h.Manuscripts.AssignReviewer)
				manuscripts.DELETE("/:id/reviewers", admin, h.Manuscripts.UnassignReviewer)
				manuscripts.DELETE("/:id/reviewers/:reviewerId", admin, h.Manuscripts.UnassignReviewer)
				manuscripts.PUT("/:id/reviewers/:reviewerId/deadline", admin, h.Manuscripts.ExtendReviewerDeadline)
				manuscripts.POST("/:id/recompute", admin, h.Manuscripts.Recompute)

				// Reviewers act on their own assignment
				manuscripts.POST("/:id/decision", reviewer, h.Manuscripts.SubmitDecision)
				manuscripts.POST("/:id/reviews", reviewer, h.Manuscripts.SubmitReview)

				manuscripts.POST("/:id/resubmit", researcher, h.Manuscripts.Resubmit)
			}

			notifications := protected.Group("/notifications")
			{
				notifications.GET("", h.Notifications.GetNotifications)
				notifications.PATCH("/:id/read", h.Notifications.MarkNotificationRead)
			}
		}
	}
}
