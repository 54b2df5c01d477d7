package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/yigit/coursereg/internal/app/controllers"
	"github.com/yigit/coursereg/internal/app/models"
	"github.com/yigit/coursereg/internal/middleware"
)

// Controllers groups the handlers mounted by SetupRouter
type Controllers struct {
	Auth       *controllers.AuthController
	Course     *controllers.CourseController
	Enrollment *controllers.EnrollmentController
	Account    *controllers.AccountController
}

// SetupRouter configures all application routes under basePath
func SetupRouter(
	router *gin.Engine,
	basePath string,
	c Controllers,
	authMiddleware *middleware.AuthMiddleware,
) {
	api := router.Group(basePath)

	// --- Public routes ---
	api.POST("/register", c.Auth.Register)
	api.POST("/login", c.Auth.Login)
	api.POST("/token/refresh", c.Auth.RefreshToken)
	api.GET("/courses/filter-options", c.Course.FilterOptions)

	// Search is public; a valid token adds the caller's favorite and enrolled flags.
	api.GET("/courses/search", authMiddleware.OptionalAuth(), c.Course.Search)

	// --- Authenticated routes ---
	authenticated := api.Group("")
	authenticated.Use(authMiddleware.JWTAuth())
	{
		authenticated.POST("/logout", c.Auth.Logout)
		authenticated.GET("/user/profile", c.Auth.Profile)
		authenticated.POST("/user/change-password", c.Auth.ChangePassword)

		// Student registration actions
		student := authenticated.Group("")
		student.Use(authMiddleware.RoleRequired(models.RoleStudent))
		{
			student.POST("/courses/:id/enroll", c.Enrollment.Enroll)
			student.POST("/courses/:id/drop", c.Enrollment.Drop)
			student.POST("/courses/:id/favorite", c.Enrollment.ToggleFavorite)
			student.GET("/courses/favorites", c.Enrollment.Favorites)
			student.GET("/courses/enrolled", c.Enrollment.Enrolled)
			student.GET("/user/credit-summary", c.Enrollment.CreditSummary)
		}

		// Staff management
		admin := authenticated.Group("")
		admin.Use(authMiddleware.RoleRequired(models.RoleAdmin))
		{
			admin.GET("/courses", c.Course.List)
			admin.POST("/courses/create", c.Course.Create)
			admin.PUT("/courses/:id", c.Course.Update)
			admin.PATCH("/courses/:id/status", c.Course.UpdateStatus)
			admin.DELETE("/courses/:id/delete", c.Course.Delete)
			admin.GET("/teachers", c.Course.ListTeachers)
			admin.PUT("/enrollments/:id/result", c.Enrollment.SetResult)

			accounts := admin.Group("/accounts")
			{
				accounts.GET("/students", c.Account.ListStudents)
				accounts.GET("/teachers", c.Account.ListTeachers)
				accounts.PUT("/students/:id", c.Account.UpdateStudent)
				accounts.PUT("/teachers/:id", c.Account.UpdateTeacher)
				accounts.DELETE("/students/:id", c.Account.DeleteStudent)
				accounts.DELETE("/teachers/:id", c.Account.DeleteTeacher)
			}
		}
	}
}
