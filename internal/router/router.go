package router

import (
	"github.com/backoffice/internal/handler"
	"github.com/gin-gonic/gin"
)

// SetupRouter configures the gin engine and the API route table.
func SetupRouter(api *handler.API) *gin.Engine {
	r := gin.Default()

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	root := r.Group("/api")
	{
		root.POST("/login", api.Login)
		root.POST("/token/refresh", api.RefreshToken)
		root.POST("/password-reset", api.RequestPasswordReset)
		root.POST("/password-reset/verify", api.VerifyPasswordReset)

		auth := root.Group("")
		auth.Use(api.AuthRequired())
		{
			auth.GET("/profile", api.GetProfile)
			auth.PATCH("/profile", api.UpdateProfile)
			auth.POST("/change-password", api.ChangePassword)

			auth.GET("/comments", api.ListComments)
			auth.POST("/comments", api.CreateComment)
			auth.GET("/comments/:id", api.GetComment)
			auth.PATCH("/comments/:id", api.UpdateComment)
			auth.DELETE("/comments/:id", api.DeleteComment)

			auth.GET("/permissions/my-permissions", api.MyPermissions)

			admin := auth.Group("")
			admin.Use(api.AdminRequired())
			{
				admin.POST("/register", api.Register)
				admin.GET("/users", api.ListUsers)
				admin.DELETE("/users/delete", api.DeleteUser)

				admin.GET("/comments/history", api.ListCommentHistory)
				admin.GET("/comments/history/:id", api.GetCommentHistory)

				admin.GET("/permissions", api.ListGrants)
				admin.POST("/permissions", api.CreateGrant)
				admin.GET("/permissions/:id", api.GetGrant)
				admin.PATCH("/permissions/:id", api.UpdateGrant)
				admin.DELETE("/permissions/:id", api.DeleteGrant)
				admin.POST("/permissions/update", api.UpdateUserPermissions)
			}
		}
	}

	return r
}
