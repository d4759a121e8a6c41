package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/dormkeeper/dormkeeper-api/internal/models"
	"github.com/dormkeeper/dormkeeper-api/internal/repository"
)

// Audit records an activity log entry after a successful request. It is
// attached per-route for the actions worth auditing.
func Audit(repo *repository.ActivityRepository, action, table string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Status() >= 400 {
			return
		}

		var userID *string
		if claims, ok := c.Get(ContextUserKey); ok {
			user := claims.(*models.JWTClaims)
			userID = &user.UserID
		}

		var recordID *string
		if id := c.Param("id"); id != "" {
			recordID = &id
		}

		_ = repo.Create(c.Request.Context(), &models.ActivityLog{
			UserID:      userID,
			Action:      action,
			TableName:   table,
			RecordID:    recordID,
			Description: c.Request.Method + " " + c.FullPath(),
			IPAddress:   c.ClientIP(),
		})
	}
}
