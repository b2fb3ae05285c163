package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Error writes {"detail": message} with the given status.
func Error(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"detail": message})
}
