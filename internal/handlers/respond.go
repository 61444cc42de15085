package handlers

import (
	"github.com/gin-gonic/gin"
)

// ErrorResponse sends a standardized error body. Handlers decide the status
// code; upstream failures surface the underlying message per the error
// contract.
func ErrorResponse(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}
