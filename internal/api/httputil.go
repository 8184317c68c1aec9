package api

import "github.com/gin-gonic/gin"

// RespondError writes the error body and aborts the handler chain.
func RespondError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
