package httpkit

import "github.com/gin-gonic/gin"

// OperatorID returns the authenticated operator set by AuthRequired.
func OperatorID(c *gin.Context) (string, bool) {
	value, ok := c.Get(ContextOperatorIDKey)
	if !ok {
		return "", false
	}
	id, ok := value.(string)
	return id, ok && id != ""
}
