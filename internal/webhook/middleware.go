package webhook

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	headerHMAC = "X-Webhook-Hmac"
	maxBody    = 1 << 20
)

// HMACMiddleware verifies the HMAC-SHA512 signature WAHA puts on webhook
// calls when a key is configured. An empty key disables the check.
func HMACMiddleware(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.Next()
			return
		}

		signature := strings.TrimSpace(c.GetHeader(headerHMAC))
		if signature == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing signature"})
			return
		}

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBody))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		if !validSignature(key, body, signature) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			return
		}
		c.Next()
	}
}

func validSignature(key string, body []byte, signature string) bool {
	expected, err := hex.DecodeString(strings.ToLower(signature))
	if err != nil {
		return false
	}
	return hmac.Equal(sign(key, body), expected)
}

func sign(key string, body []byte) []byte {
	mac := hmac.New(sha512.New, []byte(key))
	mac.Write(body)
	return mac.Sum(nil)
}
