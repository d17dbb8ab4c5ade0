package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Cookies manages the console session cookie.
type Cookies struct {
	Name   string
	Secure bool
}

func (m Cookies) Read(c *gin.Context) (string, bool) {
	value, err := c.Cookie(m.Name)
	if err != nil || strings.TrimSpace(value) == "" {
		return "", false
	}
	return value, true
}

func (m Cookies) Set(c *gin.Context, value string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge < 0 {
		maxAge = 0
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.Name, value, maxAge, "/", "", m.Secure, true)
}

func (m Cookies) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.Name, "", -1, "/", "", m.Secure, true)
}
