package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/nurpe/bonus-agreements/internal/model"
	"github.com/nurpe/bonus-agreements/internal/session"
)

const (
	principalContextKey = "principal"
	LoginPath           = "/login"
)

type Resolver interface {
	Resolve(ctx context.Context, cookie string) (*model.Principal, error)
}

// Auth resolves the session cookie into a principal. Anonymous requests are
// sent to the login page; other resolution failures go to fail.
func Auth(resolver Resolver, cookies Cookies, fail func(*gin.Context, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, ok := cookies.Read(c)
		if !ok {
			redirectToLogin(c)
			return
		}

		principal, err := resolver.Resolve(c.Request.Context(), value)
		if err != nil {
			if errors.Is(err, session.ErrUnauthenticated) {
				cookies.Clear(c)
				redirectToLogin(c)
				return
			}
			_ = c.Error(err)
			fail(c, err)
			c.Abort()
			return
		}

		c.Set(principalContextKey, principal)
		c.Request = c.Request.WithContext(session.WithPrincipal(c.Request.Context(), principal))
		c.Next()
	}
}

func MustPrincipal(c *gin.Context) (*model.Principal, bool) {
	value, exists := c.Get(principalContextKey)
	if !exists {
		return nil, false
	}
	principal, ok := value.(*model.Principal)
	return principal, ok && principal != nil
}

func redirectToLogin(c *gin.Context) {
	target := LoginPath
	if c.Request.Method == http.MethodGet && c.Request.URL.Path != "/" {
		target += "?next=" + url.QueryEscape(c.Request.URL.RequestURI())
	}
	c.Redirect(http.StatusSeeOther, target)
	c.Abort()
}
