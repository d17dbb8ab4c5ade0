package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/nurpe/bonus-agreements/internal/backend"
	"github.com/nurpe/bonus-agreements/internal/model"
	"github.com/nurpe/bonus-agreements/internal/session"
)

type resolverFunc func(ctx context.Context, cookie string) (*model.Principal, error)

func (f resolverFunc) Resolve(ctx context.Context, cookie string) (*model.Principal, error) {
	return f(ctx, cookie)
}

var testCookies = Cookies{Name: "agreements_session"}

func newRouter(resolver Resolver) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	fail := func(c *gin.Context, err error) {
		c.String(http.StatusBadGateway, err.Error())
	}
	r.Use(Auth(resolver, testCookies, fail))
	r.GET("/agreements", func(c *gin.Context) {
		principal, ok := MustPrincipal(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, principal.User.Username+":"+backend.AccessTokenFrom(c.Request.Context()))
	})
	return r
}

func TestAuthRedirectsWithoutCookie(t *testing.T) {
	r := newRouter(resolverFunc(func(context.Context, string) (*model.Principal, error) {
		t.Fatal("resolver must not be called")
		return nil, nil
	}))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/agreements?status=DELETED", nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?next=%2Fagreements%3Fstatus%3DDELETED", rec.Header().Get("Location"))
}

func TestAuthSetsPrincipal(t *testing.T) {
	r := newRouter(resolverFunc(func(_ context.Context, cookie string) (*model.Principal, error) {
		assert.Equal(t, "signed", cookie)
		return &model.Principal{SessionID: uuid.New(), AccessToken: "tok", User: model.User{Username: "admin"}}, nil
	}))

	req := httptest.NewRequest(http.MethodGet, "/agreements", nil)
	req.AddCookie(&http.Cookie{Name: testCookies.Name, Value: "signed"})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin:tok", rec.Body.String())
}

func TestAuthClearsRejectedSession(t *testing.T) {
	r := newRouter(resolverFunc(func(context.Context, string) (*model.Principal, error) {
		return nil, session.ErrUnauthenticated
	}))

	req := httptest.NewRequest(http.MethodGet, "/agreements", nil)
	req.AddCookie(&http.Cookie{Name: testCookies.Name, Value: "stale"})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, rec.Header().Get("Set-Cookie"), testCookies.Name+"=;")
}

func TestAuthPassesOtherFailures(t *testing.T) {
	r := newRouter(resolverFunc(func(context.Context, string) (*model.Principal, error) {
		return nil, errors.New("backend unreachable")
	}))

	req := httptest.NewRequest(http.MethodGet, "/agreements", nil)
	req.AddCookie(&http.Cookie{Name: testCookies.Name, Value: "signed"})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "backend unreachable", rec.Body.String())
}
