package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nurpe/bonus-agreements/internal/backend"
	"github.com/nurpe/bonus-agreements/internal/catalog"
	"github.com/nurpe/bonus-agreements/internal/http/middleware"
	"github.com/nurpe/bonus-agreements/internal/model"
	"github.com/nurpe/bonus-agreements/internal/session"
)

type AgreementService interface {
	List(ctx context.Context, filter model.AgreementFilter) ([]model.Agreement, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Agreement, error)
	BeginEdit(ctx context.Context, id uuid.UUID) (*model.Agreement, error)
	Create(ctx context.Context, payload model.AgreementPayload) (*model.Agreement, error)
	Update(ctx context.Context, id uuid.UUID, payload model.AgreementPayload) (*model.Agreement, error)
	Delete(ctx context.Context, id uuid.UUID, confirmed bool) (*model.Agreement, error)
	Restore(ctx context.Context, id uuid.UUID) (*model.Agreement, error)
	Actions(a model.Agreement) model.AgreementActions
}

type CatalogProvider interface {
	Go(ctx context.Context) *catalog.Pending
	Invalidate(ctx context.Context)
}

type RegisterExporter interface {
	Generate(agreements []model.Agreement) ([]byte, error)
}

type CardExporter interface {
	Generate(a model.Agreement) ([]byte, error)
}

type Exports struct {
	Register RegisterExporter
	Card     CardExporter
}

type Handler struct {
	agreements AgreementService
	catalog    CatalogProvider
	gate       session.Authenticator
	exports    Exports
	cookies    middleware.Cookies
	log        zerolog.Logger
}

func NewHandler(
	agreements AgreementService,
	catalog CatalogProvider,
	gate session.Authenticator,
	exports Exports,
	cookies middleware.Cookies,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		agreements: agreements,
		catalog:    catalog,
		gate:       gate,
		exports:    exports,
		cookies:    cookies,
		log:        log,
	}
}

func (h *Handler) Register(router *gin.Engine, authMiddleware gin.HandlerFunc) {
	router.GET("/healthz", h.healthz)
	router.GET(middleware.LoginPath, h.loginPage)
	router.POST(middleware.LoginPath, h.login)

	protected := router.Group("/")
	protected.Use(authMiddleware)
	protected.POST("/logout", h.logout)
	protected.GET("/", h.dashboard)
	protected.GET("/agreements", h.listAgreements)
	protected.GET("/agreements/new", h.newAgreement)
	protected.POST("/agreements", h.createAgreement)
	protected.GET("/agreements/export.xlsx", h.exportAgreements)
	protected.GET("/agreements/:id", h.showAgreement)
	protected.GET("/agreements/:id/edit", h.editAgreement)
	protected.POST("/agreements/:id", h.updateAgreement)
	protected.POST("/agreements/:id/delete", h.deleteAgreement)
	protected.POST("/agreements/:id/restore", h.restoreAgreement)
	protected.GET("/agreements/:id/card.pdf", h.agreementCard)
}

func (h *Handler) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type loginForm struct {
	Username string `form:"username"`
	Password string `form:"password"`
	Next     string `form:"next"`
}

func (h *Handler) loginPage(c *gin.Context) {
	if value, ok := h.cookies.Read(c); ok {
		if _, err := h.gate.Resolve(c.Request.Context(), value); err == nil {
			c.Redirect(http.StatusSeeOther, "/")
			return
		}
	}
	c.HTML(http.StatusOK, "login.html", h.page(c, "Вход", gin.H{
		"Next":     safeNext(c.Query("next")),
		"Username": "",
	}))
}

func (h *Handler) login(c *gin.Context) {
	var form loginForm
	if err := c.ShouldBind(&form); err != nil {
		h.log.Debug().Err(err).Msg("login form bind failed")
	}

	issued, err := h.gate.Login(c.Request.Context(), form.Username, form.Password)
	if err != nil {
		status, message := loginFailure(err)
		if status >= http.StatusInternalServerError {
			h.log.Error().Err(err).Msg("login failed")
		}
		c.HTML(status, "login.html", h.page(c, "Вход", gin.H{
			"Error":    message,
			"Next":     safeNext(form.Next),
			"Username": form.Username,
		}))
		return
	}

	h.cookies.Set(c, issued.Cookie, issued.ExpiresAt)
	c.Redirect(http.StatusSeeOther, safeNext(form.Next))
}

func (h *Handler) logout(c *gin.Context) {
	h.endSession(c)
	c.Redirect(http.StatusSeeOther, middleware.LoginPath)
}

// endSession drops the stored session of the current principal and clears
// the cookie.
func (h *Handler) endSession(c *gin.Context) {
	if principal, ok := middleware.MustPrincipal(c); ok {
		if err := h.gate.Logout(c.Request.Context(), principal.SessionID); err != nil {
			h.log.Warn().Err(err).Str("session_id", principal.SessionID.String()).Msg("logout failed")
		}
	}
	h.cookies.Clear(c)
}

func (h *Handler) dashboard(c *gin.Context) {
	c.HTML(http.StatusOK, "dashboard.html", h.page(c, "Главная", nil))
}

func loginFailure(err error) (int, string) {
	if errors.Is(err, session.ErrInvalidLogin) {
		return http.StatusBadRequest, "Введите имя пользователя и пароль"
	}
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusBadRequest {
			return http.StatusUnauthorized, apiErr.Error()
		}
		return http.StatusBadGateway, apiErr.Error()
	}
	return http.StatusBadGateway, "Ошибка авторизации"
}

// safeNext keeps post-login redirects on this host.
func safeNext(next string) string {
	next = strings.TrimSpace(next)
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}

var notices = map[string]string{
	"created":  "Соглашение создано",
	"updated":  "Изменения сохранены",
	"deleted":  "Соглашение удалено",
	"restored": "Соглашение восстановлено",
}

// page assembles the data every template expects.
func (h *Handler) page(c *gin.Context, title string, extra gin.H) gin.H {
	data := gin.H{
		"Title":  title,
		"User":   (*model.User)(nil),
		"Notice": notices[c.Query("notice")],
		"Error":  "",
	}
	if user, ok := session.CurrentUser(c.Request.Context()); ok {
		data["User"] = &user
	}
	for k, v := range extra {
		data[k] = v
	}
	return data
}
