package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nurpe/bonus-agreements/internal/backend"
	"github.com/nurpe/bonus-agreements/internal/catalog"
	"github.com/nurpe/bonus-agreements/internal/http/middleware"
	"github.com/nurpe/bonus-agreements/internal/service"
	"github.com/nurpe/bonus-agreements/internal/session"
	"github.com/nurpe/bonus-agreements/internal/validator"
)

const (
	notFoundMessage           = "Соглашение не найдено"
	catalogUnavailableMessage = "Не удалось загрузить справочники"
	editBlockedMessage        = "Соглашение в текущем статусе недоступно для редактирования"
	unexpectedMessage         = "Что-то пошло не так. Попробуйте перезагрузить страницу."
)

func (h *Handler) handleError(c *gin.Context, err error) {
	_ = c.Error(err)

	var apiErr *backend.APIError
	switch {
	case errors.Is(err, service.ErrNotFound), errors.Is(err, backend.ErrNotFound):
		h.renderError(c, http.StatusNotFound, notFoundMessage)
	case errors.Is(err, session.ErrUnauthenticated), errors.Is(err, backend.ErrUnauthorized):
		h.endSession(c)
		c.Redirect(http.StatusSeeOther, middleware.LoginPath)
	case errors.Is(err, service.ErrConfirmationRequired):
		h.renderError(c, http.StatusBadRequest, "Подтвердите удаление соглашения")
	case errors.Is(err, service.ErrEditBlocked):
		h.renderError(c, http.StatusConflict, editBlockedMessage)
	case errors.Is(err, service.ErrCalculationDisabled):
		h.renderError(c, http.StatusNotImplemented, "Расчёт пока недоступен")
	case errors.Is(err, service.ErrInvalidInput):
		h.renderError(c, http.StatusBadRequest, err.Error())
	case errors.As(err, new(*validator.ValidationError)):
		h.renderError(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, catalog.ErrCatalogUnavailable):
		h.renderError(c, http.StatusServiceUnavailable, catalogUnavailableMessage)
	case errors.As(err, &apiErr):
		h.log.Warn().Err(err).Int("upstream_status", apiErr.Status).Msg("backend request failed")
		h.renderError(c, http.StatusBadGateway, apiErr.Error())
	default:
		h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		h.renderError(c, http.StatusInternalServerError, unexpectedMessage)
	}
}

func (h *Handler) renderError(c *gin.Context, status int, message string) {
	reload := "/agreements"
	if c.Request.Method == http.MethodGet {
		reload = c.Request.URL.RequestURI()
	}
	c.HTML(status, "error.html", h.page(c, "Ошибка", gin.H{
		"Message": message,
		"Reload":  reload,
	}))
	c.Abort()
}

// Recovery renders the generic error page for panics escaping a handler.
func (h *Handler) Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		h.log.Error().Interface("panic", recovered).Str("path", c.Request.URL.Path).Msg("handler panicked")
		h.renderError(c, http.StatusInternalServerError, unexpectedMessage)
	})
}

// ResolveFailure renders the page shown when the session could not be
// checked for reasons other than being rejected.
func (h *Handler) ResolveFailure(c *gin.Context, err error) {
	h.log.Warn().Err(err).Msg("session resolve failed")
	h.renderError(c, http.StatusBadGateway, "Сервис авторизации недоступен. Попробуйте позже.")
}
