package http

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nurpe/bonus-agreements/internal/catalog"
	"github.com/nurpe/bonus-agreements/internal/format"
	"github.com/nurpe/bonus-agreements/internal/model"
	"github.com/nurpe/bonus-agreements/internal/service"
	"github.com/nurpe/bonus-agreements/internal/validator"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	pdfContentType  = "application/pdf"
)

var statuses = []model.AgreementStatus{
	model.AgreementStatusReadyForCalculation,
	model.AgreementStatusCalculated,
	model.AgreementStatusDeleted,
}

func (h *Handler) listAgreements(c *gin.Context) {
	ctx := c.Request.Context()
	filter := filterFromQuery(c)

	pending := h.catalog.Go(ctx)
	agreements, err := h.agreements.List(ctx, filter)
	if err != nil {
		h.handleError(c, err)
		return
	}
	cat, catErr := pending.Wait()

	data := gin.H{
		"Agreements": agreements,
		"Filter":     filter,
		"Statuses":   statuses,
		"Suppliers":  []model.Supplier(nil),
		"ExportURL":  template.URL("/agreements/export.xlsx?" + c.Request.URL.RawQuery),
	}
	if catErr != nil {
		data["Error"] = catalogUnavailableMessage
	} else {
		data["Agreements"] = enrichAll(cat, agreements)
		data["Suppliers"] = cat.Suppliers()
	}
	c.HTML(http.StatusOK, "agreements.html", h.page(c, "Соглашения", data))
}

func (h *Handler) exportAgreements(c *gin.Context) {
	ctx := c.Request.Context()
	pending := h.catalog.Go(ctx)
	agreements, err := h.agreements.List(ctx, filterFromQuery(c))
	if err != nil {
		h.handleError(c, err)
		return
	}
	if cat, err := pending.Wait(); err == nil {
		agreements = enrichAll(cat, agreements)
	}

	content, err := h.exports.Register.Generate(agreements)
	if err != nil {
		h.handleError(c, fmt.Errorf("generate register: %w", err))
		return
	}

	fileName := fmt.Sprintf("agreements_%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", "attachment; filename=\""+fileName+"\"")
	c.Data(http.StatusOK, xlsxContentType, content)
}

func (h *Handler) newAgreement(c *gin.Context) {
	pending := h.catalog.Go(c.Request.Context())
	h.renderForm(c, http.StatusOK, formState{
		title:  "Новое соглашение",
		action: "/agreements",
		cancel: "/agreements",
	}, pending)
}

func (h *Handler) createAgreement(c *gin.Context) {
	payload := bindPayload(c)
	if _, err := h.agreements.Create(c.Request.Context(), payload); err != nil {
		h.formFailure(c, formState{
			title:   "Новое соглашение",
			action:  "/agreements",
			cancel:  "/agreements",
			payload: payload,
		}, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/agreements?notice=created")
}

func (h *Handler) showAgreement(c *gin.Context) {
	id, ok := h.agreementID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	pending := h.catalog.Go(ctx)
	a, err := h.agreements.Get(ctx, id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	h.renderDetail(c, http.StatusOK, h.enrich(pending, *a), c.Query("confirm") == "delete", "")
}

func (h *Handler) editAgreement(c *gin.Context) {
	id, ok := h.agreementID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	pending := h.catalog.Go(ctx)
	a, err := h.agreements.BeginEdit(ctx, id)
	if err != nil {
		if errors.Is(err, service.ErrEditBlocked) && a != nil {
			h.renderDetail(c, http.StatusConflict, h.enrich(pending, *a), false, editBlockedMessage)
			return
		}
		h.handleError(c, err)
		return
	}
	h.renderForm(c, http.StatusOK, formState{
		title:   "Редактирование соглашения " + a.Code,
		action:  agreementURL(a.ID),
		cancel:  agreementURL(a.ID),
		payload: a.Payload(),
	}, pending)
}

func (h *Handler) updateAgreement(c *gin.Context) {
	id, ok := h.agreementID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	payload := bindPayload(c)
	if _, err := h.agreements.Update(ctx, id, payload); err != nil {
		title := "Редактирование соглашения"
		if a, getErr := h.agreements.Get(ctx, id); getErr == nil {
			title += " " + a.Code
		}
		h.formFailure(c, formState{
			title:   title,
			action:  agreementURL(id),
			cancel:  agreementURL(id),
			payload: payload,
		}, err)
		return
	}
	c.Redirect(http.StatusSeeOther, agreementURL(id)+"?notice=updated")
}

func (h *Handler) deleteAgreement(c *gin.Context) {
	id, ok := h.agreementID(c)
	if !ok {
		return
	}

	confirmed := c.PostForm("confirm") == "yes"
	if _, err := h.agreements.Delete(c.Request.Context(), id, confirmed); err != nil {
		if errors.Is(err, service.ErrConfirmationRequired) {
			c.Redirect(http.StatusSeeOther, agreementURL(id)+"?confirm=delete")
			return
		}
		h.handleError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, agreementURL(id)+"?notice=deleted")
}

func (h *Handler) restoreAgreement(c *gin.Context) {
	id, ok := h.agreementID(c)
	if !ok {
		return
	}

	if _, err := h.agreements.Restore(c.Request.Context(), id); err != nil {
		h.handleError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, agreementURL(id)+"?notice=restored")
}

func (h *Handler) agreementCard(c *gin.Context) {
	id, ok := h.agreementID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	pending := h.catalog.Go(ctx)
	a, err := h.agreements.Get(ctx, id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	content, err := h.exports.Card.Generate(h.enrich(pending, *a))
	if err != nil {
		h.handleError(c, fmt.Errorf("generate card: %w", err))
		return
	}

	fileName := fmt.Sprintf("agreement_%s.pdf", sanitizeFileName(a.Code))
	c.Header("Content-Disposition", "attachment; filename=\""+fileName+"\"")
	c.Data(http.StatusOK, pdfContentType, content)
}

type formState struct {
	title   string
	action  string
	cancel  string
	payload model.AgreementPayload
	fields  map[string]string
	message string
}

// formFailure re-renders the form with the user's input kept intact.
func (h *Handler) formFailure(c *gin.Context, state formState, err error) {
	if verr, ok := validator.AsValidationError(err); ok {
		if verr.Kind == validator.KindUnknownReference {
			h.catalog.Invalidate(c.Request.Context())
		}
		state.fields = map[string]string{verr.Field: verr.Message}
		state.message = verr.Message
		h.renderForm(c, http.StatusUnprocessableEntity, state, h.catalog.Go(c.Request.Context()))
		return
	}
	if errors.Is(err, catalog.ErrCatalogUnavailable) {
		state.message = catalogUnavailableMessage
		h.renderForm(c, http.StatusServiceUnavailable, state, h.catalog.Go(c.Request.Context()))
		return
	}
	h.handleError(c, err)
}

func (h *Handler) renderForm(c *gin.Context, status int, state formState, pending *catalog.Pending) {
	fields := state.fields
	if fields == nil {
		fields = map[string]string{}
	}
	state.payload.ValidFrom = validator.NormalizeDate(state.payload.ValidFrom)
	state.payload.ValidTo = validator.NormalizeDate(state.payload.ValidTo)
	data := gin.H{
		"Action":         state.action,
		"Cancel":         state.cancel,
		"Payload":        state.payload,
		"FieldErrors":    fields,
		"Error":          state.message,
		"Suppliers":      []model.Supplier(nil),
		"AgreementTypes": []model.AgreementType(nil),
		"Scales":         []model.Scale(nil),
		"Unit":           "",
		"CatalogMissing": false,
	}

	cat, err := pending.Wait()
	if err != nil {
		data["Error"] = catalogUnavailableMessage
		data["CatalogMissing"] = true
		if status < http.StatusBadRequest {
			status = http.StatusServiceUnavailable
		}
	} else {
		data["Suppliers"] = cat.Suppliers()
		data["AgreementTypes"] = cat.AgreementTypes()
		data["Scales"] = cat.Scales()
		if scale, ok := cat.Scale(strings.TrimSpace(state.payload.ScaleCode)); ok {
			data["Unit"] = format.ConditionUnit(scale.Grid)
		}
	}
	c.HTML(status, "form.html", h.page(c, state.title, data))
}

func (h *Handler) renderDetail(c *gin.Context, status int, a model.Agreement, confirmDelete bool, message string) {
	data := gin.H{
		"Agreement":     &a,
		"Actions":       h.agreements.Actions(a),
		"ConfirmDelete": confirmDelete,
	}
	if message != "" {
		data["Error"] = message
	}
	c.HTML(status, "detail.html", h.page(c, "Соглашение "+a.Code, data))
}

// enrich fills catalog-derived fields when the catalog arrived; the agreement
// is shown as is otherwise.
func (h *Handler) enrich(pending *catalog.Pending, a model.Agreement) model.Agreement {
	cat, err := pending.Wait()
	if err != nil {
		return a
	}
	return cat.Enrich(a)
}

func enrichAll(cat *catalog.Catalog, agreements []model.Agreement) []model.Agreement {
	out := make([]model.Agreement, len(agreements))
	for i, a := range agreements {
		out[i] = cat.Enrich(a)
	}
	return out
}

func (h *Handler) agreementID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param("id")))
	if err != nil {
		h.renderError(c, http.StatusNotFound, notFoundMessage)
		return uuid.Nil, false
	}
	return id, true
}

func bindPayload(c *gin.Context) model.AgreementPayload {
	var payload model.AgreementPayload
	_ = c.ShouldBind(&payload)
	return payload
}

func filterFromQuery(c *gin.Context) model.AgreementFilter {
	hide := c.Query("hide_deleted")
	return model.AgreementFilter{
		Status:       model.AgreementStatus(strings.TrimSpace(c.Query("status"))),
		SupplierCode: strings.TrimSpace(c.Query("supplier")),
		Query:        strings.TrimSpace(c.Query("q")),
		HideDeleted:  hide == "1" || hide == "on" || hide == "true",
	}
}

func agreementURL(id uuid.UUID) string {
	return "/agreements/" + url.PathEscape(id.String())
}

func sanitizeFileName(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "card"
	}
	replacer := strings.NewReplacer("/", "-", "\\", "-", "\"", "", " ", "_")
	return replacer.Replace(value)
}
