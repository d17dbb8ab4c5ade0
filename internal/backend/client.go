package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-sql/civil"
	"github.com/google/uuid"

	"github.com/nurpe/bonus-agreements/internal/model"
)

type tokenKey struct{}

// WithAccessToken binds the bearer token used for calls made with ctx.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func AccessTokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// Client talks to the agreements REST backend.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type agreementRequest struct {
	ValidFrom         civil.Date  `json:"valid_from"`
	ValidTo           civil.Date  `json:"valid_to"`
	SupplierCode      string      `json:"supplier_code"`
	AgreementTypeCode string      `json:"agreement_type_code"`
	ScaleCode         string      `json:"scale_code"`
	ConditionValue    json.Number `json:"condition_value"`
}

type statusRequest struct {
	Status model.AgreementStatus `json:"status"`
}

func newAgreementRequest(v model.ValidatedAgreement) agreementRequest {
	return agreementRequest{
		ValidFrom:         v.ValidFrom,
		ValidTo:           v.ValidTo,
		SupplierCode:      v.SupplierCode,
		AgreementTypeCode: v.AgreementTypeCode,
		ScaleCode:         v.ScaleCode,
		ConditionValue:    json.Number(v.ConditionValue.String()),
	}
}

func (c *Client) Login(ctx context.Context, username, password string) (*model.Token, error) {
	var token model.Token
	req := loginRequest{Username: username, Password: password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", req, &token, "Login failed"); err != nil {
		return nil, err
	}
	return &token, nil
}

func (c *Client) CurrentUser(ctx context.Context) (*model.User, error) {
	var user model.User
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &user, "Not authenticated"); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) ListAgreements(ctx context.Context) ([]model.Agreement, error) {
	var agreements []model.Agreement
	if err := c.do(ctx, http.MethodGet, "/agreements", nil, &agreements, "Failed to fetch agreements"); err != nil {
		return nil, err
	}
	return agreements, nil
}

func (c *Client) GetAgreement(ctx context.Context, id uuid.UUID) (*model.Agreement, error) {
	var agreement model.Agreement
	if err := c.do(ctx, http.MethodGet, agreementPath(id), nil, &agreement, "Failed to fetch agreement"); err != nil {
		return nil, err
	}
	return &agreement, nil
}

func (c *Client) CreateAgreement(ctx context.Context, v model.ValidatedAgreement) (*model.Agreement, error) {
	var agreement model.Agreement
	if err := c.do(ctx, http.MethodPost, "/agreements", newAgreementRequest(v), &agreement, "Failed to create agreement"); err != nil {
		return nil, err
	}
	return &agreement, nil
}

func (c *Client) UpdateAgreement(ctx context.Context, id uuid.UUID, v model.ValidatedAgreement) (*model.Agreement, error) {
	var agreement model.Agreement
	if err := c.do(ctx, http.MethodPut, agreementPath(id), newAgreementRequest(v), &agreement, "Failed to update agreement"); err != nil {
		return nil, err
	}
	return &agreement, nil
}

func (c *Client) UpdateAgreementStatus(ctx context.Context, id uuid.UUID, status model.AgreementStatus) (*model.Agreement, error) {
	var agreement model.Agreement
	path := agreementPath(id) + "/status"
	if err := c.do(ctx, http.MethodPatch, path, statusRequest{Status: status}, &agreement, "Failed to update agreement status"); err != nil {
		return nil, err
	}
	return &agreement, nil
}

func (c *Client) ListSuppliers(ctx context.Context) ([]model.Supplier, error) {
	var suppliers []model.Supplier
	if err := c.do(ctx, http.MethodGet, "/ref/suppliers", nil, &suppliers, "Failed to fetch suppliers"); err != nil {
		return nil, err
	}
	return suppliers, nil
}

func (c *Client) ListAgreementTypes(ctx context.Context) ([]model.AgreementType, error) {
	var types []model.AgreementType
	if err := c.do(ctx, http.MethodGet, "/ref/agreement-types", nil, &types, "Failed to fetch agreement types"); err != nil {
		return nil, err
	}
	return types, nil
}

func (c *Client) ListScales(ctx context.Context) ([]model.Scale, error) {
	var scales []model.Scale
	if err := c.do(ctx, http.MethodGet, "/ref/scales", nil, &scales, "Failed to fetch scales"); err != nil {
		return nil, err
	}
	return scales, nil
}

func agreementPath(id uuid.UUID) string {
	return "/agreements/" + url.PathEscape(id.String())
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, fallback string) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := AccessTokenFrom(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := detailMessage(raw)
		if detail == "" {
			detail = fallback
		}
		return &APIError{Status: resp.StatusCode, Detail: detail}
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
