package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-sql/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/bonus-agreements/internal/model"
)

const agreementJSON = `{
	"id": "5f0c6a8e-8f5e-4d7b-9f55-0b2c6f1b7a10",
	"code": "00000001",
	"valid_from": "2024-01-01",
	"valid_to": "2024-12-31",
	"supplier_code": "S1",
	"supplier_name": "Поставщик 1",
	"agreement_type_code": "T1",
	"agreement_type_name": "Бонус",
	"scale_code": "01",
	"condition_value": 5.5,
	"status": "READY_FOR_CALCULATION",
	"created_at": "2024-01-01T00:00:00",
	"updated_at": "2024-01-01T00:00:00"
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", time.Second)
}

func TestClientAttachesBearerToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/agreements", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, "["+agreementJSON+"]")
	})

	ctx := WithAccessToken(context.Background(), "secret")
	agreements, err := client.ListAgreements(ctx)
	require.NoError(t, err)
	require.Len(t, agreements, 1)
	assert.Equal(t, "5.5", agreements[0].ConditionValue.String())
}

func TestClientOmitsAuthorizationWithoutToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/login", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "admin", body["username"])
		_, _ = io.WriteString(w, `{"access_token":"tok","token_type":"bearer"}`)
	})

	token, err := client.Login(context.Background(), "admin", "admin")
	require.NoError(t, err)
	assert.Equal(t, "tok", token.AccessToken)
}

func TestClientCreateSendsNumericConditionValue(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "2024-01-01", body["valid_from"])
		assert.Equal(t, "2024-12-31", body["valid_to"])
		assert.Equal(t, "01", body["scale_code"])
		assert.Equal(t, 5.5, body["condition_value"])
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, agreementJSON)
	})

	v := model.ValidatedAgreement{
		ValidFrom:         civil.Date{Year: 2024, Month: time.January, Day: 1},
		ValidTo:           civil.Date{Year: 2024, Month: time.December, Day: 31},
		SupplierCode:      "S1",
		AgreementTypeCode: "T1",
		ScaleCode:         "01",
		ConditionValue:    decimal.RequireFromString("5.5"),
	}
	a, err := client.CreateAgreement(context.Background(), v)
	require.NoError(t, err)
	assert.Equal(t, model.AgreementStatusReadyForCalculation, a.Status)
}

func TestClientStatusPatch(t *testing.T) {
	id := uuid.MustParse("5f0c6a8e-8f5e-4d7b-9f55-0b2c6f1b7a10")
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/agreements/"+id.String()+"/status", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "DELETED", body["status"])
		_, _ = io.WriteString(w, agreementJSON)
	})

	_, err := client.UpdateAgreementStatus(context.Background(), id, model.AgreementStatusDeleted)
	require.NoError(t, err)
}

func TestClientErrorDetail(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"detail":"Cannot edit a deleted agreement"}`)
	})

	_, err := client.UpdateAgreement(context.Background(), uuid.New(), model.ValidatedAgreement{})
	require.Error(t, err)
	assert.Equal(t, "Cannot edit a deleted agreement", err.Error())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
}

func TestClientErrorDetailList(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, `{"detail":[{"msg":"valid_to must be >= valid_from"}]}`)
	})

	_, err := client.CreateAgreement(context.Background(), model.ValidatedAgreement{})
	require.Error(t, err)
	assert.Equal(t, "valid_to must be >= valid_from", err.Error())
}

func TestClientGenericMessageWithoutDetail(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, "oops")
	})

	_, err := client.ListScales(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Failed to fetch scales", err.Error())
}

func TestClientNotFoundAndUnauthorized(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/me" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"detail":"Could not validate credentials"}`)
			return
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"detail":"Agreement not found"}`)
	})

	_, err := client.GetAgreement(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrUnauthorized)

	_, err = client.CurrentUser(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestClientReferenceLists(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ref/suppliers":
			_, _ = io.WriteString(w, `[{"code":"S1","name":"A"}]`)
		case "/ref/agreement-types":
			_, _ = io.WriteString(w, `[{"code":"T1","name":"B","grid":"PERCENT"}]`)
		case "/ref/scales":
			_, _ = io.WriteString(w, `[{"code":"01","name":"C","grid":"PERCENT"}]`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	ctx := context.Background()
	suppliers, err := client.ListSuppliers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.Supplier{{Code: "S1", Name: "A"}}, suppliers)

	types, err := client.ListAgreementTypes(ctx)
	require.NoError(t, err)
	assert.Equal(t, "T1", types[0].Code)

	scales, err := client.ListScales(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.GridPercent, scales[0].Grid)
}
