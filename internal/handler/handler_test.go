package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stitchdesk/internal/apperr"
	"stitchdesk/internal/logger"
	"stitchdesk/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(ping func(context.Context) error) *gin.Engine {
	return New(Deps{
		Services:      &service.Services{},
		Log:           logger.NewWriter("test", io.Discard),
		Ping:          ping,
		SessionSecret: "test-secret",
	})
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	r := newTestRouter(func(context.Context) error { return nil })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["ok"])
	assert.NotEmpty(t, w.Header().Get(logger.HeaderRequestID))
}

func TestHealthDatabaseDown(t *testing.T) {
	r := newTestRouter(func(context.Context) error { return errors.New("connection refused") })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "connection refused", decode(t, w)["db"])
}

func TestProtectedRoutesRequireCredentials(t *testing.T) {
	r := newTestRouter(nil)
	for _, path := range []string{
		"/api/customers",
		"/api/orders",
		"/api/subscriptions/my-subscription",
		"/api/subscriptions/admin/stats",
		"/api/gallery/items",
	} {
		t.Run(path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, "Authentication credentials were not provided.", decode(t, w)["error"])
		})
	}
}

func TestRespondError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
		key  string
		want any
	}{
		{"not found", apperr.NewNotFound("order", "x"), http.StatusNotFound, "error", "order x not found"},
		{"message", apperr.Conflict("already exists"), http.StatusConflict, "error", "already exists"},
		{"upstream", &apperr.Upstream{Service: "razorpay", Err: errors.New("timeout")}, http.StatusBadGateway, "error", "razorpay: timeout"},
		{"internal", errors.New("pq: something broke"), http.StatusInternalServerError, "error", "internal error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			respondError(c, tc.err)

			assert.Equal(t, tc.code, w.Code)
			assert.Equal(t, tc.want, decode(t, w)[tc.key])
		})
	}
}

func TestRespondErrorValidationAndDetails(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	respondError(c, apperr.Invalid("phone", "Enter a valid phone number."))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"errors":{"phone":["Enter a valid phone number."]}}`, w.Body.String())

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	respondError(c, apperr.PaymentRequired("Subscription expired", map[string]any{"subscription_required": true}))

	assert.Equal(t, http.StatusForbidden, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Subscription expired", body["error"])
	assert.Equal(t, true, body["subscription_required"])
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"Token abc123":   "abc123",
		"Bearer  xyz ":   "xyz",
		"bearer lower":   "lower",
		"Basic dXNlcjpw": "",
		"abc123":         "",
		"":               "",
	}
	for header, want := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			c.Request.Header.Set("Authorization", header)
		}
		assert.Equal(t, want, bearerToken(c), header)
	}
}

func TestValidPhone(t *testing.T) {
	assert.True(t, validPhone(""))
	assert.True(t, validPhone("9876543210"))
	assert.True(t, validPhone("+91 98765-43210"))
	assert.True(t, validPhone("(080) 2345 6789"))

	assert.False(t, validPhone("12345"))
	assert.False(t, validPhone("98765abc10"))
	assert.False(t, validPhone("91+9876543210"))
	assert.False(t, validPhone("1234567890123456"))
}

type bindSample struct {
	Name  string `json:"name" binding:"required"`
	Phone string `json:"phone" binding:"phone"`
	Kind  string `json:"item_type" binding:"omitempty,itemtype"`
	Qty   int    `json:"qty" binding:"min=1"`
}

func bindBody(t *testing.T, body string) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	registerValidators()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	var p bindSample
	return w, bind(c, &p)
}

func TestBindReportsJSONFieldNames(t *testing.T) {
	w, ok := bindBody(t, `{"phone":"abc","item_type":"HAT","qty":0}`)
	require.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var body struct {
		Errors map[string][]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []string{"This field is required."}, body.Errors["name"])
	assert.Equal(t, []string{"Enter a valid phone number."}, body.Errors["phone"])
	assert.Equal(t, []string{"Must be one of BLOUSE, SAREE, DRESS, OTHER."}, body.Errors["item_type"])
	assert.Equal(t, []string{"Ensure this value is greater than or equal to 1."}, body.Errors["qty"])
}

func TestBindMalformedJSON(t *testing.T) {
	w, ok := bindBody(t, `{"name":`)
	require.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "non_field_errors")

	w, ok = bindBody(t, `{"name":"x","qty":"many"}`)
	require.False(t, ok)
	assert.Contains(t, w.Body.String(), `"qty"`)
}

func TestBindAcceptsValidBody(t *testing.T) {
	_, ok := bindBody(t, `{"name":"Asha","phone":"+91 98765 43210","item_type":"SAREE","qty":2}`)
	assert.True(t, ok)
}

func TestSafeFileName(t *testing.T) {
	assert.Equal(t, "INV-2024-0001", safeFileName("INV-2024-0001"))
	assert.Equal(t, "QT_12_a_b", safeFileName("QT/12 a?b"))
	assert.Equal(t, "document", safeFileName(""))
}

func TestUintParamRejectsNonNumeric(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "abc"}}

	_, ok := uintParam(c, "id")
	assert.False(t, ok)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestQueryBool(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/?a=true&b=0&c=", nil)

	require.NotNil(t, queryBool(c, "a"))
	assert.True(t, *queryBool(c, "a"))
	require.NotNil(t, queryBool(c, "b"))
	assert.False(t, *queryBool(c, "b"))
	assert.Nil(t, queryBool(c, "c"))
	assert.Nil(t, queryBool(c, "missing"))
}

func TestRequestBaseURL(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "http://shop.example.com/x", nil)
	assert.Equal(t, "http://shop.example.com", requestBaseURL(c))

	c.Request.Header.Set("X-Forwarded-Proto", "https")
	assert.Equal(t, "https://shop.example.com", requestBaseURL(c))
}
