package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gwd-progress-api/internal/middleware"
	"github.com/noah-isme/gwd-progress-api/internal/models"
)

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func asDistrictUser(c *gin.Context, district string) {
	c.Set(middleware.ContextUserKey, &models.JWTClaims{
		UserID: "user-1", Role: models.RoleDistrictUser, District: district, IsActive: true, CanEdit: true,
	})
}

func asAdmin(c *gin.Context) {
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleStateAdmin, IsActive: true, CanEdit: true})
}

func reportParams(district, year, month string) gin.Params {
	return gin.Params{{Key: "district", Value: district}, {Key: "year", Value: year}, {Key: "month", Value: month}}
}

type envelope struct {
	Data  json.RawMessage        `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Meta map[string]interface{} `json:"meta"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}
