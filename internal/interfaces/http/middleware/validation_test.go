package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arledger/backend/internal/interfaces/http/dto"
)

type recordReceiptRequest struct {
	CustomerID  string  `json:"customer_id" binding:"required,uuid"`
	TotalAmount float64 `json:"total_amount" binding:"required,gt=0"`
	Method      string  `json:"method" binding:"required,oneof=CASH BANK_TRANSFER"`
}

func bindAndFormat(t *testing.T, body string) dto.Response {
	t.Helper()
	gin.SetMode(gin.TestMode)
	SetupValidator()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/receipts", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	var req recordReceiptRequest
	err := c.ShouldBindJSON(&req)
	require.Error(t, err)
	return FormatValidationErrors(err, "req-001")
}

func TestFormatValidationErrors(t *testing.T) {
	t.Run("reports each failed field with its JSON name", func(t *testing.T) {
		resp := bindAndFormat(t, `{"customer_id":"not-a-uuid","total_amount":-5,"method":"WIRE"}`)

		require.False(t, resp.Success)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "req-001", resp.Error.RequestID)

		byField := make(map[string]string, len(resp.Error.Details))
		for _, d := range resp.Error.Details {
			byField[d.Field] = d.Message
		}
		assert.Equal(t, "Invalid UUID format", byField["customer_id"])
		assert.Equal(t, "Must be greater than 0", byField["total_amount"])
		assert.Equal(t, "Must be one of: CASH BANK_TRANSFER", byField["method"])
	})

	t.Run("missing fields report required", func(t *testing.T) {
		resp := bindAndFormat(t, `{}`)

		require.NotNil(t, resp.Error)
		for _, d := range resp.Error.Details {
			assert.Equal(t, "This field is required", d.Message)
		}
		assert.Len(t, resp.Error.Details, 3)
	})

	t.Run("non-validator errors keep their message", func(t *testing.T) {
		resp := bindAndFormat(t, `{"customer_id":`)

		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeInvalidJSON, resp.Error.Code)
		assert.Empty(t, resp.Error.Details)
	})
}

func TestHandleValidationError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	SetupValidator()

	router := gin.New()
	router.POST("/receipts", func(c *gin.Context) {
		var req recordReceiptRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/receipts", strings.NewReader(`{"method":"WIRE"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(RequestIDKey, "req-777")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "req-777", resp.Error.RequestID)
	assert.NotEmpty(t, resp.Error.Details)
}
