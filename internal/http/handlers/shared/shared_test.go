package shared

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/affiliate-ledger/internal/http/response"

	"github.com/gin-gonic/gin"
)

var errSample = errors.New("sample failure")

func TestRespondWithMappedErrorMatchesRule(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	rules := []MappedHandlerError{
		{Target: errSample, Code: response.CodeUnprocessable, Message: "sample"},
	}
	RespondWithMappedError(c, errors.Join(errors.New("outer"), errSample), rules, response.CodeInternal, "internal error")

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status want 422 got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"message":"sample"`) {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestRespondWithMappedErrorFallback(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	RespondWithMappedError(c, errors.New("boom"), nil, response.CodeInternal, "internal error")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status want 500 got %d", w.Code)
	}
}

func TestGetMerchantID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	if _, ok := GetMerchantID(c); ok {
		t.Fatalf("missing merchant id should fail")
	}
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status want 401 got %d", w.Code)
	}

	c2, _ := gin.CreateTestContext(httptest.NewRecorder())
	c2.Set(MerchantIDKey, uint(12))
	id, ok := GetMerchantID(c2)
	if !ok || id != 12 {
		t.Fatalf("expected merchant id 12, got %d ok=%v", id, ok)
	}
}
