package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupMetricsRouter(t *testing.T) (*gin.Engine, *gorm.DB, func()) {
	t.Helper()
	svc, gdb, cleanup := setupMetricsTest(t)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler := NewHandler(svc, zap.NewNop())
	handler.RegisterPublicRoutes(router.Group("/api/v1"))
	handler.RegisterAdminRoutes(router.Group("/api/v1/admin"), func(c *gin.Context) { c.Next() })

	return router, gdb, cleanup
}

func postEvent(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/metrics/event", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRecordEventAcknowledges(t *testing.T) {
	router, gdb, cleanup := setupMetricsRouter(t)
	defer cleanup()

	pageID := seedPage(t, gdb, "promo")

	w := postEvent(router, `{"pageId":"`+pageID+`","eventType":"visit"}`)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRecordEventRejectsBadInput(t *testing.T) {
	router, _, cleanup := setupMetricsRouter(t)
	defer cleanup()

	cases := []struct {
		name string
		body string
	}{
		{"missing pageId", `{"eventType":"visit"}`},
		{"missing eventType", `{"pageId":"p1"}`},
		{"unknown eventType", `{"pageId":"p1","eventType":"pageview"}`},
		{"malformed json", `{`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if w := postEvent(router, tc.body); w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestRecordEventUnknownPage(t *testing.T) {
	router, _, cleanup := setupMetricsRouter(t)
	defer cleanup()

	w := postEvent(router, `{"pageId":"missing","eventType":"visit"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAnalyticsRejectsBadDateParams(t *testing.T) {
	router, gdb, cleanup := setupMetricsRouter(t)
	defer cleanup()

	pageID := seedPage(t, gdb, "promo")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/pages/"+pageID+"/analytics?start=01-01-2024", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed start, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAnalyticsReturnsSummary(t *testing.T) {
	router, gdb, cleanup := setupMetricsRouter(t)
	defer cleanup()

	pageID := seedPage(t, gdb, "promo")
	w := postEvent(router, `{"pageId":"`+pageID+`","eventType":"visit"}`)
	if w.Code != http.StatusNoContent {
		t.Fatalf("seed event failed: %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/pages/"+pageID+"/analytics", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"visits":1`) {
		t.Fatalf("summary missing visit count: %s", w.Body.String())
	}
}
