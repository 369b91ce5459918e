package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/apexoai/careerchat/internal/service/types"
)

// ========== 错误映射 ==========

func TestStatusForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unauthorized", types.ErrUnauthorized, http.StatusUnauthorized},
		{"not found", types.ErrNotFound, http.StatusNotFound},
		{"validation", types.ErrValidation, http.StatusBadRequest},
		{"insufficient credits", types.ErrInsufficientCredits, http.StatusPaymentRequired},
		{"service unavailable", types.ErrServiceUnavailable, http.StatusServiceUnavailable},
		{"upstream", types.ErrUpstream, http.StatusBadGateway},
		{"wrapped validation", fmt.Errorf("%w: message is required", types.ErrValidation), http.StatusBadRequest},
		{"wrapped upstream", fmt.Errorf("%w: rate limited", types.ErrUpstream), http.StatusBadGateway},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusForError(tt.err); got != tt.want {
				t.Errorf("statusForError(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

// ========== 分页参数 ==========

func TestGetPagination(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name      string
		query     string
		wantPage  int
		wantLimit int
	}{
		{"defaults", "", 1, 20},
		{"explicit", "page=3&limit=50", 3, 50},
		{"zero page clamped", "page=0&limit=10", 1, 10},
		{"negative clamped", "page=-2&limit=-5", 1, 20},
		{"limit capped", "page=1&limit=500", 1, 20},
		{"garbage", "page=abc&limit=xyz", 1, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)

			page, limit := getPagination(c)
			if page != tt.wantPage || limit != tt.wantLimit {
				t.Errorf("getPagination() = (%d, %d), want (%d, %d)", page, limit, tt.wantPage, tt.wantLimit)
			}
		})
	}
}
