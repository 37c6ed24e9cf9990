package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	_ "telegram-order-bot/internal/metrics"
)

type fakeStats struct{}

func (fakeStats) Orders() int                     { return 4 }
func (fakeStats) Reminders() (pending, fired int) { return 3, 1 }

func TestHealthz(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := Router(fakeStats{}, "sqlite", time.Now())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var body struct {
		Status    string `json:"status"`
		Store     string `json:"store"`
		Orders    int    `json:"orders"`
		Reminders struct {
			Pending int `json:"pending"`
			Fired   int `json:"fired"`
		} `json:"reminders"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "ok" || body.Store != "sqlite" || body.Orders != 4 ||
		body.Reminders.Pending != 3 || body.Reminders.Fired != 1 {
		t.Fatalf("body = %+v", body)
	}
}

func TestMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := Router(fakeStats{}, "memory", time.Now())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "orderbot_") {
		t.Fatal("bot collectors missing from /metrics")
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, "127.0.0.1:0", http.NotFoundHandler()) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
