package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/regionscope/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubService returns canned results and records what it was asked.
type stubService struct {
	result     models.LookupResult
	batchErr   error
	lookups    []string
	batchCalls int
}

func (s *stubService) Lookup(_ context.Context, raw string) models.LookupResult {
	s.lookups = append(s.lookups, raw)
	r := s.result
	if r.Identifier == "" {
		r.Identifier = models.NormalizeIdentifier(raw)
	}
	return r
}

func (s *stubService) LookupBatch(ctx context.Context, ids []string) ([]models.LookupResult, error) {
	s.batchCalls++
	if s.batchErr != nil {
		return nil, s.batchErr
	}
	out := make([]models.LookupResult, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.Lookup(ctx, id))
	}
	return out, nil
}

func newEngine(svc Lookuper) *gin.Engine {
	r := gin.New()
	r.GET("/api/user-region", UserRegion(svc))
	r.POST("/api/batch-region", BatchRegion(svc))
	r.GET("/health", Health())
	r.GET("/", Index("https://omar-thing.site/", 5))
	return r
}

func do(r http.Handler, method, target string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

var at = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestUserRegion_Status(t *testing.T) {
	tests := []struct {
		name       string
		result     models.LookupResult
		wantStatus int
		wantCache  string
	}{
		{
			name:       "success",
			result:     models.Succeeded("abc", models.RegionRecord{Nickname: "Abc"}, at),
			wantStatus: http.StatusOK,
			wantCache:  "MISS",
		},
		{
			name: "cached success",
			result: func() models.LookupResult {
				r := models.Succeeded("abc", models.RegionRecord{Nickname: "Abc"}, at)
				r.Cached = true
				return r
			}(),
			wantStatus: http.StatusOK,
			wantCache:  "HIT",
		},
		{
			name:       "no results",
			result:     models.Failed("abc", models.NewNoResultsError(), at),
			wantStatus: http.StatusInternalServerError,
			wantCache:  "MISS",
		},
		{
			name:       "busy",
			result:     models.Failed("abc", models.NewBusyError(time.Minute), at),
			wantStatus: http.StatusServiceUnavailable,
			wantCache:  "MISS",
		},
		{
			name:       "invalid",
			result:     models.Failed("@", models.NewValidationError("username parameter is required"), at),
			wantStatus: http.StatusBadRequest,
			wantCache:  "MISS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{result: tt.result}
			w := do(newEngine(svc), http.MethodGet, "/api/user-region?username=%40abc", nil)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if got := w.Header().Get("X-Cache"); got != tt.wantCache {
				t.Errorf("X-Cache = %q, want %q", got, tt.wantCache)
			}
			if len(svc.lookups) != 1 || svc.lookups[0] != "@abc" {
				t.Errorf("lookups = %v, want [@abc]", svc.lookups)
			}
		})
	}
}

func TestUserRegion_FailureBody(t *testing.T) {
	svc := &stubService{result: models.Failed("abc", models.NewNoResultsError(), at)}
	w := do(newEngine(svc), http.MethodGet, "/api/user-region?username=abc", nil)

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["success"] != false {
		t.Errorf("success = %v, want false", body["success"])
	}
	if body["error"] != "no results found" {
		t.Errorf("error = %v, want %q", body["error"], "no results found")
	}
	if body["username"] != "abc" {
		t.Errorf("username = %v, want abc", body["username"])
	}
	if _, ok := body["timestamp"]; !ok {
		t.Error("timestamp missing")
	}
	if _, ok := body["data"]; ok {
		t.Error("data present on failure")
	}
}

func TestUserRegion_MissingUsername(t *testing.T) {
	svc := &stubService{}
	w := do(newEngine(svc), http.MethodGet, "/api/user-region", nil)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	var body models.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error != "username parameter is required" {
		t.Errorf("error = %q, want %q", body.Error, "username parameter is required")
	}
	if len(svc.lookups) != 0 {
		t.Errorf("lookups = %v, want none", svc.lookups)
	}
}

func TestBatchRegion(t *testing.T) {
	svc := &stubService{result: models.Succeeded("", models.RegionRecord{Nickname: "N"}, at)}
	w := do(newEngine(svc), http.MethodPost, "/api/batch-region", []byte(`{"usernames":["b","@a"]}`))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body models.BatchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Success || len(body.Results) != 2 {
		t.Fatalf("body = %+v, want 2 results", body)
	}
	if body.Results[0].Identifier != "b" || body.Results[1].Identifier != "a" {
		t.Errorf("order = [%s %s], want [b a]", body.Results[0].Identifier, body.Results[1].Identifier)
	}
}

func TestBatchRegion_BadRequests(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		svcErr  error
		wantMsg string
	}{
		{"missing field", `{}`, nil, "usernames array is required"},
		{"not an array", `{"usernames":"abc"}`, nil, "usernames array is required"},
		{"not json", `nope`, nil, "usernames array is required"},
		{"too large", `{"usernames":["a","b","c","d","e","f"]}`, models.NewBatchTooLargeError(6, 5), "maximum 5 usernames per batch, got 6"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{batchErr: tt.svcErr}
			w := do(newEngine(svc), http.MethodPost, "/api/batch-region", []byte(tt.body))

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
			var body models.ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Error != tt.wantMsg {
				t.Errorf("error = %q, want %q", body.Error, tt.wantMsg)
			}
			if len(svc.lookups) != 0 {
				t.Errorf("lookups = %v, want none", svc.lookups)
			}
		})
	}
}

func TestBatchRegion_EmptyArray(t *testing.T) {
	svc := &stubService{}
	w := do(newEngine(svc), http.MethodPost, "/api/batch-region", []byte(`{"usernames":[]}`))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if svc.batchCalls != 1 {
		t.Errorf("batch calls = %d, want 1", svc.batchCalls)
	}
}

func TestHealthAndIndex(t *testing.T) {
	r := newEngine(&stubService{})

	w := do(r, http.MethodGet, "/health", nil)
	var health models.HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if w.Code != http.StatusOK || health.Status != "ok" {
		t.Errorf("health = %d %+v, want 200 ok", w.Code, health)
	}

	w = do(r, http.MethodGet, "/", nil)
	var desc models.ServiceDescriptor
	if err := json.Unmarshal(w.Body.Bytes(), &desc); err != nil {
		t.Fatalf("decode index: %v", err)
	}
	if desc.Version != Version {
		t.Errorf("version = %q, want %q", desc.Version, Version)
	}
	if got := desc.Endpoints["POST /api/batch-region"]; got != "Batch lookup (max 5)" {
		t.Errorf("batch endpoint = %q", got)
	}
}
