package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/quitmate/config"
	"github.com/cppla/quitmate/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func useConfig(c config.AppConfig) {
	if c.JWTSecret == "" {
		c.JWTSecret = "middleware-secret"
	}
	if c.IdentityHeader == "" {
		c.IdentityHeader = "X-WX-OPENID"
	}
	config.Set(c)
}

func whoAmI(ctx *gin.Context) {
	utils.Success(ctx, gin.H{"user_id": ctx.GetString(ContextUserIDKey)})
}

func serve(r *gin.Engine, req *http.Request) (int, utils.JSONResponse) {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var body utils.JSONResponse
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w.Code, body
}

func TestAuthRequired(t *testing.T) {
	useConfig(config.AppConfig{})
	r := gin.New()
	r.GET("/me", AuthRequired(), whoAmI)

	valid, _, err := utils.GenerateToken("auth-user", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	revoked, revokedExp, err := utils.GenerateToken("auth-revoked-user", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	utils.BlacklistToken(revoked, revokedExp)

	cases := []struct {
		name   string
		header string
		query  string
		status int
		code   int
	}{
		{"missing", "", "", http.StatusUnauthorized, 40101},
		{"wrong scheme", "Basic abc", "", http.StatusUnauthorized, 40102},
		{"empty bearer", "Bearer  ", "", http.StatusUnauthorized, 40103},
		{"revoked", "Bearer " + revoked, "", http.StatusUnauthorized, 40104},
		{"garbage", "Bearer not.a.jwt", "", http.StatusUnauthorized, 40105},
		{"header", "Bearer " + valid, "", http.StatusOK, 0},
		{"query", "", valid, http.StatusOK, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			target := "/me"
			if tc.query != "" {
				target += "?token=" + tc.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			status, body := serve(r, req)
			if status != tc.status || body.Code != tc.code {
				t.Fatalf("status=%d code=%d, want %d/%d", status, body.Code, tc.status, tc.code)
			}
		})
	}
}

func TestIdentityRequired(t *testing.T) {
	useConfig(config.AppConfig{IdentityHeader: "X-Test-User"})
	r := gin.New()
	r.POST("/login", IdentityRequired(), whoAmI)

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	if status, body := serve(r, req); status != http.StatusUnauthorized || body.Code != 40106 {
		t.Fatalf("no identity: status=%d code=%d", status, body.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/login", nil)
	req.Header.Set("X-Test-User", " openid-1 ")
	status, body := serve(r, req)
	if status != http.StatusOK {
		t.Fatalf("status=%d", status)
	}
	data, _ := body.Data.(map[string]interface{})
	if data["user_id"] != "openid-1" {
		t.Errorf("user_id = %v", data["user_id"])
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	useConfig(config.AppConfig{RateLimitPerMinute: 2})
	r := gin.New()
	r.GET("/ping", RateLimitMiddleware(), whoAmI)

	hit := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = ip + ":4321"
		status, _ := serve(r, req)
		return status
	}
	if s := hit("192.0.2.10"); s != http.StatusOK {
		t.Fatalf("first request status=%d", s)
	}
	if s := hit("192.0.2.10"); s != http.StatusTooManyRequests {
		t.Fatalf("second request status=%d, want 429", s)
	}
	if s := hit("192.0.2.11"); s != http.StatusOK {
		t.Fatalf("other client status=%d", s)
	}
}

func TestRequestIDReusesWellFormedHeader(t *testing.T) {
	r := gin.New()
	r.GET("/", RequestID(), func(ctx *gin.Context) { ctx.String(http.StatusOK, ctx.GetString(utils.RequestIDKey)) })

	const inbound = "3f1c2a8e-2d4b-4c6a-9e7f-0a1b2c3d4e5f"
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, inbound)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Body.String() != inbound || w.Header().Get(RequestIDHeader) != inbound {
		t.Errorf("request id = %q / %q", w.Body.String(), w.Header().Get(RequestIDHeader))
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "<script>")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get(RequestIDHeader); got == "<script>" || got == "" {
		t.Errorf("malformed inbound id kept: %q", got)
	}
}
