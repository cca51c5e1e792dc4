package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/class-booking/internal/booking"
	"github.com/iliyamo/class-booking/internal/config"
)

const secret = "test-secret"

func sign(t *testing.T, method jwt.SigningMethod, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestJWTAuth(t *testing.T) {
	exp := time.Now().Add(time.Hour).Unix()
	tests := []struct {
		name     string
		header   string
		wantCode int
		wantUser uint64
	}{
		{"missing", "", http.StatusUnauthorized, 0},
		{"garbage", "Bearer abc", http.StatusUnauthorized, 0},
		{"numeric sub", "Bearer " + sign(t, jwt.SigningMethodHS256, jwt.MapClaims{"sub": 7, "role": "customer", "exp": exp}), http.StatusOK, 7},
		{"string sub", "Bearer " + sign(t, jwt.SigningMethodHS256, jwt.MapClaims{"sub": "8", "role": "SELLER", "exp": exp}), http.StatusOK, 8},
		{"no role", "Bearer " + sign(t, jwt.SigningMethodHS256, jwt.MapClaims{"sub": 7, "exp": exp}), http.StatusUnauthorized, 0},
		{"expired", "Bearer " + sign(t, jwt.SigningMethodHS256, jwt.MapClaims{"sub": 7, "role": "CUSTOMER", "exp": time.Now().Add(-time.Minute).Unix()}), http.StatusUnauthorized, 0},
		{"no exp", "Bearer " + sign(t, jwt.SigningMethodHS256, jwt.MapClaims{"sub": 7, "role": "CUSTOMER"}), http.StatusUnauthorized, 0},
		{"wrong alg", "Bearer " + sign(t, jwt.SigningMethodHS512, jwt.MapClaims{"sub": 7, "role": "CUSTOMER", "exp": exp}), http.StatusUnauthorized, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			var got booking.Session
			h := JWTAuth(secret)(func(c echo.Context) error {
				got, _ = SessionFrom(c)
				return c.NoContent(http.StatusOK)
			})
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			_ = h(e.NewContext(req, rec))
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if got.UserID != tt.wantUser {
				t.Errorf("UserID = %d, want %d", got.UserID, tt.wantUser)
			}
			if tt.wantCode == http.StatusOK && got.Role != strings.ToUpper(got.Role) {
				t.Errorf("Role = %q, want upper case", got.Role)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name string
		sess *booking.Session
		want int
	}{
		{"no session", nil, http.StatusForbidden},
		{"wrong role", &booking.Session{UserID: 1, Role: booking.RoleCustomer}, http.StatusForbidden},
		{"seller", &booking.Session{UserID: 1, Role: booking.RoleSeller}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
			if tt.sess != nil {
				c.Set(sessionKey, *tt.sess)
			}
			rec := c.Response().Writer.(*httptest.ResponseRecorder)
			_ = RequireRole(booking.RoleSeller, booking.RoleAdmin)(func(c echo.Context) error {
				return c.NoContent(http.StatusOK)
			})(c)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func rateCfg() config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Hour,
		TTL:            time.Hour,
		KeyStrategy:    "user_route",
		Prefix:         "rl",
	}
}

func hitLimited(t *testing.T, mw echo.MiddlewareFunc, n int) []int {
	t.Helper()
	e := echo.New()
	e.POST("/v1/slots/:id/reservations", func(c echo.Context) error {
		return c.NoContent(http.StatusCreated)
	}, func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("user_id", "7")
			return next(c)
		}
	}, mw)
	codes := make([]int, 0, n)
	for i := 0; i < n; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/slots/1/reservations", nil))
		codes = append(codes, rec.Code)
		if rec.Code == http.StatusTooManyRequests && rec.Header().Get("Retry-After") == "" {
			t.Errorf("429 without Retry-After")
		}
	}
	return codes
}

func TestTokenBucket_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	codes := hitLimited(t, NewTokenBucket(rateCfg(), rdb), 3)
	want := []int{http.StatusCreated, http.StatusCreated, http.StatusTooManyRequests}
	for i := range want {
		if codes[i] != want[i] {
			t.Errorf("request %d status = %d, want %d", i+1, codes[i], want[i])
		}
	}
	if !mr.Exists("rl:user:7:route:POST /v1/slots/:id/reservations") {
		t.Errorf("bucket key not stored; keys = %v", mr.Keys())
	}
}

func TestTokenBucket_LocalFallback(t *testing.T) {
	codes := hitLimited(t, NewTokenBucket(rateCfg(), nil), 3)
	if codes[0] != http.StatusCreated || codes[1] != http.StatusCreated || codes[2] != http.StatusTooManyRequests {
		t.Errorf("statuses = %v, want [201 201 429]", codes)
	}
}

func TestTokenBucket_RedisDownFallsBack(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	mw := NewTokenBucket(rateCfg(), rdb)
	mr.Close()

	codes := hitLimited(t, mw, 3)
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("statuses = %v, want third request limited locally", codes)
	}
}

func TestRedisCache_HitPerClass(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	cfg := config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Minute, Prefix: "cache", MaxBodyBytes: 1 << 20}

	calls := 0
	e := echo.New()
	e.GET("/v1/classes/:id", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"id": c.Param("id")})
	}, NewRedisCache(cfg, rdb))

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}
	first := get("/v1/classes/1")
	second := get("/v1/classes/1")
	other := get("/v1/classes/2")

	if first.Header().Get("X-Cache") != "MISS" || second.Header().Get("X-Cache") != "HIT" {
		t.Errorf("X-Cache = %q/%q, want MISS/HIT", first.Header().Get("X-Cache"), second.Header().Get("X-Cache"))
	}
	if second.Body.String() != first.Body.String() {
		t.Errorf("cached body = %q, want %q", second.Body.String(), first.Body.String())
	}
	if !strings.Contains(other.Body.String(), `"2"`) || other.Header().Get("X-Cache") != "MISS" {
		t.Errorf("class 2 served %q (%s), want its own response", other.Body.String(), other.Header().Get("X-Cache"))
	}
	if calls != 2 {
		t.Errorf("handler calls = %d, want 2", calls)
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": []string{"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"a":1}`))
	if err != nil {
		t.Fatalf("encodePayload: %v", err)
	}
	status, got, body, ok := decodePayload(bs)
	if !ok || status != http.StatusOK || got.Get("Content-Type") != "application/json" || string(body) != `{"a":1}` {
		t.Errorf("decodePayload = %d %v %q %v", status, got, body, ok)
	}
	if _, _, _, ok := decodePayload([]byte{0, 0}); ok {
		t.Errorf("decodePayload(short) ok = true, want false")
	}
}
