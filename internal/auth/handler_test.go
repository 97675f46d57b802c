package auth_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthcompanion/companion/internal/auth"
	"github.com/healthcompanion/companion/internal/shared"
	_ "github.com/healthcompanion/companion/testing"
)

type outcomeCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func (o *outcomeCounter) RecordAuth(operation, outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.counts == nil {
		o.counts = map[string]int{}
	}
	o.counts[operation+"/"+outcome]++
}

type authResponse struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
	Token   string `json:"token"`
	User    struct {
		ID          string `json:"id"`
		Email       string `json:"email"`
		DateOfBirth string `json:"dateOfBirth"`
		Password    string `json:"password"`
	} `json:"user"`
}

func newAuthRouter(t *testing.T, limiter func(http.Handler) http.Handler) (http.Handler, *memStore, *outcomeCounter) {
	t.Helper()
	store := newMemStore()
	metrics := &outcomeCounter{}
	handler := auth.NewHandler(nil, newTestService(store), limiter, metrics)
	r := chi.NewRouter()
	r.Route("/auth", handler.MountRoutes)
	return r, store, metrics
}

func post(t *testing.T, h http.Handler, path, body string) (*httptest.ResponseRecorder, authResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "203.0.113.7:41000"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	var resp authResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp), rr.Body.String())
	return rr, resp
}

const signupBody = `{"name":"Ada Lovelace","email":"Ada@Example.com","password":"Abcdefg1","phone":"+1 555 0100","location":"London","dateOfBirth":"1990-12-10","gender":"female"}`

func TestSignupEndpoint(t *testing.T) {
	router, _, metrics := newAuthRouter(t, nil)

	rr, resp := post(t, router, "/auth/signup", signupBody)
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Equal(t, "Account created successfully", resp.Message)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "ada@example.com", resp.User.Email)
	assert.Equal(t, "1990-12-10", resp.User.DateOfBirth)
	assert.Empty(t, resp.User.Password)
	assert.NotContains(t, rr.Body.String(), "passwordHash")

	rr, resp = post(t, router, "/auth/signup", strings.Replace(signupBody, "Ada@Example.com", "ADA@example.com", 1))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Email already exists", resp.Message)
	assert.Equal(t, http.StatusBadRequest, resp.Status)

	assert.Equal(t, 1, metrics.counts["signup/success"])
	assert.Equal(t, 1, metrics.counts["signup/duplicate_email"])
}

func TestSignupEndpointValidation(t *testing.T) {
	router, _, _ := newAuthRouter(t, nil)

	cases := map[string]struct {
		body    string
		message string
	}{
		"missing fields": {`{"email":"a@example.com"}`, "All fields are required"},
		"weak password":  {strings.Replace(signupBody, "Abcdefg1", "abcdefg1", 1), "Password must contain uppercase, lowercase, and numbers"},
		"bad gender":     {strings.Replace(signupBody, "female", "robot", 1), "Gender must be one of male, female, other, prefer-not-to-say"},
		"bad json":       {`{"name":`, "Invalid request body"},
		"trailing data":  {signupBody + `{}`, "Invalid request body"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rr, resp := post(t, router, "/auth/signup", tc.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Equal(t, tc.message, resp.Message)
		})
	}
}

func TestSigninEndpointLockout(t *testing.T) {
	router, store, metrics := newAuthRouter(t, nil)
	rr, signup := post(t, router, "/auth/signup", signupBody)
	require.Equal(t, http.StatusCreated, rr.Code)

	wrong := `{"email":"ada@example.com","password":"Wrongpass1"}`
	for left := 4; left >= 1; left-- {
		rr, resp := post(t, router, "/auth/signin", wrong)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Contains(t, resp.Message, "attempt(s) remaining")
	}
	rr, resp := post(t, router, "/auth/signin", wrong)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Account locked due to multiple failed attempts.", resp.Message)

	rr, resp = post(t, router, "/auth/signin", `{"email":"ada@example.com","password":"Abcdefg1"}`)
	assert.Equal(t, http.StatusLocked, rr.Code)
	assert.Equal(t, "Account locked. Try again in 120 minutes.", resp.Message)
	assert.Equal(t, 1, metrics.counts["signin/locked"])

	store.setLockUntil("ada@example.com", time.Now().Add(-time.Minute))
	rr, resp = post(t, router, "/auth/signin", `{"email":" ADA@example.com ","password":"Abcdefg1"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Login successful", resp.Message)
	assert.Equal(t, signup.User.ID, resp.User.ID)
}

func TestSigninEndpointErrors(t *testing.T) {
	router, _, _ := newAuthRouter(t, nil)

	rr, resp := post(t, router, "/auth/signin", `{"email":"ada@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Email and password required", resp.Message)

	rr, resp = post(t, router, "/auth/signin", `{"email":"ghost@example.com","password":"Abcdefg1"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Invalid email or password", resp.Message)
}

func TestAuthRateLimit(t *testing.T) {
	router, _, _ := newAuthRouter(t, auth.NewRateLimiter(5, 15*time.Minute))

	body := `{"email":"ghost@example.com","password":"Abcdefg1"}`
	for i := 0; i < 5; i++ {
		rr, _ := post(t, router, "/auth/signin", body)
		require.Equal(t, http.StatusUnauthorized, rr.Code)
	}
	rr, resp := post(t, router, "/auth/signin", body)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "Too many authentication attempts. Please try again later.", resp.Message)

	// Signup shares the same budget.
	rr, _ = post(t, router, "/auth/signup", signupBody)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
}

func TestRequireBearer(t *testing.T) {
	tokens := auth.NewTokenIssuer(testSecret, "companion-test", time.Hour)
	protected := auth.RequireBearer(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := shared.IdentityFromContext(r.Context())
		require.True(t, ok)
		_, _ = w.Write([]byte(id.AccountID))
	}))

	token, err := tokens.Issue("acct-9", "ada@example.com")
	require.NoError(t, err)

	cases := map[string]struct {
		header string
		status int
	}{
		"valid":      {"Bearer " + token, http.StatusOK},
		"lower case": {"bearer " + token, http.StatusOK},
		"missing":    {"", http.StatusUnauthorized},
		"basic":      {"Basic Zm9vOmJhcg==", http.StatusUnauthorized},
		"empty":      {"Bearer ", http.StatusUnauthorized},
		"garbage":    {"Bearer abc.def.ghi", http.StatusForbidden},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/user/profile", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			protected.ServeHTTP(rr, req)
			assert.Equal(t, tc.status, rr.Code)
			if tc.status == http.StatusOK {
				assert.Equal(t, "acct-9", rr.Body.String())
			}
		})
	}
}
