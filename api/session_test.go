package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Domenick1991/fieldbooking/internal/domain"
	"github.com/Domenick1991/fieldbooking/internal/envelope"
	"github.com/Domenick1991/fieldbooking/internal/httpclient"
	"github.com/Domenick1991/fieldbooking/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func cookieByName(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestSessionMiddleware_RestoresCookies(t *testing.T) {
	router := gin.New()
	router.Use(SessionMiddleware())

	var got *session.Session
	router.GET("/probe", func(c *gin.Context) {
		got = session.FromContext(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.AddCookie(&http.Cookie{Name: session.TokenCookie, Value: "tok-1"})
	req.AddCookie(&http.Cookie{Name: session.FlagCookie, Value: "true"})
	router.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, got)
	assert.True(t, got.LoggedIn())
	assert.Equal(t, "tok-1", got.Token())
}

func TestSessionMiddleware_Anonymous(t *testing.T) {
	router := gin.New()
	router.Use(SessionMiddleware())

	var got *session.Session
	router.GET("/probe", func(c *gin.Context) {
		got = session.FromContext(c.Request.Context())
		respond(c, http.StatusOK, gin.H{})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/probe", nil))

	require.NotNil(t, got)
	assert.False(t, got.LoggedIn())
	assert.Empty(t, w.Result().Cookies())
}

func TestRespond_MirrorsSessionChanges(t *testing.T) {
	router := gin.New()
	router.Use(SessionMiddleware())
	router.POST("/login", func(c *gin.Context) {
		sess := session.FromContext(c.Request.Context())
		sess.SetToken("fresh")
		sess.MarkLoggedIn()
		respond(c, http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))

	resp := w.Result()
	token := cookieByName(resp, session.TokenCookie)
	require.NotNil(t, token)
	assert.Equal(t, "fresh", token.Value)
	assert.True(t, token.HttpOnly)

	flag := cookieByName(resp, session.FlagCookie)
	require.NotNil(t, flag)
	assert.Equal(t, "true", flag.Value)
	assert.False(t, flag.HttpOnly)
}

func TestRespond_ClearsFlagAndToken(t *testing.T) {
	router := gin.New()
	router.Use(SessionMiddleware())
	router.POST("/logout", func(c *gin.Context) {
		sess := session.FromContext(c.Request.Context())
		sess.SetToken("")
		sess.ClearFlag()
		respond(c, http.StatusOK, gin.H{})
	})

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: session.TokenCookie, Value: "old"})
	req.AddCookie(&http.Cookie{Name: session.FlagCookie, Value: "true"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	resp := w.Result()
	flag := cookieByName(resp, session.FlagCookie)
	require.NotNil(t, flag)
	assert.Equal(t, "", flag.Value)
	assert.Less(t, flag.MaxAge, 0)

	token := cookieByName(resp, session.TokenCookie)
	require.NotNil(t, token)
	assert.Less(t, token.MaxAge, 0)
}

func TestRespondError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "validation",
			err:        domain.ErrInvalidTimeRange,
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"end time must be after start time"}`,
		},
		{
			name:       "unauthorized",
			err:        &httpclient.AuthError{Message: "token expired"},
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"error":"token expired"}`,
		},
		{
			name:       "backend status passes through",
			err:        &httpclient.StatusError{StatusCode: http.StatusConflict, Message: "slot already taken"},
			wantStatus: http.StatusConflict,
			wantBody:   `{"error":"slot already taken"}`,
		},
		{
			name:       "backend status without message",
			err:        &httpclient.StatusError{StatusCode: http.StatusNotFound},
			wantStatus: http.StatusNotFound,
			wantBody:   `{"error":"Not Found"}`,
		},
		{
			name:       "transport",
			err:        &httpclient.TransportError{Err: errors.New("connection refused")},
			wantStatus: http.StatusBadGateway,
			wantBody:   `{"error":"upstream request failed"}`,
		},
		{
			name:       "unexpected shape",
			err:        &envelope.ShapeError{Kind: "list"},
			wantStatus: http.StatusBadGateway,
			wantBody:   `{"error":"upstream request failed"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			respondError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}
