package api

import (
	"errors"
	"net/http"

	"github.com/Domenick1991/fieldbooking/internal/domain"
	"github.com/Domenick1991/fieldbooking/internal/httpclient"
	"github.com/Domenick1991/fieldbooking/internal/session"
	"github.com/gin-gonic/gin"
)

const upstreamFailure = "upstream request failed"

// SessionMiddleware restores the caller's session from its browser cookies
// and puts it in the request context for the services.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie(session.TokenCookie)
		flag, err := c.Cookie(session.FlagCookie)
		sess := session.New(token, err == nil, flag == "true")
		c.Request = c.Request.WithContext(session.WithSession(c.Request.Context(), sess))
		c.Next()
	}
}

// respond mirrors session changes onto the response cookies, then writes body.
func respond(c *gin.Context, status int, body any) {
	mirrorSession(c)
	c.JSON(status, body)
}

func mirrorSession(c *gin.Context) {
	sess := session.FromContext(c.Request.Context())
	if sess == nil {
		return
	}
	changes := sess.Changes()
	secure := c.Request.TLS != nil

	if changes.TokenChanged {
		if changes.Token == "" {
			c.SetCookie(session.TokenCookie, "", -1, "/", "", secure, true)
		} else {
			c.SetCookie(session.TokenCookie, changes.Token, 0, "/", "", secure, true)
		}
	}
	if changes.FlagChanged {
		if changes.LoggedIn {
			c.SetCookie(session.FlagCookie, "true", 0, "/", "", secure, false)
		} else {
			c.SetCookie(session.FlagCookie, "", -1, "/", "", secure, false)
		}
	}
}

var validationErrors = []error{
	domain.ErrInvalidDate,
	domain.ErrInvalidTime,
	domain.ErrInvalidTimeRange,
	domain.ErrInvalidField,
	domain.ErrInvalidPaymentMethod,
	domain.ErrUserIDRequired,
	domain.ErrCredentialsRequired,
	domain.ErrRegistrationIncomplete,
}

func isValidation(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// respondError maps the client error taxonomy onto gateway statuses. Backend
// answers keep their status; transport and decoding failures become 502.
func respondError(c *gin.Context, err error) {
	var authErr *httpclient.AuthError
	var statusErr *httpclient.StatusError

	switch {
	case isValidation(err):
		respond(c, http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &authErr):
		respond(c, http.StatusUnauthorized, gin.H{"error": messageOr(authErr.Message, http.StatusUnauthorized)})
	case errors.As(err, &statusErr):
		respond(c, statusErr.StatusCode, gin.H{"error": messageOr(statusErr.Message, statusErr.StatusCode)})
	default:
		_ = c.Error(err)
		respond(c, http.StatusBadGateway, gin.H{"error": upstreamFailure})
	}
}

func messageOr(message string, status int) string {
	if message != "" {
		return message
	}
	return http.StatusText(status)
}

func badRequest(c *gin.Context, message string) {
	respond(c, http.StatusBadRequest, gin.H{"error": message})
}
