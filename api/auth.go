package api

import (
	"net/http"

	"github.com/Domenick1991/fieldbooking/internal/domain"
	"github.com/Domenick1991/fieldbooking/internal/service/auth"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	service auth.AuthUseCase
}

type statusResponse struct {
	Authenticated bool         `json:"authenticated"`
	User          *domain.User `json:"user,omitempty"`
}

func NewAuthHandler(service auth.AuthUseCase) *AuthHandler {
	return &AuthHandler{service: service}
}

func (h *AuthHandler) Register(router *gin.RouterGroup) {
	router.POST("/auth/login", h.login)
	router.POST("/auth/register", h.register)
	router.POST("/auth/logout", h.logout)
	router.GET("/auth/status", h.status)
	router.POST("/auth/refresh-token", h.refresh)
}

func (h *AuthHandler) login(c *gin.Context) {
	var req domain.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	user, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, user)
}

func (h *AuthHandler) register(c *gin.Context) {
	var req domain.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	user, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, user)
}

func (h *AuthHandler) logout(c *gin.Context) {
	message, err := h.service.Logout(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"message": message})
}

func (h *AuthHandler) status(c *gin.Context) {
	user, err := h.service.Status(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, statusResponse{Authenticated: user != nil, User: user})
}

func (h *AuthHandler) refresh(c *gin.Context) {
	if err := h.service.RefreshToken(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"refreshed": true})
}
