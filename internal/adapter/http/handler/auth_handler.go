package handler

import (
	"tuition-ledger/internal/adapter/http/dto"
	"tuition-ledger/internal/adapter/http/middleware"
	"tuition-ledger/internal/core/domain"
	"tuition-ledger/internal/core/ports"
	"tuition-ledger/pkg/apperror"
	"tuition-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authSvc ports.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authSvc ports.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

// Register handles POST /api/v1/auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	err := h.authSvc.Register(c.Request.Context(), ports.RegisterRequest{
		Identifier:    req.Identifier,
		Secret:        req.Secret,
		DisplayName:   req.DisplayName,
		EnrollmentRef: req.EnrollmentRef,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxIdentity, domain.NormalizeIdentity(req.Identifier))
	response.Created(c, dto.RegisterResponse{
		Identifier:  req.Identifier,
		DisplayName: req.DisplayName,
	})
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	// Not sanitized: the credential store normalizes the identifier and
	// trims the secret itself.
	result, err := h.authSvc.Login(c.Request.Context(), req.Identifier, req.Secret)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxIdentity, domain.NormalizeIdentity(result.Session.Identity))
	response.OK(c, dto.LoginResponse{
		Token:         result.Token,
		Expiry:        result.ExpiresAt.Unix(),
		Identity:      result.Session.Identity,
		DisplayName:   result.Session.DisplayName,
		EnrollmentRef: result.Session.EnrollmentRef,
		Admin:         result.Session.Admin,
	})
}
