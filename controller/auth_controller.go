package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joeyave/event-buddy/helpers"
	"github.com/joeyave/event-buddy/service"
)

type AuthController struct {
	AuthService *service.AuthService
}

type credentials struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type reauthenticateRequest struct {
	Password string `json:"password" binding:"required"`
}

type changePasswordRequest struct {
	NewPassword     string `json:"newPassword" binding:"required"`
	CurrentPassword string `json:"currentPassword"`
}

func (c *AuthController) SignUp(ctx *gin.Context) {
	var req credentials
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondError(ctx, &bindingError{err: err, message: "Please enter a valid email and password."}, "")
		return
	}

	res, err := c.AuthService.SignUp(ctx.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(ctx, err, "")
		return
	}
	ctx.JSON(http.StatusCreated, res)
}

func (c *AuthController) SignIn(ctx *gin.Context) {
	var req credentials
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondError(ctx, service.ErrInvalidCredentials, "")
		return
	}

	res, err := c.AuthService.SignIn(ctx.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(ctx, err, "")
		return
	}
	ctx.JSON(http.StatusOK, res)
}

func (c *AuthController) SignOut(ctx *gin.Context) {
	err := c.AuthService.SignOut(ctx.Request.Context(), identityFrom(ctx).SessionID)
	if err != nil {
		respondError(ctx, err, "")
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (c *AuthController) Reauthenticate(ctx *gin.Context) {
	var req reauthenticateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondError(ctx, service.ErrInvalidCredentials, "")
		return
	}

	identity, err := c.AuthService.Reauthenticate(ctx.Request.Context(), identityFrom(ctx), req.Password)
	if err != nil {
		respondError(ctx, err, "")
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "ok", "identity": identity})
}

func (c *AuthController) ChangePassword(ctx *gin.Context) {
	var req changePasswordRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		respondError(ctx, invalidRequest(err), "")
		return
	}

	err := c.AuthService.ChangePassword(ctx.Request.Context(), identityFrom(ctx), req.NewPassword, req.CurrentPassword)
	if err != nil {
		respondError(ctx, err, "")
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "ok", "message": helpers.PasswordUpdated})
}
