package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-api/internal/domain"
	"chat-api/internal/service"
)

type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type updateProfileRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Avatar   *string `json:"avatar"`
}

type sessionResponse struct {
	Token string            `json:"token"`
	User  domain.PublicUser `json:"user"`
}

func (h *Handler) signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeBindError(c, err)
		return
	}

	session, err := h.users.Signup(c.Request.Context(), service.SignupInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.setSessionCookie(c, session.Token)
	c.JSON(http.StatusCreated, sessionResponse{Token: session.Token, User: session.User})
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeBindError(c, err)
		return
	}

	session, err := h.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.setSessionCookie(c, session.Token)
	c.JSON(http.StatusOK, sessionResponse{Token: session.Token, User: session.User})
}

func (h *Handler) logout(c *gin.Context) {
	user := currentUser(c)
	if err := h.users.Logout(c.Request.Context(), user.ID, currentClaims(c)); err != nil {
		h.writeError(c, err)
		return
	}

	h.clearSessionCookie(c)
	c.JSON(http.StatusOK, gin.H{"message": "logged out successfully"})
}

func (h *Handler) me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user": currentUser(c)})
}

func (h *Handler) updateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeBindError(c, err)
		return
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), currentUser(c).ID, domain.ProfileUpdate{
		Username: req.Username,
		Email:    req.Email,
		Avatar:   req.Avatar,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *Handler) setSessionCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(h.cookieName, token, int(h.tokenTTL.Seconds()), "/", "", h.cookieSecure, true)
}

func (h *Handler) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(h.cookieName, "", -1, "/", "", h.cookieSecure, true)
}
