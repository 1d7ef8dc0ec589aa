package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"taskhub/internal/logging"
	"taskhub/internal/models"
	"taskhub/internal/services"
)

type AuthHandler struct {
	authService services.AuthService
}

func NewAuthHandler(authService services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// @Summary      Регистрация
// @Description  Создаёт пользователя
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        user  body      models.RegisterRequest  true  "Данные пользователя"
// @Success      201   {object}  models.User
// @Failure      400   {object}  map[string]string
// @Router       /api/auth/register/ [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	user, err := h.authService.Register(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, services.ErrUsernameTaken) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": "username"})
			return
		}
		respondError(c, err, "auth", "register")
		return
	}
	c.JSON(http.StatusCreated, user)
}

// @Summary      Вход в систему
// @Description  Аутентифицирует пользователя и возвращает токены доступа
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        login  body      models.LoginRequest  true  "Данные для входа"
// @Success      200    {object}  services.TokenPair
// @Failure      400    {object}  map[string]string
// @Failure      401    {object}  map[string]string
// @Router       /api/auth/login/ [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logging.Logger.Infof("[auth][login] bad request: %v", err)
		badRequest(c, err)
		return
	}
	_, tokens, err := h.authService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
			return
		}
		respondError(c, err, "auth", "login")
		return
	}
	c.JSON(http.StatusOK, tokens)
}

type refreshRequest struct {
	Refresh string `json:"refresh" binding:"required"`
}

// @Summary      Обновление токена
// @Description  Ротирует refresh-токен и выдаёт новый access
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      refreshRequest  true  "Refresh-токен"
// @Success      200   {object}  services.TokenPair
// @Failure      401   {object}  map[string]string
// @Router       /api/auth/token/refresh/ [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	tokens, err := h.authService.Refresh(c.Request.Context(), req.Refresh)
	switch {
	case errors.Is(err, services.ErrRefreshTokenExpired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Refresh token expired"})
	case errors.Is(err, services.ErrInvalidRefreshToken):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid refresh token"})
	case err != nil:
		respondError(c, err, "auth", "refresh")
	default:
		c.JSON(http.StatusOK, tokens)
	}
}

// @Summary      Текущий пользователь
// @Tags         Auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  models.User
// @Router       /api/auth/me/ [get]
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.authService.GetUser(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err, "auth", "me")
		return
	}
	c.JSON(http.StatusOK, user)
}
