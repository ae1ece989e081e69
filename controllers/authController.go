package controllers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"damagereport-be/middlewares"
	"damagereport-be/models"
	"damagereport-be/repositories"
	authUtils "damagereport-be/utils"
)

// UserStore is the user persistence the auth handlers need.
type UserStore interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Insert(ctx context.Context, user *models.User) error
}

type AuthController struct {
	users      UserStore
	jwtSecret  string
	production bool
	domain     string
}

func NewAuthController(users UserStore, jwtSecret string, production bool, domain string) *AuthController {
	return &AuthController{users: users, jwtSecret: jwtSecret, production: production, domain: domain}
}

func userJSON(u *models.User) gin.H {
	return gin.H{
		"id":        u.ID,
		"name":      u.Name,
		"email":     u.Email,
		"role":      u.Role,
		"createdAt": u.CreatedAt,
	}
}

// RegisterUser handles user registration. Every registered user is a driver; supervisor
// accounts are provisioned with services.SeedSupervisor.
func (ac *AuthController) RegisterUser(c *gin.Context) {
	var input struct {
		Name     string `json:"name" binding:"required,max=50"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=6"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	now := time.Now().UTC()
	user := models.User{
		Name:      input.Name,
		Email:     input.Email,
		Password:  input.Password,
		Role:      models.RoleDriver,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := user.HashPassword(); err != nil {
		log.Println("Error hashing password:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}

	if err := ac.users.Insert(c.Request.Context(), &user); err != nil {
		if errors.Is(err, repositories.ErrDuplicateEmail) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "User with this email already exists"})
			return
		}
		log.Println("Error inserting user:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}

	c.JSON(http.StatusCreated, userJSON(&user))
}

// LoginUser checks credentials and issues the auth_token cookie. The token is also returned
// in the body for clients that send it as a Bearer header.
func (ac *AuthController) LoginUser(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := ac.users.FindByEmail(c.Request.Context(), input.Email)
	if err != nil || !user.ComparePassword(input.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := authUtils.GenerateToken(ac.jwtSecret, user.ID.Hex(), string(user.Role), time.Now())
	if err != nil {
		log.Println("Error generating token:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}

	// For production, don't set domain to allow cross-origin cookies
	domain := ac.domain
	if ac.production {
		domain = ""
	}

	http.SetCookie(c.Writer, &http.Cookie{
		Name:     middlewares.AuthCookie,
		Value:    token,
		MaxAge:   int(authUtils.TokenTTL.Seconds()),
		Path:     "/",
		Domain:   domain,
		Secure:   ac.production,
		HttpOnly: true,
		SameSite: http.SameSiteNoneMode,
	})

	body := userJSON(user)
	body["token"] = token
	c.JSON(http.StatusOK, body)
}

// GetMe retrieves the authenticated user's information
func (ac *AuthController) GetMe(c *gin.Context) {
	actor, ok := middlewares.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	user, err := ac.users.FindByID(c.Request.Context(), actor.ID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, userJSON(user))
}

// LogoutUser handles user logout by clearing the auth_token cookie
func (ac *AuthController) LogoutUser(c *gin.Context) {
	c.SetCookie(middlewares.AuthCookie, "", -1, "/", ac.domain, ac.production, true)
	c.JSON(http.StatusOK, gin.H{
		"message": "Logged out successfully",
	})
}
