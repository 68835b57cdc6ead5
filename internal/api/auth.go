package api

import (
	"errors"   // Error matching
	"net/http" // HTTP status codes
	"regexp"   // Regular expressions
	"strings"  // String manipulation
	"time"     // Token lifetime

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"golang.org/x/crypto/bcrypt" // Password hashing
	"gorm.io/gorm"               // GORM ORM library

	"wallet_ledger/internal/domain" // Importing domain models
	"wallet_ledger/internal/store"  // Wallet provisioning on sign-up
	"wallet_ledger/internal/utils"  // Utility functions
)

// tokenTTL is how long issued tokens stay valid
const tokenTTL = 24 * time.Hour

// RegisterRequest is the sign-up payload
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`     // Username must be provided
	Password string `json:"password" binding:"required"`     // Password must be provided
	Name     string `json:"name"`                            // Display name
	Email    string `json:"email" binding:"omitempty,email"` // Optional contact email
	Phone    string `json:"phone" binding:"omitempty,e164"`  // Optional contact phone in E.164
}

// LoginRequest is the sign-in payload
type LoginRequest struct {
	Username string `json:"username" binding:"required"` // Username must be provided
	Password string `json:"password" binding:"required"` // Password must be provided
}

// AuthResponse carries the issued token
type AuthResponse struct {
	Token string `json:"token"` // JWT token
}

var usernamePattern = regexp.MustCompile(`^[A-Za-z]+$`)

// isValidUsername checks if the username contains only alphabetic characters
func isValidUsername(username string) bool {
	return usernamePattern.MatchString(username)
}

// isValidPassword checks if the password length is between 8 and 15 characters
func isValidPassword(password string) bool {
	return len(password) >= 8 && len(password) <= 15
}

// RegisterHandler creates a user and opens their wallet
func RegisterHandler(db *gorm.DB, ledger *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
		if !isValidUsername(req.Username) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Username must be alphabetic only"})
			return
		}
		if !isValidPassword(req.Password) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be 8-15 characters"})
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
			return
		}
		// Lowercase username to ensure uniqueness
		user := domain.User{
			Username: strings.ToLower(req.Username),
			Name:     strings.TrimSpace(req.Name),
			Email:    strings.ToLower(strings.TrimSpace(req.Email)),
			Phone:    req.Phone,
			Password: string(hash),
			Role:     domain.RoleUser,
		}
		if err := db.WithContext(c.Request.Context()).Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				c.JSON(http.StatusConflict, gin.H{"error": "Username already exists"})
				return
			}
			respondError(c, "register", err)
			return
		}
		// Open the wallet now; reads and payments would create it lazily anyway
		wallet, err := ledger.GetOrCreateWallet(c.Request.Context(), user.ID)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"user_id": user.ID,     // New user
				"error":   err.Error(), // Error message
			}).Warn("Wallet not opened at registration")
		}
		resp := gin.H{"message": "User registered successfully", "userId": user.ID}
		if wallet != nil {
			resp["wallet"] = wallet.Summary()
		}
		c.JSON(http.StatusCreated, resp)
	}
}

// LoginHandler authenticates a user and returns a JWT token
func LoginHandler(db *gorm.DB, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
		var user domain.User // Fetch user from database
		if err := db.WithContext(c.Request.Context()).Where("username = ?", strings.ToLower(req.Username)).First(&user).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		// Compare provided password with stored hash
		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		token, err := utils.GenerateJWT(user.ID, jwtSecret, tokenTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}
		c.JSON(http.StatusOK, AuthResponse{Token: token})
	}
}
