package utils

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/Govind-619/StudyHub/models"
	"github.com/golang-jwt/jwt"
	"golang.org/x/crypto/bcrypt"
)

// TokenTTL is the lifetime of issued bearer tokens
const TokenTTL = 24 * time.Hour

// Claims are the values carried by a validated bearer token
type Claims struct {
	UserID    uint
	Role      string
	ExpiresAt time.Time
}

// HashPassword creates a bcrypt hash of the password
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPassword compares a password against a hash
func CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// GenerateToken creates a JWT token for a user
func GenerateToken(user *models.User, secret string) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret not configured")
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"role":    user.Role,
		"exp":     time.Now().Add(TokenTTL).Unix(),
	})
	return token.SignedString([]byte(secret))
}

// ValidateToken validates a JWT token and returns its claims
func ValidateToken(tokenString, secret string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	userID, ok := claims["user_id"].(float64)
	if !ok {
		return nil, errors.New("invalid user ID in token")
	}
	role, _ := claims["role"].(string)
	exp, _ := claims["exp"].(float64)

	return &Claims{
		UserID:    uint(userID),
		Role:      role,
		ExpiresAt: time.Unix(int64(exp), 0),
	}, nil
}

// GenerateOTP creates a random numeric code of OTPLength digits
func GenerateOTP() (string, error) {
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(OTPLength), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", OTPLength, n.Int64()), nil
}
