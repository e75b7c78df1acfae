package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"acrevista-api/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

const (
	userKey           = "currentUser"
	SessionCookieName = "sessionid"
)

type Claims struct {
	UserID  int    `json:"user_id"`
	Email   string `json:"email"`
	IsStaff bool   `json:"is_staff"`
	jwt.RegisteredClaims
}

// Auth signs and checks the JWTs used as API bearer tokens and as the web
// session cookie.
type Auth struct {
	db           *gorm.DB
	secret       []byte
	ttl          time.Duration
	secureCookie bool
	now          func() time.Time
}

func NewAuth(db *gorm.DB, secret string, ttl time.Duration, secureCookie bool) *Auth {
	return &Auth{db: db, secret: []byte(secret), ttl: ttl, secureCookie: secureCookie, now: time.Now}
}

// IssueToken signs a token for user and returns it with its expiry.
func (a *Auth) IssueToken(user *models.User) (string, time.Time, error) {
	now := a.now()
	expires := now.Add(a.ttl)
	claims := Claims{
		UserID:  user.UserID,
		Email:   user.Email,
		IsStaff: user.IsStaff,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprint(user.UserID),
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// ParseToken verifies signature and expiry.
func (a *Auth) ParseToken(raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithTimeFunc(a.now))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// userFromToken resolves an active user from a signed token.
func (a *Auth) userFromToken(raw string) (*models.User, error) {
	claims, err := a.ParseToken(raw)
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := a.db.Where("user_id = ?", claims.UserID).First(&user).Error; err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, errors.New("user account is disabled")
	}
	return &user, nil
}

func bearerToken(header string) (string, bool) {
	for _, prefix := range []string{"Bearer ", "JWT "} {
		if strings.HasPrefix(header, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(header, prefix)), true
		}
	}
	return "", false
}

// RequireAPIUser validates the bearer token and stores the user in the context.
func (a *Auth) RequireAPIUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication credentials were not provided."})
			return
		}
		raw, ok := bearerToken(authHeader)
		if !ok || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			return
		}

		user, err := a.userFromToken(raw)
		if err != nil {
			msg := "Error decoding signature."
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "Signature has expired."
			} else if errors.Is(err, gorm.ErrRecordNotFound) {
				msg = "User not found"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
			return
		}

		SetCurrentUser(c, user)
		c.Next()
	}
}

// RequireStaff must run after an authentication middleware.
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || !user.IsStaff {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "You do not have permission to perform this action."})
			return
		}
		c.Next()
	}
}

// WebSession loads the user of a valid session cookie. Anonymous requests pass through.
func (a *Auth) WebSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw, err := c.Cookie(SessionCookieName); err == nil && raw != "" {
			if user, err := a.userFromToken(raw); err == nil {
				SetCurrentUser(c, user)
			} else {
				a.EndSession(c)
			}
		}
		c.Next()
	}
}

// StartSession logs user in for the web interface.
func (a *Auth) StartSession(c *gin.Context, user *models.User) error {
	token, _, err := a.IssueToken(user)
	if err != nil {
		return err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, token, int(a.ttl.Seconds()), "/", "", a.secureCookie, true)
	SetCurrentUser(c, user)
	return nil
}

func (a *Auth) EndSession(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, "", -1, "/", "", a.secureCookie, true)
}

// RequireLogin redirects anonymous web visitors to the login page.
func RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			c.Redirect(http.StatusFound, "/account/login?next="+url.QueryEscape(c.Request.URL.RequestURI()))
			c.Abort()
			return
		}
		c.Next()
	}
}

func SetCurrentUser(c *gin.Context, user *models.User) {
	c.Set(userKey, user)
	c.Set("userID", user.UserID)
}

// CurrentUser returns the authenticated user or nil.
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(userKey); ok {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}
