package middleware

import (
	"encoding/base64"
	"encoding/json"

	"github.com/gin-gonic/gin"
)

const (
	flashCookieName = "flash"
	flashKey        = "flashes"
)

type Flash struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// AddFlash queues a banner for the current page and, through a short-lived
// cookie, for the page after a redirect.
func AddFlash(c *gin.Context, level, message string) {
	flashes := append(pending(c), Flash{Level: level, Message: message})
	c.Set(flashKey, flashes)
	if raw, err := json.Marshal(flashes); err == nil {
		c.SetCookie(flashCookieName, base64.RawURLEncoding.EncodeToString(raw), 60, "/", "", false, true)
	}
}

func pending(c *gin.Context) []Flash {
	if v, ok := c.Get(flashKey); ok {
		if flashes, ok := v.([]Flash); ok {
			return flashes
		}
	}
	return nil
}

// Flashes returns and clears every queued banner.
func Flashes(c *gin.Context) []Flash {
	flashes := pending(c)
	if raw, err := c.Cookie(flashCookieName); err == nil && raw != "" && len(flashes) == 0 {
		if data, err := base64.RawURLEncoding.DecodeString(raw); err == nil {
			_ = json.Unmarshal(data, &flashes)
		}
	}
	c.Set(flashKey, []Flash(nil))
	c.SetCookie(flashCookieName, "", -1, "/", "", false, true)
	return flashes
}
