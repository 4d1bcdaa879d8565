package middleware

import (
	"net/http"

	"github.com/99minutos/auth-service/internal/core/ports"
)

// httpRequest exposes an *http.Request through ports.Request.
type httpRequest struct {
	r *http.Request
}

// NewRequest adapts r for the identity resolvers.
func NewRequest(r *http.Request) ports.Request {
	return httpRequest{r: r}
}

func (h httpRequest) Path() string {
	if h.r == nil || h.r.URL == nil {
		return ""
	}
	return h.r.URL.Path
}

func (h httpRequest) Header(name string) string {
	if h.r == nil {
		return ""
	}
	return h.r.Header.Get(name)
}

func (h httpRequest) Cookie(name string) (string, bool) {
	if h.r == nil {
		return "", false
	}
	c, err := h.r.Cookie(name)
	if err != nil {
		return "", false
	}
	return c.Value, true
}
