package realtime

import (
	"net/http"
	"net/url"

	"github.com/gorilla/websocket"
)

// NewUpgrader accepts same-host requests, requests with no Origin header,
// and requests from allowedOrigin. "*" allows any origin.
func NewUpgrader(allowedOrigin string) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || allowedOrigin == "*" || origin == allowedOrigin {
				return true
			}
			u, err := url.Parse(origin)
			if err != nil {
				return false
			}
			return u.Host == r.Host
		},
	}
}
