package notify

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RetryMillis is the reconnect delay suggested to EventSource clients.
const RetryMillis = 5000

// ServeSSE streams userID's push channel as server-sent events until the
// client disconnects or a newer channel replaces this one.
func ServeSSE(c *gin.Context, d *Dispatcher, userID uuid.UUID, heartbeat time.Duration) {
	ch := d.Open(userID)
	defer d.Close(ch)

	h := c.Writer.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	_, _ = fmt.Fprintf(c.Writer, "retry: %d\n: connected\n\n", RetryMillis)
	c.Writer.Flush()

	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case <-ch.Done():
			return false
		case <-ticker.C:
			_, err := io.WriteString(w, ": ping\n\n")
			return err == nil
		case msg := <-ch.Events():
			if _, err := io.WriteString(w, "data: "); err != nil {
				return false
			}
			if _, err := w.Write(msg); err != nil {
				return false
			}
			_, err := io.WriteString(w, "\n\n")
			return err == nil
		}
	})
}
