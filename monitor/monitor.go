package monitor

import (
	"context"
	"net/http"
	"os"
	"time"

	"manuscript-review-api/config"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options configures the operational endpoints.
type Options struct {
	// Ping reports whether the backing store is reachable. Nil means the
	// process is healthy whenever it is serving.
	Ping func(ctx context.Context) error
	// LogToken guards /logs and /monitor. Empty disables both.
	LogToken string
}

// Register mounts /health, /metrics and, when a token is set, /logs and the
// /monitor page.
func Register(router *gin.Engine, opts Options) {
	router.GET("/health", func(c *gin.Context) {
		if opts.Ping != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := opts.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if opts.LogToken == "" {
		return
	}
	router.GET("/logs", func(c *gin.Context) {
		if c.Query("token") != opts.LogToken {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		logData, err := os.ReadFile(config.LogFilePath())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to read log"})
			return
		}
		c.Data(http.StatusOK, "text/plain; charset=utf-8", logData)
	})
	router.GET("/monitor", func(c *gin.Context) {
		if c.Query("token") != opts.LogToken {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(monitorPage))
	})
}

// The page reads the token from its own query string so it is never
// embedded in the HTML.
const monitorPage = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1.0" />
  <title>Manuscript API Monitor</title>
  <style>
    body { background: #0f0f0f; color: #e0e0e0; font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; padding: 20px; }
    .card { background: rgba(255,255,255,0.05); border: 1px solid rgba(255,255,255,0.1); border-radius: 12px; padding: 1rem 1.5rem; margin-bottom: 1.5rem; }
    #status { font-size: 1.2rem; font-weight: 600; }
    #logs { background: rgba(0,0,0,0.3); padding: 1rem; border-radius: 8px; max-height: 500px; overflow-y: auto; white-space: pre-wrap; font-family: Menlo, Consolas, monospace; font-size: 0.85rem; }
    button { padding: 6px 14px; border-radius: 8px; border: 1px solid #334155; background: #111827; color: #e5e7eb; cursor: pointer; }
  </style>
</head>
<body>
  <h1>Manuscript API Monitor</h1>
  <div class="card"><div id="status">Checking...</div></div>
  <div class="card">
    <button id="toggle">Pause Live Logs</button>
    <pre id="logs">Loading...</pre>
  </div>
  <script>
    const token = new URLSearchParams(window.location.search).get('token') || '';
    const statusEl = document.getElementById('status');
    const logsEl = document.getElementById('logs');
    const toggleBtn = document.getElementById('toggle');
    let live = true;

    function fetchStatus() {
      fetch('/health')
        .then(res => res.json().then(body => ({ ok: res.ok, body })))
        .then(({ ok, body }) => { statusEl.textContent = ok ? 'Server is running' : 'Degraded: ' + (body.error || ''); })
        .catch(() => { statusEl.textContent = 'Server is unreachable'; });
    }

    function fetchLogs() {
      if (!live) return;
      fetch('/logs?token=' + encodeURIComponent(token))
        .then(res => res.text())
        .then(data => { logsEl.textContent = data; logsEl.scrollTop = logsEl.scrollHeight; });
    }

    toggleBtn.onclick = () => {
      live = !live;
      toggleBtn.textContent = live ? 'Pause Live Logs' : 'Resume Live Logs';
    };

    fetchStatus();
    fetchLogs();
    setInterval(fetchStatus, 5000);
    setInterval(fetchLogs, 5000);
  </script>
</body>
</html>`
