// Package handlers holds the Gin handlers of the quote API: quotes, admin
// maintenance and the /-/ probes.
package handlers

import (
	"net/http"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nico-vromans/random-quote-generator/internal/ports"
)

// BuildInfo is the body of /-/build.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
}

// NewBuildInfo takes the ldflags values from main. When no commit was
// injected, the VCS revision stamped by the go tool is used if present.
func NewBuildInfo(version, commit, buildTime string) BuildInfo {
	if commit == "" || commit == "unknown" {
		commit = vcsRevision(commit)
	}

	return BuildInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
		GoVersion: runtime.Version(),
	}
}

func vcsRevision(fallback string) string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return fallback
	}

	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && s.Value != "" {
			return s.Value
		}
	}

	return fallback
}

// HealthHandler serves the probes under /-/.
type HealthHandler struct {
	registry ports.HealthRegistry
	build    BuildInfo
}

func NewHealthHandler(registry ports.HealthRegistry, build BuildInfo) *HealthHandler {
	return &HealthHandler{registry: registry, build: build}
}

// Mount registers /-/live, /-/ready, /-/build and /-/metrics. None of them
// need auth.
func (h *HealthHandler) Mount(engine *gin.Engine) {
	probes := engine.Group("/-")
	probes.GET("/live", h.live)
	probes.GET("/ready", h.ready)
	probes.GET("/build", h.buildInfo)
	probes.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// live never touches the database or the quote APIs.
func (h *HealthHandler) live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type readinessResponse struct {
	Status    string                        `json:"status"`
	Checks    map[string]*ports.CheckResult `json:"checks,omitempty"`
	Timestamp time.Time                     `json:"timestamp"`
}

// ready is 503 only when a required check fails. With every quote API down
// the database still serves quotes, so that is reported as degraded.
func (h *HealthHandler) ready(c *gin.Context) {
	res := h.registry.CheckAll(c.Request.Context())

	code := http.StatusOK
	if res.Status == ports.HealthStatusUnhealthy {
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, readinessResponse{
		Status:    string(res.Status),
		Checks:    res.Checks,
		Timestamp: res.Timestamp,
	})
}

func (h *HealthHandler) buildInfo(c *gin.Context) {
	c.JSON(http.StatusOK, h.build)
}
