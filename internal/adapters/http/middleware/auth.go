package middleware

import (
	"cmp"
	"log/slog"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nico-vromans/random-quote-generator/internal/adapters/http/dto"
	"github.com/nico-vromans/random-quote-generator/internal/platform/config"
	"github.com/nico-vromans/random-quote-generator/internal/platform/logging"
)

const contextKeyIdentity = "identity"

// Identity is the caller as the API gateway forwards it. The gateway checks
// the token; this service only reads the headers.
type Identity struct {
	Subject string
	Roles   []string
}

func (id *Identity) HasRole(role string) bool {
	return slices.Contains(id.Roles, role)
}

// ReadIdentity reads the subject and comma-separated roles from the headers
// named in cfg, X-User-ID and X-User-Roles by default.
func ReadIdentity(c *gin.Context, cfg *config.AuthConfig) *Identity {
	var subjectHeader, rolesHeader string
	if cfg != nil {
		subjectHeader, rolesHeader = cfg.SubjectHeader, cfg.RolesHeader
	}

	id := &Identity{Subject: strings.TrimSpace(c.GetHeader(cmp.Or(subjectHeader, "X-User-ID")))}

	for role := range strings.SplitSeq(c.GetHeader(cmp.Or(rolesHeader, "X-User-Roles")), ",") {
		if role = strings.TrimSpace(role); role != "" {
			id.Roles = append(id.Roles, role)
		}
	}

	return id
}

// IdentityFrom returns what RequireAuth stored, or nil.
func IdentityFrom(c *gin.Context) *Identity {
	v, _ := c.Get(contextKeyIdentity)
	id, _ := v.(*Identity)

	return id
}

// RequireAuth answers 401 when the gateway sent no subject.
func RequireAuth(cfg *config.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := ReadIdentity(c, cfg)
		if id.Subject == "" {
			reject(c, dto.ErrorCodeUnauthorized, "authentication required")
			return
		}

		c.Set(contextKeyIdentity, id)
		c.Request = c.Request.WithContext(logging.With(c.Request.Context(), "subject", id.Subject))
		c.Next()
	}
}

// RequireRole answers 403 unless the caller holds role.
func RequireRole(cfg *config.AuthConfig, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := IdentityFrom(c)
		if id == nil {
			id = ReadIdentity(c, cfg)
			c.Set(contextKeyIdentity, id)
		}

		if !id.HasRole(role) {
			ctx := c.Request.Context()
			logging.FromContext(ctx).WarnContext(ctx, "role missing",
				slog.String("role", role),
				slog.String("subject", id.Subject),
			)
			reject(c, dto.ErrorCodeForbidden, "insufficient permissions: role "+role+" required")

			return
		}

		c.Next()
	}
}

func reject(c *gin.Context, code dto.ErrorCode, message string) {
	c.AbortWithStatusJSON(code.Status(), dto.NewErrorResponse(code, message).WithTraceID(dto.GetTraceID(c)))
}
