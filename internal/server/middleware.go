package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/relaygrid/internal/config"
	"github.com/smallbiznis/relaygrid/internal/orgcontext"
)

// OrgMiddleware resolves the active organization from the X-Org-ID header,
// falling back to the configured default org.
func OrgMiddleware(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader("X-Org-ID"))
		if raw == "" {
			if cfg.DefaultOrgID == 0 {
				AbortWithError(c, ErrInvalidRequest)
				return
			}
			ctx := orgcontext.WithOrgID(c.Request.Context(), cfg.DefaultOrgID)
			c.Request = c.Request.WithContext(ctx)
			c.Next()
			return
		}

		orgID, err := snowflake.ParseString(raw)
		if err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}

		ctx := orgcontext.WithOrgID(c.Request.Context(), orgID.Int64())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
