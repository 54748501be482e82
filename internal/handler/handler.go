package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"projecthub/internal/apperr"
	"projecthub/internal/authz"
	"projecthub/pkg/logger"
	"projecthub/pkg/reporter"
	"projecthub/pkg/util"
)

const (
	principalKey = "principal"
	claimsKey    = "claims"
)

// SetPrincipal stores the authenticated caller on the request context.
func SetPrincipal(c *gin.Context, p *authz.Principal, claims *util.Claims) {
	c.Set(principalKey, p)
	c.Set(claimsKey, claims)
	c.Set("user_id", p.UserID())
}

// CurrentPrincipal panics when the route is not behind the auth middleware.
func CurrentPrincipal(c *gin.Context) authz.Principal {
	return *c.MustGet(principalKey).(*authz.Principal)
}

func currentClaims(c *gin.Context) *util.Claims {
	return c.MustGet(claimsKey).(*util.Claims)
}

// RespondError renders err using its apperr classification. Unexpected
// errors are logged with the trace id and reported to Sentry; their text
// never reaches the client.
func RespondError(c *gin.Context, log *zap.Logger, op string, err error) {
	status := apperr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		logger.WithTrace(c.Request.Context(), log).Error(op+": unexpected error",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		reporter.Capture(c.Request.Context(), err, map[string]string{"op": op})
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}

	log.Warn(op+": request rejected",
		zap.Int("status", status),
		zap.String("reason", err.Error()),
	)
	body := gin.H{"error": err.Error()}
	var verr *apperr.ValidationError
	if errors.As(err, &verr) && len(verr.Fields) > 0 {
		body["fields"] = verr.Fields
	}
	c.JSON(status, body)
}

// pathID parses the :id route parameter.
func pathID(c *gin.Context) (int64, error) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Field("id", "must be a positive integer")
	}
	return id, nil
}

// queryID parses an optional integer query parameter; absent means nil.
func queryID(c *gin.Context, name string) (*int64, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, apperr.Field(name, "must be an integer")
	}
	return &id, nil
}

func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return apperr.Validation("Malformed request body: " + err.Error())
	}
	return nil
}
