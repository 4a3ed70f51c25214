package middleware

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yizeng/gab/gin/gorm/attendance/internal/api/handler/v1/response"
	"github.com/yizeng/gab/gin/gorm/attendance/internal/pkg/jwthelper"
)

const (
	CtxKeySubjectID = "subject_id"
	CtxKeyRole      = "role"

	RoleAdmin     = "admin"
	RoleOrganizer = "organizer"
)

var (
	errMissingToken  = errors.New("missing bearer token")
	errInvalidToken  = errors.New("invalid or expired token")
	errForbiddenRole = errors.New("your role cannot perform this action")
)

type Authenticator struct {
	signingKey []byte
}

func NewAuthenticator(signingKey string) *Authenticator {
	return &Authenticator{
		signingKey: []byte(signingKey),
	}
}

// VerifyJWT puts the token's subject and role on the gin context. Tokens
// come from the upstream identity service; nothing here issues them.
func (a *Authenticator) VerifyJWT() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		tokenString, ok := bearerToken(ctx)
		if !ok {
			response.RenderErr(ctx, response.ErrUnauthorized(errMissingToken))
			return
		}

		claims, err := jwthelper.ParseToken(a.signingKey, tokenString)
		if err != nil {
			response.RenderErr(ctx, response.ErrUnauthorized(errInvalidToken))
			return
		}

		ctx.Set(CtxKeySubjectID, claims.Subject)
		ctx.Set(CtxKeyRole, claims.Role)
		ctx.Next()
	}
}

// RequireRole must run after VerifyJWT.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		role := ctx.GetString(CtxKeyRole)
		for _, r := range roles {
			if r == role {
				ctx.Next()
				return
			}
		}

		response.RenderErr(ctx, response.ErrPermissionDenied(fmt.Errorf("%w: %q", errForbiddenRole, role)))
	}
}

func bearerToken(ctx *gin.Context) (string, bool) {
	header := ctx.GetHeader("Authorization")
	if header != "" {
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
			return "", false
		}
		return strings.TrimSpace(token), true
	}

	// Browsers cannot set headers on websocket upgrades.
	if token := ctx.Query("access_token"); token != "" && ctx.IsWebsocket() {
		return token, true
	}

	return "", false
}
