package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"taskline/bizerror"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/patrickmn/go-cache"
)

const TokenExpiration = 24 * time.Hour

// TokenCache holds already verified bearer tokens.
var TokenCache = cache.New(TokenExpiration, 1*time.Minute)

const KeySecCtx = "SecCtx"

// Claims are issued by the gateway. Ids are carried as decimal strings.
type Claims struct {
	UserID         string   `json:"uid"`
	OrganizationID string   `json:"oid"`
	EmployeeID     string   `json:"eid"`
	Permissions    []string `json:"per,omitempty"`
	Role           string   `json:"rol"`
	jwt.RegisteredClaims
}

func ExtractSessionFromGinContext(ctx *gin.Context) *Context {
	value, found := ctx.Get(KeySecCtx)
	if !found {
		return &Context{Context: ctx.Request.Context()}
	}
	s0, ok := value.(*Context)
	if !ok || s0.Token == "" {
		return &Context{Context: ctx.Request.Context()}
	}
	s := s0.Clone()
	s.Context = ctx.Request.Context()
	return &s
}

func InjectSessionIntoGinContext(ctx *gin.Context, secCtx *Context) {
	if secCtx != nil && secCtx.Token != "" {
		ctx.Set(KeySecCtx, secCtx)
	}
}

// JWTAuthFilter verifies the HS256 bearer token and stores the caller context.
func JWTAuthFilter(secret []byte) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			panic(bizerror.ErrUnauthenticated)
		}
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))

		if v, found := TokenCache.Get(token); found {
			if secCtx, ok := v.(*Context); ok {
				InjectSessionIntoGinContext(ctx, secCtx)
				ctx.Next()
				return
			}
		}

		secCtx, expiresAt, err := ParseToken(secret, token)
		if err != nil {
			panic(bizerror.ErrUnauthenticated.Wrap(err))
		}
		ttl := TokenExpiration
		if !expiresAt.IsZero() && time.Until(expiresAt) < ttl {
			ttl = time.Until(expiresAt)
		}
		TokenCache.Set(token, secCtx, ttl)

		InjectSessionIntoGinContext(ctx, secCtx)
		ctx.Next()
	}
}

func ParseToken(secret []byte, token string) (*Context, time.Time, error) {
	claims := &Claims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))
	if _, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}); err != nil {
		return nil, time.Time{}, err
	}

	uid, err := types.ParseID(claims.UserID)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("invalid uid claim: %w", err)
	}
	oid, err := types.ParseID(claims.OrganizationID)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("invalid oid claim: %w", err)
	}
	eid, err := types.ParseID(claims.EmployeeID)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("invalid eid claim: %w", err)
	}
	if uid == 0 || oid == 0 || eid == 0 {
		return nil, time.Time{}, errors.New("incomplete claims")
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	return &Context{
		Token:          token,
		Identity:       Identity{ID: uid, Name: claims.Subject},
		OrganizationID: oid,
		EmployeeID:     eid,
		Role:           claims.Role,
		Perms:          claims.Permissions,
	}, expiresAt, nil
}

// IssueToken signs the claims of c, used by tooling and tests.
func IssueToken(secret []byte, c *Context, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:         c.Identity.ID.String(),
		OrganizationID: c.OrganizationID.String(),
		EmployeeID:     c.EmployeeID.String(),
		Permissions:    c.Perms,
		Role:           c.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   c.Identity.Name,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
