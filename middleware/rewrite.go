package middleware

import (
	"context"
	"sort"
	"strings"

	"dhub/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SlugResolver supplies the current slug→internal-route mapping.
type SlugResolver interface {
	GetDynamicSlugs(ctx context.Context) map[string]string
}

type rewrittenKey struct{}

// skipPrefixes are internal surfaces never subject to slug rewriting.
var skipPrefixes = []string{
	"/api/",
	"/static/",
	"/assets/",
	"/healthz",
	"/metrics",
	"/favicon.ico",
}

// SlugRewrite rewrites inbound paths whose first segments match a
// marketing slug to the internal route the slug maps to, then re-enters
// routing on the engine. Static assets (any path containing a dot) and
// internal prefixes pass through untouched.
func SlugRewrite(engine *gin.Engine, resolver SlugResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Context().Value(rewrittenKey{}) != nil {
			c.Next()
			return
		}
		path := c.Request.URL.Path
		if shouldSkip(path) {
			utils.RewriteTotal.WithLabelValues("skipped").Inc()
			c.Next()
			return
		}

		mapping := resolver.GetDynamicSlugs(c.Request.Context())
		newPath, ok := RewritePath(mapping, path)
		if !ok {
			utils.RewriteTotal.WithLabelValues("passthrough").Inc()
			c.Next()
			return
		}

		utils.RewriteTotal.WithLabelValues("rewritten").Inc()
		zap.L().Debug("rewrote slug path",
			zap.String("from", path),
			zap.String("to", newPath))

		c.Request.URL.Path = newPath
		c.Request = c.Request.WithContext(
			context.WithValue(c.Request.Context(), rewrittenKey{}, true))
		engine.HandleContext(c)
		c.Abort()
	}
}

// shouldSkip reports whether the path is exempt from rewriting.
func shouldSkip(path string) bool {
	if strings.Contains(path, ".") {
		return true
	}
	for _, p := range skipPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// RewritePath matches the path against the mapping's slugs, longest slug
// first, and returns the rewritten path. A slug matches when the
// normalized path equals it exactly or starts with slug + "/". The
// remainder of the path is preserved verbatim; the query string lives on
// URL.RawQuery and is untouched by rewriting.
func RewritePath(mapping map[string]string, path string) (string, bool) {
	if len(mapping) == 0 {
		return "", false
	}
	normalized := strings.TrimPrefix(path, "/")

	slugs := make([]string, 0, len(mapping))
	for slug := range mapping {
		slugs = append(slugs, slug)
	}
	sort.Slice(slugs, func(i, j int) bool {
		if len(slugs[i]) != len(slugs[j]) {
			return len(slugs[i]) > len(slugs[j])
		}
		return slugs[i] < slugs[j]
	})

	for _, slug := range slugs {
		if normalized == slug || strings.HasPrefix(normalized, slug+"/") {
			return "/" + mapping[slug] + normalized[len(slug):], true
		}
	}
	return "", false
}
