package middleware

import (
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutor-booking-api/internal/service"
)

// Health, readiness and scrape endpoints are not recorded.
var unmeteredPaths = map[string]struct{}{
	"/health":  {},
	"/ready":   {},
	"/metrics": {},
}

var versionSegment = regexp.MustCompile(`^v\d+$`)

// routeGroups maps the first route segment after the API prefix to a metrics group.
var routeGroups = map[string]string{
	"bookings":         "bookings",
	"payments":         "payments",
	"availability":     "availability",
	"teacher-subjects": "availability",
	"teachers":         "availability",
	"classes":          "classes",
	"me":               "account",
	"dev":              "account",
	"metrics":          "admin",
}

// Metrics returns middleware that records request metrics labelled by route template and group.
// Unmatched requests share one label so arbitrary URLs cannot grow the series count.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if _, skip := unmeteredPaths[path]; skip {
			return
		}
		if path == "" {
			path = "unmatched"
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, RouteGroup(path), path, c.Writer.Status(), time.Since(start))
	}
}

// RouteGroup names the API area of a route template, e.g. "/api/v1/bookings/:id" is "bookings".
func RouteGroup(path string) string {
	for _, segment := range strings.Split(strings.Trim(path, "/"), "/") {
		if segment == "api" || versionSegment.MatchString(segment) {
			continue
		}
		if group, ok := routeGroups[segment]; ok {
			return group
		}
		break
	}
	return "other"
}
