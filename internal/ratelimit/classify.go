package ratelimit

import "strings"

// EndpointClass tags an inbound request by URL path and method, per
// C6's classification rule. Each class carries its own limit profile.
type EndpointClass string

const (
	ClassHealth         EndpointClass = "health"
	ClassAuth           EndpointClass = "auth"
	ClassAdmin          EndpointClass = "admin"
	ClassFileUpload     EndpointClass = "file_upload"
	ClassJobApplication EndpointClass = "job_application"
	ClassJobView        EndpointClass = "job_view"
	ClassStatic         EndpointClass = "static"
	ClassGeneral        EndpointClass = "general"
)

// resourceIntensive reports whether a class participates in the
// global concurrency counter (only job_application and file_upload
// contend for the shared resource budget, per the component design).
func (c EndpointClass) resourceIntensive() bool {
	return c == ClassJobApplication || c == ClassFileUpload
}

// Classify tags a request by path and method. The ordering below is
// significant: admin and auth prefixes are checked before the more
// general application/job patterns so an admin sub-route never falls
// through to a looser profile.
func Classify(method, path string) EndpointClass {
	p := strings.ToLower(path)

	switch {
	case p == "/health" || p == "/healthz" || p == "/ready" || strings.HasPrefix(p, "/health/"):
		return ClassHealth
	case strings.HasPrefix(p, "/admin/") || strings.HasPrefix(p, "/v1/admin/") || strings.HasPrefix(p, "/v1/control"):
		return ClassAdmin
	case strings.HasPrefix(p, "/auth/") || strings.HasPrefix(p, "/v1/auth/"):
		return ClassAuth
	case strings.Contains(p, "/upload") || strings.Contains(p, "/cv") && method == "POST":
		return ClassFileUpload
	case strings.HasPrefix(p, "/v1/applications") && (method == "POST" || method == "PUT"):
		return ClassJobApplication
	case strings.HasPrefix(p, "/v1/applications") || strings.HasPrefix(p, "/v1/jobs") || strings.HasPrefix(p, "/v1/match"):
		return ClassJobView
	case strings.HasPrefix(p, "/static/") || strings.HasPrefix(p, "/assets/"):
		return ClassStatic
	default:
		return ClassGeneral
	}
}

// ClassifyRequest classifies by path/method, then downgrades the auth
// and admin classes to general when the caller presents no
// syntactically valid bearer token: an anonymous caller hitting an
// auth/admin route gets the conservative general profile rather than
// the more permissive one reserved for authenticated operators.
func ClassifyRequest(method, path, authHeader string) EndpointClass {
	class := Classify(method, path)
	if (class == ClassAuth || class == ClassAdmin) && !hasBearerToken(authHeader) {
		return ClassGeneral
	}
	return class
}
