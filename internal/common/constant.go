package common

const (
	// RefreshCookieName is the cookie carrying the refresh token between
	// the browser and the /auth endpoints.
	RefreshCookieName = "jwt"

	// AuthorizationHeaderName is the HTTP header (and lower-cased gRPC
	// metadata key) used to carry the bearer access token.
	AuthorizationHeaderName = "Authorization"

	// BearerScheme prefixes the access token in AuthorizationHeaderName.
	BearerScheme = "Bearer"
)
