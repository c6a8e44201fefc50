package domain

// User is the author identity decoded from the portal access token.
type User struct {
	Id    UserId
	Admin bool
	// Token is the raw access token; it is forwarded to the portal API on the user's behalf.
	Token string
}
