package domain

// User is the slice of the account record the core needs. It is owned and written by
// the authentication subsystem; the core only reads it.
type User struct {
	ID          string `json:"user_id" dynamodbav:"user_id"`
	Login       string `json:"login" dynamodbav:"login"`
	AccessToken string `json:"-" dynamodbav:"access_token"`
}
