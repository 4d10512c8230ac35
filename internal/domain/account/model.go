package account

import "time"

// Account is a lab operator login.
type Account struct {
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Credentials is the body of create and verify requests.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
