package domain

type User struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	IsAuthenticated bool   `json:"isAuthenticate"`
}

// Exists reports whether a user was ever registered in the slot.
func (u User) Exists() bool {
	return u.Name != "" || u.Email != ""
}

// UserSnapshot is the persisted user slot: {"user": {...}}.
type UserSnapshot struct {
	User User `json:"user"`
}
