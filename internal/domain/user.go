package domain

type UserDraft struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// CreateUserRequest is the body of POST /users.
type CreateUserRequest = UserDraft

type UserRecord struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
