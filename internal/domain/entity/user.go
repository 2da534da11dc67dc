package entity

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID       string `json:"id" firestore:"id"`
	Username string `json:"username" firestore:"username"`
	Role     string `json:"role" firestore:"role"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
