package entities

// User identifies one learner. ID is the durable key that namespaces both
// remote and local storage; Name is display-only.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func NewUser(id, name string) User {
	return User{ID: id, Name: name}
}
