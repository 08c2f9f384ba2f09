package model

// A User represents a database record.
type User struct {
	Base `msgpack:",inline" storm:"inline"`

	Email    string `msgpack:"email"              storm:"unique"`
	Password string `msgpack:"password,omitempty"` // argon2id hash
}
