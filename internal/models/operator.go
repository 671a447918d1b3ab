package models

// Operator is a dashboard user allowed to issue equipment commands.
type Operator struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
}
