// Package model holds the entities served by the graph.
package model

import "time"

// Role is the closed set of user roles.
type Role string

const (
	RoleAuthor Role = "AUTHOR"
	RoleReader Role = "READER"
	RoleAdmin  Role = "ADMIN"
)

// Roles lists every valid role in declaration order.
var Roles = []Role{RoleAuthor, RoleReader, RoleAdmin}

// Valid reports whether r is one of the declared roles.
func (r Role) Valid() bool {
	for _, v := range Roles {
		if r == v {
			return true
		}
	}
	return false
}

// Category classifies posts.
type Category string

const (
	CategoryTechnology Category = "TECHNOLOGY"
	CategoryLifestyle  Category = "LIFESTYLE"
	CategoryEducation  Category = "EDUCATION"
)

var Categories = []Category{CategoryTechnology, CategoryLifestyle, CategoryEducation}

func (c Category) Valid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

type User struct {
	ID    string
	Name  string
	Email string
	Role  Role
	// PasswordHash is empty for users created without credentials.
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    *time.Time
}

type Post struct {
	ID        string
	AuthorID  string
	Category  Category
	Title     string
	Body      string
	CreatedAt time.Time
	UpdatedAt *time.Time
}

type Comment struct {
	ID        string
	AuthorID  string
	PostID    string
	Text      string
	CreatedAt time.Time
	UpdatedAt *time.Time
}
