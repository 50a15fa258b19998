package neo4jstore

import (
	"fmt"
	"time"

	"github.com/hanpama/inkgraph/internal/model"
	"github.com/hanpama/inkgraph/internal/store"
)

func str(props map[string]any, key string) (string, error) {
	v, ok := props[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("property %s: want string, got %T", key, v)
	}
	return s, nil
}

func timestamps(props map[string]any) (time.Time, *time.Time, error) {
	created, ok := props["createdAt"].(int64)
	if !ok {
		return time.Time{}, nil, fmt.Errorf("property createdAt: want int64, got %T", props["createdAt"])
	}
	var updated *time.Time
	if u, ok := props["updatedAt"].(int64); ok {
		t := time.Unix(0, u).UTC()
		updated = &t
	}
	return time.Unix(0, created).UTC(), updated, nil
}

func nanos(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixNano()
}

// readStrings reads several string properties, stopping at the first error.
func readStrings(props map[string]any, dst map[string]*string) error {
	for key, p := range dst {
		v, err := str(props, key)
		if err != nil {
			return err
		}
		*p = v
	}
	return nil
}

var userLabel = label[*model.User]{
	name:       "User",
	collection: "users",
	filters:    store.UserFilters,
	props: func(u *model.User) map[string]any {
		return map[string]any{
			"id":           u.ID,
			"name":         u.Name,
			"email":        u.Email,
			"role":         string(u.Role),
			"passwordHash": u.PasswordHash,
			"createdAt":    u.CreatedAt.UnixNano(),
			"updatedAt":    nanos(u.UpdatedAt),
		}
	},
	decode: func(props map[string]any) (*model.User, error) {
		var u model.User
		var role string
		if err := readStrings(props, map[string]*string{
			"id": &u.ID, "name": &u.Name, "email": &u.Email, "role": &role, "passwordHash": &u.PasswordHash,
		}); err != nil {
			return nil, err
		}
		u.Role = model.Role(role)
		var err error
		if u.CreatedAt, u.UpdatedAt, err = timestamps(props); err != nil {
			return nil, err
		}
		return &u, nil
	},
	id: func(u *model.User) string { return u.ID },
	stamp: func(u *model.User, id string, at time.Time) *model.User {
		c := *u
		c.ID, c.CreatedAt = id, at
		return &c
	},
	create: "CREATE (n:User) SET n = $props RETURN n",
}

var postLabel = label[*model.Post]{
	name:       "Post",
	collection: "posts",
	filters:    store.PostFilters,
	props: func(p *model.Post) map[string]any {
		return map[string]any{
			"id":        p.ID,
			"authorId":  p.AuthorID,
			"category":  string(p.Category),
			"title":     p.Title,
			"body":      p.Body,
			"createdAt": p.CreatedAt.UnixNano(),
			"updatedAt": nanos(p.UpdatedAt),
		}
	},
	decode: func(props map[string]any) (*model.Post, error) {
		var p model.Post
		var category string
		if err := readStrings(props, map[string]*string{
			"id": &p.ID, "authorId": &p.AuthorID, "category": &category, "title": &p.Title, "body": &p.Body,
		}); err != nil {
			return nil, err
		}
		p.Category = model.Category(category)
		var err error
		if p.CreatedAt, p.UpdatedAt, err = timestamps(props); err != nil {
			return nil, err
		}
		return &p, nil
	},
	id: func(p *model.Post) string { return p.ID },
	stamp: func(p *model.Post, id string, at time.Time) *model.Post {
		c := *p
		c.ID, c.CreatedAt = id, at
		return &c
	},
	create: "MATCH (a:User {id: $authorId}) CREATE (a)-[:AUTHORED]->(n:Post) SET n = $props RETURN n",
}

var commentLabel = label[*model.Comment]{
	name:       "Comment",
	collection: "comments",
	filters:    store.CommentFilters,
	props: func(c *model.Comment) map[string]any {
		return map[string]any{
			"id":        c.ID,
			"authorId":  c.AuthorID,
			"postId":    c.PostID,
			"text":      c.Text,
			"createdAt": c.CreatedAt.UnixNano(),
			"updatedAt": nanos(c.UpdatedAt),
		}
	},
	decode: func(props map[string]any) (*model.Comment, error) {
		var c model.Comment
		if err := readStrings(props, map[string]*string{
			"id": &c.ID, "authorId": &c.AuthorID, "postId": &c.PostID, "text": &c.Text,
		}); err != nil {
			return nil, err
		}
		var err error
		if c.CreatedAt, c.UpdatedAt, err = timestamps(props); err != nil {
			return nil, err
		}
		return &c, nil
	},
	id: func(c *model.Comment) string { return c.ID },
	stamp: func(c *model.Comment, id string, at time.Time) *model.Comment {
		cp := *c
		cp.ID, cp.CreatedAt = id, at
		return &cp
	},
	create: "MATCH (a:User {id: $authorId}), (p:Post {id: $postId}) CREATE (a)-[:WROTE]->(n:Comment)-[:ON]->(p) SET n = $props RETURN n",
}
