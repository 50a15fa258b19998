package graph

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/hanpama/inkgraph/internal/apperr"
	"github.com/hanpama/inkgraph/internal/auth"
	"github.com/hanpama/inkgraph/internal/model"
	"github.com/hanpama/inkgraph/internal/store"
	"github.com/hanpama/inkgraph/internal/validate"
)

const (
	msgEmailInUse         = "Email already in use"
	msgInvalidCredentials = "Invalid credentials"
	msgBadLogin           = "Invalid email or password"
)

// AuthPayload is the result of signup and login.
type AuthPayload struct {
	Token string
	User  *model.User
}

// input decodes the "input" argument into dst and checks it against the
// named validation schema. Rule failures become a ValidationError carrying
// message.
func input(args map[string]any, dst any, schemaName, message string) error {
	if err := validate.Decode(args, "input", dst); err != nil {
		return err
	}
	err := validate.Validate(schemaName, dst)
	var verrs *validate.Errors
	if errors.As(err, &verrs) {
		return verrs.ValidationError(message)
	}
	return err
}

func (r *Resolver) userByEmail(ctx context.Context, email string) (*model.User, error) {
	users, err := r.Store.Users().Find(ctx, store.Query{Filter: store.Filter{Email: email}, Limit: 1})
	if err != nil || len(users) == 0 {
		return nil, err
	}
	return users[0], nil
}

func (r *Resolver) ensureEmailFree(ctx context.Context, email string) error {
	u, err := r.userByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if u != nil {
		return apperr.NewValidationError(msgEmailInUse, apperr.FieldError{Path: "input.email", Message: msgEmailInUse})
	}
	return nil
}

func (r *Resolver) issue(u *model.User) (*AuthPayload, error) {
	token, err := r.Signer.Sign(auth.Identity{SubjectID: u.ID, Role: u.Role, Email: u.Email})
	if err != nil {
		return nil, err
	}
	return &AuthPayload{Token: token, User: u}, nil
}

func (r *Resolver) signup(ctx context.Context, _ any, args map[string]any) (any, error) {
	var in model.SignupInput
	if err := input(args, &in, validate.Signup, "Invalid signup input"); err != nil {
		return nil, err
	}
	if in.Role == "" {
		in.Role = model.RoleReader
	}
	if err := r.ensureEmailFree(ctx, in.Email); err != nil {
		return nil, err
	}
	hash, err := r.Hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	u, err := r.Store.Users().Create(ctx, &model.User{Name: in.Name, Email: in.Email, Role: in.Role, PasswordHash: hash})
	if err != nil {
		return nil, fmt.Errorf("signup: %w", err)
	}
	return r.issue(u)
}

func (r *Resolver) login(ctx context.Context, _ any, args map[string]any) (any, error) {
	var in model.LoginInput
	if err := input(args, &in, validate.Login, "Invalid login input"); err != nil {
		return nil, err
	}
	u, err := r.userByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if u == nil {
		return nil, apperr.NewValidationError(msgInvalidCredentials, apperr.FieldError{Path: "input.email", Message: msgBadLogin})
	}
	if !r.Hasher.Compare(in.Password, u.PasswordHash) {
		return nil, apperr.NewValidationError(msgInvalidCredentials, apperr.FieldError{Path: "input.password", Message: msgBadLogin})
	}
	return r.issue(u)
}

func (r *Resolver) createUser(ctx context.Context, _ any, args map[string]any) (any, error) {
	var in model.CreateUserInput
	if err := input(args, &in, validate.CreateUser, "Invalid user input"); err != nil {
		return nil, err
	}
	if err := r.ensureEmailFree(ctx, in.Email); err != nil {
		return nil, err
	}
	u, err := r.Store.Users().Create(ctx, &model.User{Name: in.Name, Email: in.Email, Role: in.Role})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (r *Resolver) createPost(ctx context.Context, _ any, args map[string]any) (any, error) {
	var in model.CreatePostInput
	if err := input(args, &in, validate.CreatePost, "Invalid post input"); err != nil {
		return nil, err
	}
	ok, err := r.Store.Users().Exists(ctx, in.AuthorID)
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	if !ok {
		return nil, apperr.NewNotFoundError("Author not found")
	}
	p, err := r.Store.Posts().Create(ctx, &model.Post{
		AuthorID: in.AuthorID,
		Category: in.Category,
		Title:    in.Title,
		Body:     in.Body,
	})
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	if l, err := LoadersFrom(ctx); err == nil {
		l.PostByID.Prime(p.ID, p)
	}
	return p, nil
}

func (r *Resolver) createComment(ctx context.Context, _ any, args map[string]any) (any, error) {
	var in model.CreateCommentInput
	if err := input(args, &in, validate.CreateComment, "Invalid comment input"); err != nil {
		return nil, err
	}

	var authorOK, postOK bool
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		authorOK, err = r.Store.Users().Exists(gctx, in.AuthorID)
		return err
	})
	g.Go(func() (err error) {
		postOK, err = r.Store.Posts().Exists(gctx, in.PostID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	if !authorOK {
		return nil, apperr.NewNotFoundError("Author not found")
	}
	if !postOK {
		return nil, apperr.NewNotFoundError("Post not found")
	}

	c, err := r.Store.Comments().Create(ctx, &model.Comment{AuthorID: in.AuthorID, PostID: in.PostID, Text: in.Text})
	if err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	return c, nil
}
