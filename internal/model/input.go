package model

// Mutation inputs. The validate tags are enforced by package validate; the
// json names match the GraphQL input fields.

type SignupInput struct {
	Name     string `json:"name" validate:"required,min=2,max=60"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=128"`
	Role     Role   `json:"role" validate:"omitempty,oneof=AUTHOR READER ADMIN"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

type CreateUserInput struct {
	Name  string `json:"name" validate:"required,min=2,max=60"`
	Email string `json:"email" validate:"required,email"`
	Role  Role   `json:"role" validate:"required,oneof=AUTHOR READER ADMIN"`
}

type CreatePostInput struct {
	Title    string   `json:"title" validate:"required,min=3,max=120"`
	Body     string   `json:"body" validate:"required,min=10"`
	AuthorID string   `json:"authorId" validate:"required"`
	Category Category `json:"category" validate:"required,oneof=TECHNOLOGY LIFESTYLE EDUCATION"`
}

type CreateCommentInput struct {
	Text     string `json:"text" validate:"required,min=1,max=500"`
	AuthorID string `json:"authorId" validate:"required"`
	PostID   string `json:"postId" validate:"required"`
}
