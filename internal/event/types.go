package event

import (
	"errors"
	"fmt"
)

// Type identifies an event variant. One payload shape exists per type.
type Type string

const (
	TypePostCreated    Type = "post.created"
	TypePostDeleted    Type = "post.deleted"
	TypePostLiked      Type = "post.liked"
	TypePostUnliked    Type = "post.unliked"
	TypeUserFollowed   Type = "user.followed"
	TypeUserUnfollowed Type = "user.unfollowed"
)

// Payload is the tagged-union interface over event variants.
type Payload interface {
	EventType() Type
	validate() error
}

// maxContentLen bounds post bodies at the publisher boundary.
const maxContentLen = 10_000

// PostCreated records a new post by an author.
type PostCreated struct {
	PostID   string `json:"postId"`
	AuthorID string `json:"authorId"`
	Content  string `json:"content"`
}

func (PostCreated) EventType() Type { return TypePostCreated }

func (p PostCreated) validate() error {
	if p.PostID == "" || p.AuthorID == "" {
		return errors.New("post.created requires postId and authorId")
	}
	if len(p.Content) > maxContentLen {
		return fmt.Errorf("post.created content exceeds %d bytes", maxContentLen)
	}
	return nil
}

// PostDeleted records removal of a post.
type PostDeleted struct {
	PostID   string `json:"postId"`
	AuthorID string `json:"authorId"`
}

func (PostDeleted) EventType() Type { return TypePostDeleted }

func (p PostDeleted) validate() error {
	if p.PostID == "" || p.AuthorID == "" {
		return errors.New("post.deleted requires postId and authorId")
	}
	return nil
}

// PostLiked records that a user liked a post.
type PostLiked struct {
	PostID string `json:"postId"`
	UserID string `json:"userId"`
}

func (PostLiked) EventType() Type { return TypePostLiked }

func (p PostLiked) validate() error {
	if p.PostID == "" || p.UserID == "" {
		return errors.New("post.liked requires postId and userId")
	}
	return nil
}

// PostUnliked records that a user removed a like.
type PostUnliked struct {
	PostID string `json:"postId"`
	UserID string `json:"userId"`
}

func (PostUnliked) EventType() Type { return TypePostUnliked }

func (p PostUnliked) validate() error {
	if p.PostID == "" || p.UserID == "" {
		return errors.New("post.unliked requires postId and userId")
	}
	return nil
}

// UserFollowed records that subject started following object.
type UserFollowed struct {
	SubjectID string `json:"subjectId"`
	ObjectID  string `json:"objectId"`
}

func (UserFollowed) EventType() Type { return TypeUserFollowed }

func (p UserFollowed) validate() error {
	if p.SubjectID == "" || p.ObjectID == "" {
		return errors.New("user.followed requires subjectId and objectId")
	}
	if p.SubjectID == p.ObjectID {
		return errors.New("user.followed subject cannot follow itself")
	}
	return nil
}

// UserUnfollowed records that subject stopped following object.
type UserUnfollowed struct {
	SubjectID string `json:"subjectId"`
	ObjectID  string `json:"objectId"`
}

func (UserUnfollowed) EventType() Type { return TypeUserUnfollowed }

func (p UserUnfollowed) validate() error {
	if p.SubjectID == "" || p.ObjectID == "" {
		return errors.New("user.unfollowed requires subjectId and objectId")
	}
	return nil
}

// newPayload returns a pointer to the zero payload for a type, for decoding.
func newPayload(t Type) (Payload, error) {
	switch t {
	case TypePostCreated:
		return &PostCreated{}, nil
	case TypePostDeleted:
		return &PostDeleted{}, nil
	case TypePostLiked:
		return &PostLiked{}, nil
	case TypePostUnliked:
		return &PostUnliked{}, nil
	case TypeUserFollowed:
		return &UserFollowed{}, nil
	case TypeUserUnfollowed:
		return &UserUnfollowed{}, nil
	}
	return nil, fmt.Errorf("unknown event type %q", t)
}

// deref converts the decoded pointer payload back to its value form so
// events compare and switch cleanly.
func deref(p Payload) Payload {
	switch v := p.(type) {
	case *PostCreated:
		return *v
	case *PostDeleted:
		return *v
	case *PostLiked:
		return *v
	case *PostUnliked:
		return *v
	case *UserFollowed:
		return *v
	case *UserUnfollowed:
		return *v
	}
	return p
}
