package models

import "time"

// ResponseData is the envelope every endpoint answers with.
type ResponseData[T any] struct {
	// Code is the business status code.
	Code    int    `json:"code" validate:"required"`
	Message string `json:"message"`
	Result  T      `json:"result"` // Result carries the payload.
}

// User is an account.
type User struct {
	ID        string            `json:"id" validate:"required,uuid"`
	Name      string            `json:"name" validate:"required,min=2,max=32"`
	Email     string            `json:"email,omitempty" validate:"omitempty,email"`
	Age       *int              `json:"age,omitempty" validate:"omitempty,gte=0,lte=150"`
	Role      string            `json:"role" validate:"oneof=admin member guest"`
	Level     int               `json:"level" validate:"oneof=1 2 3"`
	Tags      []string          `json:"tags,omitempty" validate:"max=5,dive,min=1"`
	Avatar    []byte            `json:"avatar,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
	Meta      map[string]string `json:"meta,omitempty"`
	Internal  string            `json:"-"`
	Audit

	password string
}

// Audit is embedded into records that track edits.
type Audit struct {
	UpdatedBy string `json:"updatedBy,omitempty"`
}

// Node is a tree.
type Node struct {
	Value    string  `json:"value"`
	Children []*Node `json:"children,omitempty"`
}

// UserResponseVo answers a single user.
type UserResponseVo = ResponseData[User]

type UserListResponseVo ResponseData[[]User]

type Bad struct {
	Ch chan int `json:"ch"`
}

const NotAType = 1

func (u User) checkPassword(p string) bool { return u.password == p }
