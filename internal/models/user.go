package models

import "time"

type User struct {
	ID             int64     `json:"id"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	Bio            *string   `json:"bio"`
	StudyInterests *string   `json:"studyInterests"`
	ProfileImage   *string   `json:"profileImage"`
	CreatedAt      time.Time `json:"createdAt"`
}

type UserListFilter struct {
	Search   string
	Interest string
}
