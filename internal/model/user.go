package model

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// ProviderLocal вход по email и паролю
const ProviderLocal = "local"

type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Provider     string    `json:"provider"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Summary возвращает публичную часть пользователя для вложения в записи
func (u *User) Summary() *UserSummary {
	return &UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
}

type UserSummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// SystemAdmin служебный администратор, от имени которого действует Telegram-бот
func SystemAdmin() *User {
	return &User{
		ID:   uuid.Nil,
		Name: "telegram-admin",
		Role: RoleAdmin,
	}
}
