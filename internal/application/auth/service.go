package auth

import (
	"context"
	"errors"
	"strings"
	"sync"

	"ppm-backend/internal/domain"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// LoginInput for login request body.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionUserShape is the object stored in session and returned by /me.
type SessionUserShape struct {
	UserID     string  `json:"user_id"`
	Fullname   string  `json:"fullname"`
	Email      string  `json:"email"`
	Role       string  `json:"role"`
	Department *string `json:"department"`
}

// UserFinder abstracts user lookup by email+password (for production GORM or test doubles).
type UserFinder interface {
	FindByEmailAndPassword(email, password string) (*domain.User, error)
}

// RoleLookup resolves the role of an actor id for authorization decisions.
type RoleLookup interface {
	RoleOf(ctx context.Context, userID string) (string, error)
}

// GormUserFinder implements UserFinder and RoleLookup using GORM and bcrypt.
type GormUserFinder struct{ DB *gorm.DB }

func (g *GormUserFinder) FindByEmailAndPassword(email, password string) (*domain.User, error) {
	return LoginUser(g.DB, LoginInput{Email: email, Password: password})
}

func (g *GormUserFinder) RoleOf(ctx context.Context, userID string) (string, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return "", ErrUnknownUser
	}
	var u domain.User
	if err := g.DB.WithContext(ctx).Select("role").Where("user_id = ?", id).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrUnknownUser
		}
		return "", err
	}
	return u.Role, nil
}

// LoginUser finds user by email and verifies password. Returns user for session or error.
func LoginUser(db *gorm.DB, input LoginInput) (*domain.User, error) {
	if input.Email == "" || input.Password == "" {
		return nil, ErrEmailPasswordRequired
	}
	var u domain.User
	if err := db.Where("email = ?", strings.ToLower(strings.TrimSpace(input.Email))).First(&u).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrInvalidEmail
		}
		return nil, err
	}
	if err := checkPassword(&u, input.Password); err != nil {
		return nil, err
	}
	return &u, nil
}

func checkPassword(u *domain.User, password string) error {
	if u.PasswordHash == "" {
		return ErrInvalidEmail
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return ErrIncorrectPassword
	}
	return nil
}

// MemoryUsers serves logins when the service runs without a database.
type MemoryUsers struct {
	mu      sync.RWMutex
	byEmail map[string]domain.User
	byID    map[string]domain.User
}

// NewMemoryUsers hashes each plain password and indexes the users.
func NewMemoryUsers(users []domain.User, passwords []string) (*MemoryUsers, error) {
	m := &MemoryUsers{byEmail: map[string]domain.User{}, byID: map[string]domain.User{}}
	for i, u := range users {
		if u.UserID == uuid.Nil {
			u.UserID = uuid.New()
		}
		if u.PasswordHash == "" && i < len(passwords) {
			hash, err := bcrypt.GenerateFromPassword([]byte(passwords[i]), bcrypt.MinCost)
			if err != nil {
				return nil, err
			}
			u.PasswordHash = string(hash)
		}
		u.Email = strings.ToLower(strings.TrimSpace(u.Email))
		m.byEmail[u.Email] = u
		m.byID[u.UserID.String()] = u
	}
	return m, nil
}

func (m *MemoryUsers) FindByEmailAndPassword(email, password string) (*domain.User, error) {
	if email == "" || password == "" {
		return nil, ErrEmailPasswordRequired
	}
	m.mu.RLock()
	u, ok := m.byEmail[strings.ToLower(strings.TrimSpace(email))]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrInvalidEmail
	}
	if err := checkPassword(&u, password); err != nil {
		return nil, err
	}
	return &u, nil
}

func (m *MemoryUsers) RoleOf(ctx context.Context, userID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.byID[userID]
	if !ok {
		return "", ErrUnknownUser
	}
	return u.Role, nil
}

// VerifyUser validates session user and returns the shape for /me.
func VerifyUser(sessionUser interface{}) (*SessionUserShape, error) {
	if sessionUser == nil {
		return nil, ErrNotAuthenticated
	}
	m, ok := sessionUser.(map[string]interface{})
	if !ok {
		return nil, ErrNotAuthenticated
	}
	userID, _ := m["user_id"].(string)
	if userID == "" {
		return nil, ErrNotAuthenticated
	}
	out := &SessionUserShape{
		UserID:   userID,
		Fullname: str(m["fullname"]),
		Email:    str(m["email"]),
		Role:     str(m["role"]),
	}
	if d, ok := m["department"]; ok && d != nil {
		if s, ok := d.(string); ok {
			out.Department = &s
		}
	}
	return out, nil
}

func str(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
