package service

import (
	"context"
	"errors"
	"strings"

	"github.com/ahkjxy/vblog/internal/db"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Actor 是发起操作的账号及其权限。
type Actor struct {
	ID       uint
	Reviewer bool
}

// CanModify reports whether the actor may change a post owned by authorID.
func (a Actor) CanModify(authorID uint) bool {
	return a.Reviewer || (a.ID != 0 && a.ID == authorID)
}

// UserService resolves accounts into actors.
type UserService struct {
	db *gorm.DB
}

// NewUserService creates a UserService instance.
func NewUserService(gdb *gorm.DB) *UserService {
	return &UserService{db: gdb}
}

// Actor loads the account and its reviewer flag.
func (s *UserService) Actor(ctx context.Context, userID uint) (Actor, error) {
	var user db.User
	if err := s.db.WithContext(ctx).Select("id", "reviewer").First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Actor{}, ErrUserNotFound
		}
		return Actor{}, err
	}
	return Actor{ID: user.ID, Reviewer: user.Reviewer}, nil
}

// Authenticate 校验用户名与 bcrypt 密码。
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*db.User, error) {
	var user db.User
	if err := s.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredential
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredential
	}
	return &user, nil
}
