package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/aJLaxzzz/foodgram-st/internal/database"
	"github.com/aJLaxzzz/foodgram-st/internal/logger"
	"github.com/aJLaxzzz/foodgram-st/internal/models"
	"github.com/aJLaxzzz/foodgram-st/internal/types"
)

// UsernamePattern is the allowed username alphabet.
var UsernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

type UserService struct {
	db    *gorm.DB
	store Storage
	p     presenter
}

func NewUserService(db *gorm.DB, store Storage) *UserService {
	return &UserService{db: db, store: store, p: presenter{db: db, store: store}}
}

// Register creates an ordinary user account.
func (s *UserService) Register(ctx context.Context, req *types.RegisterRequest) (*types.UserCreatedResponse, error) {
	user, err := s.create(ctx, req, false)
	if err != nil {
		return nil, err
	}
	return &types.UserCreatedResponse{
		Email:     user.Email,
		ID:        user.ID,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}, nil
}

// CreateSuperuser creates a staff account with superuser rights.
func (s *UserService) CreateSuperuser(ctx context.Context, req *types.RegisterRequest) (*models.User, error) {
	return s.create(ctx, req, true)
}

func (s *UserService) create(ctx context.Context, req *types.RegisterRequest, superuser bool) (*models.User, error) {
	email := strings.TrimSpace(req.Email)
	username := strings.TrimSpace(req.Username)

	verr := &ValidationError{}
	if !UsernamePattern.MatchString(username) {
		verr.Add("username", "Username may contain only letters, digits and @/./+/-/_ characters.")
	}
	if strings.EqualFold(username, "me") {
		verr.Add("username", "Username \"me\" is reserved.")
	}
	if req.Password == "" {
		verr.Add("password", "This field is required.")
	}
	if len(verr.Fields) > 0 {
		return nil, verr
	}

	db := s.db.WithContext(ctx)
	var taken []models.User
	if err := db.Where("email = ? OR username = ?", email, username).Find(&taken).Error; err != nil {
		return nil, fmt.Errorf("failed to check existing users: %w", err)
	}
	for _, u := range taken {
		if u.Email == email {
			verr.Add("email", "A user with that email already exists.")
		}
		if u.Username == username {
			verr.Add("username", "A user with that username already exists.")
		}
	}
	if len(verr.Fields) > 0 {
		return nil, verr
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Email:        email,
		Username:     username,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		PasswordHash: hash,
		IsStaff:      superuser,
		IsSuperuser:  superuser,
	}
	if err := db.Create(user).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, NewValidationError("email", "A user with that email or username already exists.")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	logger.Info("user registered", zap.Uint("user_id", user.ID), zap.Bool("superuser", superuser))
	return user, nil
}

func (s *UserService) load(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user %d: %w", id, err)
	}
	return &user, nil
}

// Get returns the profile of id as seen by viewerID.
func (s *UserService) Get(ctx context.Context, viewerID, id uint) (*types.UserResponse, error) {
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	out, err := s.p.users(ctx, viewerID, []models.User{*user})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

// List returns a page of users ordered by id.
func (s *UserService) List(ctx context.Context, viewerID uint, page types.PageRequest) ([]types.UserResponse, int64, error) {
	db := s.db.WithContext(ctx)
	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}
	var users []models.User
	if err := db.Order("id").Offset(page.Offset()).Limit(page.Limit).Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	out, err := s.p.users(ctx, viewerID, users)
	if err != nil {
		return nil, 0, err
	}
	return out, count, nil
}

// SetPassword replaces the password after checking the current one.
func (s *UserService) SetPassword(ctx context.Context, userID uint, current, next string) error {
	user, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)) != nil {
		return NewValidationError("current_password", "Wrong password.")
	}
	hash, err := hashPassword(next)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Model(user).Update("password_hash", hash).Error; err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	logger.Info("password changed", zap.Uint("user_id", userID))
	return nil
}

// SetAvatar stores a data URI image as the user's avatar and returns its URL.
func (s *UserService) SetAvatar(ctx context.Context, userID uint, raw string) (string, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return "", err
	}
	key, err := SaveImage(ctx, s.store, "avatar", AvatarPrefix, raw)
	if err != nil {
		return "", err
	}
	// Update writes the new key back into user, so keep the old one.
	old := user.Avatar
	if err := s.db.WithContext(ctx).Model(user).Update("avatar", key).Error; err != nil {
		_ = s.store.Delete(ctx, key)
		return "", fmt.Errorf("failed to save avatar: %w", err)
	}
	removeMedia(ctx, s.store, old)
	return s.store.URL(key), nil
}

// DeleteAvatar removes the stored avatar and clears the reference.
func (s *UserService) DeleteAvatar(ctx context.Context, userID uint) error {
	user, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	old := user.Avatar
	if old == "" {
		return nil
	}
	if err := s.db.WithContext(ctx).Model(user).Update("avatar", "").Error; err != nil {
		return fmt.Errorf("failed to clear avatar: %w", err)
	}
	removeMedia(ctx, s.store, old)
	return nil
}

// AuthorWithRecipes renders author with up to recipesLimit recipes (negative means all).
func (s *UserService) AuthorWithRecipes(ctx context.Context, viewerID, authorID uint, recipesLimit int) (*types.UserWithRecipes, error) {
	author, err := s.load(ctx, authorID)
	if err != nil {
		return nil, err
	}
	out, err := s.withRecipes(ctx, viewerID, []models.User{*author}, recipesLimit)
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

// Subscriptions lists the authors viewerID follows.
func (s *UserService) Subscriptions(ctx context.Context, viewerID uint, page types.PageRequest, recipesLimit int) ([]types.UserWithRecipes, int64, error) {
	db := s.db.WithContext(ctx)
	followed := db.Model(&models.Follow{}).Select("author_id").Where("user_id = ?", viewerID)

	var count int64
	if err := db.Model(&models.User{}).Where("id IN (?)", followed).Count(&count).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count subscriptions: %w", err)
	}
	var authors []models.User
	err := db.Where("id IN (?)", followed).Order("id").
		Offset(page.Offset()).Limit(page.Limit).
		Find(&authors).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	out, err := s.withRecipes(ctx, viewerID, authors, recipesLimit)
	if err != nil {
		return nil, 0, err
	}
	return out, count, nil
}

func (s *UserService) withRecipes(ctx context.Context, viewerID uint, authors []models.User, recipesLimit int) ([]types.UserWithRecipes, error) {
	users, err := s.p.users(ctx, viewerID, authors)
	if err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	out := make([]types.UserWithRecipes, len(authors))
	for i := range authors {
		q := db.Where("author_id = ?", authors[i].ID).Order("pub_date DESC, id DESC")
		if recipesLimit >= 0 {
			q = q.Limit(recipesLimit)
		}
		var recipes []models.Recipe
		if recipesLimit != 0 {
			if err := q.Find(&recipes).Error; err != nil {
				return nil, fmt.Errorf("failed to load author recipes: %w", err)
			}
		}
		var total int64
		if err := db.Model(&models.Recipe{}).Where("author_id = ?", authors[i].ID).Count(&total).Error; err != nil {
			return nil, fmt.Errorf("failed to count author recipes: %w", err)
		}
		minified := make([]types.RecipeMinified, len(recipes))
		for j := range recipes {
			minified[j] = s.p.minified(&recipes[j])
		}
		out[i] = types.UserWithRecipes{UserResponse: users[i], Recipes: minified, RecipesCount: total}
	}
	return out, nil
}
