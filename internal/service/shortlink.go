package service

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/aJLaxzzz/foodgram-st/internal/database"
	"github.com/aJLaxzzz/foodgram-st/internal/logger"
	"github.com/aJLaxzzz/foodgram-st/internal/models"
)

const (
	shortCodeLength    = 8
	maxShortCodeTries  = 5
	shortLinkCacheTTL  = 24 * time.Hour
	shortLinkKeyPrefix = "shortlink:"
)

var ErrShortCodeExhausted = errors.New("could not allocate a unique short code")

// ShortLinkService creates and resolves per-recipe short codes. The Redis
// client is optional and only caches code lookups.
type ShortLinkService struct {
	db    *gorm.DB
	cache *redis.Client
}

func NewShortLinkService(db *gorm.DB, cache *redis.Client) *ShortLinkService {
	return &ShortLinkService{db: db, cache: cache}
}

// ShortCode derives the code for recipeID. attempt 0 hashes the bare id,
// later attempts hash "<id>:<attempt>".
func ShortCode(recipeID uint, attempt int) string {
	input := strconv.FormatUint(uint64(recipeID), 10)
	if attempt > 0 {
		input += ":" + strconv.Itoa(attempt)
	}
	sum := md5.Sum([]byte(input))
	return hex.EncodeToString(sum[:])[:shortCodeLength]
}

// GetOrCreate returns the recipe's code, creating it on first use.
func (s *ShortLinkService) GetOrCreate(ctx context.Context, recipeID uint) (string, error) {
	db := s.db.WithContext(ctx)

	var recipeCount int64
	if err := db.Model(&models.Recipe{}).Where("id = ?", recipeID).Count(&recipeCount).Error; err != nil {
		return "", fmt.Errorf("failed to load recipe: %w", err)
	}
	if recipeCount == 0 {
		return "", ErrNotFound
	}

	link, err := s.byRecipe(db, recipeID)
	if err != nil {
		return "", err
	}
	if link != nil {
		return link.Code, nil
	}

	for attempt := 0; attempt < maxShortCodeTries; attempt++ {
		code := ShortCode(recipeID, attempt)

		var taken int64
		if err := db.Model(&models.ShortLink{}).Where("code = ?", code).Count(&taken).Error; err != nil {
			return "", fmt.Errorf("failed to check short code: %w", err)
		}
		if taken > 0 {
			logger.Debug("short code collision", zap.String("code", code), zap.Int("attempt", attempt))
			continue
		}

		err := db.Create(&models.ShortLink{RecipeID: recipeID, Code: code}).Error
		if err == nil {
			s.remember(ctx, code, recipeID)
			return code, nil
		}
		if !database.IsUniqueViolation(err) {
			return "", fmt.Errorf("failed to create short link: %w", err)
		}

		// Either another request linked this recipe first, or the code
		// was taken in the meantime.
		link, lookupErr := s.byRecipe(db, recipeID)
		if lookupErr != nil {
			return "", lookupErr
		}
		if link != nil {
			return link.Code, nil
		}
	}
	return "", ErrShortCodeExhausted
}

func (s *ShortLinkService) byRecipe(db *gorm.DB, recipeID uint) (*models.ShortLink, error) {
	var link models.ShortLink
	err := db.Where("recipe_id = ?", recipeID).First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load short link: %w", err)
	}
	return &link, nil
}

// Resolve maps a code back to its recipe id.
func (s *ShortLinkService) Resolve(ctx context.Context, code string) (uint, error) {
	if s.cache != nil {
		id, err := s.cache.Get(ctx, shortLinkKeyPrefix+code).Uint64()
		if err == nil {
			return uint(id), nil
		}
		if !errors.Is(err, redis.Nil) {
			logger.Warn("short link cache read failed", zap.Error(err))
		}
	}

	var link models.ShortLink
	err := s.db.WithContext(ctx).Where("code = ?", code).First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to resolve short link: %w", err)
	}
	s.remember(ctx, code, link.RecipeID)
	return link.RecipeID, nil
}

func (s *ShortLinkService) remember(ctx context.Context, code string, recipeID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, shortLinkKeyPrefix+code, recipeID, shortLinkCacheTTL).Err(); err != nil {
		logger.Warn("short link cache write failed", zap.Error(err))
	}
}

// Evict drops a cached code, used when its recipe is deleted.
func (s *ShortLinkService) Evict(ctx context.Context, code string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, shortLinkKeyPrefix+code).Err(); err != nil {
		logger.Warn("short link cache evict failed", zap.Error(err))
	}
}
