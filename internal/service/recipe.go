package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aJLaxzzz/foodgram-st/internal/logger"
	"github.com/aJLaxzzz/foodgram-st/internal/models"
	"github.com/aJLaxzzz/foodgram-st/internal/types"
)

const (
	msgRequired      = "This field is required."
	maxRecipeNameLen = 256
)

// RecipeService handles recipe operations
type RecipeService struct {
	db        *gorm.DB
	store     Storage
	p         presenter
	favorites *PairRelation
	cart      *PairRelation
	links     *ShortLinkService
}

// NewRecipeService creates a new RecipeService instance. links may be nil.
func NewRecipeService(db *gorm.DB, store Storage, links *ShortLinkService) *RecipeService {
	return &RecipeService{
		db:        db,
		store:     store,
		p:         presenter{db: db, store: store},
		favorites: NewFavorites(db),
		cart:      NewShoppingCart(db),
		links:     links,
	}
}

func withDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Author").
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("name") }).
		Preload("Ingredients", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Ingredients.Ingredient")
}

// List returns a page of recipes, newest first.
func (s *RecipeService) List(ctx context.Context, viewerID uint, filter types.RecipeFilter, page types.PageRequest) ([]types.RecipeResponse, int64, error) {
	db := s.db.WithContext(ctx)
	scope := func(q *gorm.DB) *gorm.DB {
		if filter.AuthorID != 0 {
			q = q.Where("recipes.author_id = ?", filter.AuthorID)
		}
		q = applyPairFilter(q, db, &models.Favorite{}, viewerID, filter.IsFavorited, true)
		q = applyPairFilter(q, db, &models.ShoppingCart{}, viewerID, filter.IsInShoppingCart, false)
		return q
	}

	var count int64
	if err := scope(db.Model(&models.Recipe{})).Count(&count).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count recipes: %w", err)
	}

	var recipes []models.Recipe
	err := withDetails(scope(db.Model(&models.Recipe{}))).
		Order("recipes.pub_date DESC, recipes.id DESC").
		Offset(page.Offset()).Limit(page.Limit).
		Find(&recipes).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list recipes: %w", err)
	}

	out, err := s.p.recipes(ctx, viewerID, recipes)
	if err != nil {
		return nil, 0, err
	}
	return out, count, nil
}

// applyPairFilter restricts q to recipes that are (want=true) or are not
// (want=false) linked to the viewer through model. Anonymous viewers asking
// for linked recipes get nothing when emptyForAnonymous is set.
func applyPairFilter(q, db *gorm.DB, model interface{}, viewerID uint, want *bool, emptyForAnonymous bool) *gorm.DB {
	if want == nil {
		return q
	}
	if viewerID == 0 {
		if *want && emptyForAnonymous {
			return q.Where("1 = 0")
		}
		return q
	}
	linked := db.Model(model).Select("recipe_id").Where("user_id = ?", viewerID)
	if *want {
		return q.Where("recipes.id IN (?)", linked)
	}
	return q.Where("recipes.id NOT IN (?)", linked)
}

func (s *RecipeService) load(ctx context.Context, db *gorm.DB, id uint) (*models.Recipe, error) {
	var recipe models.Recipe
	err := db.WithContext(ctx).First(&recipe, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load recipe %d: %w", id, err)
	}
	return &recipe, nil
}

// Get returns the full representation of a recipe for viewerID.
func (s *RecipeService) Get(ctx context.Context, viewerID, id uint) (*types.RecipeResponse, error) {
	recipe, err := s.load(ctx, withDetails(s.db), id)
	if err != nil {
		return nil, err
	}
	out, err := s.p.recipes(ctx, viewerID, []models.Recipe{*recipe})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

// recipeInput is a write payload that passed validation.
type recipeInput struct {
	ingredients []types.IngredientAmount
	tags        []uint
	tagsSet     bool
	image       *DecodedImage
	name        *string
	text        *string
	cookingTime *int
}

func (s *RecipeService) validate(ctx context.Context, req *types.RecipeWriteRequest, creating bool) (*recipeInput, error) {
	bounds := models.CurrentBounds()
	verr := &ValidationError{}
	in := &recipeInput{}
	db := s.db.WithContext(ctx)

	switch {
	case req.Ingredients == nil:
		verr.Add("ingredients", msgRequired)
	case len(*req.Ingredients) == 0:
		verr.Add("ingredients", "At least one ingredient is required.")
	default:
		items := *req.Ingredients
		seen := make(map[uint]bool, len(items))
		ids := make([]uint, 0, len(items))
		dup := false
		for _, it := range items {
			if seen[it.ID] {
				dup = true
				break
			}
			seen[it.ID] = true
			ids = append(ids, it.ID)
		}
		if dup {
			verr.Add("ingredients", "Ingredients must not repeat.")
			break
		}
		if missing, err := missingIDs(db, &models.Ingredient{}, ids); err != nil {
			return nil, err
		} else if len(missing) > 0 {
			verr.Add("ingredients", fmt.Sprintf("Ingredient with id %d does not exist.", missing[0]))
			break
		}
		for _, it := range items {
			if it.Amount < bounds.MinIngredientAmount || it.Amount > bounds.MaxIngredientAmount {
				verr.Add("ingredients", bounds.AmountMessage())
				break
			}
		}
		in.ingredients = items
	}

	if req.Tags != nil {
		tags := *req.Tags
		seen := make(map[uint]bool, len(tags))
		dup := false
		for _, id := range tags {
			if seen[id] {
				dup = true
				break
			}
			seen[id] = true
		}
		if dup {
			verr.Add("tags", "Tags must not repeat.")
		} else if missing, err := missingIDs(db, &models.Tag{}, tags); err != nil {
			return nil, err
		} else if len(missing) > 0 {
			verr.Add("tags", fmt.Sprintf("Tag with id %d does not exist.", missing[0]))
		}
		in.tags = tags
		in.tagsSet = true
	}

	if req.Image == nil {
		if creating {
			verr.Add("image", msgRequired)
		}
	} else if img, err := DecodeDataURI("image", *req.Image); err != nil {
		var ve *ValidationError
		if !errors.As(err, &ve) {
			return nil, err
		}
		for _, msg := range ve.Fields["image"] {
			verr.Add("image", msg)
		}
	} else {
		in.image = img
	}

	if req.Name == nil {
		if creating {
			verr.Add("name", msgRequired)
		}
	} else if name := strings.TrimSpace(*req.Name); name == "" {
		verr.Add("name", "Recipe name must not be empty.")
	} else if utf8.RuneCountInString(name) > maxRecipeNameLen {
		verr.Add("name", fmt.Sprintf("Ensure this field has no more than %d characters.", maxRecipeNameLen))
	} else {
		in.name = &name
	}

	if req.Text == nil {
		if creating {
			verr.Add("text", msgRequired)
		}
	} else if text := strings.TrimSpace(*req.Text); text == "" {
		verr.Add("text", "Recipe text must not be empty.")
	} else {
		in.text = &text
	}

	if req.CookingTime == nil {
		if creating {
			verr.Add("cooking_time", msgRequired)
		}
	} else if ct := *req.CookingTime; ct < bounds.MinCookingTime || ct > bounds.MaxCookingTime {
		verr.Add("cooking_time", bounds.CookingTimeMessage())
	} else {
		in.cookingTime = &ct
	}

	if len(verr.Fields) > 0 {
		return nil, verr
	}
	return in, nil
}

// missingIDs returns the ids with no row in model's table, in input order.
func missingIDs(db *gorm.DB, model interface{}, ids []uint) ([]uint, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found []uint
	if err := db.Model(model).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return nil, fmt.Errorf("failed to check references: %w", err)
	}
	present := make(map[uint]bool, len(found))
	for _, id := range found {
		present[id] = true
	}
	var missing []uint
	for _, id := range ids {
		if !present[id] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (s *RecipeService) storeImage(ctx context.Context, img *DecodedImage) (string, error) {
	if img == nil {
		return "", nil
	}
	key := RecipeImagePrefix + newMediaName(img.Ext)
	if err := s.store.Save(ctx, key, img.Data, img.ContentType); err != nil {
		return "", fmt.Errorf("failed to store recipe image: %w", err)
	}
	return key, nil
}

// Create validates and stores a new recipe authored by authorID.
func (s *RecipeService) Create(ctx context.Context, authorID uint, req *types.RecipeWriteRequest) (*types.RecipeResponse, error) {
	in, err := s.validate(ctx, req, true)
	if err != nil {
		return nil, err
	}
	imageKey, err := s.storeImage(ctx, in.image)
	if err != nil {
		return nil, err
	}

	recipe := &models.Recipe{
		AuthorID:    authorID,
		Name:        *in.name,
		Text:        *in.text,
		CookingTime: *in.cookingTime,
		Image:       imageKey,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(recipe).Error; err != nil {
			return err
		}
		if err := replaceIngredients(tx, recipe.ID, in.ingredients); err != nil {
			return err
		}
		return replaceTags(tx, recipe.ID, in.tags)
	})
	if err != nil {
		removeMedia(ctx, s.store, imageKey)
		return nil, translateWriteError("create recipe", err)
	}

	logger.Info("recipe created", zap.Uint("recipe_id", recipe.ID), zap.Uint("author_id", authorID))
	return s.Get(ctx, authorID, recipe.ID)
}

// Update applies a partial update. Only the author may update, and the
// ingredient list is always replaced as a whole.
func (s *RecipeService) Update(ctx context.Context, userID, id uint, req *types.RecipeWriteRequest) (*types.RecipeResponse, error) {
	recipe, err := s.load(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if recipe.AuthorID != userID {
		return nil, ErrForbidden
	}
	in, err := s.validate(ctx, req, false)
	if err != nil {
		return nil, err
	}
	imageKey, err := s.storeImage(ctx, in.image)
	if err != nil {
		return nil, err
	}

	oldImage := recipe.Image
	if in.name != nil {
		recipe.Name = *in.name
	}
	if in.text != nil {
		recipe.Text = *in.text
	}
	if in.cookingTime != nil {
		recipe.CookingTime = *in.cookingTime
	}
	if imageKey != "" {
		recipe.Image = imageKey
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(recipe).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.RecipeIngredient{}).Error; err != nil {
			return err
		}
		if err := replaceIngredients(tx, recipe.ID, in.ingredients); err != nil {
			return err
		}
		if !in.tagsSet {
			return nil
		}
		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.RecipeTag{}).Error; err != nil {
			return err
		}
		return replaceTags(tx, recipe.ID, in.tags)
	})
	if err != nil {
		removeMedia(ctx, s.store, imageKey)
		return nil, translateWriteError("update recipe", err)
	}
	if imageKey != "" {
		removeMedia(ctx, s.store, oldImage)
	}

	logger.Info("recipe updated", zap.Uint("recipe_id", recipe.ID))
	return s.Get(ctx, userID, recipe.ID)
}

func replaceIngredients(tx *gorm.DB, recipeID uint, items []types.IngredientAmount) error {
	if len(items) == 0 {
		return nil
	}
	rows := make([]models.RecipeIngredient, len(items))
	for i, it := range items {
		rows[i] = models.RecipeIngredient{RecipeID: recipeID, IngredientID: it.ID, Amount: it.Amount}
	}
	return tx.Omit(clause.Associations).Create(&rows).Error
}

func replaceTags(tx *gorm.DB, recipeID uint, tagIDs []uint) error {
	if len(tagIDs) == 0 {
		return nil
	}
	rows := make([]models.RecipeTag, len(tagIDs))
	for i, id := range tagIDs {
		rows[i] = models.RecipeTag{RecipeID: recipeID, TagID: id}
	}
	return tx.Create(&rows).Error
}

// translateWriteError maps hook bound violations to validation errors.
func translateWriteError(op string, err error) error {
	var fe *models.FieldError
	if errors.As(err, &fe) {
		return NewValidationError(fe.Field, fe.Message)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

// Delete removes a recipe with everything that references it.
func (s *RecipeService) Delete(ctx context.Context, userID, id uint) error {
	recipe, err := s.load(ctx, s.db, id)
	if err != nil {
		return err
	}
	if recipe.AuthorID != userID {
		return ErrForbidden
	}

	var codes []string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.ShortLink{}).Where("recipe_id = ?", id).Pluck("code", &codes).Error; err != nil {
			return err
		}
		for _, model := range []interface{}{
			&models.RecipeIngredient{},
			&models.RecipeTag{},
			&models.Favorite{},
			&models.ShoppingCart{},
			&models.ShortLink{},
		} {
			if err := tx.Where("recipe_id = ?", id).Delete(model).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Recipe{}, id).Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete recipe: %w", err)
	}

	removeMedia(ctx, s.store, recipe.Image)
	if s.links != nil {
		for _, code := range codes {
			s.links.Evict(ctx, code)
		}
	}
	logger.Info("recipe deleted", zap.Uint("recipe_id", id))
	return nil
}

func (s *RecipeService) minified(ctx context.Context, id uint) (*types.RecipeMinified, error) {
	recipe, err := s.load(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	m := s.p.minified(recipe)
	return &m, nil
}

func (s *RecipeService) addPair(ctx context.Context, rel *PairRelation, userID, recipeID uint) (*types.RecipeMinified, error) {
	m, err := s.minified(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	if err := rel.Add(ctx, userID, recipeID); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *RecipeService) removePair(ctx context.Context, rel *PairRelation, userID, recipeID uint) error {
	if _, err := s.load(ctx, s.db, recipeID); err != nil {
		return err
	}
	return rel.Remove(ctx, userID, recipeID)
}

func (s *RecipeService) AddFavorite(ctx context.Context, userID, recipeID uint) (*types.RecipeMinified, error) {
	return s.addPair(ctx, s.favorites, userID, recipeID)
}

func (s *RecipeService) RemoveFavorite(ctx context.Context, userID, recipeID uint) error {
	return s.removePair(ctx, s.favorites, userID, recipeID)
}

func (s *RecipeService) AddToCart(ctx context.Context, userID, recipeID uint) (*types.RecipeMinified, error) {
	return s.addPair(ctx, s.cart, userID, recipeID)
}

func (s *RecipeService) RemoveFromCart(ctx context.Context, userID, recipeID uint) error {
	return s.removePair(ctx, s.cart, userID, recipeID)
}
