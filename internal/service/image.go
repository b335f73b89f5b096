package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aJLaxzzz/foodgram-st/internal/logger"
)

const (
	AvatarPrefix      = "users/avatars/"
	RecipeImagePrefix = "recipes/images/"
)

// imageSubtype limits the declared subtype, which becomes the file extension.
var imageSubtype = regexp.MustCompile(`^[a-z0-9][a-z0-9.+-]*$`)

// DecodedImage is the payload of a data:image URI.
type DecodedImage struct {
	Data        []byte
	ContentType string
	Ext         string
}

// DecodeDataURI parses "data:image/<subtype>;base64,<payload>".
func DecodeDataURI(field, raw string) (*DecodedImage, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, NewValidationError(field, "Image must not be empty.")
	}
	header, payload, ok := strings.Cut(raw, ";base64,")
	if !ok || !strings.HasPrefix(header, "data:image/") {
		return nil, NewValidationError(field, "Expected a base64 encoded data:image URI.")
	}
	subtype := strings.ToLower(strings.TrimPrefix(header, "data:image/"))
	if !imageSubtype.MatchString(subtype) || strings.Contains(subtype, "..") {
		return nil, NewValidationError(field, fmt.Sprintf("Unsupported image type %q.", subtype))
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil || len(data) == 0 {
		return nil, NewValidationError(field, "Image payload is not valid base64.")
	}
	return &DecodedImage{Data: data, ContentType: "image/" + subtype, Ext: subtype}, nil
}

// SaveImage decodes a data URI and stores it under prefix, returning the key.
func SaveImage(ctx context.Context, store Storage, field, prefix, raw string) (string, error) {
	img, err := DecodeDataURI(field, raw)
	if err != nil {
		return "", err
	}
	key := prefix + newMediaName(img.Ext)
	if err := store.Save(ctx, key, img.Data, img.ContentType); err != nil {
		return "", fmt.Errorf("failed to store image: %w", err)
	}
	return key, nil
}

func newMediaName(ext string) string {
	return uuid.NewString() + "." + ext
}

// removeMedia deletes a stored file, logging instead of failing.
func removeMedia(ctx context.Context, store Storage, key string) {
	if key == "" {
		return
	}
	if err := store.Delete(ctx, key); err != nil {
		logger.Warn("failed to delete media", zap.String("key", key), zap.Error(err))
	}
}
