package service_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aJLaxzzz/foodgram-st/internal/service"
	"github.com/aJLaxzzz/foodgram-st/internal/testhelpers"
)

func TestDecodeDataURI(t *testing.T) {
	img, err := service.DecodeDataURI("image", testhelpers.PNGDataURI)
	require.NoError(t, err)
	assert.Equal(t, "png", img.Ext)
	assert.Equal(t, "image/png", img.ContentType)
	assert.Equal(t, []byte("\x89PNG"), img.Data[:4])

	for subtype, ext := range map[string]string{"jpeg": "jpeg", "JPEG": "jpeg", "tiff": "tiff", "svg+xml": "svg+xml"} {
		img, err := service.DecodeDataURI("image", "data:image/"+subtype+";base64,/9j/4AAQ")
		require.NoError(t, err, subtype)
		assert.Equal(t, ext, img.Ext)
		assert.Equal(t, "image/"+ext, img.ContentType)
	}

	for _, raw := range []string{
		"",
		"plain text",
		"data:image/png,notbase64",
		"data:image/;base64,AAAA",
		"data:image/../x;base64,AAAA",
		"data:image/a/b;base64,AAAA",
		"data:image/png;base64,!!!",
		"data:application/pdf;base64,AAAA",
	} {
		_, err := service.DecodeDataURI("image", raw)
		assert.Contains(t, validationFields(t, err), "image", "input %q", raw)
	}
}

func TestLocalStorage(t *testing.T) {
	root := t.TempDir()
	store := service.NewLocalStorage(root, "/media")
	ctx := context.Background()

	key, err := service.SaveImage(ctx, store, "avatar", service.AvatarPrefix, testhelpers.PNGDataURI)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, service.AvatarPrefix))
	assert.Equal(t, "/media/"+key, store.URL(key))

	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(key)))
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	require.NoError(t, store.Delete(ctx, key))
	_, err = os.Stat(filepath.Join(root, filepath.FromSlash(key)))
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, store.Delete(ctx, key), "deleting a missing file is not an error")

	assert.Error(t, store.Save(ctx, "../escape.png", []byte("x"), "image/png"))
}
