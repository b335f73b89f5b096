package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aJLaxzzz/foodgram-st/internal/models"
	"github.com/aJLaxzzz/foodgram-st/internal/service"
	"github.com/aJLaxzzz/foodgram-st/internal/testhelpers"
	"github.com/aJLaxzzz/foodgram-st/internal/types"
)

func validationFields(t *testing.T, err error) map[string][]string {
	t.Helper()
	var verr *service.ValidationError
	require.True(t, errors.As(err, &verr), "expected validation error, got %v", err)
	return verr.Fields
}

func TestUserService_Register(t *testing.T) {
	db := testhelpers.SetupSQLite(t)
	users := service.NewUserService(db, testhelpers.NewMemoryStorage())
	ctx := context.Background()

	req := &types.RegisterRequest{
		Email:     "vasya@example.com",
		Username:  "vasya.pupkin",
		FirstName: "Vasya",
		LastName:  "Pupkin",
		Password:  "Qwerty123",
	}
	created, err := users.Register(ctx, req)
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "vasya.pupkin", created.Username)

	var stored models.User
	require.NoError(t, db.First(&stored, created.ID).Error)
	assert.NotEqual(t, "Qwerty123", stored.PasswordHash)
	assert.False(t, stored.IsSuperuser)

	tests := []struct {
		name  string
		req   types.RegisterRequest
		field string
	}{
		{"duplicate email", types.RegisterRequest{Email: req.Email, Username: "other", Password: "x"}, "email"},
		{"duplicate username", types.RegisterRequest{Email: "other@example.com", Username: req.Username, Password: "x"}, "username"},
		{"bad characters", types.RegisterRequest{Email: "a@example.com", Username: "bad name!", Password: "x"}, "username"},
		{"reserved", types.RegisterRequest{Email: "b@example.com", Username: "me", Password: "x"}, "username"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := users.Register(ctx, &tt.req)
			assert.Contains(t, validationFields(t, err), tt.field)
		})
	}
}

func TestUserService_CreateSuperuser(t *testing.T) {
	db := testhelpers.SetupSQLite(t)
	users := service.NewUserService(db, testhelpers.NewMemoryStorage())

	admin, err := users.CreateSuperuser(context.Background(), &types.RegisterRequest{
		Email: "admin@example.com", Username: "admin", Password: "admin",
	})
	require.NoError(t, err)
	assert.True(t, admin.IsSuperuser)
	assert.True(t, admin.IsStaff)
}

func TestUserService_ListAndGet(t *testing.T) {
	db := testhelpers.SetupSQLite(t)
	users := service.NewUserService(db, testhelpers.NewMemoryStorage())
	ctx := context.Background()

	alice := testhelpers.CreateUser(t, db, "alice")
	bob := testhelpers.CreateUser(t, db, "bob")
	testhelpers.CreateUser(t, db, "carol")
	require.NoError(t, service.NewFollows(db).Add(ctx, alice.ID, bob.ID))

	page, count, err := users.List(ctx, alice.ID, types.PageRequest{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)
	require.Len(t, page, 2)
	assert.Equal(t, "alice", page[0].Username)
	assert.False(t, page[0].IsSubscribed)
	assert.True(t, page[1].IsSubscribed)
	assert.Nil(t, page[1].Avatar)

	got, err := users.Get(ctx, 0, bob.ID)
	require.NoError(t, err)
	assert.False(t, got.IsSubscribed, "anonymous viewers are never subscribed")

	_, err = users.Get(ctx, alice.ID, 999)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestUserService_SetPassword(t *testing.T) {
	db := testhelpers.SetupSQLite(t)
	users := service.NewUserService(db, testhelpers.NewMemoryStorage())
	auth := service.NewAuthService(db, testSecret, time.Hour, service.NewDBRevoker(db))
	user := testhelpers.CreateUser(t, db, "dave")
	ctx := context.Background()

	err := users.SetPassword(ctx, user.ID, "wrong", "new-password")
	assert.Equal(t, []string{"Wrong password."}, validationFields(t, err)["current_password"])

	require.NoError(t, users.SetPassword(ctx, user.ID, testhelpers.TestPassword, "new-password"))
	_, err = auth.Login(ctx, user.Email, testhelpers.TestPassword)
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
	_, err = auth.Login(ctx, user.Email, "new-password")
	assert.NoError(t, err)
}

func TestUserService_Avatar(t *testing.T) {
	db := testhelpers.SetupSQLite(t)
	store := testhelpers.NewMemoryStorage()
	users := service.NewUserService(db, store)
	user := testhelpers.CreateUser(t, db, "erin")
	ctx := context.Background()

	_, err := users.SetAvatar(ctx, user.ID, "not an image")
	assert.Contains(t, validationFields(t, err), "avatar")

	first, err := users.SetAvatar(ctx, user.ID, testhelpers.PNGDataURI)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(first, "http://testserver/media/"+service.AvatarPrefix))
	assert.True(t, strings.HasSuffix(first, ".png"))
	assert.Equal(t, 1, store.Len())
	firstKey := strings.TrimPrefix(first, "http://testserver/media/")
	assert.True(t, store.Has(firstKey), "the uploaded avatar is kept")

	second, err := users.SetAvatar(ctx, user.ID, testhelpers.PNGDataURI)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	assert.Equal(t, 1, store.Len(), "the previous avatar is removed")
	assert.False(t, store.Has(firstKey))
	assert.True(t, store.Has(strings.TrimPrefix(second, "http://testserver/media/")))

	profile, err := users.Get(ctx, 0, user.ID)
	require.NoError(t, err)
	require.NotNil(t, profile.Avatar)
	assert.Equal(t, second, *profile.Avatar)

	require.NoError(t, users.DeleteAvatar(ctx, user.ID))
	assert.Equal(t, 0, store.Len())
	profile, err = users.Get(ctx, 0, user.ID)
	require.NoError(t, err)
	assert.Nil(t, profile.Avatar)

	// deleting again is a no-op
	assert.NoError(t, users.DeleteAvatar(ctx, user.ID))
}

func TestUserService_DeleteAvatarRemovesStoredFile(t *testing.T) {
	db := testhelpers.SetupSQLite(t)
	store := testhelpers.NewMemoryStorage()
	users := service.NewUserService(db, store)
	user := testhelpers.CreateUser(t, db, "frank")
	ctx := context.Background()

	const key = service.AvatarPrefix + "old.png"
	require.NoError(t, store.Save(ctx, key, []byte("png"), "image/png"))
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", user.ID).Update("avatar", key).Error)

	require.NoError(t, users.DeleteAvatar(ctx, user.ID))
	assert.False(t, store.Has(key))
	assert.Equal(t, 0, store.Len())

	var stored models.User
	require.NoError(t, db.First(&stored, user.ID).Error)
	assert.Empty(t, stored.Avatar)
}
