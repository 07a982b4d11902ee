package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"woonruil/internal/domain/entity"
	"woonruil/internal/infrastructure/firebase"
	"woonruil/pkg/errors"
)

func newUserFixture() (*UserUseCase, *memUserRepo, *fakeAuth, *memStorage) {
	auth := newFakeAuth()
	auth.users["u1"] = &firebase.UserRecord{UID: "u1", Email: "anna@example.nl", DisplayName: "Anna", Provider: "google.com"}
	repo := newMemUserRepo()
	storage := newMemStorage()
	return NewUserUseCase(repo, auth, storage), repo, auth, storage
}

func TestSyncProfile(t *testing.T) {
	uc, repo, _, _ := newUserFixture()

	u, err := uc.SyncProfile(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "Anna", u.DisplayName)
	assert.Equal(t, "google.com", u.Provider)

	_, err = repo.GetByID(context.Background(), "u1")
	assert.NoError(t, err)

	_, err = uc.SyncProfile(context.Background(), "ghost")
	assert.True(t, errors.Is(err, errors.CodeUnauthorized))
}

func TestUpdateProfile(t *testing.T) {
	uc, _, auth, _ := newUserFixture()
	ctx := context.Background()
	_, err := uc.SyncProfile(ctx, "u1")
	require.NoError(t, err)

	_, err = uc.UpdateProfile(ctx, "u1", UpdateProfileInput{DisplayName: "   "})
	assert.True(t, errors.Is(err, errors.CodeBadRequest))

	u, err := uc.UpdateProfile(ctx, "u1", UpdateProfileInput{DisplayName: " Anna de Vries "})
	require.NoError(t, err)
	assert.Equal(t, "Anna de Vries", u.DisplayName)
	assert.Equal(t, "anna@example.nl", u.Email)
	assert.Equal(t, "Anna de Vries", auth.users["u1"].DisplayName)
}

func TestGetPublicProfile(t *testing.T) {
	uc, repo, _, _ := newUserFixture()
	require.NoError(t, repo.Upsert(context.Background(), &entity.User{ID: "u2", Email: "secret@example.nl"}))

	p, err := uc.GetPublicProfile(context.Background(), "u2")
	require.NoError(t, err)
	assert.Equal(t, "u2", p.ID)
	assert.NotEmpty(t, p.DisplayName)

	_, err = uc.GetPublicProfile(context.Background(), "nobody")
	assert.True(t, errors.IsNotFound(err))
}

func TestUploadPhoto(t *testing.T) {
	uc, _, auth, storage := newUserFixture()
	ctx := context.Background()
	_, err := uc.SyncProfile(ctx, "u1")
	require.NoError(t, err)

	_, err = uc.UploadPhoto(ctx, "u1", strings.NewReader("%PDF"), "application/pdf")
	assert.True(t, errors.Is(err, errors.CodeBadRequest))

	u, err := uc.UploadPhoto(ctx, "u1", strings.NewReader("jpeg-bytes"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "https://files.test/profile_pictures/u1", u.PhotoURL)
	assert.Equal(t, "jpeg-bytes", storage.objects["profile_pictures/u1"])
	assert.Equal(t, u.PhotoURL, auth.users["u1"].PhotoURL)
}
