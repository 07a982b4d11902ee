package usecase

import (
	"context"
	"io"
	"strings"

	"woonruil/internal/domain/entity"
	"woonruil/internal/domain/repository"
	"woonruil/internal/domain/service"
	"woonruil/pkg/errors"
	"woonruil/pkg/logger"
)

// UserUseCase keeps the profile mirror in step with the identity provider.
type UserUseCase struct {
	userRepo     repository.UserRepository
	firebaseAuth FirebaseAuthClient
	fileStorage  service.FileStorage
}

func NewUserUseCase(userRepo repository.UserRepository, firebaseAuth FirebaseAuthClient, fileStorage service.FileStorage) *UserUseCase {
	return &UserUseCase{
		userRepo:     userRepo,
		firebaseAuth: firebaseAuth,
		fileStorage:  fileStorage,
	}
}

type UpdateProfileInput struct {
	DisplayName string `json:"display_name" validate:"omitempty,min=2,max=50"`
	PhotoURL    string `json:"photo_url" validate:"omitempty,url"`
}

// SyncProfile copies the identity provider's record into the mirror.
func (uc *UserUseCase) SyncProfile(ctx context.Context, userID string) (*entity.User, error) {
	record, err := uc.firebaseAuth.GetUser(ctx, userID)
	if err != nil {
		return nil, errors.Unauthorized("Unknown user", err)
	}

	user := &entity.User{
		ID:          record.UID,
		DisplayName: record.DisplayName,
		Email:       record.Email,
		PhotoURL:    record.PhotoURL,
		Provider:    record.Provider,
	}
	if err := uc.userRepo.Upsert(ctx, user); err != nil {
		return nil, err
	}

	return uc.userRepo.GetByID(ctx, userID)
}

func (uc *UserUseCase) GetProfile(ctx context.Context, userID string) (*entity.User, error) {
	return uc.userRepo.GetByID(ctx, userID)
}

func (uc *UserUseCase) GetPublicProfile(ctx context.Context, userID string) (entity.PublicProfile, error) {
	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return entity.PublicProfile{}, err
	}
	return user.Public(), nil
}

func (uc *UserUseCase) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*entity.User, error) {
	input.DisplayName = strings.TrimSpace(input.DisplayName)
	if input.DisplayName == "" && input.PhotoURL == "" {
		return nil, errors.BadRequest("Nothing to update", nil)
	}

	if err := uc.firebaseAuth.UpdateProfile(ctx, userID, input.DisplayName, input.PhotoURL); err != nil {
		return nil, errors.Internal("Failed to update identity profile", err)
	}

	if err := uc.userRepo.Upsert(ctx, &entity.User{
		ID:          userID,
		DisplayName: input.DisplayName,
		PhotoURL:    input.PhotoURL,
	}); err != nil {
		return nil, err
	}

	return uc.userRepo.GetByID(ctx, userID)
}

// UploadPhoto replaces the user's avatar and points both profiles at it.
func (uc *UserUseCase) UploadPhoto(ctx context.Context, userID string, file io.Reader, contentType string) (*entity.User, error) {
	if !strings.HasPrefix(contentType, "image/") {
		return nil, errors.BadRequest("Profile picture must be an image", nil)
	}

	url, err := uc.fileStorage.Upload(ctx, repository.ProfilePictureObject(userID), file, contentType)
	if err != nil {
		logger.Error("Avatar upload for %s failed: %v", userID, err)
		return nil, errors.Internal("Failed to upload profile picture", err)
	}

	return uc.UpdateProfile(ctx, userID, UpdateProfileInput{PhotoURL: url})
}
