package usecase

import (
	"context"
	stderrors "errors"
	"strings"

	"woonruil/internal/domain/entity"
	"woonruil/internal/domain/repository"
	"woonruil/internal/infrastructure/firebase"
	"woonruil/pkg/errors"
	"woonruil/pkg/logger"
)

type AuthUseCase struct {
	userRepo     repository.UserRepository
	firebaseAuth FirebaseAuthClient
}

func NewAuthUseCase(userRepo repository.UserRepository, firebaseAuth FirebaseAuthClient) *AuthUseCase {
	return &AuthUseCase{
		userRepo:     userRepo,
		firebaseAuth: firebaseAuth,
	}
}

type RegisterInput struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=6"`
	DisplayName string `json:"display_name" validate:"omitempty,min=2,max=50"`
}

type AuthResult struct {
	User         *entity.User `json:"user"`
	Token        string       `json:"token"`
	RefreshToken string       `json:"refresh_token,omitempty"`
	ExpiresIn    string       `json:"expires_in,omitempty"`
}

func (uc *AuthUseCase) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	uid, err := uc.firebaseAuth.CreateUser(ctx, email, input.Password, input.DisplayName)
	if err != nil {
		if stderrors.Is(err, firebase.ErrEmailExists) {
			return nil, errors.Conflict("Email already in use", err)
		}
		return nil, errors.Internal("Failed to create user in authentication provider", err)
	}

	user := &entity.User{
		ID:          uid,
		Email:       email,
		DisplayName: input.DisplayName,
		Provider:    "password",
	}
	if err := uc.userRepo.Upsert(ctx, user); err != nil {
		logger.Error("Profile mirror for new user %s not written: %v", uid, err)
		return nil, err
	}

	session, err := uc.firebaseAuth.SignInWithEmailPassword(ctx, email, input.Password)
	if err != nil {
		return nil, errors.Internal("Failed to generate authentication token", err)
	}

	return &AuthResult{
		User:         user,
		Token:        session.IDToken,
		RefreshToken: session.RefreshToken,
		ExpiresIn:    session.ExpiresIn,
	}, nil
}

func (uc *AuthUseCase) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	session, err := uc.firebaseAuth.SignInWithEmailPassword(ctx, email, password)
	if err != nil {
		logger.Warn("Login failed for %s: %v", email, err)
		return nil, errors.Unauthorized("Invalid credentials", err)
	}

	user, err := uc.userRepo.GetByID(ctx, session.UID)
	if err != nil {
		if !errors.IsNotFound(err) {
			return nil, err
		}
		// accounts created outside this service have no mirror yet
		user, err = uc.mirror(ctx, session.UID)
		if err != nil {
			return nil, err
		}
	}

	return &AuthResult{
		User:         user,
		Token:        session.IDToken,
		RefreshToken: session.RefreshToken,
		ExpiresIn:    session.ExpiresIn,
	}, nil
}

func (uc *AuthUseCase) mirror(ctx context.Context, uid string) (*entity.User, error) {
	record, err := uc.firebaseAuth.GetUser(ctx, uid)
	if err != nil {
		return nil, errors.Internal("Failed to load identity profile", err)
	}

	user := &entity.User{
		ID:          record.UID,
		Email:       record.Email,
		DisplayName: record.DisplayName,
		PhotoURL:    record.PhotoURL,
		Provider:    record.Provider,
	}
	if err := uc.userRepo.Upsert(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
