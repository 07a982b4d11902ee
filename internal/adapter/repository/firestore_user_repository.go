package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"woonruil/internal/domain/entity"
	"woonruil/internal/domain/repository"
	"woonruil/pkg/errors"
	"woonruil/pkg/logger"
)

type firestoreUserRepository struct {
	client *firestore.Client
}

func NewFirestoreUserRepository(client *firestore.Client) repository.UserRepository {
	return &firestoreUserRepository{
		client: client,
	}
}

func (r *firestoreUserRepository) Upsert(ctx context.Context, user *entity.User) error {
	now := time.Now()
	user.UpdatedAt = now

	updateData := map[string]interface{}{
		"id":          user.ID,
		"displayName": user.DisplayName,
		"email":       user.Email,
		"photoURL":    user.PhotoURL,
		"provider":    user.Provider,
		"updatedAt":   now,
	}

	// Only include non-empty fields so a partial profile never blanks
	// out what is already stored.
	cleanUpdateData := make(map[string]interface{}, len(updateData)+1)
	for key, value := range updateData {
		if strVal, ok := value.(string); ok && strVal == "" {
			continue
		}
		cleanUpdateData[key] = value
	}

	ref := r.client.Doc(repository.UserPath(user.ID))
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil && status.Code(err) != codes.NotFound {
			return err
		}
		if snap == nil || !snap.Exists() {
			if user.CreatedAt.IsZero() {
				user.CreatedAt = now
			}
			cleanUpdateData["createdAt"] = user.CreatedAt
		}
		return tx.Set(ref, cleanUpdateData, firestore.MergeAll)
	})
	if err != nil {
		logger.Error("Firestore upsert of user %s failed: %v", user.ID, err)
		return errors.Internal("Failed to save user profile", err)
	}

	return nil
}

func (r *firestoreUserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	doc, err := r.client.Doc(repository.UserPath(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("User", err)
		}
		return nil, errors.Internal("Failed to get user", err)
	}

	var user entity.User
	if err := doc.DataTo(&user); err != nil {
		return nil, errors.Internal("Failed to parse user data", err)
	}
	user.ID = doc.Ref.ID

	return &user, nil
}

func (r *firestoreUserRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*entity.User, error) {
	users := make(map[string]*entity.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	refs := make([]*firestore.DocumentRef, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, r.client.Doc(repository.UserPath(id)))
	}

	docs, err := r.client.GetAll(ctx, refs)
	if err != nil {
		return nil, errors.Internal("Failed to get users", err)
	}

	for _, doc := range docs {
		if !doc.Exists() {
			continue
		}
		var user entity.User
		if err := doc.DataTo(&user); err != nil {
			logger.Warn("Skipping malformed user document %s: %v", doc.Ref.ID, err)
			continue
		}
		user.ID = doc.Ref.ID
		users[user.ID] = &user
	}

	return users, nil
}
