package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"woonruil/internal/domain/repository"
)

// PingFirestore reads at most one user document to prove the store answers.
func PingFirestore(client *firestore.Client) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		iter := client.Collection(repository.UsersCollection).Limit(1).Documents(ctx)
		defer iter.Stop()

		_, err := iter.Next()
		if err == iterator.Done {
			return nil
		}
		return err
	}
}
