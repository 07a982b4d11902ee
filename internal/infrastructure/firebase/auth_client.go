package firebase

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/auth"
)

// UserRecord is the subset of the identity provider's user the service mirrors.
type UserRecord struct {
	UID         string
	Email       string
	DisplayName string
	PhotoURL    string
	Provider    string
}

type FirebaseAuthClient struct {
	client     *auth.Client
	apiKey     string
	restClient *identityToolkit
}

func NewFirebaseAuthClient(client *auth.Client, apiKey string) *FirebaseAuthClient {
	return &FirebaseAuthClient{
		client:     client,
		apiKey:     apiKey,
		restClient: newIdentityToolkit(apiKey, ""),
	}
}

func (f *FirebaseAuthClient) CreateUser(ctx context.Context, email, password, displayName string) (string, error) {
	params := (&auth.UserToCreate{}).
		Email(email).
		Password(password)
	if displayName != "" {
		params = params.DisplayName(displayName)
	}

	user, err := f.client.CreateUser(ctx, params)
	if err != nil {
		if auth.IsEmailAlreadyExists(err) {
			return "", ErrEmailExists
		}
		return "", err
	}

	return user.UID, nil
}

func (f *FirebaseAuthClient) VerifyToken(ctx context.Context, token string) (string, error) {
	result, err := f.client.VerifyIDToken(ctx, token)
	if err != nil {
		return "", err
	}

	return result.UID, nil
}

func (f *FirebaseAuthClient) GetUser(ctx context.Context, uid string) (*UserRecord, error) {
	user, err := f.client.GetUser(ctx, uid)
	if err != nil {
		return nil, err
	}

	record := &UserRecord{
		UID:         user.UID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		PhotoURL:    user.PhotoURL,
		Provider:    user.ProviderID,
	}
	if len(user.ProviderUserInfo) > 0 {
		record.Provider = user.ProviderUserInfo[0].ProviderID
	}

	return record, nil
}

// UpdateProfile changes the display name and/or photo. Empty values are left alone.
func (f *FirebaseAuthClient) UpdateProfile(ctx context.Context, uid, displayName, photoURL string) error {
	params := &auth.UserToUpdate{}
	changed := false
	if displayName != "" {
		params = params.DisplayName(displayName)
		changed = true
	}
	if photoURL != "" {
		params = params.PhotoURL(photoURL)
		changed = true
	}
	if !changed {
		return nil
	}

	if _, err := f.client.UpdateUser(ctx, uid, params); err != nil {
		return fmt.Errorf("update identity profile: %w", err)
	}
	return nil
}

func (f *FirebaseAuthClient) SignInWithEmailPassword(ctx context.Context, email, password string) (*SignInResult, error) {
	return f.restClient.signInWithPassword(ctx, email, password)
}
