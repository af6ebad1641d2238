package firestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
)

// NewClient opens a Firestore client. Outside the emulator the service-account
// key file must exist; its absence is reported before any network call. An
// empty projectID is detected from the credentials.
func NewClient(ctx context.Context, projectID, credentialsFile, emulatorHost string, logger *slog.Logger) (*firestore.Client, error) {
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}

	if emulatorHost != "" {
		// The SDK reads FIRESTORE_EMULATOR_HOST itself and skips authentication.
		client, err := firestore.NewClient(ctx, projectID)
		if err != nil {
			return nil, fmt.Errorf("create firestore emulator client: %w", err)
		}
		logger.Info("firestore client initialized", "project", projectID, "emulator", emulatorHost)
		return client, nil
	}

	if _, err := os.Stat(credentialsFile); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("credentials file %s not found", credentialsFile)
		}
		return nil, fmt.Errorf("credentials file %s: %w", credentialsFile, err)
	}

	client, err := firestore.NewClient(ctx, projectID, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}
	logger.Info("firestore client initialized", "project", projectID, "credentials", credentialsFile)
	return client, nil
}
