package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// GoogleClientOptions loads a service account key usable for both the Sheets
// and Drive clients. Without a file, application default credentials apply.
func GoogleClientOptions(ctx context.Context, credentialsFile string) ([]option.ClientOption, error) {
	scopes := []string{sheets.SpreadsheetsScope, drive.DriveScope}

	if credentialsFile == "" {
		creds, err := google.FindDefaultCredentials(ctx, scopes...)
		if err != nil {
			slog.Info(err.Error())
			return nil, fmt.Errorf("no google credentials configured: %w", err)
		}
		return []option.ClientOption{option.WithCredentials(creds)}, nil
	}

	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("failed to read google credentials: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, scopes...)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("invalid google credentials: %w", err)
	}
	return []option.ClientOption{option.WithCredentials(creds)}, nil
}
