package notifier

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dghubble/go-twitter/twitter" //nolint:staticcheck // Using stable v1.1 API
	"github.com/dghubble/oauth1"

	"github.com/pfrederiksen/minerva-scrape/internal/event"
)

// ErrMissingCredentials is returned when a Twitter credential is empty.
var ErrMissingCredentials = errors.New("missing required Twitter credentials")

// Credentials are OAuth1 user credentials.
type Credentials struct {
	APIKey       string
	APISecret    string
	AccessToken  string
	AccessSecret string
}

// CredentialsFromEnv reads
// - TWITTER_API_KEY
// - TWITTER_API_SECRET
// - TWITTER_ACCESS_TOKEN
// - TWITTER_ACCESS_SECRET
func CredentialsFromEnv() Credentials {
	return Credentials{
		APIKey:       os.Getenv("TWITTER_API_KEY"),
		APISecret:    os.Getenv("TWITTER_API_SECRET"),
		AccessToken:  os.Getenv("TWITTER_ACCESS_TOKEN"),
		AccessSecret: os.Getenv("TWITTER_ACCESS_SECRET"),
	}
}

// TwitterNotifier posts rotations to Twitter
type TwitterNotifier struct {
	client *twitter.Client
}

// NewTwitterNotifier creates a new Twitter notifier. An *http.Client stored in
// ctx under oauth1.HTTPClient is used as the underlying transport.
func NewTwitterNotifier(ctx context.Context, creds Credentials) (*TwitterNotifier, error) {
	if creds.APIKey == "" || creds.APISecret == "" || creds.AccessToken == "" || creds.AccessSecret == "" {
		return nil, ErrMissingCredentials
	}

	config := oauth1.NewConfig(creds.APIKey, creds.APISecret)
	token := oauth1.NewToken(creds.AccessToken, creds.AccessSecret)
	httpClient := config.Client(ctx, token)
	client := twitter.NewClient(httpClient)

	return &TwitterNotifier{client: client}, nil
}

// Notify posts one status for the rotation
func (n *TwitterNotifier) Notify(_ context.Context, rec *event.Record) error {
	if _, _, err := n.client.Statuses.Update(formatStatus(rec), nil); err != nil {
		return fmt.Errorf("failed to post status for %q: %w", rec.Event, err)
	}
	return nil
}
