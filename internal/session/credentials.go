package session

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/ivlev/attnmap/internal/apperr"
	"github.com/ivlev/attnmap/internal/messages"
	"github.com/ivlev/attnmap/internal/reconcile"
	"github.com/ivlev/attnmap/internal/request"
	"github.com/ivlev/attnmap/internal/settings"
	"github.com/ivlev/attnmap/internal/transport"
)

// EnsureAPIKey returns the saved API key, asking for one when none is saved.
// A newly entered key is persisted and starts onboarding.
func EnsureAPIKey(ctx context.Context, store settings.Store, p Prompter, n Notifier, tag string) (string, error) {
	if store == nil {
		return "", apperr.New(apperr.MissingCredentials, "no settings store")
	}
	key, ok, err := store.Get(ctx, settings.KeyAPIKey)
	if err != nil {
		return "", apperr.Wrap(apperr.MissingCredentials, fmt.Errorf("read api key: %w", err))
	}
	if ok && key != "" {
		return key, nil
	}
	if p == nil {
		return "", apperr.New(apperr.MissingCredentials, "no api key saved")
	}
	entered, err := p.PromptAPIKey("")
	entered = strings.TrimSpace(entered)
	if err != nil || entered == "" {
		return "", apperr.New(apperr.MissingCredentials, "no api key entered")
	}
	if err := saveKey(ctx, store, entered, true); err != nil {
		return "", err
	}
	if n != nil {
		n.Message(messages.APIKeySaved)
		n.Message(messages.Onboarding(tag))
	}
	return entered, nil
}

// SetAPIKey asks for a replacement key, keeping the old one on cancel.
func SetAPIKey(ctx context.Context, store settings.Store, p Prompter, n Notifier, tag string) error {
	current, _, err := store.Get(ctx, settings.KeyAPIKey)
	if err != nil {
		return fmt.Errorf("read api key: %w", err)
	}
	entered, err := p.PromptAPIKey(current)
	entered = strings.TrimSpace(entered)
	if err != nil || entered == "" {
		n.Message(messages.APIKeyCancel)
		return nil
	}
	first := current == ""
	if err := saveKey(ctx, store, entered, first); err != nil {
		return err
	}
	n.Message(messages.APIKeySaved)
	if first {
		n.Message(messages.Onboarding(tag))
		n.Message(messages.OnboardingEnd)
	}
	return nil
}

func saveKey(ctx context.Context, store settings.Store, key string, first bool) error {
	if err := store.Set(ctx, settings.KeyAPIKey, key); err != nil {
		return apperr.Wrap(apperr.MissingCredentials, fmt.Errorf("save api key: %w", err))
	}
	if first {
		if err := store.Set(ctx, settings.KeyFirstTime, "true"); err != nil {
			return apperr.Wrap(apperr.MissingCredentials, fmt.Errorf("save %s: %w", settings.KeyFirstTime, err))
		}
	}
	return nil
}

// Getter performs authenticated GET requests.
type Getter interface {
	Get(ctx context.Context, endpoint string, header http.Header) (*transport.Response, error)
}

// Credits asks the service how many predictions the key has left.
func Credits(ctx context.Context, g Getter, endpoint, apiKey string) (int, error) {
	resp, err := g.Get(ctx, endpoint, request.Header(apiKey))
	if err != nil {
		return 0, apperr.Wrap(apperr.TransportFailure, err)
	}
	if resp.StatusCode != http.StatusOK {
		kind := reconcile.ClassifyStatus(resp.StatusCode)
		return 0, apperr.New(kind, "credits lookup responded with status %d", resp.StatusCode)
	}
	c, err := transport.DecodeCredits(resp.Body)
	if err != nil {
		return 0, apperr.Wrap(apperr.MalformedResponse, err)
	}
	return c.Credits, nil
}
