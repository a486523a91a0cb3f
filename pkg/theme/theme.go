package theme

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Theme is a color scheme.
type Theme string

const (
	Light Theme = "light"
	Dark  Theme = "dark"
)

// StorageKey prefixes every stored preference.
const StorageKey = "pandaskiing-theme"

// Parse accepts "light" or "dark".
func Parse(s string) (Theme, error) {
	switch Theme(strings.ToLower(strings.TrimSpace(s))) {
	case Light:
		return Light, nil
	case Dark:
		return Dark, nil
	}
	return "", fmt.Errorf("unknown theme %q", s)
}

// Opposite returns the other theme.
func (t Theme) Opposite() Theme {
	if t == Dark {
		return Light
	}
	return Dark
}

// Store persists per-client preferences.
type Store interface {
	Get(ctx context.Context, clientID string) (Theme, bool, error)
	Set(ctx context.Context, clientID string, t Theme) error
}

// SchemeSource reports the scheme the client's system prefers, if known.
type SchemeSource interface {
	Scheme(r *http.Request) (Theme, bool)
}

// HeaderScheme reads the Sec-CH-Prefers-Color-Scheme client hint.
type HeaderScheme struct{}

func (HeaderScheme) Scheme(r *http.Request) (Theme, bool) {
	if r == nil {
		return "", false
	}
	t, err := Parse(strings.Trim(r.Header.Get("Sec-CH-Prefers-Color-Scheme"), `"`))
	if err != nil {
		return "", false
	}
	return t, true
}

// Service resolves and updates theme preferences.
type Service struct {
	store  Store
	system SchemeSource
	logger *zap.Logger
}

// NewService creates a Service. A nil system source means no system preference.
func NewService(store Store, system SchemeSource, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, system: system, logger: logger}
}

// Resolve returns the stored preference, else the system scheme, else Light.
// A failing store is logged and treated as having no preference.
func (s *Service) Resolve(ctx context.Context, clientID string, r *http.Request) Theme {
	if clientID != "" {
		t, ok, err := s.store.Get(ctx, clientID)
		if err != nil {
			s.logger.Warn("theme store read failed", zap.String("client", clientID), zap.Error(err))
		} else if ok {
			return t
		}
	}
	if s.system != nil {
		if t, ok := s.system.Scheme(r); ok {
			return t
		}
	}
	return Light
}

// Set stores t for clientID.
func (s *Service) Set(ctx context.Context, clientID string, t Theme) error {
	if _, err := Parse(string(t)); err != nil {
		return err
	}
	return s.store.Set(ctx, clientID, t)
}

// Toggle flips the resolved theme, stores it and returns it.
func (s *Service) Toggle(ctx context.Context, clientID string, r *http.Request) (Theme, error) {
	next := s.Resolve(ctx, clientID, r).Opposite()
	if err := s.store.Set(ctx, clientID, next); err != nil {
		return "", err
	}
	return next, nil
}
