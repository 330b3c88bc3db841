package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/classtrack/portal-api/internal/dto"
	"github.com/classtrack/portal-api/internal/normalize"
	"github.com/classtrack/portal-api/internal/session"
	"github.com/classtrack/portal-api/pkg/classtrack"
)

// SessionService resolves the authenticated user's profile, caching it for
// the token's remaining lifetime, and handles logout.
type SessionService interface {
	Profile(ctx context.Context, token string) (dto.ProfileResponse, error)
	Logout(ctx context.Context, token string) error
}

type sessionService struct {
	upstream  *classtrack.Client
	sessions  *session.Store
	normalize *normalize.Normalizer
	logger    zerolog.Logger
}

// NewSessionService constructs the session service.
func NewSessionService(upstream *classtrack.Client, sessions *session.Store, logger zerolog.Logger) SessionService {
	return &sessionService{
		upstream:  upstream,
		sessions:  sessions,
		normalize: normalize.New(),
		logger:    logger.With().Str("component", "session_service").Logger(),
	}
}

func (s *sessionService) Profile(ctx context.Context, token string) (dto.ProfileResponse, error) {
	if s.sessions != nil {
		if profile, ok, err := s.sessions.Get(ctx, token); err == nil && ok {
			return dto.NewProfileResponse(profile), nil
		}
	}

	rec, err := s.upstream.Me(ctx, token)
	if err != nil {
		return dto.ProfileResponse{}, err
	}

	profile := s.normalize.Profile(rec)
	if s.sessions != nil {
		if err := s.sessions.Save(ctx, token, profile); err != nil {
			s.logger.Warn().Err(err).Msg("failed to cache session profile")
		}
	}

	return dto.NewProfileResponse(profile), nil
}

func (s *sessionService) Logout(ctx context.Context, token string) error {
	return s.sessions.Clear(ctx, token)
}
