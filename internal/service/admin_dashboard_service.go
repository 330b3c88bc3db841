package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/classtrack/portal-api/internal/dto"
	"github.com/classtrack/portal-api/internal/models"
	"github.com/classtrack/portal-api/internal/normalize"
	"github.com/classtrack/portal-api/pkg/classtrack"
)

// Stage names for the admin pages.
const (
	StageUserCount     = "user_count"
	StageClassCount    = "class_count"
	StageSchedules     = "schedules"
	StageAnnouncements = "announcements"
)

// AdminDashboardService aggregates the admin landing page and the live
// schedule board, and forwards validated creates upstream.
type AdminDashboardService interface {
	Dashboard(ctx context.Context, token string) (dto.AdminDashboardResponse, []string, error)
	Live(ctx context.Context) (dto.LiveBoardResponse, []string, error)
	CreateSchedule(ctx context.Context, token string, req dto.ScheduleCreateRequest) (dto.ScheduleResponse, error)
	CreateAnnouncement(ctx context.Context, token string, req dto.AnnouncementCreateRequest) (dto.AnnouncementResponse, error)
}

type adminDashboardService struct {
	upstream  *classtrack.Client
	cache     *redis.Client
	cacheTTL  time.Duration
	liveTTL   time.Duration
	normalize *normalize.Normalizer
	logger    zerolog.Logger
	now       func() time.Time
}

// NewAdminDashboardService constructs the admin dashboard service. liveTTL
// bounds how stale the live board may be; it is typically a few seconds.
func NewAdminDashboardService(upstream *classtrack.Client, cache *redis.Client, cacheTTL, liveTTL time.Duration, logger zerolog.Logger) AdminDashboardService {
	return &adminDashboardService{
		upstream:  upstream,
		cache:     cache,
		cacheTTL:  cacheTTL,
		liveTTL:   liveTTL,
		normalize: normalize.New(),
		logger:    logger.With().Str("component", "admin_dashboard_service").Logger(),
		now:       time.Now,
	}
}

func (s *adminDashboardService) Dashboard(ctx context.Context, token string) (dto.AdminDashboardResponse, []string, error) {
	const cacheKey = "portal:admin:dashboard"
	tracer := otel.Tracer("github.com/classtrack/portal-api/internal/service/admin_dashboard")
	ctx, span := tracer.Start(ctx, "admin.dashboard")
	defer span.End()

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, cacheKey).Result()
		if err == nil {
			var response dto.AdminDashboardResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				response.CacheHit = true
				span.SetAttributes(attribute.Bool("admin.cache_hit", true))
				return response, nil, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read dashboard cache")
		}
	}

	var (
		userCount     int64
		classCount    int64
		schedules     []models.Schedule
		announcements []models.Announcement
	)

	group, groupCtx := newFetchGroup(ctx)
	group.Go(func() error {
		count, err := s.upstream.UserCount(groupCtx, token)
		if err != nil {
			return stageError(StageUserCount, err)
		}
		userCount = count
		return nil
	})
	group.Go(func() error {
		count, err := s.upstream.ClassCount(groupCtx, token)
		if err != nil {
			return stageError(StageClassCount, err)
		}
		classCount = count
		return nil
	})
	group.Go(func() error {
		recs, err := s.upstream.Schedules(groupCtx, token)
		if err != nil {
			return stageError(StageSchedules, err)
		}
		schedules = s.normalize.Schedules(recs)
		return nil
	})
	group.Go(func() error {
		recs, err := s.upstream.Announcements(groupCtx, token)
		if err != nil {
			return stageError(StageAnnouncements, err)
		}
		announcements = s.normalize.Announcements(recs)
		return nil
	})

	degraded, err := group.Wait()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dashboard_fetch_failed")
		return dto.AdminDashboardResponse{}, nil, err
	}
	span.SetAttributes(attribute.Int("admin.degraded_stages", len(degraded)))

	response := dto.AdminDashboardResponse{
		TotalUsers:    int(userCount),
		TotalClasses:  int(classCount),
		Schedules:     dto.NewScheduleResponseSlice(schedules),
		Announcements: dto.NewAnnouncementResponseSlice(announcements),
		GeneratedAt:   s.now().UTC(),
	}

	// Partial dashboards are never cached: a degraded stage should retry on
	// the next request, not persist for the TTL.
	if s.cache != nil && len(degraded) == 0 {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store dashboard cache")
			}
		}
	}

	return response, degraded, nil
}

func (s *adminDashboardService) Live(ctx context.Context) (dto.LiveBoardResponse, []string, error) {
	const cacheKey = "portal:admin:live"
	tracer := otel.Tracer("github.com/classtrack/portal-api/internal/service/admin_dashboard")
	ctx, span := tracer.Start(ctx, "admin.live_board")
	defer span.End()

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, cacheKey).Result()
		if err == nil {
			var response dto.LiveBoardResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				return response, nil, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read live board cache")
		}
	}

	var (
		schedules     []models.Schedule
		announcements []models.Announcement
	)

	group, groupCtx := newFetchGroup(ctx)
	group.Go(func() error {
		recs, err := s.upstream.LiveSchedules(groupCtx)
		if err != nil {
			return stageError(StageSchedules, err)
		}
		schedules = s.normalize.Schedules(recs)
		return nil
	})
	group.Go(func() error {
		recs, err := s.upstream.LiveAnnouncements(groupCtx)
		if err != nil {
			return stageError(StageAnnouncements, err)
		}
		announcements = s.normalize.Announcements(recs)
		return nil
	})

	degraded, err := group.Wait()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "live_board_fetch_failed")
		return dto.LiveBoardResponse{}, nil, err
	}

	response := dto.LiveBoardResponse{
		Schedules:     dto.NewScheduleResponseSlice(schedules),
		Announcements: dto.NewAnnouncementResponseSlice(announcements),
		AsOf:          s.now().UTC(),
	}

	if s.cache != nil && len(degraded) == 0 {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.liveTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store live board cache")
			}
		}
	}

	return response, degraded, nil
}

func (s *adminDashboardService) CreateSchedule(ctx context.Context, token string, req dto.ScheduleCreateRequest) (dto.ScheduleResponse, error) {
	record, err := s.upstream.CreateSchedule(ctx, token, classtrack.ScheduleCreate{
		ClassID:    req.ClassID,
		StartTime:  req.StartTime.UTC().Format(time.RFC3339),
		EndTime:    req.EndTime.UTC().Format(time.RFC3339),
		RoomNumber: req.RoomNumber,
		Status:     req.Status,
	})
	if err != nil {
		return dto.ScheduleResponse{}, err
	}

	s.invalidateBoards(ctx)
	return dto.NewScheduleResponse(s.normalize.Schedule(record)), nil
}

func (s *adminDashboardService) CreateAnnouncement(ctx context.Context, token string, req dto.AnnouncementCreateRequest) (dto.AnnouncementResponse, error) {
	record, err := s.upstream.CreateAnnouncement(ctx, token, classtrack.AnnouncementCreate{
		Title:    req.Title,
		Content:  req.Content,
		IsUrgent: req.IsUrgent,
	})
	if err != nil {
		return dto.AnnouncementResponse{}, err
	}

	s.invalidateBoards(ctx)
	return dto.NewAnnouncementResponse(s.normalize.Announcement(record)), nil
}

// invalidateBoards drops the dashboard and live board caches after a create
// so the new entry is visible immediately.
func (s *adminDashboardService) invalidateBoards(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, "portal:admin:dashboard", "portal:admin:live").Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate admin caches")
	}
}
