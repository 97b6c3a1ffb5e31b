package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"aircon-schedule-backend/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store defines all database operations needed by the scheduling core and
// the API layer. The store is the authoritative state; in-memory timer
// maps are only a cache of intent rebuilt from it at boot.
type Store interface {
	DB() *gorm.DB

	// Scheduled actions.
	CreateAction(ctx context.Context, action *model.ScheduledAction) error
	GetAction(ctx context.Context, id string) (*model.ScheduledAction, error)
	ListActionsByUser(ctx context.Context, userID string) ([]model.ScheduledAction, error)
	ListPendingActions(ctx context.Context) ([]model.ScheduledAction, error)
	// TransitionActionStatus flips status from one value to another and
	// reports whether the guarded update matched a row. A false result
	// means the record was missing or no longer in the expected state,
	// which is how a raced cancellation is observed.
	TransitionActionStatus(ctx context.Context, id string, from, to model.ActionStatus) (bool, error)
	FinishAction(ctx context.Context, id string, status model.ActionStatus, executedAt time.Time, lastError string) error
	PurgeTerminalActions(ctx context.Context, before time.Time) (int64, error)

	// Smart mode configs.
	GetSmartMode(ctx context.Context, userID string) (*model.SmartModeConfig, error)
	UpsertSmartMode(ctx context.Context, cfg *model.SmartModeConfig) error
	UpdateSmartMode(ctx context.Context, userID string, fields map[string]any) error
	ListActiveSmartModes(ctx context.Context) ([]model.SmartModeConfig, error)

	// Weekly schedules.
	GetWeeklySchedule(ctx context.Context, userID string) (*model.WeeklySchedule, error)
	UpsertWeeklySchedule(ctx context.Context, plan *model.WeeklySchedule) error
	ListWeeklySchedules(ctx context.Context) ([]model.WeeklySchedule, error)

	// Vendor credentials.
	GetCredential(ctx context.Context, userID string) (*model.Credential, error)
	PutCredential(ctx context.Context, cred *model.Credential) error
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB { return s.db }

func (s *gormStore) CreateAction(ctx context.Context, action *model.ScheduledAction) error {
	if err := s.db.WithContext(ctx).Create(action).Error; err != nil {
		return fmt.Errorf("create scheduled action: %w", err)
	}
	return nil
}

func (s *gormStore) GetAction(ctx context.Context, id string) (*model.ScheduledAction, error) {
	var action model.ScheduledAction
	err := s.db.WithContext(ctx).First(&action, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get scheduled action %s: %w", id, err)
	}
	return &action, nil
}

func (s *gormStore) ListActionsByUser(ctx context.Context, userID string) ([]model.ScheduledAction, error) {
	var actions []model.ScheduledAction
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("scheduled_at ASC").
		Find(&actions).Error
	if err != nil {
		return nil, fmt.Errorf("list actions for user %s: %w", userID, err)
	}
	return actions, nil
}

func (s *gormStore) ListPendingActions(ctx context.Context) ([]model.ScheduledAction, error) {
	var actions []model.ScheduledAction
	err := s.db.WithContext(ctx).
		Where("status = ?", model.StatusPending).
		Order("scheduled_at ASC").
		Find(&actions).Error
	if err != nil {
		return nil, fmt.Errorf("list pending actions: %w", err)
	}
	return actions, nil
}

func (s *gormStore) TransitionActionStatus(ctx context.Context, id string, from, to model.ActionStatus) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&model.ScheduledAction{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{"status": to, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return false, fmt.Errorf("transition action %s %s->%s: %w", id, from, to, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *gormStore) FinishAction(ctx context.Context, id string, status model.ActionStatus, executedAt time.Time, lastError string) error {
	res := s.db.WithContext(ctx).
		Model(&model.ScheduledAction{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":      status,
			"executed_at": executedAt,
			"last_error":  lastError,
			"updated_at":  time.Now().UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("finish action %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *gormStore) PurgeTerminalActions(ctx context.Context, before time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("status IN ? AND updated_at < ?",
			[]model.ActionStatus{model.StatusCompleted, model.StatusFailed, model.StatusCanceled}, before).
		Delete(&model.ScheduledAction{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge terminal actions: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *gormStore) GetSmartMode(ctx context.Context, userID string) (*model.SmartModeConfig, error) {
	var cfg model.SmartModeConfig
	err := s.db.WithContext(ctx).First(&cfg, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get smart mode for user %s: %w", userID, err)
	}
	return &cfg, nil
}

func (s *gormStore) UpsertSmartMode(ctx context.Context, cfg *model.SmartModeConfig) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"run_minutes", "pause_minutes", "total_minutes", "start_at", "active",
			"remaining_minutes", "phase", "next_at", "started_at", "ends_at", "updated_at",
		}),
	}).Create(cfg).Error
	if err != nil {
		return fmt.Errorf("upsert smart mode for user %s: %w", cfg.UserID, err)
	}
	return nil
}

func (s *gormStore) UpdateSmartMode(ctx context.Context, userID string, fields map[string]any) error {
	fields["updated_at"] = time.Now().UTC()
	res := s.db.WithContext(ctx).
		Model(&model.SmartModeConfig{}).
		Where("user_id = ?", userID).
		Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("update smart mode for user %s: %w", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *gormStore) ListActiveSmartModes(ctx context.Context) ([]model.SmartModeConfig, error) {
	var configs []model.SmartModeConfig
	if err := s.db.WithContext(ctx).Where("active = ?", true).Find(&configs).Error; err != nil {
		return nil, fmt.Errorf("list active smart modes: %w", err)
	}
	return configs, nil
}

func (s *gormStore) GetWeeklySchedule(ctx context.Context, userID string) (*model.WeeklySchedule, error) {
	var plan model.WeeklySchedule
	err := s.db.WithContext(ctx).First(&plan, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get weekly schedule for user %s: %w", userID, err)
	}
	return &plan, nil
}

func (s *gormStore) UpsertWeeklySchedule(ctx context.Context, plan *model.WeeklySchedule) error {
	if err := plan.Slots.Validate(); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"mode", "slots", "updated_at"}),
	}).Create(plan).Error
	if err != nil {
		return fmt.Errorf("upsert weekly schedule for user %s: %w", plan.UserID, err)
	}
	return nil
}

func (s *gormStore) ListWeeklySchedules(ctx context.Context) ([]model.WeeklySchedule, error) {
	var plans []model.WeeklySchedule
	if err := s.db.WithContext(ctx).Find(&plans).Error; err != nil {
		return nil, fmt.Errorf("list weekly schedules: %w", err)
	}
	return plans, nil
}

func (s *gormStore) GetCredential(ctx context.Context, userID string) (*model.Credential, error) {
	var cred model.Credential
	err := s.db.WithContext(ctx).First(&cred, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get credential for user %s: %w", userID, err)
	}
	return &cred, nil
}

func (s *gormStore) PutCredential(ctx context.Context, cred *model.Credential) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"token", "updated_at"}),
	}).Create(cred).Error
	if err != nil {
		return fmt.Errorf("put credential for user %s: %w", cred.UserID, err)
	}
	return nil
}
