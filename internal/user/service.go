package user

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/safebank/banking/internal/audit"
	"github.com/safebank/banking/internal/auth"
)

// AgentRegistrar is the capability the admin surface borrows from the
// auth service so it never touches password hashing itself.
type AgentRegistrar interface {
	RegisterWithRole(ctx context.Context, dto auth.RegisterDTO, roleName string, mustChange bool) (*auth.User, error)
}

// Service is the admin user-management surface.
type Service struct {
	repo      Repository
	registrar AgentRegistrar
	engine    *auth.Engine
	recorder  audit.Recorder
	logger    *slog.Logger
}

func NewService(repo Repository, registrar AgentRegistrar, engine *auth.Engine, recorder audit.Recorder, logger *slog.Logger) *Service {
	if recorder == nil {
		recorder = audit.NopRecorder{}
	}
	return &Service{
		repo:      repo,
		registrar: registrar,
		engine:    engine,
		recorder:  recorder,
		logger:    logger,
	}
}

// Me returns the caller's stored profile with current roles and
// permissions. The token stays the authority for authorization; this
// view is advisory.
func (s *Service) Me(ctx context.Context, caller *auth.User) (*Profile, error) {
	return s.repo.GetByID(ctx, caller.ID)
}

// Edit applies a partial update to another user: role grants and
// revocations, activation, profile fields.
func (s *Service) Edit(ctx context.Context, caller *auth.User, dto EditUserDTO) (*Profile, error) {
	if !s.engine.HasPermission(caller.Permissions, auth.PermUsersEdit) {
		s.record(caller, "edit_user", strconv.FormatInt(dto.UserID, 10), audit.StatusFailure, "permission denied")
		return nil, auth.ErrPermissionDenied
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetByID(ctx, dto.UserID); err != nil {
		return nil, err
	}

	if len(dto.RolesToAdd) > 0 || len(dto.RolesToRemove) > 0 {
		if err := s.repo.UpdateRoles(ctx, dto.UserID, dto.RolesToAdd, dto.RolesToRemove); err != nil {
			s.record(caller, "edit_user", strconv.FormatInt(dto.UserID, 10), audit.StatusError, err.Error())
			return nil, err
		}
	}
	if dto.IsActive != nil {
		if err := s.repo.SetActive(ctx, dto.UserID, *dto.IsActive); err != nil {
			s.record(caller, "edit_user", strconv.FormatInt(dto.UserID, 10), audit.StatusError, err.Error())
			return nil, err
		}
	}
	if dto.FullName != nil || dto.Phone != nil {
		if err := s.repo.UpdateProfile(ctx, dto.UserID, dto.FullName, dto.Phone); err != nil {
			s.record(caller, "edit_user", strconv.FormatInt(dto.UserID, 10), audit.StatusError, err.Error())
			return nil, err
		}
	}

	updated, err := s.repo.GetByID(ctx, dto.UserID)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user edited",
		"user_id", dto.UserID,
		"edited_by", caller.ID,
		"roles_added", dto.RolesToAdd,
		"roles_removed", dto.RolesToRemove)
	s.record(caller, "edit_user", strconv.FormatInt(dto.UserID, 10), audit.StatusSuccess, "")
	return updated, nil
}

// CreateSupportAgent provisions an agent account that must rotate its
// password on first login.
func (s *Service) CreateSupportAgent(ctx context.Context, caller *auth.User, dto CreateSupportAgentDTO) (*auth.User, error) {
	if !s.engine.HasPermission(caller.Permissions, auth.PermUsersEdit) {
		s.record(caller, "create_support_agent", "", audit.StatusFailure, "permission denied")
		return nil, auth.ErrPermissionDenied
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	created, err := s.registrar.RegisterWithRole(ctx, auth.RegisterDTO{
		Email:    dto.Email,
		FullName: dto.FullName,
		Phone:    dto.Phone,
		Password: dto.Password,
	}, "support_agent", true)
	if err != nil {
		s.record(caller, "create_support_agent", "", audit.StatusError, err.Error())
		return nil, err
	}

	s.record(caller, "create_support_agent", strconv.FormatInt(created.ID, 10), audit.StatusSuccess, dto.Email)
	return created, nil
}

// List pages through all users; any-scope view.
func (s *Service) List(ctx context.Context, caller *auth.User, limit, offset int) ([]*Profile, error) {
	if !s.engine.HasPermission(caller.Permissions, auth.PermUsersEdit) {
		return nil, auth.ErrPermissionDenied
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) record(caller *auth.User, action, resourceID, status, detail string) {
	entry := audit.Entry{
		Service:      audit.ServiceAdmin,
		Action:       action,
		ResourceType: "user",
		ResourceID:   resourceID,
		Status:       status,
		Details:      detail,
		Timestamp:    time.Now(),
	}
	if caller != nil {
		id := caller.ID
		entry.UserID = &id
		entry.UserEmail = caller.Email
		if len(caller.Roles) > 0 {
			entry.UserRole = caller.Roles[0]
		}
	}
	s.recorder.Record(entry)
}
