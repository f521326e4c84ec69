// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/pinguard/pinguard/internal/access"
	"github.com/pinguard/pinguard/internal/accesslog"
	"github.com/pinguard/pinguard/internal/apperror"
	"github.com/pinguard/pinguard/internal/cache"
	"github.com/pinguard/pinguard/internal/metrics"
	"github.com/pinguard/pinguard/internal/model"
	"github.com/pinguard/pinguard/internal/repository"
)

// Cache namespaces.
const (
	NamespaceRegistrations = "registrations"
	NamespaceAccess        = "access-validation"
)

// Default cache TTLs per namespace.
const (
	DefaultRegistrationsTTL = 120 * time.Second
	DefaultAccessTTL        = 60 * time.Second
)

const keyLockStripes = 64

// Options configures a RegistrationService. Zero values disable the
// corresponding cache namespace, or select no-op collaborators.
type Options struct {
	RegistrationsTTL time.Duration
	AccessTTL        time.Duration
	Evaluator        *access.Evaluator
	Cache            *cache.ResultCache
	AccessLog        accesslog.Sink
	Metrics          metrics.Recorder
	Logger           *slog.Logger
}

// DefaultOptions returns the default TTLs with an any-window evaluator.
func DefaultOptions() Options {
	return Options{
		RegistrationsTTL: DefaultRegistrationsTTL,
		AccessTTL:        DefaultAccessTTL,
		Evaluator:        access.NewEvaluator(access.PolicyAnyWindow),
	}
}

// RegistrationService combines door validation, registration storage, access
// evaluation and result caching.
type RegistrationService struct {
	store     repository.RegistrationStore
	doors     repository.DoorDirectory
	evaluator *access.Evaluator
	cache     *cache.ResultCache
	accessLog accesslog.Sink
	metrics   metrics.Recorder
	logger    *slog.Logger

	registrationsTTL time.Duration
	accessTTL        time.Duration

	keyLocks [keyLockStripes]sync.Mutex
}

// NewRegistrationService creates a new RegistrationService.
func NewRegistrationService(store repository.RegistrationStore, doors repository.DoorDirectory, opts Options) *RegistrationService {
	if opts.Evaluator == nil {
		opts.Evaluator = access.NewEvaluator(access.PolicyAnyWindow)
	}
	if opts.Cache == nil {
		opts.Cache = cache.NewDisabled()
	}
	if opts.AccessLog == nil {
		opts.AccessLog = accesslog.Noop{}
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewNoop()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &RegistrationService{
		store:            store,
		doors:            doors,
		evaluator:        opts.Evaluator,
		cache:            opts.Cache,
		accessLog:        opts.AccessLog,
		metrics:          opts.Metrics,
		logger:           opts.Logger.With("component", "registration_service"),
		registrationsTTL: opts.RegistrationsTTL,
		accessTTL:        opts.AccessTTL,
	}
}

// RegisterInput defines input for registering a PIN code.
type RegisterInput struct {
	OwnerID      string
	PinCode      string
	DoorIDs      []string
	Restrictions []model.AccessRestriction
}

// UpdateInput defines input for updating a registration. A nil DoorIDs or
// Restrictions keeps the stored value; a non-nil slice replaces it wholesale.
type UpdateInput struct {
	OwnerID      string
	PinCode      string
	DoorIDs      []string
	Restrictions []model.AccessRestriction
}

// Register validates the input and upserts the registration.
func (s *RegistrationService) Register(ctx context.Context, input RegisterInput) (*model.Registration, error) {
	doorIDs := model.NormalizeDoorIDs(input.DoorIDs)

	if err := validateShape(input.OwnerID, input.PinCode, doorIDs, input.Restrictions); err != nil {
		return nil, err
	}
	if err := s.validateDoors(ctx, doorIDs); err != nil {
		return nil, err
	}

	unlock := s.lockKey(input.OwnerID, input.PinCode)
	saved, err := s.store.SaveRegistration(ctx, &model.Registration{
		OwnerID:      input.OwnerID,
		PinCode:      input.PinCode,
		DoorIDs:      doorIDs,
		Restrictions: model.CloneRestrictions(input.Restrictions),
	})
	unlock()
	if err != nil {
		return nil, apperror.Internal("failed to save registration", err)
	}

	s.invalidate(ctx)

	if saved.UpdatedAt.After(saved.CreatedAt) {
		s.metrics.IncRegistrationUpdated()
	} else {
		s.metrics.IncRegistrationCreated()
	}
	s.logger.Info("pin code registered",
		"owner_id", saved.OwnerID,
		"pin", model.MaskPinCode(saved.PinCode),
		"door_ids", saved.DoorIDs,
		"restrictions", len(saved.Restrictions),
	)

	return saved, nil
}

// Update replaces the door list and/or restriction list of an existing registration.
func (s *RegistrationService) Update(ctx context.Context, input UpdateInput) (*model.Registration, error) {
	var doorIDs []string
	if input.DoorIDs != nil {
		doorIDs = model.NormalizeDoorIDs(input.DoorIDs)
	}

	if details := validateKey(input.OwnerID, input.PinCode); len(details) > 0 {
		return nil, apperror.Validation("invalid registration", details...)
	}
	if input.DoorIDs != nil && len(doorIDs) == 0 {
		return nil, apperror.Validation("invalid registration", "at least one door id is required")
	}
	if details := validateRestrictions(input.Restrictions); len(details) > 0 {
		return nil, apperror.Validation("invalid registration", details...)
	}

	unlock := s.lockKey(input.OwnerID, input.PinCode)
	defer unlock()

	existing, ok, err := s.store.GetRegistration(ctx, input.OwnerID, input.PinCode)
	if err != nil {
		return nil, apperror.Internal("failed to load registration", err)
	}
	if !ok {
		return nil, notFound(input.OwnerID, input.PinCode)
	}

	if doorIDs != nil {
		if err := s.validateDoors(ctx, doorIDs); err != nil {
			return nil, err
		}
		existing.DoorIDs = doorIDs
	}
	if input.Restrictions != nil {
		existing.Restrictions = model.CloneRestrictions(input.Restrictions)
	}

	saved, err := s.store.SaveRegistration(ctx, existing)
	if err != nil {
		return nil, apperror.Internal("failed to save registration", err)
	}

	s.invalidate(ctx)

	s.metrics.IncRegistrationUpdated()
	s.logger.Info("pin code updated",
		"owner_id", saved.OwnerID,
		"pin", model.MaskPinCode(saved.PinCode),
		"door_ids", saved.DoorIDs,
		"restrictions", len(saved.Restrictions),
	)

	return saved, nil
}

// Revoke hard-deletes a registration.
func (s *RegistrationService) Revoke(ctx context.Context, ownerID, pinCode string) error {
	if details := validateKey(ownerID, pinCode); len(details) > 0 {
		return apperror.Validation("invalid registration", details...)
	}

	unlock := s.lockKey(ownerID, pinCode)
	err := s.store.DeleteRegistration(ctx, ownerID, pinCode)
	unlock()
	if err != nil {
		if errors.Is(err, repository.ErrRegistrationNotFound) {
			return notFound(ownerID, pinCode)
		}
		return apperror.Internal("failed to delete registration", err)
	}

	s.invalidate(ctx)

	s.metrics.IncRegistrationRevoked()
	s.logger.Info("pin code revoked", "owner_id", ownerID, "pin", model.MaskPinCode(pinCode))

	return nil
}

// CheckAccess reports whether the owner's PIN opens doorID at instant at.
// An unknown (owner, pin) pair yields false, never an error.
func (s *RegistrationService) CheckAccess(ctx context.Context, ownerID, pinCode, doorID string, at time.Time) (bool, error) {
	start := time.Now()
	at = at.UTC()

	granted, err := cache.Cached(ctx, s.cache, NamespaceAccess, s.accessTTL,
		func(ctx context.Context) (bool, error) {
			reg, ok, err := s.store.GetRegistration(ctx, ownerID, pinCode)
			if err != nil {
				return false, apperror.Internal("failed to load registration", err)
			}
			if !ok {
				return false, nil
			}
			return s.evaluator.IsAuthorized(reg, doorID, at), nil
		},
		"CheckAccess", ownerID, pinCode, doorID, at,
	)
	if err != nil {
		return false, err
	}

	s.recordDecision(metrics.EntryPointOwner, doorID, ownerID, granted, at, start)
	return granted, nil
}

type doorDecision struct {
	Granted bool   `json:"granted"`
	OwnerID string `json:"ownerId,omitempty"`
}

// ValidateAccess is the door-side check: it resolves the PIN across all owners
// and evaluates the earliest registration carrying it.
func (s *RegistrationService) ValidateAccess(ctx context.Context, doorID, pinCode string, at time.Time) (bool, error) {
	start := time.Now()
	at = at.UTC()

	decision, err := cache.Cached(ctx, s.cache, NamespaceAccess, s.accessTTL,
		func(ctx context.Context) (doorDecision, error) {
			reg, ok, err := s.store.FindRegistrationByPinCode(ctx, pinCode)
			if err != nil {
				return doorDecision{}, apperror.Internal("failed to find registration", err)
			}
			if !ok {
				return doorDecision{}, nil
			}
			return doorDecision{
				Granted: s.evaluator.IsAuthorized(reg, doorID, at),
				OwnerID: reg.OwnerID,
			}, nil
		},
		"ValidateAccess", doorID, pinCode, at,
	)
	if err != nil {
		return false, err
	}

	s.recordDecision(metrics.EntryPointDoor, doorID, decision.OwnerID, decision.Granted, at, start)
	return decision.Granted, nil
}

// ListAll returns every registration.
func (s *RegistrationService) ListAll(ctx context.Context) ([]*model.Registration, error) {
	return cache.Cached(ctx, s.cache, NamespaceRegistrations, s.registrationsTTL,
		func(ctx context.Context) ([]*model.Registration, error) {
			regs, err := s.store.ListRegistrations(ctx)
			if err != nil {
				return nil, apperror.Internal("failed to list registrations", err)
			}
			return regs, nil
		},
		"ListAll",
	)
}

// ListForOwner returns one owner's registrations; an unknown owner yields an empty list.
func (s *RegistrationService) ListForOwner(ctx context.Context, ownerID string) ([]*model.Registration, error) {
	return cache.Cached(ctx, s.cache, NamespaceRegistrations, s.registrationsTTL,
		func(ctx context.Context) ([]*model.Registration, error) {
			regs, err := s.store.ListRegistrationsForOwner(ctx, ownerID)
			if err != nil {
				return nil, apperror.Internal("failed to list registrations", err)
			}
			return regs, nil
		},
		"ListForOwner", ownerID,
	)
}

// ListDoors returns the door directory.
func (s *RegistrationService) ListDoors(ctx context.Context) ([]model.Door, error) {
	doors, err := s.doors.ListDoors(ctx)
	if err != nil {
		return nil, apperror.Internal("failed to list doors", err)
	}
	return doors, nil
}

func (s *RegistrationService) validateDoors(ctx context.Context, doorIDs []string) error {
	missing, err := repository.MissingDoors(ctx, s.doors, doorIDs)
	if err != nil {
		return apperror.Internal("failed to validate doors", err)
	}
	if len(missing) > 0 {
		return apperror.Validation("unknown door ids", missing...)
	}
	return nil
}

// invalidate runs after every successful write. A failure leaves the namespace
// bypassed by the cache, so it is logged and not returned: the write itself succeeded.
func (s *RegistrationService) invalidate(ctx context.Context) {
	for _, ns := range []string{NamespaceRegistrations, NamespaceAccess} {
		if err := s.cache.Invalidate(ctx, ns); err != nil {
			s.logger.Error("failed to invalidate cache namespace", "namespace", ns, "error", err)
		}
	}
}

func (s *RegistrationService) recordDecision(entryPoint, doorID, ownerID string, granted bool, at, start time.Time) {
	s.metrics.IncAccessDecision(entryPoint, granted)
	s.metrics.ObserveAccessCheckDuration(entryPoint, time.Since(start))
	s.accessLog.Record(accesslog.NewEvent(entryPoint, doorID, ownerID, granted, at))

	s.logger.Debug("access evaluated",
		"entry_point", entryPoint,
		"door_id", doorID,
		"granted", granted,
		"at", at,
	)
}

// lockKey serializes read-modify-write sequences on one (owner, pin) key.
func (s *RegistrationService) lockKey(ownerID, pinCode string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(ownerID))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(pinCode))

	mu := &s.keyLocks[h.Sum32()%keyLockStripes]
	mu.Lock()
	return mu.Unlock
}

func notFound(ownerID, pinCode string) error {
	return apperror.NotFound(fmt.Sprintf("no registration found for PIN code %s, user %s", pinCode, ownerID))
}
