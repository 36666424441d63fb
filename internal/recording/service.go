package recording

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Repository abstracts call-recording persistence.
//
// Implementations must honor the (call_id, pbx_provider_id, idempotency_key)
// uniqueness invariant; Create surfaces a violation as an error rather than
// writing a duplicate row.
type Repository interface {
	FindByID(ctx context.Context, id int64) (CallRecording, bool, error)
	FindByCallAndKey(ctx context.Context, callID, providerID int64, key string) (CallRecording, bool, error)
	FindMostRecentByCall(ctx context.Context, callID int64) (CallRecording, bool, error)
	ListByCall(ctx context.Context, callID int64) ([]CallRecording, error)
	Create(ctx context.Context, rec CallRecording) (CallRecording, error)
	UpdateStatus(ctx context.Context, id int64, status Status, errorMessage string, now time.Time) error
}

var (
	ErrNotFound        = errors.New("recording not found")
	ErrInvalidArgument = errors.New("invalid argument")
)

// Service creates call recordings from inbound PBX notifications and drives
// them to queued.
//
// Preconditions enforced by the HTTP boundary, not here: the referenced call
// exists, belongs to the stated company, and its owning PBX account belongs
// to the stated provider.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

// IngestRequest is one validated PBX recording notification.
type IngestRequest struct {
	CompanyID     int64
	PBXProviderID int64
	CallID        int64

	// IdempotencyKey is optional; when absent, any existing recording for the
	// call is treated as the replay target.
	IdempotencyKey string

	RecordingURL    string
	Codec           string
	DurationSeconds int
	StorageProvider string
	StoragePath     string
	FileSizeBytes   int64
}

func (r IngestRequest) validate() error {
	if r.CompanyID <= 0 || r.PBXProviderID <= 0 || r.CallID <= 0 {
		return ErrInvalidArgument
	}
	if r.RecordingURL == "" {
		return ErrInvalidArgument
	}
	if r.DurationSeconds < 0 || r.FileSizeBytes < 0 {
		return ErrInvalidArgument
	}
	return nil
}

// Ingest resolves or creates the CallRecording for one notification.
//
// The boolean result is true when a new row was created. A replay (an
// existing row resolved by idempotency key, or by call alone when no key was
// supplied) returns the existing row unchanged with created=false.
//
// A lifecycle-transition failure aborts the whole operation; nothing is
// persisted for this request in that case.
func (s *Service) Ingest(ctx context.Context, req IngestRequest) (CallRecording, bool, error) {
	if err := req.validate(); err != nil {
		return CallRecording{}, false, err
	}

	if req.IdempotencyKey != "" {
		existing, ok, err := s.repo.FindByCallAndKey(ctx, req.CallID, req.PBXProviderID, req.IdempotencyKey)
		if err != nil {
			return CallRecording{}, false, fmt.Errorf("resolve recording by key: %w", err)
		}
		if ok {
			return existing, false, nil
		}
	} else {
		existing, ok, err := s.repo.FindMostRecentByCall(ctx, req.CallID)
		if err != nil {
			return CallRecording{}, false, fmt.Errorf("resolve recording by call: %w", err)
		}
		if ok {
			return existing, false, nil
		}
	}

	now := s.clock().UTC()
	rec := CallRecording{
		CompanyID:       req.CompanyID,
		PBXProviderID:   req.PBXProviderID,
		CallID:          req.CallID,
		RecordingURL:    req.RecordingURL,
		Codec:           req.Codec,
		DurationSeconds: req.DurationSeconds,
		StorageProvider: req.StorageProvider,
		StoragePath:     req.StoragePath,
		FileSizeBytes:   req.FileSizeBytes,
		IdempotencyKey:  req.IdempotencyKey,
		Status:          StatusUploaded,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	// New recordings are immediately queued for processing. The uploaded ->
	// queued hop still goes through the guarded transition so the table stays
	// the single source of truth; a rejection here is a programming error
	// surfaced as a conflict, not an expected replay outcome.
	if err := Transition(&rec, StatusQueued); err != nil {
		return CallRecording{}, false, err
	}

	created, err := s.repo.Create(ctx, rec)
	if err != nil {
		return CallRecording{}, false, fmt.Errorf("create recording: %w", err)
	}
	return created, true, nil
}

// Get returns one recording scoped to a company.
func (s *Service) Get(ctx context.Context, companyID, id int64) (CallRecording, error) {
	if companyID <= 0 || id <= 0 {
		return CallRecording{}, ErrInvalidArgument
	}
	rec, ok, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return CallRecording{}, err
	}
	if !ok || rec.CompanyID != companyID {
		// Cross-company ids are indistinguishable from unknown ids on purpose.
		return CallRecording{}, ErrNotFound
	}
	return rec, nil
}

// ListForCall returns every recording for a call, scoped to a company.
func (s *Service) ListForCall(ctx context.Context, companyID, callID int64) ([]CallRecording, error) {
	if companyID <= 0 || callID <= 0 {
		return nil, ErrInvalidArgument
	}
	rows, err := s.repo.ListByCall(ctx, callID)
	if err != nil {
		return nil, err
	}
	out := rows[:0]
	for _, r := range rows {
		if r.CompanyID == companyID {
			out = append(out, r)
		}
	}
	return out, nil
}
