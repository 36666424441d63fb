package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"recording-pipeline/internal/auth"
	"recording-pipeline/internal/calls"
	"recording-pipeline/internal/pbx"
	"recording-pipeline/internal/recording"
	"recording-pipeline/internal/transcription"
	"recording-pipeline/pkg/logger"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Recordings *recording.Service
	Callbacks  *transcription.Processor
	Calls      calls.Repository
	Accounts   pbx.AccountRepository
}

// --- PBX ingestion ---

type ingestRecordingRequest struct {
	CompanyID         int64  `json:"company_id"`
	PBXProviderID     int64  `json:"pbx_provider_id"`
	CallID            int64  `json:"call_id"`
	IdempotencyKey    string `json:"idempotency_key"`
	RecordingURL      string `json:"recording_url"`
	RecordingDuration int    `json:"recording_duration"`
	Codec             string `json:"codec"`
	StorageProvider   string `json:"storage_provider"`
	StoragePath       string `json:"storage_path"`
	FileSize          int64  `json:"file_size"`
}

func (r ingestRecordingRequest) validate() string {
	switch {
	case r.CompanyID <= 0:
		return "company_id required"
	case r.PBXProviderID <= 0:
		return "pbx_provider_id required"
	case r.CallID <= 0:
		return "call_id required"
	case r.RecordingURL == "":
		return "recording_url required"
	case len(r.RecordingURL) > 2048:
		return "recording_url too long"
	case len(r.IdempotencyKey) > 255:
		return "idempotency_key too long"
	case len(r.StoragePath) > 2048:
		return "storage_path too long"
	case r.RecordingDuration < 0:
		return "recording_duration must be >= 0"
	case r.FileSize < 0:
		return "file_size must be >= 0"
	}
	return ""
}

// IngestRecording accepts one PBX recording notification.
//
// Boundary checks happen here, before the service runs: the call must exist
// (404), belong to the stated company, and its owning account must belong to
// the stated provider (422 on either mismatch). Nothing is written before
// these pass.
func (h Handlers) IngestRecording(c *gin.Context) {
	log := logger.FromGin(c)

	var req ingestRecordingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if msg := req.validate(); msg != "" {
		log.Warn("ingest rejected", "reason", msg, "call_id", req.CallID, "company_id", req.CompanyID)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	call, ok, err := h.Calls.FindByID(c.Request.Context(), req.CallID)
	if err != nil {
		log.Error("call lookup failed", "call_id", req.CallID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "call not found"})
		return
	}
	if call.CompanyID != req.CompanyID {
		log.Warn("ingest cross-company rejected", "call_id", req.CallID, "company_id", req.CompanyID, "call_company_id", call.CompanyID)
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": "call does not belong to company"})
		return
	}

	acct, ok, err := h.Accounts.FindAccount(c.Request.Context(), call.PBXAccountID)
	if err != nil {
		log.Error("account lookup failed", "account_id", call.PBXAccountID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if !ok || acct.PBXProviderID != req.PBXProviderID {
		log.Warn("ingest provider mismatch rejected", "call_id", req.CallID, "pbx_provider_id", req.PBXProviderID)
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": "call does not belong to provider"})
		return
	}

	rec, created, err := h.Recordings.Ingest(c.Request.Context(), recording.IngestRequest{
		CompanyID:       req.CompanyID,
		PBXProviderID:   req.PBXProviderID,
		CallID:          req.CallID,
		IdempotencyKey:  req.IdempotencyKey,
		RecordingURL:    req.RecordingURL,
		Codec:           req.Codec,
		DurationSeconds: req.RecordingDuration,
		StorageProvider: req.StorageProvider,
		StoragePath:     req.StoragePath,
		FileSizeBytes:   req.FileSize,
	})
	if err != nil {
		var ite *recording.InvalidTransitionError
		switch {
		case errors.As(err, &ite):
			log.Warn("ingest transition conflict", "call_id", req.CallID, "from", string(ite.From), "to", string(ite.To))
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{
				"error": "invalid recording state transition",
				"from":  string(ite.From),
				"to":    string(ite.To),
			})
		case errors.Is(err, recording.ErrInvalidArgument):
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		default:
			log.Error("ingest failed", "call_id", req.CallID, "err", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{
		"success":      true,
		"recording_id": rec.ID,
		"status":       string(rec.Status),
	})
}

// --- Transcription callback ---

// TranscriptionCallback processes one provider callback delivery. The body
// is read raw; signature verification inside the processor happens before
// any parsing.
func (h Handlers) TranscriptionCallback(c *gin.Context) {
	log := logger.FromGin(c)

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	sig := c.GetHeader("X-Signature")
	if sig == "" {
		sig = c.GetHeader("X-Hub-Signature-256")
	}

	res, err := h.Callbacks.Handle(c.Request.Context(), body, sig)
	if err != nil {
		switch {
		case errors.Is(err, transcription.ErrMissingSecret):
			log.Error("callback secret not configured")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "server misconfiguration"})
		case transcription.IsAuthError(err):
			log.Warn("callback rejected", "reason", "signature")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		case transcription.IsClientError(err):
			log.Warn("callback rejected", "reason", err.Error())
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			// Identifiers only; payload contents stay out of the logs.
			log.Error("callback merge failed", "err", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	c.JSON(http.StatusOK, res)
}

// --- Operational read API (JWT-protected) ---

func (h Handlers) GetRecording(c *gin.Context) {
	companyID, err := auth.CompanyID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "company_id required"})
		return
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid recording id"})
		return
	}

	rec, err := h.Recordings.Get(c.Request.Context(), companyID, id)
	if err != nil {
		if errors.Is(err, recording.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "recording not found"})
			return
		}
		logger.FromGin(c).Error("recording lookup failed", "recording_id", id, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h Handlers) ListCallRecordings(c *gin.Context) {
	companyID, err := auth.CompanyID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "company_id required"})
		return
	}
	callID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || callID <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid call id"})
		return
	}

	rows, err := h.Recordings.ListForCall(c.Request.Context(), companyID, callID)
	if err != nil {
		logger.FromGin(c).Error("recordings list failed", "call_id", callID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"recordings": rows})
}
