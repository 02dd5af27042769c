package service

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/Organisation-de-merge/backend-cesizen/internal/models"
	appErrors "github.com/Organisation-de-merge/backend-cesizen/pkg/errors"
)

type auditRecorder interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// internalError keeps typed errors raised below the service (constraint
// violations mapped by the repository) and wraps everything else as internal.
func internalError(err error, message string) error {
	var typed *appErrors.Error
	if errors.As(err, &typed) {
		return typed
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func validationError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

func auditPayload(v interface{}) []byte {
	payload, _ := json.Marshal(v)
	return payload
}

// recordAudit writes an audit entry; failures are logged and never surface to the caller.
func recordAudit(ctx context.Context, recorder auditRecorder, logger *zap.Logger, entry *models.AuditLog) {
	if recorder == nil {
		return
	}
	if err := recorder.CreateAuditLog(ctx, entry); err != nil {
		logger.Warn("failed to record audit log", zap.String("action", entry.Action), zap.Error(err))
	}
}

func actorRef(meta models.RequestMeta) *int64 {
	if meta.ActorID == 0 {
		return nil
	}
	id := meta.ActorID
	return &id
}
