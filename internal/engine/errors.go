package engine

import (
	"errors"
	"log/slog"

	"github.com/roach88/shoal/internal/protocol"
	"github.com/roach88/shoal/internal/schema"
	"github.com/roach88/shoal/internal/storage"
)

// errorEnvelope converts a failed action into its single error reply.
func (e *Engine) errorEnvelope(sessionID, requestID string, err error) []protocol.Envelope {
	return []protocol.Envelope{{SessionID: sessionID, Message: classify(requestID, err)}}
}

// classify maps typed errors from the schema and storage layers onto
// wire error codes. Uses errors.As to handle wrapped errors.
//
// Anything unrecognized is reported as INTERNAL with a generic
// message; the real error goes to the log, never onto the wire.
func classify(requestID string, err error) protocol.Error {
	var violation *schema.ViolationError
	if errors.As(err, &violation) {
		return protocol.NewError(requestID, protocol.CodeSchemaViolation, violation.Message, map[string]string{
			"table": violation.Table,
			"field": violation.Field,
		})
	}

	var storeErr *storage.Error
	if errors.As(err, &storeErr) {
		details := make(map[string]string)
		if storeErr.Table != "" {
			details["table"] = storeErr.Table
		}
		if storeErr.ID != "" {
			details["id"] = storeErr.ID
		}
		if len(details) == 0 {
			details = nil
		}

		switch storeErr.Kind {
		case storage.KindDocumentNotFound:
			return protocol.NewError(requestID, protocol.CodeNotFound, storeErr.Message, details)
		case storage.KindTableNotFound, storage.KindTableExists:
			return protocol.NewError(requestID, protocol.CodeBadRequest, storeErr.Message, details)
		}
	}

	slog.Error("internal error", "error", err)
	return protocol.NewError(requestID, protocol.CodeInternal, "internal error", nil)
}
