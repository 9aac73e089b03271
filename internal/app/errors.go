package app

import (
	"errors"
	"net/http"

	"memopad/internal/export"
	"memopad/internal/registry"
	"memopad/internal/store"
	"memopad/internal/web"
)

var (
	errHistoryUnavailable = web.NewError(http.StatusNotImplemented, "HISTORY_UNAVAILABLE", "Memo history needs the git store", nil)
	errUnknownFormat      = web.NewError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "action must be one of bold, italic, link, indent, outdent", nil)
)

func mapError(err error) (status int, code, message string, details any) {
	switch {
	case errors.Is(err, registry.ErrNotFound):
		return http.StatusNotFound, "TAB_NOT_FOUND", "Tab not found", nil
	case errors.Is(err, export.ErrUnsupportedFormat):
		return http.StatusBadRequest, "UNSUPPORTED_FORMAT", err.Error(), nil
	case errors.Is(err, export.ErrPDFDependencyMissing), errors.Is(err, export.ErrDOCXDependencyMissing):
		return http.StatusNotImplemented, "EXPORT_UNAVAILABLE", err.Error(), nil
	case errors.Is(err, store.ErrQuotaExceeded):
		return http.StatusInsufficientStorage, "STORAGE_FULL", "Storage quota exceeded", nil
	}
	return web.MapError(err)
}

func writeDomainError(w http.ResponseWriter, err error) {
	status, code, message, details := mapError(err)
	web.WriteError(w, status, code, message, details)
}
