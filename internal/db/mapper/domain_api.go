package mapper

import (
	"net/http"

	"github.com/admbtski/miglee-sub001/internal/domain"
)

// HTTPStatusFromDomainError maps domain errors to HTTP status codes.
func HTTPStatusFromDomainError(err error) int {
	switch domain.KindOf(err) {
	case domain.KindNotAuthenticated:
		return http.StatusUnauthorized
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindGroupReadOnly, domain.KindCapacityReached, domain.KindLockedAfterStart,
		domain.KindBadTransition, domain.KindConflict:
		return http.StatusConflict
	case domain.KindInvalidTarget:
		return http.StatusUnprocessableEntity
	case domain.KindInvalidArgument:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
