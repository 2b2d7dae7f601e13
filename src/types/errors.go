package types

import "errors"

// Purchase lifecycle errors. Handlers pick status codes with errors.Is so
// webhook code can swallow-and-acknowledge without string matching.
var (
	ErrValidation                    = errors.New("invalid request")
	ErrNotFound                      = errors.New("record not found")
	ErrForbidden                     = errors.New("not the owner of this record")
	ErrAlreadyPurchased              = errors.New("offering has already been purchased")
	ErrFreeOfferingNotPurchasable    = errors.New("free offerings cannot be purchased")
	ErrCapacityExceeded              = errors.New("no class representative slots left")
	ErrCannotModifyCompletedPurchase = errors.New("completed purchases cannot be modified")
	ErrCannotRetryCompletedPurchase  = errors.New("completed purchases cannot be retried")
	ErrInvalidState                  = errors.New("operation not allowed in current status")
	ErrExternalService               = errors.New("payment provider request failed")
)
