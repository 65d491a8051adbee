package policy

import "errors"

// ErrBudgetTooSmall indicates a budget below one zone per populated class.
var ErrBudgetTooSmall = errors.New("policy: zone budget smaller than the number of populated size classes")
