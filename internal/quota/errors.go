package quota

import "errors"

// ErrQuotaEnforcement wraps failures while evicting or inserting records.
var ErrQuotaEnforcement = errors.New("quota enforcement failed")
