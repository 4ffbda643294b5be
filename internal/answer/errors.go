package answer

import "errors"

// ErrNoResults means retrieval found nothing to ground an answer on.
var ErrNoResults = errors.New("no documents retrieved")
