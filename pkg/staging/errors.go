package staging

import "errors"

// ErrNoStore is returned when a pipeline is built without a storage handle.
var ErrNoStore = errors.New("staging pipeline requires a store")
