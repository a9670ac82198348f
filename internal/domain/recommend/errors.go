package recommend

import "errors"

// ErrDerivationPanic wraps a panic recovered from one player's derivation.
var ErrDerivationPanic = errors.New("derivation panicked")
