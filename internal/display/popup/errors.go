package popup

import "errors"

// ErrInvalidColor is returned for theme colours that are not hex triplets.
var ErrInvalidColor = errors.New("popup: invalid color")
