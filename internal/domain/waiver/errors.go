package waiver

import "errors"

// ErrOwnershipConflict is raised by a roster repository when a player is
// concurrently acquired by a roster with no claim in the current run. The
// processor catches it; it never escapes ProcessLeagueClaims.
var ErrOwnershipConflict = errors.New("player already owned by another roster")
