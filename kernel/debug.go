package kernel

// debugAssertions gates invariant checks that are too expensive (or
// simply pointless) to pay for in every build. The original kernel's
// reason for skipping runtime validation was cycles and flash on an
// 8-bit core; ported to a regular OS process the cost is negligible,
// but the checks stay optional and off by default so the hot paths
// measured against the original stay representative.
//
// Mirrors internal/task.asserts in tinygo's embedded Go runtime.
const debugAssertions = false
