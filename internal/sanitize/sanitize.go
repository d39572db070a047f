// Package sanitize implements the Sanitizer (C5) from spec.md §4.5: two
// cross-axis invariant rules applied once per frame, after all stage
// operations and before emission. Rule order is observable and pinned by
// tests, not just documentation.
package sanitize

import (
	"github.com/tabletd/tabletd/internal/evdev"
	"github.com/tabletd/tabletd/internal/frame"
)

// Run applies the sanitizer rules to st in the fixed order spec.md §4.5
// requires, grounded on original_source/src/evdev-tablet.c's
// sanitize_tablet_axes.
func Run(st *frame.State) {
	distanceChanged := st.Changed.Test(evdev.ABS_DISTANCE)
	pressureChanged := st.Changed.Test(evdev.ABS_PRESSURE)

	// Rule 1: distance/pressure mutual exclusion. Pressure wins because
	// contact is closer to ground truth.
	if distanceChanged && pressureChanged &&
		st.Current.AxisRaw[evdev.ABS_DISTANCE] != 0 &&
		st.Current.AxisRaw[evdev.ABS_PRESSURE] != 0 {
		st.Changed.Clear(evdev.ABS_DISTANCE)
	} else if pressureChanged && !st.Status.Has(frame.StylusInContact) {
		// Rule 2: pressure gating. Discards hardware noise below the
		// contact threshold. Only reached when rule 1 didn't already act,
		// matching the original's if/else-if chain exactly.
		st.Changed.Clear(evdev.ABS_PRESSURE)
	}
}
