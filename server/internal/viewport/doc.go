// Package viewport implements the interactive zoom window over one channel of
// an already-processed recording.
//
// An Engine owns the view state of a single visualization session: the
// current zoom Domain (nil while showing the full extent) and an in-progress
// drag Gesture. Chart events map onto three operations:
//
//	ApplyBrushSelection(start, end)   brush control moved to an index range
//	Begin/Update/EndDragSelection(t)  drag-to-select on the time axis
//	Reset()                           back to the full extent
//
// Every operation is total. Empty series, invalid indices, reversed drags and
// flat signals degrade to safe defaults instead of failing. The Engine is not
// safe for concurrent use; callers serialise access per session.
//
// GridLines produces the decorative grid positions for either axis as a
// restartable iter.Seq; the Engine memoises the grid bounds per domain.
//
// Stride, Resample and Scale prepare the display series once per dataset
// load: a fixed linear unit conversion (seconds to milliseconds, volts to
// millivolts) followed by deterministic decimation that keeps sample 0 and
// every k-th sample after it.
package viewport
