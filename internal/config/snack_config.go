package config

import "time"

// Tuning knobs for the snack subsystem.
const (
	// Scoring weights. Tag similarity dominates; the topic bonus sits on
	// top of the base 1.0 and is intentionally not capped.
	TagWeight      = 0.6
	DurationWeight = 0.2
	LocationWeight = 0.2
	TopicBonus     = 0.1

	// A best score below this falls back to the newest waiting candidate.
	MatchThreshold = 0.3

	// Each extension adds exactly this much to duration and expiry.
	ExtensionIncrement = 10 * time.Minute

	MaxTags          = 5
	MaxMessageLength = 500
	MinRating        = 1
	MaxRating        = 5

	// Expiry sweep cadence.
	SweepInterval = 30 * time.Second

	// A user reported by this many distinct reporters within the window is
	// suspended from matching until an operator clears the flag.
	SuspendReportThreshold = 5
	SuspendReportWindow    = 7 * 24 * time.Hour
)

// ValidDurations are the accepted request lengths in minutes.
var ValidDurations = []int{10, 15, 30}
