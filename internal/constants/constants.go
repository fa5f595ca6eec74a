// Package constants provides named constants used throughout the simulator.
// This centralizes the game's tuning numbers so the engine, fallbacks and
// prompts agree on them.
package constants

// Starting resources for a new game.
const (
	// DefaultInitialBudget is the starting budget in dollars.
	DefaultInitialBudget = 1000000

	// DefaultInitialTimeWeeks is the planned length of the initiative.
	DefaultInitialTimeWeeks = 52

	// DefaultInitialResources is the team size available to every decision.
	DefaultInitialResources = 10

	// InitialReputation is the reputation score a new game starts with.
	InitialReputation = 100
)

// Maturity bounds and production thresholds.
const (
	// MaturityMin is the lowest value any capability can hold.
	MaturityMin = 0

	// MaturityMax is the highest value any capability can hold.
	MaturityMax = 100

	// ProductionReadyThreshold is the level at which a capability is considered
	// ready for production.
	ProductionReadyThreshold = 60

	// MinimumAcceptableThreshold is the level below which a capability is a
	// critical gap. Fallout for such capabilities is marked "Critical".
	MinimumAcceptableThreshold = 40
)

// Risk banding used by the fallback readiness analysis.
const (
	// LowRiskAverage is the average maturity at or above which risk is low.
	LowRiskAverage = 70

	// MediumRiskAverage is the average maturity at or above which risk is medium.
	MediumRiskAverage = 50

	// GradeBAverage is the average maturity at or above which the fallback
	// report awards a B instead of a C.
	GradeBAverage = 70
)

// Turn progression.
const (
	// DefaultRandomEventProbability is the chance per advanced week that the
	// random-event injector runs.
	DefaultRandomEventProbability = 0.10

	// FalloutMinWeeks and FalloutMaxWeeks bound how far ahead production
	// fallout is scheduled.
	FalloutMinWeeks = 1
	FalloutMaxWeeks = 4

	// MaxAvailableDecisions caps the merged list of decisions offered per turn.
	MaxAvailableDecisions = 3

	// MaxAdvanceWeeks caps a single time advance, and with it an option's
	// duration and delay.
	MaxAdvanceWeeks = 520
)

// Near-duplicate detection for imported scenarios.
const (
	// DuplicateScenarioThreshold is the similarity at or above which an
	// imported scenario is treated as a copy of one already in the library.
	DuplicateScenarioThreshold = 0.8

	ScenarioTextWeight   = 0.7
	ScenarioOptionWeight = 0.3
)

// Reputation bounds.
const (
	ReputationMin = 0
	ReputationMax = 100
)
