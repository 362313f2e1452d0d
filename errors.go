package geojoin

import "errors"

// Sentinel errors for the failure modes of query construction.
// Every one of them is a deterministic function of the declaration or the
// call arguments: retrying with the same input reproduces the same failure.
//
// Errors are wrapped with context (association name, link ordinal, column)
// using fmt.Errorf("%w: ..."). Use the Is*Err helper functions to check for
// a specific kind.
var (
	// ErrConfiguration is returned when a geometry descriptor is malformed or
	// underspecified, when an owner lacks an attribute a query needs, or when
	// a declaration carries invalid scope options or conditions.
	ErrConfiguration = errors.New("geojoin: configuration error")

	// ErrInvalidRelationship is returned when a relationship name is outside
	// the supported whitelist. Raised at declaration and again at predicate
	// build time.
	ErrInvalidRelationship = errors.New("geojoin: invalid spatial relationship")

	// ErrChainResolution is returned for a structurally broken association
	// chain: an unreachable link, an ambiguous join condition, or a table
	// joined twice under the same name.
	ErrChainResolution = errors.New("geojoin: chain resolution failed")

	// ErrEmptyBatch is returned when a batch preload is requested with no
	// owner identifiers. Callers should short-circuit before building.
	ErrEmptyBatch = errors.New("geojoin: empty batch")
)

// IsConfigurationErr returns true if err is or wraps ErrConfiguration.
func IsConfigurationErr(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsInvalidRelationshipErr returns true if err is or wraps ErrInvalidRelationship.
func IsInvalidRelationshipErr(err error) bool {
	return errors.Is(err, ErrInvalidRelationship)
}

// IsChainResolutionErr returns true if err is or wraps ErrChainResolution.
func IsChainResolutionErr(err error) bool {
	return errors.Is(err, ErrChainResolution)
}

// IsEmptyBatchErr returns true if err is or wraps ErrEmptyBatch.
func IsEmptyBatchErr(err error) bool {
	return errors.Is(err, ErrEmptyBatch)
}
