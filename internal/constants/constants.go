package constants

import "time"

// Context keys
const (
	// ContextKeyUser is the gin context key holding the authenticated user.
	ContextKeyUser = "current_user"
)

// Validation limits
const (
	// MinPasswordLength is the minimum accepted password length.
	MinPasswordLength = 8

	// MinStoryDescriptionLength is the minimum description length for
	// AI user story generation, checked before any outbound call.
	MinStoryDescriptionLength = 10
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// AI integration
const (
	// AIRequestTimeout bounds a single call to the text-generation provider.
	AIRequestTimeout = 30 * time.Second

	// MaxGeneratedStories caps how many stories one generation may return.
	MaxGeneratedStories = 20
)
