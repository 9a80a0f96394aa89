package types

// ValidationConfig controls validation behavior and security
type ValidationConfig struct {
	// Security: schema size/depth limits
	MaxSchemaSize  int // Max schema size in bytes (default: 64KB)
	MaxSchemaDepth int // Max schema nesting depth (default: 10)

	// Performance: caching
	EnableCache  bool // Enable validator caching (default: true)
	MaxCacheSize int  // Max cached validators (default: 256)

	// Validation behavior
	AssertFormat bool // Enable format assertions (default: true)
}

// DefaultValidationConfig returns secure defaults
func DefaultValidationConfig() *ValidationConfig {
	return &ValidationConfig{
		MaxSchemaSize:  64 * 1024,
		MaxSchemaDepth: 10,
		EnableCache:    true,
		MaxCacheSize:   256,
		AssertFormat:   true,
	}
}
