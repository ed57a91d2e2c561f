package safepath

import "sync"

// Process-wide default validator. Tools that are not handed a
// validator explicitly fall back to this one. Prefer passing a
// *Validator; the default exists for convenience and tests.
var (
	defaultMu sync.Mutex
	defaultV  *Validator
)

// Default returns the process-wide validator, lazily constructing it
// from policy (or DefaultPolicy rooted at the working directory when
// policy is nil). Once constructed, subsequent calls return the same
// instance even if a different policy is passed; use ResetDefault to
// start over.
func Default(policy *Policy) *Validator {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultV == nil {
		if policy == nil {
			policy = DefaultPolicy("")
		}
		defaultV = NewValidator(policy)
	}
	return defaultV
}

// ResetDefault clears the process-wide validator. Intended for test
// isolation.
func ResetDefault() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultV = nil
}

// Validate is a shortcut through the default validator.
func Validate(path string, op Operation) (Result, error) {
	return Default(nil).Validate(path, op)
}
