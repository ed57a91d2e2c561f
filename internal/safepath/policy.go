package safepath

import (
	"os"
	"path/filepath"
)

// Operation is the kind of filesystem access being requested.
// Read is the broadest permission, write is confined to allowed
// roots, and delete is the most restrictive (write + confirmation).
type Operation string

const (
	OpRead   Operation = "read"
	OpWrite  Operation = "write"
	OpDelete Operation = "delete"
)

// Policy is the declarative access configuration a Validator evaluates
// against. Blacklist entries apply to every operation and take
// precedence over any whitelist membership. A Policy must not be
// mutated once a Validator holds it; use a Builder to assemble one.
type Policy struct {
	// AllowedReadPaths restricts reads to these roots when non-empty.
	// When empty, reads are gated by the blacklist only.
	AllowedReadPaths []string

	// AllowedWritePaths are the only roots writes (and deletes) may
	// touch. When empty, every write and delete is denied.
	AllowedWritePaths []string

	// BlacklistedPaths are denied for all operations, including paths
	// nested beneath them.
	BlacklistedPaths []string

	// BlacklistedPatterns are filename globs (e.g. "*.pem", ".env.*")
	// denied for all operations regardless of location.
	BlacklistedPatterns []string

	// AllowAbsolutePaths permits absolute path inputs. When false, an
	// input that was absolute before normalization must still fall
	// under an allowed root for the requested operation.
	AllowAbsolutePaths bool

	// RequireDeleteConfirmation flags allowed deletes as needing
	// external confirmation before execution.
	RequireDeleteConfirmation bool
}

// DefaultPolicy returns the standard policy rooted at workingDir:
// open reads gated by the built-in blacklist, writes confined to the
// working directory, deletes requiring confirmation.
func DefaultPolicy(workingDir string) *Policy {
	if workingDir == "" {
		if wd, err := os.Getwd(); err == nil {
			workingDir = wd
		} else {
			workingDir = "."
		}
	}

	return &Policy{
		AllowedReadPaths:          nil,
		AllowedWritePaths:         []string{workingDir},
		BlacklistedPaths:          defaultBlacklist(),
		BlacklistedPatterns:       defaultBlacklistPatterns(),
		AllowAbsolutePaths:        true,
		RequireDeleteConfirmation: true,
	}
}

// defaultBlacklist lists operating-system and credential directories
// the agent must never touch.
func defaultBlacklist() []string {
	home, _ := os.UserHomeDir()
	return []string{
		// System paths
		"/etc",
		"/boot",
		"/sys",
		"/proc",
		"/dev",
		"/root",
		"/var/log",
		// User credential directories
		filepath.Join(home, ".ssh"),
		filepath.Join(home, ".gnupg"),
		filepath.Join(home, ".aws"),
		filepath.Join(home, ".config"),
		filepath.Join(home, ".local", "share", "keyrings"),
		// System binaries
		"/usr",
		"/bin",
		"/sbin",
	}
}

// defaultBlacklistPatterns lists filename shapes that commonly hold
// secrets: env files, private keys, certificates, databases, tokens.
func defaultBlacklistPatterns() []string {
	return []string{
		".env",
		".env.*",
		"*.pem",
		"*.key",
		"*.crt",
		"id_rsa",
		"id_rsa.pub",
		"id_ed25519",
		"id_ed25519.pub",
		"*.sqlite",
		"*.db",
		"credentials.json",
		"token.json",
		".netrc",
		".npmrc",
		".pypirc",
	}
}

// Builder assembles a Policy in an explicit one-time build phase.
// Configuration loaders append extra roots and blacklist entries here;
// Build returns the frozen result. The builder is not safe for
// concurrent use.
type Builder struct {
	policy *Policy
}

// NewBuilder starts a builder from the default policy rooted at
// workingDir.
func NewBuilder(workingDir string) *Builder {
	return &Builder{policy: DefaultPolicy(workingDir)}
}

// NewBuilderFrom starts a builder from an explicit base policy. The
// base is copied; the caller's Policy is not modified.
func NewBuilderFrom(base *Policy) *Builder {
	p := *base
	p.AllowedReadPaths = append([]string(nil), base.AllowedReadPaths...)
	p.AllowedWritePaths = append([]string(nil), base.AllowedWritePaths...)
	p.BlacklistedPaths = append([]string(nil), base.BlacklistedPaths...)
	p.BlacklistedPatterns = append([]string(nil), base.BlacklistedPatterns...)
	return &Builder{policy: &p}
}

// AllowRead appends read roots.
func (b *Builder) AllowRead(paths ...string) *Builder {
	b.policy.AllowedReadPaths = append(b.policy.AllowedReadPaths, paths...)
	return b
}

// AllowWrite appends write roots.
func (b *Builder) AllowWrite(paths ...string) *Builder {
	b.policy.AllowedWritePaths = append(b.policy.AllowedWritePaths, paths...)
	return b
}

// BlacklistPaths appends path blacklist entries.
func (b *Builder) BlacklistPaths(paths ...string) *Builder {
	b.policy.BlacklistedPaths = append(b.policy.BlacklistedPaths, paths...)
	return b
}

// BlacklistPatterns appends filename glob blacklist entries.
func (b *Builder) BlacklistPatterns(patterns ...string) *Builder {
	b.policy.BlacklistedPatterns = append(b.policy.BlacklistedPatterns, patterns...)
	return b
}

// AllowAbsolutePaths sets the absolute-path gate.
func (b *Builder) AllowAbsolutePaths(allow bool) *Builder {
	b.policy.AllowAbsolutePaths = allow
	return b
}

// RequireDeleteConfirmation sets the delete confirmation flag.
func (b *Builder) RequireDeleteConfirmation(require bool) *Builder {
	b.policy.RequireDeleteConfirmation = require
	return b
}

// Build freezes and returns the assembled policy. The builder must not
// be used after Build.
func (b *Builder) Build() *Policy {
	p := b.policy
	b.policy = nil
	return p
}
