// Package safepath decides whether an agent tool may read, write, or
// delete a filesystem path. It layers permissions: a blacklist (paths
// and filename patterns) denies unconditionally, then the requested
// operation's whitelist applies. Paths are canonicalized (symlinks
// resolved, ".." collapsed) before any check so traversal and symlink
// tricks cannot escape the policy.
package safepath

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/UH3135/cli-master/internal/logging"
)

// Result is the outcome of a validation. Reason is always populated
// and safe to surface to the user verbatim. NormalizedPath holds the
// canonical path that was actually evaluated, including on denial.
type Result struct {
	Allowed        bool
	Reason         string
	NormalizedPath string

	// NeedsConfirmation is set on an allowed delete when the policy
	// requires external confirmation before the destructive action.
	NeedsConfirmation bool
}

// ResolutionError reports that a path could not be canonicalized due
// to an operating-system error (traversal permission, symlink loop).
// It is distinct from a policy denial: no Result is produced.
type ResolutionError struct {
	Path string
	Err  error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve path %q: %v", e.Path, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// Validator evaluates paths against a single Policy. It holds no
// mutable state and is safe for concurrent use as long as the policy
// is not mutated underneath it.
type Validator struct {
	policy *Policy
}

// NewValidator creates a validator over the given policy. The policy
// is treated as immutable for the validator's lifetime.
func NewValidator(policy *Policy) *Validator {
	return &Validator{policy: policy}
}

// Policy returns the policy this validator evaluates against.
func (v *Validator) Policy() *Policy { return v.policy }

// Validate decides whether the operation may touch path. A policy
// denial comes back as a Result with Allowed=false; only an OS-level
// resolution failure returns a non-nil error (*ResolutionError).
func (v *Validator) Validate(path string, op Operation) (Result, error) {
	wasAbsolute := filepath.IsAbs(path)

	normalized, err := v.normalize(path)
	if err != nil {
		return Result{}, &ResolutionError{Path: path, Err: err}
	}

	// Absolute-path gate: applies only to inputs that were already
	// absolute before normalization.
	if !v.policy.AllowAbsolutePaths && wasAbsolute {
		if !v.underAllowedRoots(normalized, op) {
			return Result{
				Allowed:        false,
				Reason:         "absolute paths are not permitted",
				NormalizedPath: normalized,
			}, nil
		}
	}

	if res, denied := v.checkBlacklist(normalized); denied {
		return res, nil
	}

	switch op {
	case OpRead:
		return v.validateRead(normalized), nil
	case OpWrite:
		return v.validateWrite(normalized), nil
	case OpDelete:
		return v.validateDelete(normalized), nil
	default:
		return Result{
			Allowed:        false,
			Reason:         fmt.Sprintf("unknown operation %q", op),
			NormalizedPath: normalized,
		}, nil
	}
}

// normalize turns path into a canonical absolute path. Relative paths
// resolve against the current working directory. Symlinks are resolved
// on the deepest existing ancestor; trailing components that do not
// exist yet are appended literally so write targets can be validated
// before creation.
func (v *Validator) normalize(path string) (string, error) {
	if !filepath.IsAbs(path) {
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		path = filepath.Join(wd, path)
	}
	return resolveExisting(filepath.Clean(path))
}

// resolveExisting resolves symlinks in the longest prefix of path that
// exists on disk and rejoins the non-existing suffix unchanged. Errors
// other than "does not exist" (permission denied, symlink loops)
// propagate to the caller.
func resolveExisting(path string) (string, error) {
	var suffix []string
	cur := path
	for {
		resolved, err := filepath.EvalSymlinks(cur)
		if err == nil {
			for i := len(suffix) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, suffix[i])
			}
			return resolved, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			// Even the root failed to resolve; give up.
			return "", err
		}
		suffix = append(suffix, filepath.Base(cur))
		cur = parent
	}
}

// checkBlacklist applies the path blacklist and then the filename
// pattern blacklist. The first match denies.
func (v *Validator) checkBlacklist(path string) (Result, bool) {
	for _, blocked := range v.policy.BlacklistedPaths {
		resolved, err := resolveBlacklistEntry(blocked)
		if err != nil {
			// Entry does not exist on this system; it cannot match.
			continue
		}
		if path == resolved || isSubpath(path, resolved) {
			logging.Warnf("blocked path access attempt: %s (blacklist root %s)", path, blocked)
			return Result{
				Allowed:        false,
				Reason:         fmt.Sprintf("access to this path is blocked for security reasons: %s", blocked),
				NormalizedPath: path,
			}, true
		}
	}

	name := filepath.Base(path)
	for _, pattern := range v.policy.BlacklistedPatterns {
		matched, err := filepath.Match(pattern, name)
		if err != nil {
			// Malformed pattern; skip rather than fail open or closed
			// on every path.
			continue
		}
		if matched {
			logging.Warnf("blocked filename pattern match: %s (pattern %s)", name, pattern)
			return Result{
				Allowed:        false,
				Reason:         fmt.Sprintf("this file type is blocked for security reasons: %s", pattern),
				NormalizedPath: path,
			}, true
		}
	}

	return Result{Allowed: true, NormalizedPath: path}, false
}

// resolveBlacklistEntry canonicalizes a configured blacklist root.
// Unlike normalize, a non-existent entry is an error: an entry that is
// not on this system cannot match anything.
func resolveBlacklistEntry(entry string) (string, error) {
	if !filepath.IsAbs(entry) {
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		entry = filepath.Join(wd, entry)
	}
	return filepath.EvalSymlinks(filepath.Clean(entry))
}

func (v *Validator) validateRead(path string) Result {
	// An empty read whitelist means the blacklist was the only gate.
	if len(v.policy.AllowedReadPaths) == 0 {
		return Result{Allowed: true, Reason: "read allowed", NormalizedPath: path}
	}

	if v.underRoots(path, v.policy.AllowedReadPaths) {
		return Result{Allowed: true, Reason: "read allowed", NormalizedPath: path}
	}

	return Result{
		Allowed:        false,
		Reason:         "path is outside the allowed read paths",
		NormalizedPath: path,
	}
}

func (v *Validator) validateWrite(path string) Result {
	if len(v.policy.AllowedWritePaths) == 0 {
		return Result{
			Allowed:        false,
			Reason:         "no write paths are configured",
			NormalizedPath: path,
		}
	}

	if v.underRoots(path, v.policy.AllowedWritePaths) {
		return Result{Allowed: true, Reason: "write allowed", NormalizedPath: path}
	}

	return Result{
		Allowed: false,
		Reason: "path is outside the allowed write paths; allowed: " +
			strings.Join(v.policy.AllowedWritePaths, ", "),
		NormalizedPath: path,
	}
}

func (v *Validator) validateDelete(path string) Result {
	// Delete requires write authorization first.
	write := v.validateWrite(path)
	if !write.Allowed {
		return Result{
			Allowed:        false,
			Reason:         "delete not permitted: " + write.Reason,
			NormalizedPath: path,
		}
	}

	if v.policy.RequireDeleteConfirmation {
		return Result{
			Allowed:           true,
			Reason:            "delete allowed (confirmation required)",
			NormalizedPath:    path,
			NeedsConfirmation: true,
		}
	}

	return Result{Allowed: true, Reason: "delete allowed", NormalizedPath: path}
}

// underAllowedRoots reports whether path falls under the whitelist for
// the given operation (read uses the read roots; write and delete use
// the write roots).
func (v *Validator) underAllowedRoots(path string, op Operation) bool {
	if op == OpRead {
		return v.underRoots(path, v.policy.AllowedReadPaths)
	}
	return v.underRoots(path, v.policy.AllowedWritePaths)
}

// underRoots reports whether path equals or descends from any root.
// Roots that fail to canonicalize are skipped.
func (v *Validator) underRoots(path string, roots []string) bool {
	for _, root := range roots {
		resolved, err := resolveRoot(root)
		if err != nil {
			continue
		}
		if path == resolved || isSubpath(path, resolved) {
			return true
		}
	}
	return false
}

// resolveRoot canonicalizes a whitelist root, tolerating roots that do
// not fully exist yet the same way normalize does for candidates.
func resolveRoot(root string) (string, error) {
	if !filepath.IsAbs(root) {
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		root = filepath.Join(wd, root)
	}
	return resolveExisting(filepath.Clean(root))
}

// isSubpath reports whether path lies strictly beneath root. The test
// is segment-aligned: /etc/foobar is not a subpath of /etc/foo.
func isSubpath(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	if rel == "." || rel == ".." {
		return false
	}
	return !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
