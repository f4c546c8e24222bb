package model

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed set of workspace failure categories. Every
// error returned by the orchestrator is a *WorkspaceError carrying one
// of these kinds; callers branch on the kind rather than on error text.
type ErrorKind string

const (
	// KindNoRepositories indicates an operation was invoked with an
	// empty repository list.
	KindNoRepositories ErrorKind = "no_repositories"

	// KindPartialCreation indicates one repository failed during
	// multi-repo workspace creation. Rollback of the repositories
	// created before it has already been attempted.
	KindPartialCreation ErrorKind = "partial_creation"

	// KindMergeConflicts indicates a workspace merge stopped on
	// conflicts in the named repository. Repositories merged before it
	// keep their merge commits.
	KindMergeConflicts ErrorKind = "merge_conflicts"

	// KindGit indicates a generic underlying version-control failure.
	KindGit ErrorKind = "git"

	// KindIO indicates a filesystem failure.
	KindIO ErrorKind = "io"
)

// WorkspaceError is the error type returned by workspace orchestration
// operations. RepoName is set for kinds that stop on a specific
// repository (partial creation, merge conflicts).
type WorkspaceError struct {
	Kind     ErrorKind
	RepoName string
	Message  string
	Err      error
}

// Error satisfies the error interface.
func (e *WorkspaceError) Error() string {
	msg := e.Message
	if e.RepoName != "" {
		msg = fmt.Sprintf("repo %q: %s", e.RepoName, msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error for errors.Is/errors.As chains.
func (e *WorkspaceError) Unwrap() error {
	return e.Err
}

// NewNoRepositories reports an operation invoked with no repositories.
func NewNoRepositories() *WorkspaceError {
	return &WorkspaceError{Kind: KindNoRepositories, Message: "no repositories provided"}
}

// NewPartialCreation reports a creation failure at the named repository
// after rollback of the repositories created before it.
func NewPartialCreation(repoName string, err error) *WorkspaceError {
	return &WorkspaceError{
		Kind:     KindPartialCreation,
		RepoName: repoName,
		Message:  "partial workspace creation failed",
		Err:      err,
	}
}

// NewMergeConflicts reports a merge stopped on conflicts in the named
// repository. The message carries the human-readable conflict
// description (typically the conflicted file list).
func NewMergeConflicts(repoName, message string) *WorkspaceError {
	return &WorkspaceError{Kind: KindMergeConflicts, RepoName: repoName, Message: message}
}

// NewGitError wraps a generic version-control failure.
func NewGitError(message string, err error) *WorkspaceError {
	return &WorkspaceError{Kind: KindGit, Message: message, Err: err}
}

// NewIOError wraps a filesystem failure.
func NewIOError(message string, err error) *WorkspaceError {
	return &WorkspaceError{Kind: KindIO, Message: message, Err: err}
}

// KindOf extracts the ErrorKind from an error chain. It returns the
// empty kind for errors that do not wrap a WorkspaceError.
func KindOf(err error) ErrorKind {
	var we *WorkspaceError
	if errors.As(err, &we) {
		return we.Kind
	}
	return ""
}

// IsMergeConflicts reports whether err is a merge-conflict stop.
func IsMergeConflicts(err error) bool {
	return KindOf(err) == KindMergeConflicts
}

// ExitCodeFor maps an error to the process exit code the CLI should
// return. Unrecognized errors map to ExitGeneralError.
func ExitCodeFor(err error) ExitCode {
	switch KindOf(err) {
	case KindNoRepositories:
		return ExitConfigError
	case KindPartialCreation:
		return ExitPartialCreation
	case KindMergeConflicts:
		return ExitMergeConflicts
	case KindGit:
		return ExitGitError
	case KindIO:
		return ExitGeneralError
	default:
		return ExitGeneralError
	}
}
