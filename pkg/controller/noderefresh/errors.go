package noderefresh

import (
	"errors"
	"fmt"
	"time"

	ctrl "sigs.k8s.io/controller-runtime"
)

// Category classifies a failure so callers know whether retrying can help.
type Category int

const (
	// CategoryTransient may resolve with time: API throttling, disruption
	// budget rejections, a missing replacement node, network blips.
	CategoryTransient Category = iota

	// CategoryNotFound means the referenced object is gone.
	CategoryNotFound

	// CategoryFatal will not resolve by retrying.
	CategoryFatal
)

func (c Category) String() string {
	switch c {
	case CategoryTransient:
		return "Transient"
	case CategoryNotFound:
		return "NotFound"
	case CategoryFatal:
		return "Fatal"
	default:
		return "Unknown"
	}
}

// CategorizedError attaches a retry category to an error so callers further
// up the call chain can branch on it with errors.As instead of string
// matching.
type CategorizedError struct {
	Category Category
	Err      error
}

func (e *CategorizedError) Error() string {
	return fmt.Sprintf("%s: %v", e.Category, e.Err)
}

func (e *CategorizedError) Unwrap() error {
	return e.Err
}

// TransientError wraps err as retryable.
func TransientError(err error) error {
	return &CategorizedError{Category: CategoryTransient, Err: err}
}

// TransientErrorf formats a retryable error.
func TransientErrorf(format string, args ...any) error {
	return TransientError(fmt.Errorf(format, args...))
}

// FatalError wraps err as non-retryable.
func FatalError(err error) error {
	return &CategorizedError{Category: CategoryFatal, Err: err}
}

// FatalErrorf formats a non-retryable error.
func FatalErrorf(format string, args ...any) error {
	return FatalError(fmt.Errorf(format, args...))
}

// NotFoundError wraps err as "the referenced object is gone".
func NotFoundError(err error) error {
	return &CategorizedError{Category: CategoryNotFound, Err: err}
}

// CategoryOf extracts the retry category from err, defaulting to
// CategoryFatal for errors that were never categorized: an uncategorized
// failure is an invariant violation, not something worth retrying blindly.
func CategoryOf(err error) Category {
	if err == nil {
		return CategoryTransient
	}
	var ce *CategorizedError
	if errors.As(err, &ce) {
		return ce.Category
	}
	return CategoryFatal
}

// EvictionOutcome is the result of a single eviction attempt.
type EvictionOutcome int

const (
	// EvictionEvicted means the eviction subresource accepted the request.
	EvictionEvicted EvictionOutcome = iota

	// EvictionBlocked means a disruption budget rejected the request; the
	// drain engine treats this as retryable.
	EvictionBlocked

	// EvictionGone means the pod was already deleted.
	EvictionGone

	// EvictionFatal means the eviction failed for a reason that will not
	// resolve by retrying.
	EvictionFatal
)

// outcomeKind discriminates the three outcome shapes a reconciler action can
// produce, replacing the source's two exception kinds with an explicit,
// exhaustively-switchable type.
type outcomeKind int

const (
	kindDone outcomeKind = iota
	kindRetryAfter
	kindFailed
)

// Outcome is the result of a single reconciler action: either it completed,
// it needs to be retried after a delay, or it failed for good.
type Outcome struct {
	kind   outcomeKind
	after  time.Duration
	reason string
}

// Done reports that the action completed; no further scheduling is implied.
func Done() Outcome {
	return Outcome{kind: kindDone}
}

// RetryAfter reports that the action should be retried after d.
func RetryAfter(d time.Duration) Outcome {
	return Outcome{kind: kindRetryAfter, after: d}
}

// Failed reports that the action will not succeed by retrying.
func Failed(reason string) Outcome {
	return Outcome{kind: kindFailed, reason: reason}
}

// ToResult translates an Outcome into the controller-runtime return shape.
func (o Outcome) ToResult() (ctrl.Result, error) {
	switch o.kind {
	case kindDone:
		return ctrl.Result{}, nil
	case kindRetryAfter:
		return ctrl.Result{RequeueAfter: o.after}, nil
	case kindFailed:
		return ctrl.Result{}, errors.New(o.reason)
	default:
		return ctrl.Result{}, fmt.Errorf("unreachable outcome kind %d", o.kind)
	}
}

// IsFailed reports whether the outcome is a terminal failure.
func (o Outcome) IsFailed() bool {
	return o.kind == kindFailed
}

// Reason returns the failure reason; only meaningful when IsFailed is true.
func (o Outcome) Reason() string {
	return o.reason
}
