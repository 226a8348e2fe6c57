package model

// DispositionTag is the terminal routing tag handed to downstream storage
// and reporting.
type DispositionTag string

// Disposition tags. Every record that enters a run leaves with exactly one
// of these.
const (
	DispositionResolved    DispositionTag = "resolved"
	DispositionUnresolved  DispositionTag = "unresolved"
	DispositionNeedsReview DispositionTag = "needs_review"
	DispositionFailed      DispositionTag = "failed"
)

// Disposition is the record shape consumed by the downstream collaborator.
// Cluster is nil unless the record resolved and the clustering phase ran.
type Disposition struct {
	Cluster     *int
	OrderID     string
	Tag         DispositionTag
	RawResponse string
	Comment     string
}

// DispositionFor maps a terminal record status to its routing tag. The
// zero-value tag is never returned; unclassified records cannot be routed.
func DispositionFor(status Status) (DispositionTag, bool) {
	switch status {
	case StatusResolved:
		return DispositionResolved, true
	case StatusUnresolved:
		return DispositionUnresolved, true
	case StatusNeedsReview:
		return DispositionNeedsReview, true
	case StatusClassificationFailed:
		return DispositionFailed, true
	default:
		return "", false
	}
}
