package course

import (
	"fmt"
	"strings"
	"time"

	"github.com/alem-hub/course-hub/internal/domain/shared"
)

// RequestType distinguishes publish and unpublish tickets.
type RequestType string

const (
	RequestPublish   RequestType = "PUBLISH"
	RequestUnpublish RequestType = "UNPUBLISH"
)

// IsValid checks that the request type is known.
func (t RequestType) IsValid() bool {
	return t == RequestPublish || t == RequestUnpublish
}

// RequestStatus is the resolution state of a request.
type RequestStatus string

const (
	RequestPending  RequestStatus = "PENDING"
	RequestApproved RequestStatus = "APPROVED"
	RequestRejected RequestStatus = "REJECTED"
)

// CourseRequest is an approval ticket filed by the teacher.
// Once resolved it is kept as history and never changes again.
type CourseRequest struct {
	id             int64
	rtype          RequestType
	message        string
	requestedBy    string
	status         RequestStatus
	resolved       bool
	resolvedBy     string
	resolveDate    *time.Time
	rejectReason   string
	approveMessage string
	createdAt      time.Time
}

// CourseRequestParams contains the data required to file a request.
type CourseRequestParams struct {
	ID          int64
	Type        RequestType
	Message     string
	RequestedBy string
}

// NewCourseRequest creates a pending request.
func NewCourseRequest(p CourseRequestParams) (*CourseRequest, error) {
	if p.ID <= 0 {
		return nil, shared.NewDomainError("request", "New", shared.ErrInvalidID, "request id must be positive")
	}
	if !p.Type.IsValid() {
		return nil, shared.InvalidInput("request", "New", fmt.Sprintf("unknown request type %q", p.Type))
	}
	if strings.TrimSpace(p.RequestedBy) == "" {
		return nil, shared.InvalidInput("request", "New", "requester is required")
	}
	return &CourseRequest{
		id:          p.ID,
		rtype:       p.Type,
		message:     p.Message,
		requestedBy: p.RequestedBy,
		status:      RequestPending,
		createdAt:   now(),
	}, nil
}

func (r *CourseRequest) ID() int64               { return r.id }
func (r *CourseRequest) Type() RequestType       { return r.rtype }
func (r *CourseRequest) Message() string         { return r.message }
func (r *CourseRequest) RequestedBy() string     { return r.requestedBy }
func (r *CourseRequest) Status() RequestStatus   { return r.status }
func (r *CourseRequest) IsResolved() bool        { return r.resolved }
func (r *CourseRequest) ResolvedBy() string      { return r.resolvedBy }
func (r *CourseRequest) ResolveDate() *time.Time { return r.resolveDate }
func (r *CourseRequest) RejectReason() string    { return r.rejectReason }
func (r *CourseRequest) ApproveMessage() string  { return r.approveMessage }
func (r *CourseRequest) CreatedAt() time.Time    { return r.createdAt }

func (r *CourseRequest) checkResolvable(want RequestType, op string) error {
	if r.rtype != want {
		return shared.InvalidInput("request", op, fmt.Sprintf("request %d is not a %s request", r.id, strings.ToLower(string(want))))
	}
	if r.resolved {
		return shared.InvalidInput("request", op, fmt.Sprintf("request %d is already resolved", r.id))
	}
	return nil
}

func (r *CourseRequest) approve(by, message string, at time.Time) {
	r.status = RequestApproved
	r.resolved = true
	r.resolvedBy = by
	r.resolveDate = &at
	r.approveMessage = message
}

func (r *CourseRequest) reject(by, reason string, at time.Time) {
	r.status = RequestRejected
	r.resolved = true
	r.resolvedBy = by
	r.resolveDate = &at
	r.rejectReason = reason
}
