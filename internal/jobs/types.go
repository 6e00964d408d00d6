package jobs

type JobType string

const (
	JobEnrollmentConfirmation JobType = "enrollment.confirmation"
	JobApprovalNotice         JobType = "approval.notice"
)

// check to see if the job type is a known constant

func (t JobType) IsValid() bool {
	switch t {
	case JobEnrollmentConfirmation, JobApprovalNotice:
		return true
	default:
		return false
	}
}
