package jobs

type JobType string

const (
	JobSendVerificationEmail  JobType = "email.send_verification"
	JobSendPasswordResetEmail JobType = "email.send_password_reset"
)

// check to see if the job type is a known constant

func (t JobType) IsValid() bool {
	switch t {
	case JobSendVerificationEmail, JobSendPasswordResetEmail:
		return true
	default:
		return false
	}
}
