// Package conversation holds the conversation domain: the closed state and
// intention vocabularies, the per-session context aggregate and the state
// machine driving a screening dialogue.
package conversation

import "time"

// State identifies one stage of the screening conversation. Exactly one state
// is current per session at any time.
type State string

const (
	StateGreeting             State = "greeting"
	StateJobDiscussion        State = "job_discussion"
	StateQA                   State = "qa"
	StateSurvey               State = "survey"
	StateDocumentCollection   State = "document_collection"
	StateCVProcessing         State = "cv_processing"
	StateCVUploaded           State = "cv_uploaded"
	StateTechnicalValidation  State = "technical_validation"
	StateSkillAssessment      State = "skill_assessment"
	StateApplicationReview    State = "application_review"
	StateInterviewScheduling  State = "interview_scheduling"
	StateInterviewPreparation State = "interview_preparation"
	StateFinalInterview       State = "final_interview"
	StateEvaluation           State = "evaluation"
	StateClosing              State = "closing"
	StateError                State = "error"
	StateJailbreakDetected    State = "jailbreak_detected"
)

// States lists every known state, in no particular order. Used by the
// validation pass and by reporting.
var States = []State{
	StateGreeting,
	StateJobDiscussion,
	StateQA,
	StateSurvey,
	StateDocumentCollection,
	StateCVProcessing,
	StateCVUploaded,
	StateTechnicalValidation,
	StateSkillAssessment,
	StateApplicationReview,
	StateInterviewScheduling,
	StateInterviewPreparation,
	StateFinalInterview,
	StateEvaluation,
	StateClosing,
	StateError,
	StateJailbreakDetected,
}

// Intention is the classified purpose of a candidate message. Produced only
// by the intention classifier.
type Intention string

const (
	IntentionGreeting             Intention = "greeting"
	IntentionJobInquiry           Intention = "job_inquiry"
	IntentionSalaryQuestion       Intention = "salary_question"
	IntentionBenefitsQuestion     Intention = "benefits_question"
	IntentionCVUpload             Intention = "cv_upload"
	IntentionHelpRequest          Intention = "help_request"
	IntentionFarewell             Intention = "farewell"
	IntentionEscalation           Intention = "escalation"
	IntentionApplicationStatus    Intention = "application_status"
	IntentionInterviewPrep        Intention = "interview_preparation"
	IntentionExperienceValidation Intention = "experience_validation"
	IntentionTechnicalSkills      Intention = "technical_skills"
	IntentionJailbreakAttempt     Intention = "jailbreak_attempt"
	IntentionUnknown              Intention = "unknown"
)

// Role tags a message author inside the conversation history.
type Role string

const (
	RoleCandidate Role = "candidate"
	RoleAgent     Role = "agent"
)

// Message is one entry of the per-session message history.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// JobReference points at the vacancy the candidate is being screened for.
type JobReference struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}
