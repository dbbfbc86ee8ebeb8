package screening

import (
	"strings"

	"github.com/spigell/hh-screener/internal/conversation"
)

// safeRefusal is the fixed response substituted when the detector blocks a
// message. Deliberately free of any detail about what was detected.
const safeRefusal = "I can only help with questions about our open positions and your application. " +
	"Let's start over - how can I help you with your job search?"

// processingErrorResponse is the generic reply for unexpected internal
// faults.
const processingErrorResponse = "Something went wrong while processing your message. " +
	"Please try again, or ask to speak to a recruiter."

// limitReachedResponse is sent when a session hits its message cap.
const limitReachedResponse = "We have reached the message limit for this conversation. " +
	"A recruiter will follow up with you directly."

// templateEntry keys a response on (intention, state). Entries are evaluated
// in order; the first match wins.
type templateEntry struct {
	intention conversation.Intention
	state     conversation.State
	text      string
}

// anyIntention/anyState widen a template entry to every value.
const (
	anyIntention conversation.Intention = "*"
	anyState     conversation.State     = "*"
)

// responseTemplates is the priority-ordered template table. Placeholders:
// {{name}} is the candidate name, {{job}} the job title.
var responseTemplates = []templateEntry{
	{conversation.IntentionGreeting, conversation.StateGreeting,
		"Hello{{name_greeting}}! I'm the recruitment assistant. I can tell you about open positions, answer questions about salary and benefits, and review your resume. What would you like to know?"},
	{conversation.IntentionJobInquiry, conversation.StateJobDiscussion,
		"Great question{{name_greeting}}! We are currently hiring for {{job}}. Would you like the details, or shall I check your resume against the requirements?"},
	{conversation.IntentionSalaryQuestion, conversation.StateQA,
		"Compensation for {{job}} depends on your experience level. If you upload your resume I can be more specific about the range you'd land in."},
	{conversation.IntentionBenefitsQuestion, conversation.StateQA,
		"The package for {{job}} includes health insurance, paid vacation and a remote-friendly setup. Anything specific you'd like to know more about?"},
	{conversation.IntentionCVUpload, conversation.StateDocumentCollection,
		"Please upload your resume as a plain-text, markdown or CSV file and I'll extract your profile from it."},
	{conversation.IntentionApplicationStatus, conversation.StateApplicationReview,
		"Let me check the status of your application{{name_greeting}}. It is currently under review; I'll walk you through the next steps."},
	{conversation.IntentionInterviewPrep, conversation.StateInterviewScheduling,
		"Happy to help you prepare. Let's find a time slot for your interview for {{job}} first."},
	{conversation.IntentionFarewell, anyState,
		"Thank you for your time{{name_greeting}}! Feel free to come back whenever you have more questions. Good luck!"},
	{conversation.IntentionEscalation, anyState,
		"Of course - I'm connecting you with a human recruiter. They will reach out using the contact details from your application."},
	{anyIntention, conversation.StateCVUploaded,
		"Your resume has been processed{{name_greeting}}. Ask me about how your skills match {{job}}, or about next steps."},
}

// intentionFallbacks is the fixed per-intention default when no template
// matches.
var intentionFallbacks = map[conversation.Intention]string{
	conversation.IntentionGreeting:             "Hello! How can I help you with your job search today?",
	conversation.IntentionJobInquiry:           "We have several open positions. Which area are you interested in?",
	conversation.IntentionSalaryQuestion:       "Salary depends on the position and your experience. Which role are you asking about?",
	conversation.IntentionBenefitsQuestion:     "We offer a competitive benefits package. What would you like to know specifically?",
	conversation.IntentionCVUpload:             "You can upload your resume at any time and I'll review it.",
	conversation.IntentionHelpRequest:          "I can tell you about open positions, salaries and benefits, review your resume, and help schedule interviews.",
	conversation.IntentionFarewell:             "Goodbye, and good luck with your search!",
	conversation.IntentionEscalation:           "I'll hand this conversation over to a human recruiter.",
	conversation.IntentionApplicationStatus:    "Let me look into your application status.",
	conversation.IntentionInterviewPrep:        "I can share preparation material and schedule your interview.",
	conversation.IntentionExperienceValidation: "Tell me more about your work experience, or upload your resume and I'll summarize it.",
	conversation.IntentionTechnicalSkills:      "Which technologies have you worked with? You can also upload your resume.",
	conversation.IntentionJailbreakAttempt:     safeRefusal,
	conversation.IntentionUnknown:              "I'm not sure I understood that. Could you rephrase? I can help with positions, salaries, benefits and your application.",
}

// templateVars carries the substitution values for one response.
type templateVars struct {
	Name string
	Job  string
}

// selectResponse walks the template table in order and falls back to the
// per-intention default.
func selectResponse(in conversation.Intention, st conversation.State, vars templateVars) string {
	for _, e := range responseTemplates {
		if e.intention != anyIntention && e.intention != in {
			continue
		}
		if e.state != anyState && e.state != st {
			continue
		}
		return render(e.text, vars)
	}
	if text, ok := intentionFallbacks[in]; ok {
		return render(text, vars)
	}
	return render(intentionFallbacks[conversation.IntentionUnknown], vars)
}

func render(text string, vars templateVars) string {
	nameGreeting := ""
	if vars.Name != "" {
		nameGreeting = ", " + vars.Name
	}
	job := vars.Job
	if job == "" {
		job = "our open positions"
	}

	return strings.NewReplacer(
		"{{name_greeting}}", nameGreeting,
		"{{name}}", vars.Name,
		"{{job}}", job,
	).Replace(text)
}

// nextSteps maps the (possibly new) state to recommended follow-ups for the
// candidate.
var nextSteps = map[conversation.State][]string{
	conversation.StateGreeting:             {"Ask about open positions", "Upload your resume"},
	conversation.StateJobDiscussion:        {"Ask about salary or benefits", "Upload your resume"},
	conversation.StateQA:                   {"Ask another question", "Ask about open positions"},
	conversation.StateSurvey:               {"Share feedback about this conversation"},
	conversation.StateDocumentCollection:   {"Upload your resume as .txt, .md or .csv"},
	conversation.StateCVProcessing:         {"Wait for resume processing to finish"},
	conversation.StateCVUploaded:           {"Ask how your skills match the position", "Ask about next steps"},
	conversation.StateTechnicalValidation:  {"Describe your technical background"},
	conversation.StateSkillAssessment:      {"Review your skill gaps", "Ask about the interview process"},
	conversation.StateApplicationReview:    {"Ask to schedule an interview"},
	conversation.StateInterviewScheduling:  {"Pick a time slot"},
	conversation.StateInterviewPreparation: {"Request preparation material"},
	conversation.StateFinalInterview:       {"Confirm the final interview details"},
	conversation.StateEvaluation:           {"Ask about the decision timeline"},
	conversation.StateClosing:              {"Say hello to start a new conversation"},
	conversation.StateError:                {"Try again", "Ask to speak to a recruiter"},
	conversation.StateJailbreakDetected:    {"Ask a question about our open positions"},
}

// stepsFor returns the recommended next steps for a state.
func stepsFor(st conversation.State) []string {
	if steps, ok := nextSteps[st]; ok {
		return steps
	}
	return nextSteps[conversation.StateError]
}
