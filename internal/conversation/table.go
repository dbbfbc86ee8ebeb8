package conversation

import "fmt"

// metaFlag reads a boolean flag from transition context data.
func metaFlag(data map[string]any, key string) bool {
	if data == nil {
		return false
	}
	v, ok := data[key].(bool)
	return ok && v
}

// defaultRules is the static transition table. Append-only; rule order is the
// tie-break for a (from, trigger) pair with several candidates.
var defaultRules = []Rule{
	// Security edge available from every state.
	{From: AnyState, Trigger: IntentionJailbreakAttempt, To: StateJailbreakDetected},

	// Opening.
	{From: StateGreeting, Trigger: IntentionGreeting, To: StateGreeting},
	{From: StateGreeting, Trigger: IntentionJobInquiry, To: StateJobDiscussion},
	{From: StateGreeting, Trigger: IntentionSalaryQuestion, To: StateQA},
	{From: StateGreeting, Trigger: IntentionBenefitsQuestion, To: StateQA},
	{From: StateGreeting, Trigger: IntentionHelpRequest, To: StateQA},
	{From: StateGreeting, Trigger: IntentionCVUpload, To: StateDocumentCollection},
	{From: StateGreeting, Trigger: IntentionApplicationStatus, To: StateApplicationReview},

	// Job discussion.
	{From: StateJobDiscussion, Trigger: IntentionJobInquiry, To: StateJobDiscussion},
	{From: StateJobDiscussion, Trigger: IntentionSalaryQuestion, To: StateQA},
	{From: StateJobDiscussion, Trigger: IntentionBenefitsQuestion, To: StateQA},
	{From: StateJobDiscussion, Trigger: IntentionHelpRequest, To: StateQA},
	{From: StateJobDiscussion, Trigger: IntentionCVUpload, To: StateDocumentCollection},
	{From: StateJobDiscussion, Trigger: IntentionApplicationStatus, To: StateApplicationReview},
	{From: StateJobDiscussion, Trigger: IntentionTechnicalSkills, To: StateTechnicalValidation},
	{From: StateJobDiscussion, Trigger: IntentionExperienceValidation, To: StateTechnicalValidation},

	// Q&A loops back into the flow.
	{From: StateQA, Trigger: IntentionSalaryQuestion, To: StateQA},
	{From: StateQA, Trigger: IntentionBenefitsQuestion, To: StateQA},
	{From: StateQA, Trigger: IntentionHelpRequest, To: StateQA},
	{From: StateQA, Trigger: IntentionJobInquiry, To: StateJobDiscussion},
	{From: StateQA, Trigger: IntentionCVUpload, To: StateDocumentCollection},
	{From: StateQA, Trigger: IntentionApplicationStatus, To: StateApplicationReview},

	// Document collection and CV processing.
	{From: StateDocumentCollection, Trigger: IntentionCVUpload, To: StateCVProcessing},
	{From: StateDocumentCollection, Trigger: IntentionHelpRequest, To: StateQA},
	{From: StateCVProcessing, Trigger: IntentionCVUpload,
		Guard: func(data map[string]any) bool { return metaFlag(data, "processing_failed") },
		To:    StateError},
	{From: StateCVProcessing, Trigger: IntentionCVUpload, To: StateCVUploaded},
	{From: StateCVUploaded, Trigger: IntentionTechnicalSkills, To: StateTechnicalValidation},
	{From: StateCVUploaded, Trigger: IntentionExperienceValidation, To: StateTechnicalValidation},
	{From: StateCVUploaded, Trigger: IntentionJobInquiry, To: StateJobDiscussion},
	{From: StateCVUploaded, Trigger: IntentionApplicationStatus, To: StateApplicationReview},

	// Validation and assessment.
	{From: StateTechnicalValidation, Trigger: IntentionTechnicalSkills, To: StateSkillAssessment},
	{From: StateTechnicalValidation, Trigger: IntentionExperienceValidation, To: StateSkillAssessment},
	{From: StateTechnicalValidation, Trigger: IntentionHelpRequest, To: StateQA},
	{From: StateSkillAssessment, Trigger: IntentionTechnicalSkills, To: StateSkillAssessment},
	{From: StateSkillAssessment, Trigger: IntentionApplicationStatus, To: StateApplicationReview},
	{From: StateSkillAssessment, Trigger: IntentionInterviewPrep, To: StateInterviewScheduling},

	// Review and interviews.
	{From: StateApplicationReview, Trigger: IntentionApplicationStatus, To: StateApplicationReview},
	{From: StateApplicationReview, Trigger: IntentionInterviewPrep, To: StateInterviewScheduling},
	{From: StateApplicationReview, Trigger: IntentionHelpRequest, To: StateQA},
	{From: StateInterviewScheduling, Trigger: IntentionInterviewPrep, To: StateInterviewPreparation},
	{From: StateInterviewScheduling, Trigger: IntentionHelpRequest, To: StateQA},
	{From: StateInterviewPreparation, Trigger: IntentionInterviewPrep,
		Guard: func(data map[string]any) bool { return metaFlag(data, "ready_for_final") },
		To:    StateFinalInterview},
	{From: StateInterviewPreparation, Trigger: IntentionInterviewPrep, To: StateInterviewPreparation},
	{From: StateInterviewPreparation, Trigger: IntentionApplicationStatus, To: StateApplicationReview},
	{From: StateFinalInterview, Trigger: IntentionApplicationStatus, To: StateEvaluation},
	{From: StateFinalInterview, Trigger: IntentionFarewell, To: StateEvaluation},

	// Wrap-up: evaluation feeds an exit survey before closing.
	{From: StateEvaluation, Trigger: IntentionFarewell, To: StateSurvey},
	{From: StateEvaluation, Trigger: IntentionApplicationStatus, To: StateApplicationReview},
	{From: StateSurvey, Trigger: IntentionFarewell, To: StateClosing},
	{From: StateSurvey, Trigger: IntentionHelpRequest, To: StateQA},

	// Escalation hands off to a human and winds the conversation down.
	{From: AnyState, Trigger: IntentionEscalation, To: StateClosing},
	{From: AnyState, Trigger: IntentionFarewell, To: StateClosing},

	// Recovery edges out of terminal-ish states.
	{From: StateClosing, Trigger: IntentionGreeting, To: StateGreeting},
	{From: StateError, Trigger: IntentionGreeting, To: StateGreeting},
	{From: StateError, Trigger: IntentionHelpRequest, To: StateQA},
	{From: StateJailbreakDetected, Trigger: IntentionGreeting, To: StateGreeting},
}

// stateActions maps each state to its fixed action list. Every state must
// have at least one action; Validate enforces this.
var stateActions = map[State][]string{
	StateGreeting:             {"introduce_assistant", "list_open_positions"},
	StateJobDiscussion:        {"describe_position", "share_requirements", "offer_cv_upload"},
	StateQA:                   {"answer_question", "suggest_related_topics"},
	StateSurvey:               {"collect_feedback", "thank_candidate"},
	StateDocumentCollection:   {"request_cv", "list_supported_formats"},
	StateCVProcessing:         {"report_processing_status"},
	StateCVUploaded:           {"summarize_profile", "suggest_next_steps"},
	StateTechnicalValidation:  {"ask_technical_question", "verify_experience"},
	StateSkillAssessment:      {"score_skills", "identify_gaps"},
	StateApplicationReview:    {"report_application_status", "schedule_interview"},
	StateInterviewScheduling:  {"propose_time_slots", "confirm_slot"},
	StateInterviewPreparation: {"share_preparation_material", "answer_question"},
	StateFinalInterview:       {"confirm_final_details"},
	StateEvaluation:           {"summarize_assessment", "communicate_decision"},
	StateClosing:              {"say_goodbye", "offer_restart"},
	StateError:                {"apologize", "offer_restart"},
	StateJailbreakDetected:    {"refuse_politely", "reset_conversation"},
}

// ActionsFor returns the fixed action list for a state. Unknown states get
// the error-state actions rather than nothing.
func ActionsFor(s State) []string {
	if actions, ok := stateActions[s]; ok {
		return actions
	}
	return stateActions[StateError]
}

// Validate enumerates the table and action lists, checking the two structural
// invariants: every state carries a non-empty action list and every state is
// reachable from the initial greeting state.
func Validate(rules []Rule) error {
	if rules == nil {
		rules = defaultRules
	}

	for _, s := range States {
		if len(stateActions[s]) == 0 {
			return fmt.Errorf("state %q has no actions", s)
		}
	}

	reachable := map[State]bool{StateGreeting: true}
	queue := []State{StateGreeting}
	for len(queue) > 0 {
		from := queue[0]
		queue = queue[1:]
		for _, r := range rules {
			if r.From != AnyState && r.From != from {
				continue
			}
			if !reachable[r.To] {
				reachable[r.To] = true
				queue = append(queue, r.To)
			}
		}
	}

	for _, s := range States {
		if !reachable[s] {
			return fmt.Errorf("state %q is not reachable from %q", s, StateGreeting)
		}
	}

	return nil
}
