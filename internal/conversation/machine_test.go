package conversation

import (
	"testing"
	"time"
)

func TestTransitionFollowsTable(t *testing.T) {
	m := NewMachine(NewContext())

	res := m.Transition(IntentionJobInquiry, nil)
	if !res.Success {
		t.Fatalf("expected greeting -> job_discussion to succeed: %+v", res)
	}
	if res.PreviousState != StateGreeting || res.NewState != StateJobDiscussion {
		t.Fatalf("unexpected transition: %+v", res)
	}
	if len(res.Actions) == 0 {
		t.Fatalf("expected actions for the new state")
	}
}

func TestTransitionFailureKeepsState(t *testing.T) {
	m := NewMachine(NewContext())

	res := m.Transition(IntentionInterviewPrep, nil)
	if res.Success {
		t.Fatalf("interview prep from greeting must not transition")
	}
	if res.NewState != StateGreeting || res.Reason == "" {
		t.Fatalf("failed transition must keep state and carry a reason: %+v", res)
	}
	if m.Current() != StateGreeting {
		t.Fatalf("state mutated on failed transition")
	}
}

func TestJailbreakEdgeFromEveryState(t *testing.T) {
	for _, s := range States {
		ctx := NewContext()
		ctx.CurrentState = s
		m := NewMachine(ctx)

		res := m.Transition(IntentionJailbreakAttempt, nil)
		if !res.Success || res.NewState != StateJailbreakDetected {
			t.Fatalf("jailbreak edge missing from %q: %+v", s, res)
		}
	}
}

func TestGuardedTransitionsOnCVProcessing(t *testing.T) {
	ctx := NewContext()
	ctx.CurrentState = StateCVProcessing
	m := NewMachine(ctx)

	res := m.Transition(IntentionCVUpload, map[string]any{"processing_failed": true})
	if !res.Success || res.NewState != StateError {
		t.Fatalf("failed processing must land in error state: %+v", res)
	}

	m.Reset(StateCVProcessing)
	res = m.Transition(IntentionCVUpload, nil)
	if !res.Success || res.NewState != StateCVUploaded {
		t.Fatalf("successful processing must land in cv_uploaded: %+v", res)
	}
}

func TestPanickyGuardRejects(t *testing.T) {
	ctx := NewContext()
	m := NewMachine(ctx, Rule{
		From:    StateGreeting,
		Trigger: IntentionGreeting,
		Guard:   func(map[string]any) bool { panic("boom") },
		To:      StateError,
	})

	// The default greeting self-loop precedes the panicky extra rule.
	res := m.Transition(IntentionGreeting, nil)
	if !res.Success || res.NewState != StateGreeting {
		t.Fatalf("expected the default rule to win: %+v", res)
	}
}

func TestFirstAcceptingRuleWins(t *testing.T) {
	ctx := NewContext()
	ctx.CurrentState = StateEvaluation
	m := NewMachine(ctx)

	res := m.Transition(IntentionFarewell, nil)
	if res.NewState != StateSurvey {
		t.Fatalf("the evaluation-specific farewell rule must win over the wildcard: %+v", res)
	}
}

func TestForceTransitionRecordsReason(t *testing.T) {
	m := NewMachine(NewContext())

	res := m.ForceTransition(StateCVUploaded, "resume processed")
	if !res.Success || res.NewState != StateCVUploaded || res.PreviousState != StateGreeting {
		t.Fatalf("unexpected forced transition: %+v", res)
	}
	if m.Context().Metadata["forced_reason"] != "resume processed" {
		t.Fatalf("forced reason not recorded in metadata")
	}
}

func TestResetDropsHistory(t *testing.T) {
	ctx := NewContext()
	ctx.AppendMessage(RoleCandidate, "hello", time.Now(), 0)
	ctx.AppendIntention(IntentionGreeting)
	m := NewMachine(ctx)
	m.Transition(IntentionJobInquiry, map[string]any{"k": "v"})

	m.Reset("")
	if m.Current() != StateGreeting {
		t.Fatalf("reset must return to greeting, got %q", m.Current())
	}
	if len(ctx.Messages) != 0 || len(ctx.Intentions) != 0 || len(ctx.Metadata) != 0 {
		t.Fatalf("reset must drop history: %+v", ctx)
	}
}

func TestCanTransitionHasNoSideEffects(t *testing.T) {
	m := NewMachine(NewContext())

	if !m.CanTransition(IntentionJobInquiry, nil) {
		t.Fatalf("expected job inquiry to be applicable from greeting")
	}
	if m.Current() != StateGreeting {
		t.Fatalf("CanTransition mutated state")
	}
}

func TestValidateDefaultTable(t *testing.T) {
	if err := Validate(nil); err != nil {
		t.Fatalf("default table must validate: %s", err)
	}
}

func TestValidateDetectsUnreachableState(t *testing.T) {
	// A table with only the greeting self-loop leaves everything else
	// unreachable.
	err := Validate([]Rule{{From: StateGreeting, Trigger: IntentionGreeting, To: StateGreeting}})
	if err == nil {
		t.Fatalf("expected a reachability error")
	}
}

func TestAppendMessageEvictsOldest(t *testing.T) {
	ctx := NewContext()
	at := time.Now()
	ctx.AppendMessage(RoleCandidate, "one", at, 2)
	ctx.AppendMessage(RoleAgent, "two", at, 2)
	ctx.AppendMessage(RoleCandidate, "three", at, 2)

	if len(ctx.Messages) != 2 {
		t.Fatalf("expected 2 messages after eviction, got %d", len(ctx.Messages))
	}
	if ctx.Messages[0].Content != "two" || ctx.Messages[1].Content != "three" {
		t.Fatalf("oldest message must be evicted first: %+v", ctx.Messages)
	}
}

func TestActionsForUnknownState(t *testing.T) {
	actions := ActionsFor(State("bogus"))
	if len(actions) == 0 {
		t.Fatalf("unknown states must fall back to error-state actions")
	}
}
