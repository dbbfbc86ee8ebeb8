package conversation

// Guard gates a transition rule. Guards must be pure and total; a guard that
// panics is treated as rejecting.
type Guard func(data map[string]any) bool

// AnyState is the wildcard from-state for rules applicable everywhere, such
// as the jailbreak escape edge.
const AnyState State = "*"

// Rule is one entry of the static transition table: when the conversation is
// in From and the trigger intention fires, move to To if Guard accepts (a nil
// guard always accepts). For a given (from, trigger) pair the first accepting
// rule in table order wins.
type Rule struct {
	From    State
	Trigger Intention
	Guard   Guard
	To      State
}

// TransitionResult reports the outcome of one transition attempt. A failed
// transition is a normal result, not an error: the intention was understood
// but inapplicable in the current state.
type TransitionResult struct {
	Success       bool     `json:"success"`
	PreviousState State    `json:"previous_state"`
	NewState      State    `json:"new_state"`
	Actions       []string `json:"available_actions"`
	Reason        string   `json:"reason,omitempty"`
}

// Machine drives one session's conversation state against the static
// transition table. Not safe for concurrent use; callers serialize access
// per session.
type Machine struct {
	ctx     *Context
	rules   []Rule
	actions map[State][]string
}

// NewMachine builds a machine over ctx using the default table, with extra
// caller-supplied rules appended after the defaults.
func NewMachine(ctx *Context, extra ...Rule) *Machine {
	if ctx == nil {
		ctx = NewContext()
	}
	rules := make([]Rule, 0, len(defaultRules)+len(extra))
	rules = append(rules, defaultRules...)
	rules = append(rules, extra...)

	return &Machine{
		ctx:     ctx,
		rules:   rules,
		actions: stateActions,
	}
}

// Context exposes the machine's conversation context.
func (m *Machine) Context() *Context {
	return m.ctx
}

// Current returns the current conversation state.
func (m *Machine) Current() State {
	return m.ctx.CurrentState
}

// Transition applies the first table rule matching (current state, intention)
// whose guard accepts, merging data into the context bag on success.
func (m *Machine) Transition(in Intention, data map[string]any) TransitionResult {
	prev := m.ctx.CurrentState

	to, ok := m.findTarget(in, data)
	if !ok {
		return TransitionResult{
			Success:       false,
			PreviousState: prev,
			NewState:      prev,
			Actions:       m.AvailableActions(),
			Reason:        "no valid transition",
		}
	}

	m.ctx.PreviousState = prev
	m.ctx.CurrentState = to
	m.ctx.MergeMetadata(data)

	return TransitionResult{
		Success:       true,
		PreviousState: prev,
		NewState:      to,
		Actions:       m.AvailableActions(),
	}
}

// CanTransition reports whether Transition would succeed, without side
// effects.
func (m *Machine) CanTransition(in Intention, data map[string]any) bool {
	_, ok := m.findTarget(in, data)
	return ok
}

// ForceTransition bypasses the table entirely. Administrative escape hatch
// for error recovery and document-upload flows; previous state and reason are
// still recorded.
func (m *Machine) ForceTransition(to State, reason string) TransitionResult {
	prev := m.ctx.CurrentState
	m.ctx.PreviousState = prev
	m.ctx.CurrentState = to
	if reason != "" {
		m.ctx.MergeMetadata(map[string]any{"forced_reason": reason})
	}

	return TransitionResult{
		Success:       true,
		PreviousState: prev,
		NewState:      to,
		Actions:       m.AvailableActions(),
		Reason:        reason,
	}
}

// Reset reinitializes the context at the given state (greeting when empty),
// dropping intention and message history.
func (m *Machine) Reset(to State) {
	if to == "" {
		to = StateGreeting
	}
	*m.ctx = Context{
		CurrentState: to,
		Metadata:     map[string]any{},
	}
}

// AvailableActions returns the fixed action list of the current state.
func (m *Machine) AvailableActions() []string {
	return ActionsFor(m.ctx.CurrentState)
}

func (m *Machine) findTarget(in Intention, data map[string]any) (State, bool) {
	for _, r := range m.rules {
		if r.Trigger != in {
			continue
		}
		if r.From != AnyState && r.From != m.ctx.CurrentState {
			continue
		}
		if guardAccepts(r.Guard, data) {
			return r.To, true
		}
	}
	return "", false
}

// guardAccepts evaluates a guard, treating a panic as rejection.
func guardAccepts(g Guard, data map[string]any) (accepted bool) {
	if g == nil {
		return true
	}
	defer func() {
		if recover() != nil {
			accepted = false
		}
	}()
	return g(data)
}
