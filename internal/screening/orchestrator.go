package screening

import (
	"time"

	"github.com/spigell/hh-screener/internal/conversation"
	"github.com/spigell/hh-screener/internal/intent"
	"github.com/spigell/hh-screener/internal/logger"
	"github.com/spigell/hh-screener/internal/profile"
	"github.com/spigell/hh-screener/internal/session"
	"github.com/spigell/hh-screener/internal/threat"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
)

// Config tunes the orchestrator policy.
type Config struct {
	// MaxConversationLength caps the stored message history per session;
	// oldest entries are evicted first.
	MaxConversationLength int `mapstructure:"max-conversation-length"`

	// MaxSessionMessages caps candidate messages per session (0 = uncapped).
	MaxSessionMessages int `mapstructure:"max-session-messages"`

	// BlockOnJailbreak substitutes the fixed refusal and resets the
	// conversation when the detector flags a message.
	BlockOnJailbreak bool `mapstructure:"block-on-jailbreak"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MaxConversationLength: 50,
		MaxSessionMessages:    200,
		BlockOnJailbreak:      true,
	}
}

// Reply bundles everything the transport layer needs for one processed
// message.
type Reply struct {
	Response   string                        `json:"response"`
	SessionID  string                        `json:"session_id"`
	State      conversation.State            `json:"state"`
	Intention  intent.Result                 `json:"intention"`
	Threat     threat.Assessment             `json:"threat"`
	Transition conversation.TransitionResult `json:"transition"`

	// Actions lists side effects taken while processing ("session_created",
	// "profile_updated", ...).
	Actions  []string `json:"actions,omitempty"`
	Metadata Metadata `json:"metadata"`
}

// Metadata is the free-form result bag exposed to the caller.
type Metadata struct {
	ProcessingTime time.Duration `json:"processing_time"`
	SecurityFlags  []string      `json:"security_flags,omitempty"`
	NextSteps      []string      `json:"next_steps,omitempty"`
}

// messageMeta is the typed view of the caller-supplied metadata bag.
type messageMeta struct {
	JobID         string `mapstructure:"job_id"`
	JobTitle      string `mapstructure:"job_title"`
	CandidateName string `mapstructure:"candidate_name"`
	ReadyForFinal bool   `mapstructure:"ready_for_final"`
}

// Orchestrator sequences the detector, the classifier and the state machine
// against one mutable session per message. Different sessions may be
// processed concurrently; messages within one session must be serialized by
// the caller.
type Orchestrator struct {
	store      session.Store
	detector   *threat.Detector
	classifier *intent.Classifier
	extractor  *profile.Extractor
	notifier   Notifier
	logger     *zap.Logger
	cfg        Config
	analytics  *Analytics
	now        func() time.Time
}

// New wires an orchestrator. Nil notifier and logger degrade to no-ops.
func New(store session.Store, detector *threat.Detector, classifier *intent.Classifier,
	extractor *profile.Extractor, notifier Notifier, log *zap.Logger, cfg Config,
) *Orchestrator {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.MaxConversationLength <= 0 {
		cfg.MaxConversationLength = DefaultConfig().MaxConversationLength
	}

	return &Orchestrator{
		store:      store,
		detector:   detector,
		classifier: classifier,
		extractor:  extractor,
		notifier:   notifier,
		logger:     log,
		cfg:        cfg,
		analytics:  NewAnalytics(),
		now:        time.Now,
	}
}

// Analytics exposes the running aggregate.
func (o *Orchestrator) Analytics() *Analytics {
	return o.analytics
}

// ProcessMessage runs the full per-message control loop. It never panics: an
// unexpected internal fault is converted into a generic processing-error
// reply with the session left at its previous known-good state.
func (o *Orchestrator) ProcessMessage(text, sessionID string, meta map[string]any) (reply *Reply) {
	started := o.now()

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("unexpected fault while processing message",
				zap.String("session_id", sessionID),
				zap.Any("panic", r),
			)
			o.analytics.Record(conversation.IntentionUnknown, 0, false)
			reply = &Reply{
				Response:  processingErrorResponse,
				SessionID: sessionID,
				State:     conversation.StateError,
				Metadata: Metadata{
					ProcessingTime: o.now().Sub(started),
					SecurityFlags:  []string{"processing_error"},
				},
			}
		}
	}()

	sess, created, err := o.store.GetOrCreate(sessionID)
	if err != nil {
		panic(err)
	}

	var actions []string
	if created {
		actions = append(actions, "session_created")
		o.notifier.Notify(Event{
			Kind: EventSessionStarted, Severity: "info",
			SessionID: sessionID, At: started,
		})
	}

	m := decodeMeta(meta)
	o.applyMeta(sess, m)

	if sess.Exhausted() {
		o.persist(sess)
		o.analytics.Record(conversation.IntentionUnknown, 0, false)
		return &Reply{
			Response:  limitReachedResponse,
			SessionID: sessionID,
			State:     sess.Context.CurrentState,
			Metadata: Metadata{
				ProcessingTime: o.now().Sub(started),
				SecurityFlags:  []string{"message_cap_reached"},
				NextSteps:      stepsFor(sess.Context.CurrentState),
			},
		}
	}

	machine := conversation.NewMachine(sess.Context)

	assessment := o.detector.Assess(text, &threat.SessionContext{
		SessionID: sessionID,
		Messages:  sess.Context.Messages,
	})

	if assessment.IsJailbreak && o.cfg.BlockOnJailbreak {
		machine.Reset(conversation.StateGreeting)
		sess.MessageCount++
		sess.Touch(o.now())
		o.persist(sess)

		o.analytics.Record(conversation.IntentionJailbreakAttempt, assessment.Confidence, true)
		o.notifier.Notify(Event{
			Kind: EventSecurityAlert, Severity: string(assessment.Severity),
			SessionID: sessionID, At: started,
			Data: map[string]any{
				"risk_score": assessment.RiskScore,
				"reasoning":  assessment.Reasoning,
			},
		})
		logger.Security(o.logger, "message blocked",
			zap.String(logger.FieldSession, sessionID),
			zap.Float64("risk_score", assessment.RiskScore),
			zap.String("preview", logger.TruncateForLog(text, 80)),
		)

		return &Reply{
			Response:  safeRefusal,
			SessionID: sessionID,
			State:     machine.Current(),
			Intention: intent.Result{
				Intention:  conversation.IntentionJailbreakAttempt,
				Confidence: assessment.Confidence,
				Validity:   intent.ValidityInvalid,
			},
			Threat:  assessment,
			Actions: append(actions, "security_blocked", "conversation_reset"),
			Metadata: Metadata{
				ProcessingTime: o.now().Sub(started),
				SecurityFlags:  []string{"jailbreak_blocked"},
				NextSteps:      stepsFor(machine.Current()),
			},
		}
	}

	detected := o.classifier.Detect(text, sess.Context)

	transitionData := map[string]any{}
	if m.ReadyForFinal {
		transitionData["ready_for_final"] = true
	}

	transition := machine.Transition(detected.Intention, transitionData)
	if transition.Success {
		actions = append(actions, "state_transitioned")
	}
	if detected.Intention == conversation.IntentionInterviewPrep && transition.Success &&
		transition.NewState == conversation.StateInterviewScheduling {
		actions = append(actions, "interview_scheduling_requested")
	}
	if detected.Intention == conversation.IntentionEscalation {
		actions = append(actions, "escalation_requested")
	}

	response := selectResponse(detected.Intention, machine.Current(), o.vars(sess))

	now := o.now()
	sess.Context.AppendIntention(detected.Intention)
	sess.Context.AppendMessage(conversation.RoleCandidate, text, now, o.cfg.MaxConversationLength)
	sess.Context.AppendMessage(conversation.RoleAgent, response, now, o.cfg.MaxConversationLength)
	sess.MessageCount++
	sess.Touch(now)
	o.persist(sess)

	o.analytics.Record(detected.Intention, detected.Confidence, assessment.IsJailbreak)

	logger.WithSessionFields(o.logger, sessionID, string(detected.Intention)).Debug("message processed",
		zap.Float64("confidence", detected.Confidence),
		zap.String("state", string(machine.Current())),
		zap.Bool("transitioned", transition.Success),
	)

	var securityFlags []string
	if assessment.IsJailbreak {
		securityFlags = append(securityFlags, "jailbreak_flagged")
	}

	return &Reply{
		Response:   response,
		SessionID:  sessionID,
		State:      machine.Current(),
		Intention:  detected,
		Threat:     assessment,
		Transition: transition,
		Actions:    actions,
		Metadata: Metadata{
			ProcessingTime: o.now().Sub(started),
			SecurityFlags:  securityFlags,
			NextSteps:      stepsFor(machine.Current()),
		},
	}
}

// HandleDocumentUpload runs the profile extractor for an uploaded resume and
// merges the result into the session. Extraction failures are typed results;
// the conversation state is left untouched by a rejected document.
func (o *Orchestrator) HandleDocumentUpload(data []byte, filename, mimeType, sessionID string) profile.ParseResult {
	sess, created, err := o.store.GetOrCreate(sessionID)
	if err != nil {
		return profile.ParseResult{Success: false, Errors: []string{err.Error()}}
	}
	if created {
		o.notifier.Notify(Event{
			Kind: EventSessionStarted, Severity: "info",
			SessionID: sessionID, At: o.now(),
		})
	}

	result := o.extractor.Parse(data, filename, mimeType)
	if !result.Success {
		o.logger.Warn("resume upload rejected",
			zap.String(logger.FieldSession, sessionID),
			zap.String("filename", filename),
			zap.Strings("errors", result.Errors),
		)
		return result
	}

	if sess.Context.Profile == nil {
		sess.Context.Profile = result.Profile
	} else {
		sess.Context.Profile.Merge(result.Profile)
	}

	machine := conversation.NewMachine(sess.Context)
	machine.ForceTransition(conversation.StateCVUploaded, "resume processed")
	sess.Touch(o.now())
	o.persist(sess)

	o.notifier.Notify(Event{
		Kind: EventCVUploaded, Severity: "info",
		SessionID: sessionID, At: o.now(),
		Data: map[string]any{
			"filename": filename,
			"skills":   len(result.Profile.Skills),
		},
	})

	return result
}

// persist writes the mutated session back through the store port. The
// in-memory store shares pointers, but nothing here may rely on that; a
// failed write is logged and the reply still goes out.
func (o *Orchestrator) persist(sess *session.Session) {
	if err := o.store.Save(sess); err != nil {
		o.logger.Error("saving session",
			zap.String(logger.FieldSession, sess.ID),
			zap.Error(err),
		)
	}
}

// applyMeta attaches job and candidate details supplied by the transport.
func (o *Orchestrator) applyMeta(sess *session.Session, m messageMeta) {
	if m.JobID != "" || m.JobTitle != "" {
		sess.Context.Job = &conversation.JobReference{ID: m.JobID, Title: m.JobTitle}
	}
	if m.CandidateName != "" && sess.Context.Profile == nil {
		sess.Context.Profile = &profile.Profile{Name: m.CandidateName}
	}
}

func decodeMeta(meta map[string]any) messageMeta {
	var m messageMeta
	if len(meta) == 0 {
		return m
	}
	// Decode errors mean a malformed bag; treat it as empty.
	_ = mapstructure.Decode(meta, &m)
	return m
}

func (o *Orchestrator) vars(sess *session.Session) templateVars {
	vars := templateVars{}
	if p := sess.Profile(); p != nil {
		vars.Name = p.Name
	}
	if sess.Context.Job != nil {
		vars.Job = sess.Context.Job.Title
	}
	return vars
}
