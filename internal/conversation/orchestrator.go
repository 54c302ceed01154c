// Package conversation owns the live state of a chat. All mutations go
// through the Orchestrator's transitions; collaborators only read snapshots
// or subscribe to events.
package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"roleplay-chat/backend/internal/character"
	"roleplay-chat/backend/internal/history"
	"roleplay-chat/backend/internal/models"
	"roleplay-chat/backend/internal/provider"
	"roleplay-chat/backend/internal/settings"
	"roleplay-chat/backend/internal/speech"
	apperrors "roleplay-chat/backend/pkg/errors"
	"roleplay-chat/backend/pkg/logger"
	"roleplay-chat/backend/pkg/observability"
)

// ErrDiscarded is returned by Pending.Wait when the conversation was reset
// or switched to another character before the reply arrived.
var ErrDiscarded = errors.New("conversation changed before the reply arrived")

// Providers resolves the generation client for a provider kind
type Providers interface {
	Client(ctx context.Context, kind provider.Kind) (provider.Client, error)
}

// Speaker reads replies aloud
type Speaker interface {
	Speak(ctx context.Context, text string, v speech.Voice) *speech.Utterance
	Stop()
}

// Deps are the collaborators of an Orchestrator. Speech and Metrics may be nil.
type Deps struct {
	Catalog   character.Repository
	History   *history.Store
	Settings  *settings.Store
	Providers Providers
	Speech    Speaker
	Metrics   *observability.Metrics
	Logger    *logger.Logger
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithCancellation makes provider calls observe the caller's context.
// By default a submitted message waits for the provider regardless.
func WithCancellation() Option {
	return func(o *Orchestrator) { o.cancellable = true }
}

// Orchestrator coordinates one conversation
type Orchestrator struct {
	catalog     character.Repository
	history     *history.Store
	settings    *settings.Store
	providers   Providers
	speech      Speaker
	metrics     *observability.Metrics
	log         *logger.Logger
	now         func() time.Time
	cancellable bool

	mu       sync.Mutex
	state    State
	inFlight bool
	// epoch changes whenever the conversation is switched or reset so
	// late replies can tell they are stale
	epoch uint64
	// loaded belongs to the running history load, if any
	loaded chan struct{}
	subs   map[int]chan Event
	nextID int
}

// New creates an empty conversation with persisted settings applied
func New(ctx context.Context, d Deps, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		catalog:   d.Catalog,
		history:   d.History,
		settings:  d.Settings,
		providers: d.Providers,
		speech:    d.Speech,
		metrics:   d.Metrics,
		log:       logger.OrNop(d.Logger).WithComponent("conversation"),
		now:       time.Now,
		loaded:    closedChan(),
		subs:      make(map[int]chan Event),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.state.Messages = []models.Message{}
	if o.settings != nil {
		o.state.Settings = o.settings.Load(ctx)
	}
	return o
}

func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func isClosed(ch chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

// Snapshot returns a copy of the current state
func (o *Orchestrator) Snapshot() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state.clone()
}

// Idle reports whether nobody is subscribed and no reply or history load
// is pending
func (o *Orchestrator) Idle() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.subs) == 0 && !o.inFlight && isClosed(o.loaded)
}

// Subscribe registers for events. Events are dropped for a subscriber whose
// buffer is full. The returned func unsubscribes and closes the channel.
func (o *Orchestrator) Subscribe(buffer int) (<-chan Event, func()) {
	ch := make(chan Event, buffer)

	o.mu.Lock()
	id := o.nextID
	o.nextID++
	o.subs[id] = ch
	o.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			o.mu.Lock()
			delete(o.subs, id)
			o.mu.Unlock()
			close(ch)
		})
	}
}

func (o *Orchestrator) emitLocked(ev Event) {
	for id, ch := range o.subs {
		select {
		case ch <- ev:
		default:
			o.log.Debug("Dropping event for slow subscriber", "subscriber", id, "type", string(ev.Type))
		}
	}
}

func (o *Orchestrator) emitStateLocked() {
	if len(o.subs) == 0 {
		return
	}
	s := o.state.clone()
	o.emitLocked(Event{Type: EventState, State: &s})
}

// appendLocked adds msg, clears the error and persists the list
func (o *Orchestrator) appendLocked(ctx context.Context, msg models.Message) {
	o.state.Messages = append(o.state.Messages, msg)
	o.state.Error = ""
	o.persistLocked(ctx)
	o.metrics.ObserveMessage(string(msg.Sender))
	m := msg
	o.emitLocked(Event{Type: EventMessage, Message: &m})
}

func (o *Orchestrator) persistLocked(ctx context.Context) {
	if o.history == nil || o.state.Character == nil || len(o.state.Messages) == 0 {
		return
	}
	o.history.Save(ctx, o.state.Character.ID, o.state.Messages)
}

func (o *Orchestrator) setErrorLocked(msg string) {
	o.state.Error = msg
	o.state.Loading = false
	o.state.Typing = false
}

// SelectCharacter makes id the current character, empties the list and
// loads its history in the background. The returned channel is closed once
// the history is in place.
func (o *Orchestrator) SelectCharacter(ctx context.Context, id string) (<-chan struct{}, error) {
	ch, ok := o.catalog.Get(id)
	if !ok {
		return nil, apperrors.ErrCharacterNotFound.WithDetails(map[string]string{"id": id})
	}

	done := make(chan struct{})

	o.mu.Lock()
	o.epoch++
	o.inFlight = false
	o.state.Character = ch
	o.state.Messages = []models.Message{}
	o.state.Error = ""
	o.state.Typing = false
	o.state.Loading = true
	o.loaded = done
	o.emitStateLocked()
	o.mu.Unlock()

	o.log.Info("Character selected", "character_id", ch.ID)

	if o.history != nil {
		o.history.SaveSelected(ctx, ch.ID)
	}
	go o.loadHistory(context.WithoutCancel(ctx), ch.ID, done)
	return done, nil
}

func (o *Orchestrator) loadHistory(ctx context.Context, characterID string, done chan struct{}) {
	var msgs []models.Message
	if o.history != nil {
		msgs = o.history.Load(ctx, characterID)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	defer close(done)

	// a later select, reset or clear replaced this load
	if o.loaded != done {
		o.log.Debug("Discarding stale history load", "character_id", characterID)
		return
	}
	o.state.Messages = models.CloneMessages(msgs)
	o.state.Loading = false
	o.emitStateLocked()
	o.log.Debug("History loaded", "character_id", characterID, "messages", len(msgs))
}

// Restore selects the character that was current before the last restart.
// It reports false when none was recorded.
func (o *Orchestrator) Restore(ctx context.Context) (<-chan struct{}, bool) {
	if o.history == nil {
		return nil, false
	}
	id, ok := o.history.LoadSelected(ctx)
	if !ok {
		return nil, false
	}
	done, err := o.SelectCharacter(ctx, id)
	if err != nil {
		o.log.LogWarn(err, "Stored character is no longer in the catalog", "character_id", id)
		return nil, false
	}
	return done, true
}

// SubmitMessage appends the user's message and asks the provider for a
// reply in the background. Blank text, no current character and a request
// already in flight are rejected without touching the state.
func (o *Orchestrator) SubmitMessage(ctx context.Context, text string) (*Pending, error) {
	return o.submit(ctx, text, false)
}

// SubmitMessageStream is SubmitMessage with the reply streamed to
// subscribers as EventChunk events when the provider supports it.
func (o *Orchestrator) SubmitMessageStream(ctx context.Context, text string) (*Pending, error) {
	return o.submit(ctx, text, true)
}

func (o *Orchestrator) submit(ctx context.Context, text string, stream bool) (*Pending, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.ErrEmptyInput
	}

	o.mu.Lock()
	for !isClosed(o.loaded) {
		loaded := o.loaded
		o.mu.Unlock()
		select {
		case <-loaded:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		o.mu.Lock()
	}

	ch := o.state.Character
	if ch == nil {
		o.mu.Unlock()
		return nil, apperrors.ErrNoCharacterSelected
	}
	if o.inFlight {
		o.mu.Unlock()
		return nil, apperrors.ErrRequestInFlight
	}

	prior := models.CloneMessages(o.state.Messages)
	user := models.NewMessage(models.SenderUser, text, "", o.now())

	o.inFlight = true
	o.appendLocked(ctx, user)
	o.state.Typing = true
	o.state.Error = ""
	epoch := o.epoch
	kind, _ := provider.ParseKind(o.state.Settings.APIProvider)
	o.emitStateLocked()
	o.mu.Unlock()

	callCtx := ctx
	if !o.cancellable {
		callCtx = context.WithoutCancel(ctx)
	}

	p := newPending(user)
	go o.complete(callCtx, p, request{
		epoch:   epoch,
		kind:    kind,
		text:    text,
		ch:      ch,
		history: prior,
		stream:  stream,
	})
	return p, nil
}

type request struct {
	epoch   uint64
	kind    provider.Kind
	text    string
	ch      *models.Character
	history []models.Message
	stream  bool
}

func (o *Orchestrator) complete(ctx context.Context, p *Pending, req request) {
	log := o.log.WithCharacter(req.ch.ID)
	res, err := o.generate(ctx, req)

	o.mu.Lock()
	if o.epoch != req.epoch {
		o.mu.Unlock()
		log.Info("Discarding reply for a conversation that moved on")
		p.finish(nil, ErrDiscarded)
		return
	}

	o.inFlight = false
	var reply *models.Message
	if err != nil {
		err = provider.MapError(err)
		o.setErrorLocked(apperrors.GetErrorMessage(err))
		log.LogWarn(err, "Provider call failed", "reason", provider.Reason(err))
	} else {
		msg := models.NewMessage(models.SenderAI, res.Text, req.ch.ID, o.now())
		o.appendLocked(context.WithoutCancel(ctx), msg)
		reply = &msg
		log.Info("Reply received", "tokens", res.Tokens, "length", len(res.Text))
	}
	o.state.Typing = false
	ttsEnabled := o.state.Settings.TTSEnabled
	o.emitStateLocked()
	o.mu.Unlock()

	if reply != nil && ttsEnabled {
		o.speak(ctx, reply.Text, req.ch)
	}
	p.finish(reply, err)
}

func (o *Orchestrator) generate(ctx context.Context, req request) (provider.Result, error) {
	client, err := o.providers.Client(ctx, req.kind)
	if err != nil {
		return provider.Result{}, apperrors.ProviderError(err.Error()).WithCause(err)
	}

	if streamer, ok := client.(provider.Streamer); ok && req.stream {
		return streamer.SendMessageStream(ctx, req.text, req.ch, req.history, func(chunk, full string) {
			o.mu.Lock()
			defer o.mu.Unlock()
			if o.epoch == req.epoch {
				o.emitLocked(Event{Type: EventChunk, Chunk: chunk, Text: full})
			}
		})
	}
	return client.SendMessage(ctx, req.text, req.ch, req.history)
}

func (o *Orchestrator) speak(ctx context.Context, text string, ch *models.Character) {
	if o.speech == nil {
		return
	}
	u := o.speech.Speak(context.WithoutCancel(ctx), text, speech.CharacterVoice(ch))
	go func() {
		if err := u.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			o.log.LogWarn(err, "Speech failed", "character_id", ch.ID)
		}
	}()
}

// ClearMessages empties the list and drops the stored history of the
// current character. A history load still running is abandoned.
func (o *Orchestrator) ClearMessages(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !isClosed(o.loaded) {
		o.loaded = closedChan()
		o.state.Loading = false
	}
	o.state.Messages = []models.Message{}
	o.state.Error = ""
	if o.state.Character != nil && o.history != nil {
		o.history.Clear(ctx, o.state.Character.ID)
	}
	o.emitStateLocked()
}

// SetError surfaces msg and drops the busy flags
func (o *Orchestrator) SetError(msg string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.setErrorLocked(msg)
	o.emitStateLocked()
}

// ClearError dismisses the current error
func (o *Orchestrator) ClearError() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state.Error = ""
	o.emitStateLocked()
}

// UpdateSettings merges patch into the settings and persists them
func (o *Orchestrator) UpdateSettings(ctx context.Context, patch models.SettingsPatch) models.Settings {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.settings != nil {
		o.state.Settings = o.settings.Update(ctx, patch)
	} else {
		o.state.Settings = o.state.Settings.Apply(patch)
	}
	o.emitStateLocked()
	return o.state.Settings
}

// Settings returns the current settings
func (o *Orchestrator) Settings() models.Settings {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state.Settings
}

// ResetConversation returns to the empty state. Settings are kept.
func (o *Orchestrator) ResetConversation(ctx context.Context) {
	o.mu.Lock()
	o.epoch++
	o.inFlight = false
	o.state = State{Messages: []models.Message{}, Settings: o.state.Settings}
	o.loaded = closedChan()
	o.emitStateLocked()
	o.mu.Unlock()

	if o.history != nil {
		o.history.SaveSelected(ctx, "")
	}
}

// StopSpeech halts any reply being read aloud
func (o *Orchestrator) StopSpeech() {
	if o.speech != nil {
		o.speech.Stop()
	}
}

// Pending is the outcome of a submitted message
type Pending struct {
	user  models.Message
	done  chan struct{}
	reply *models.Message
	err   error
}

func newPending(user models.Message) *Pending {
	return &Pending{user: user, done: make(chan struct{})}
}

func (p *Pending) finish(reply *models.Message, err error) {
	p.reply, p.err = reply, err
	close(p.done)
}

// UserMessage is the message appended by the submission
func (p *Pending) UserMessage() models.Message { return p.user }

// Done is closed once the reply or failure has been applied
func (p *Pending) Done() <-chan struct{} { return p.done }

// Wait blocks until Done or ctx ends. Cancelling ctx only stops waiting.
func (p *Pending) Wait(ctx context.Context) (*models.Message, error) {
	select {
	case <-p.done:
		return p.reply, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
