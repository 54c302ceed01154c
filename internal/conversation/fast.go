package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"roleplay-chat/backend/internal/character"
	"roleplay-chat/backend/internal/models"
	"roleplay-chat/backend/internal/provider"
	"roleplay-chat/backend/internal/speech"
	apperrors "roleplay-chat/backend/pkg/errors"
	"roleplay-chat/backend/pkg/logger"
	"roleplay-chat/backend/pkg/observability"
)

// FastState is a snapshot of a FastSession
type FastState struct {
	Character      *models.Character `json:"character"`
	Messages       []models.Message  `json:"messages"`
	Processing     bool              `json:"isProcessing"`
	Error          string            `json:"error,omitempty"`
	ResponseTimeMs int64             `json:"responseTimeMs,omitempty"`
}

// FastSession is the latency demo: no history is sent or stored, and every
// reply is read aloud with the character's demo voice.
type FastSession struct {
	catalog character.Repository
	client  provider.Client
	speech  Speaker
	metrics *observability.Metrics
	log     *logger.Logger
	now     func() time.Time

	mu    sync.Mutex
	state FastState
	epoch uint64
}

// NewFastSession creates an empty demo session. client should be a fast
// variant provider.
func NewFastSession(catalog character.Repository, client provider.Client, sp Speaker, metrics *observability.Metrics, log *logger.Logger) *FastSession {
	return &FastSession{
		catalog: catalog,
		client:  client,
		speech:  sp,
		metrics: metrics,
		log:     logger.OrNop(log).WithComponent("fast-session"),
		now:     time.Now,
		state:   FastState{Messages: []models.Message{}},
	}
}

// Snapshot returns a copy of the session
func (f *FastSession) Snapshot() FastState {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := f.state
	cp.Messages = models.CloneMessages(f.state.Messages)
	return cp
}

// SelectCharacter switches character and clears the session. A reply still
// pending for the previous character is dropped.
func (f *FastSession) SelectCharacter(id string) error {
	ch, ok := f.catalog.Get(id)
	if !ok {
		return apperrors.ErrCharacterNotFound.WithDetails(map[string]string{"id": id})
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.epoch++
	f.state.Character = ch
	f.state.Messages = []models.Message{}
	f.state.Error = ""
	f.state.Processing = false
	f.state.ResponseTimeMs = 0
	return nil
}

// SendMessage appends the user's message, waits for the fast provider and
// appends the reply. Speech starts in the background.
func (f *FastSession) SendMessage(ctx context.Context, text string) (*models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.ErrEmptyInput
	}

	f.mu.Lock()
	ch := f.state.Character
	switch {
	case ch == nil:
		f.mu.Unlock()
		return nil, apperrors.ErrNoCharacterSelected
	case f.state.Processing:
		f.mu.Unlock()
		return nil, apperrors.ErrRequestInFlight
	}
	start := f.now()
	epoch := f.epoch
	f.state.Processing = true
	f.state.Error = ""
	f.state.ResponseTimeMs = 0
	f.state.Messages = append(f.state.Messages, models.NewMessage(models.SenderUser, text, "", start))
	f.metrics.ObserveMessage(string(models.SenderUser))
	f.mu.Unlock()

	res, err := f.client.SendMessage(context.WithoutCancel(ctx), text, ch, nil)
	elapsed := f.now().Sub(start)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.epoch != epoch {
		f.log.Info("Discarding fast reply for a previous character", "character_id", ch.ID)
		return nil, ErrDiscarded
	}
	f.state.Processing = false

	if err != nil {
		err = provider.MapError(err)
		f.state.Error = apperrors.GetErrorMessage(err)
		f.log.LogWarn(err, "Fast chat failed", "character_id", ch.ID, "elapsed_ms", elapsed.Milliseconds())
		return nil, err
	}

	reply := models.NewMessage(models.SenderAI, res.Text, ch.ID, f.now())
	f.state.Messages = append(f.state.Messages, reply)
	f.state.ResponseTimeMs = elapsed.Milliseconds()
	f.metrics.ObserveMessage(string(models.SenderAI))
	f.log.Info("Fast reply", "character_id", ch.ID, "elapsed_ms", elapsed.Milliseconds())

	if f.speech != nil {
		u := f.speech.Speak(context.WithoutCancel(ctx), reply.Text, speech.FastVoice(ch.ID))
		go func() {
			if err := u.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				f.log.LogWarn(err, "Fast speech failed")
			}
		}()
	}
	return &reply, nil
}

// ClearMessages empties the session and forgets the last response time
func (f *FastSession) ClearMessages() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.Messages = []models.Message{}
	f.state.Error = ""
	f.state.ResponseTimeMs = 0
}

// ClearError dismisses the current error
func (f *FastSession) ClearError() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.Error = ""
}
