package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Conversly/lead-response/internal/loaders"
	"github.com/Conversly/lead-response/internal/metrics"
	"github.com/Conversly/lead-response/internal/utils"
)

const (
	defaultChannelCapacity = 1000
	defaultSaveTimeout     = 5 * time.Second
)

// TurnSaver persists turns on a single background worker so the turns of a
// conversation are written in the order they were enqueued.
type TurnSaver struct {
	db        ConversationWriter
	ch        chan Turn
	timeout   time.Duration
	stopCh    chan struct{}
	stoppedCh chan struct{}
	stopOnce  sync.Once
	titles    sync.WaitGroup
}

func NewTurnSaver(db ConversationWriter) *TurnSaver {
	s := &TurnSaver{
		db:        db,
		ch:        make(chan Turn, defaultChannelCapacity),
		timeout:   defaultSaveTimeout,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *TurnSaver) run() {
	defer close(s.stoppedCh)
	for {
		select {
		case t := <-s.ch:
			s.save(t)
		case <-s.stopCh:
			for {
				select {
				case t := <-s.ch:
					s.save(t)
				default:
					return
				}
			}
		}
	}
}

// Enqueue schedules a turn for persistence. When the queue is full the turn
// is written on the caller's goroutine.
func (s *TurnSaver) Enqueue(t Turn) {
	select {
	case s.ch <- t:
	default:
		utils.Zlog.Warn("Turn queue full, saving inline",
			zap.String("conversation_id", t.Conversation.ConversationID))
		s.save(t)
	}
}

// Stop drains queued turns and waits for the worker and any pending
// title updates to finish.
func (s *TurnSaver) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	<-s.stoppedCh
	s.titles.Wait()
}

func (s *TurnSaver) save(t Turn) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	err := s.write(ctx, t)
	if err != nil {
		utils.Zlog.Error("Failed to save turn, retrying",
			zap.String("conversation_id", t.Conversation.ConversationID),
			zap.Error(err))
		err = s.write(ctx, t)
	}
	if err != nil {
		metrics.ConversationSaveFailures.Inc()
		utils.Zlog.Error("Retry failed for turn save",
			zap.String("conversation_id", t.Conversation.ConversationID),
			zap.Int("entries", len(t.Entries)),
			zap.Error(err))
	}

	if t.Saved != nil {
		select {
		case t.Saved <- err:
		default:
		}
	}
	if err == nil && t.Retitle != nil {
		s.titles.Add(1)
		go s.retitle(t)
	}
}

// retitle runs off the worker so slow title generation never delays the
// turns queued behind it.
func (s *TurnSaver) retitle(t Turn) {
	defer s.titles.Done()

	title := t.Retitle(context.Background())
	if title == "" || title == t.Conversation.Title {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.db.SetConversationTitle(ctx, t.Conversation.ConversationID, title); err != nil {
		utils.Zlog.Warn("Failed to update conversation title",
			zap.String("conversation_id", t.Conversation.ConversationID),
			zap.Error(err))
	}
}

func (s *TurnSaver) write(ctx context.Context, t Turn) error {
	id := t.Conversation.ConversationID
	if !t.IsNew {
		err := s.db.AppendHistory(ctx, id, t.Entries)
		if !errors.Is(err, loaders.ErrNotFound) {
			return err
		}
		utils.Zlog.Info("Conversation missing, creating it",
			zap.String("conversation_id", id))
	}
	conv := t.Conversation
	conv.History = t.Entries
	return s.db.CreateConversation(ctx, &conv)
}
