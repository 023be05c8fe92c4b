package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sandevgo/parley/internal/service/ui"
	"github.com/sandevgo/parley/internal/service/voice"
	"github.com/sandevgo/parley/pkg/log"
)

type Asker interface {
	Ask(ctx context.Context, message string, onPartial func(string)) (string, error)
	End(ctx context.Context) error
}

type Speaker interface {
	Speak(ctx context.Context, text string)
	Stop()
	Wait()
}

type ChatOption func(*Chat)

// WithSpeaker reads every reply aloud.
func WithSpeaker(s Speaker) ChatOption {
	return func(c *Chat) { c.speaker = s }
}

// SendEachFinal sends every final segment on its own instead of waiting for
// recognition to end. Used for typed input.
func SendEachFinal() ChatOption {
	return func(c *Chat) { c.eager = true }
}

// Chat connects a transcript producer to the relay and renders the
// conversation.
type Chat struct {
	client   Asker
	producer *voice.Producer
	speaker  Speaker
	out      io.Writer
	eager    bool
}

func NewChat(client Asker, producer *voice.Producer, out io.Writer, opts ...ChatOption) *Chat {
	c := &Chat{client: client, producer: producer, out: out}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run chats until the input ends, the user quits or ctx is cancelled. The
// session is ended on the relay in every case.
func (c *Chat) Run(ctx context.Context) error {
	c.producer.Start(ctx)
	defer c.producer.Pause()

	c.notice("Listening. /clear resets the transcript, /quit ends the chat.")

	for {
		select {
		case <-ctx.Done():
			if c.speaker != nil {
				c.speaker.Stop()
			}
			return c.client.End(context.WithoutCancel(ctx))
		case ev := <-c.producer.Events():
			done, err := c.handle(ctx, ev)
			if err != nil {
				_ = c.client.End(context.WithoutCancel(ctx))
				return err
			}
			if done {
				if c.speaker != nil {
					c.speaker.Wait()
				}
				return c.client.End(ctx)
			}
		}
	}
}

func (c *Chat) handle(ctx context.Context, ev voice.Event) (done bool, err error) {
	switch ev.Kind {
	case voice.EventPartial:
		fmt.Fprintln(c.out, ui.InterimStyle.Render("... "+ev.Text))
	case voice.EventFinal:
		switch strings.ToLower(ev.Text) {
		case "/clear":
			c.producer.Reset()
			c.notice("Transcript cleared.")
			return false, nil
		case "/quit", "/exit":
			return true, nil
		}
		if c.eager {
			c.producer.Reset()
			return false, c.send(ctx, ev.Text)
		}
	case voice.EventEnd:
		if errors.Is(ev.Err, context.Canceled) {
			// paused, not finished
			return false, nil
		}
		closed := errors.Is(ev.Err, voice.ErrInputClosed)
		if !c.eager || closed {
			text := c.producer.Transcript()
			c.producer.Reset()
			if err := c.send(ctx, text); err != nil {
				return false, err
			}
		}
		return closed, nil
	case voice.EventError:
		fmt.Fprintln(c.out, ui.ErrorStyle.Render("recognition: "+ev.Err.Error()))
	}
	return false, nil
}

// send asks the relay and speaks the answer. Relay error frames are shown and
// the chat goes on; a lost connection ends it.
func (c *Chat) send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	if c.producer.Running() {
		c.producer.Pause()
		defer c.producer.Resume()
	}
	if c.speaker != nil {
		c.speaker.Stop()
	}

	fmt.Fprintln(c.out, ui.UserStyle.Render("you: ")+text)
	fmt.Fprint(c.out, ui.AssistantStyle.Render("parley: "))

	reply, err := c.client.Ask(ctx, text, func(part string) {
		fmt.Fprint(c.out, ui.AssistantStyle.Render(part))
	})
	if err != nil {
		fmt.Fprintln(c.out)

		var replyErr *ReplyError
		if errors.As(err, &replyErr) {
			fmt.Fprintln(c.out, ui.ErrorStyle.Render(replyErr.Message))
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
		log.FromCtx(ctx).Error().Err(err).Msg("relay request failed")
		return err
	}

	if strings.TrimSpace(reply) != "" && !strings.HasSuffix(reply, "\n") {
		fmt.Fprintln(c.out)
	}
	if c.speaker != nil {
		c.speaker.Speak(ctx, reply)
	}
	return nil
}

func (c *Chat) notice(msg string) {
	fmt.Fprintln(c.out, ui.NoticeStyle.Render(msg))
}
