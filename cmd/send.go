package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/iksnae/dealerchat/internal"
	"github.com/iksnae/dealerchat/internal/view"
)

var (
	sendSessionID string
	sendNew       bool
)

// errRequestFailed is returned when the assistant could not be reached
var errRequestFailed = errors.New("the assistant could not answer, see the log for details")

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send <message>",
	Short: "Send one message and stream the reply",
	Long: `Send a message to the current conversation and print the reply as it
streams in. Tool results such as appointment slots are shown as cards.`,
	Example: `  dealerchat send "Is the Super Car available this Friday?"
  dealerchat send --new "Where is the dealership?"
  dealerchat send --session 3f2a "What about Saturday?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		return runExchange(cmd, func(ctx context.Context, store *internal.SessionStore) bool {
			return store.Submit(ctx, text)
		})
	},
}

// bookCmd represents the book command
var bookCmd = &cobra.Command{
	Use:   "book [time]",
	Short: "Book one of the offered test drive slots",
	Long: `Confirm an appointment slot in the current conversation. Without a time,
pick one of the slots the assistant offered most recently.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var slot string
		if len(args) == 1 {
			slot = args[0]
		}
		return runExchange(cmd, func(ctx context.Context, store *internal.SessionStore) bool {
			return store.ConfirmSlot(ctx, slot)
		}, withSlotPicker(&slot))
	},
}

type exchangeOption func(a *app) error

// withSlotPicker prompts for a slot from the current session when *slot is empty
func withSlotPicker(slot *string) exchangeOption {
	return func(a *app) error {
		if *slot != "" {
			return nil
		}
		offered := a.renderer.Slots(a.store.Messages(a.store.CurrentID()))
		if len(offered) == 0 {
			return errors.New("no appointment slots were offered in this conversation yet")
		}
		prompt := &survey.Select{
			Message: "Pick a time:",
			Options: offered,
		}
		if err := survey.AskOne(prompt, slot); err != nil {
			return fmt.Errorf("slot prompt failed: %w", err)
		}
		return nil
	}
}

// runExchange selects the target session, runs submit and streams every new
// message to the command output
func runExchange(cmd *cobra.Command, submit func(context.Context, *internal.SessionStore) bool, opts ...exchangeOption) error {
	printer := &streamPrinter{out: cmd.OutOrStdout()}
	a, err := openApp(internal.WithObserver(printer.onChange))
	if err != nil {
		return err
	}
	defer a.Close()

	if sendNew {
		a.store.CreateSession()
	} else if sendSessionID != "" {
		s, err := resolveSession(a.store, sendSessionID)
		if err != nil {
			return err
		}
		a.store.SwitchSession(s.ID)
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return err
		}
	}

	printer.attach(a.store, a.renderer, a.store.CurrentID())
	if !submit(cmd.Context(), a.store) {
		return errors.New("nothing to send, or the conversation is still waiting for a reply")
	}
	printer.finish()

	if last, ok := lastMessage(a.store, printer.sessionID); ok && last.Role == internal.RoleSystem && last.Content == internal.TransportFailureText {
		return errRequestFailed
	}
	return nil
}

func lastMessage(store *internal.SessionStore, id string) (internal.Message, bool) {
	msgs := store.Messages(id)
	if len(msgs) == 0 {
		return internal.Message{}, false
	}
	return msgs[len(msgs)-1], true
}

// streamPrinter writes a session's new messages as the store reports them.
// The trailing assistant message is printed incrementally while it grows.
type streamPrinter struct {
	mu        sync.Mutex
	out       io.Writer
	store     *internal.SessionStore
	renderer  *view.Renderer
	sessionID string
	printed   int
	partial   int
}

func (p *streamPrinter) attach(store *internal.SessionStore, renderer *view.Renderer, sessionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.store = store
	p.renderer = renderer
	p.sessionID = sessionID
	// the user's own message is not echoed
	p.printed = len(store.Messages(sessionID)) + 1
}

func (p *streamPrinter) onChange(sessionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.store == nil || sessionID != p.sessionID {
		return
	}
	p.flush(false)
}

// finish prints whatever is still pending once the stream ended
func (p *streamPrinter) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.flush(true)
}

func (p *streamPrinter) flush(final bool) {
	msgs := p.store.Messages(p.sessionID)
	for p.printed < len(msgs) {
		msg := msgs[p.printed]
		last := p.printed == len(msgs)-1

		if msg.Role == internal.RoleAssistant {
			fmt.Fprint(p.out, msg.Content[min(p.partial, len(msg.Content)):])
			p.partial = len(msg.Content)
			if last && !final {
				return
			}
			fmt.Fprintln(p.out)
		} else {
			fmt.Fprintln(p.out, p.renderer.Body(msg))
		}
		p.printed++
		p.partial = 0
	}
}

func init() {
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(bookCmd)
	for _, c := range []*cobra.Command{sendCmd, bookCmd} {
		c.Flags().StringVar(&sendSessionID, "session", "", "Session ID or ID prefix to use instead of the current one")
		c.Flags().BoolVar(&sendNew, "new", false, "Start a new session first")
	}
}
