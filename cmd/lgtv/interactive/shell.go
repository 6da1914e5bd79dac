// Package interactive provides the lgtv shell: a readline session against
// one connected TV.
package interactive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"github.com/webos-remote/lgtv-go/pkg/remote"
	"github.com/webos-remote/lgtv-go/pkg/ssap"
	"github.com/webos-remote/lgtv-go/pkg/wire"
)

// Session is the connected TV the shell drives. *ssap.Client satisfies it.
type Session interface {
	Request(ctx context.Context, uri string, payload wire.Object) (*wire.Message, error)
	Address() string
	State() ssap.State
}

// Shell handles interactive mode for one TV.
type Shell struct {
	session Session
	name    string
	out     io.Writer
	rl      *readline.Instance
}

// New creates a shell for session. historyFile may be empty.
func New(session Session, name, historyFile string) (*Shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          name + "> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		HistoryFile:     historyFile,
		AutoComplete:    completer(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	s := newShell(session, name, rl.Stdout())
	s.rl = rl
	return s, nil
}

func newShell(session Session, name string, out io.Writer) *Shell {
	return &Shell{session: session, name: name, out: out}
}

// Stdout returns a writer that coordinates with the readline prompt.
func (s *Shell) Stdout() io.Writer {
	return s.out
}

// Run reads commands until exit, EOF, or ctx is done.
func (s *Shell) Run(ctx context.Context) {
	defer s.rl.Close()

	s.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := s.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			fmt.Fprintln(s.out, "Exiting...")
			return
		}

		if s.Execute(ctx, line) {
			return
		}
	}
}

// Execute runs one command line and reports whether the shell should exit.
func (s *Shell) Execute(ctx context.Context, line string) bool {
	input := strings.TrimSpace(line)
	if input == "" {
		return false
	}

	parts := strings.Fields(input)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		s.printHelp()

	case "status":
		fmt.Fprintf(s.out, "%s at %s: %s\n", s.name, s.session.Address(), s.session.State())

	case "catalog":
		s.printCatalog()

	case "request", "req":
		s.cmdRequest(ctx, input)

	case "quit", "exit", "q":
		fmt.Fprintln(s.out, "Exiting...")
		return true

	default:
		in, ok := remote.Lookup(cmd)
		if !ok {
			fmt.Fprintf(s.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
			return false
		}
		s.cmdIntent(ctx, in, args)
	}
	return false
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.out, `
TV Commands:
  Any lgtv command by name, e.g.:
    volume-up                  - Increase volume
    set-volume 15              - Set volume level
    notification Hello there   - Show notification (rest of the line is the message)
    catalog                    - List every command

  Raw requests:
    request <uri> [json]       - Send a request and print the reply
                                 e.g. request audio/getVolume
                                      request audio/setVolume {"volume":10}

  General:
    status                     - Show connection state
    help                       - Show this help
    quit                       - Exit shell`)
}

func (s *Shell) printCatalog() {
	group := ""
	for _, in := range remote.Catalog() {
		if in.Group != group {
			group = in.Group
			fmt.Fprintf(s.out, "\n  %s:\n", group)
		}
		usage := in.Name
		if len(in.Args) > 0 {
			usage += " " + strings.Join(in.Args, " ")
		}
		fmt.Fprintf(s.out, "    %-34s - %s\n", usage, in.Short)
	}
}

// cmdIntent runs a catalog intent. A single-argument intent takes the
// rest of the line, so messages and URLs may contain spaces.
func (s *Shell) cmdIntent(ctx context.Context, in remote.Intent, args []string) {
	if len(in.Args) == 1 && len(args) > 1 {
		args = []string{strings.Join(args, " ")}
	}
	if err := remote.Run(ctx, &replyPrinter{session: s.session, out: s.out}, in, args); err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
	}
}

// cmdRequest handles "request <uri> [json]".
func (s *Shell) cmdRequest(ctx context.Context, input string) {
	_, rest, _ := strings.Cut(input, " ")
	uri, body, _ := strings.Cut(strings.TrimSpace(rest), " ")
	if uri == "" {
		fmt.Fprintln(s.out, "Usage: request <uri> [json]")
		fmt.Fprintln(s.out, "  Example: request ssap://audio/getVolume")
		return
	}
	if !strings.HasPrefix(uri, wire.URIPrefix) {
		uri = wire.URIPrefix + uri
	}

	var payload wire.Object
	if body = strings.TrimSpace(body); body != "" {
		if err := json.Unmarshal([]byte(body), &payload); err != nil {
			fmt.Fprintf(s.out, "Invalid JSON payload: %v\n", err)
			return
		}
	}

	p := &replyPrinter{session: s.session, out: s.out}
	if err := p.SendCommand(ctx, uri, payload); err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
	}
}

// replyPrinter adapts Session to remote.Sender: each command waits for
// its correlated reply and prints it.
type replyPrinter struct {
	session Session
	out     io.Writer
}

func (p *replyPrinter) SendCommand(ctx context.Context, uri string, payload wire.Object) error {
	reply, err := p.session.Request(ctx, uri, payload)
	if reply != nil && reply.Payload != nil {
		if data, merr := json.Marshal(reply.Payload); merr == nil {
			fmt.Fprintln(p.out, wire.Indent(data))
		}
	}
	return err
}

func completer() *readline.PrefixCompleter {
	items := []readline.PrefixCompleterInterface{
		readline.PcItem("help"),
		readline.PcItem("status"),
		readline.PcItem("request"),
		readline.PcItem("catalog"),
		readline.PcItem("quit"),
	}
	for _, in := range remote.Catalog() {
		items = append(items, readline.PcItem(in.Name))
	}
	return readline.NewPrefixCompleter(items...)
}
