// Package console is a line-based chat transport over a terminal, for
// local use and demos. One console is one requester.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/erazemk/rezervator/internal/calendar"
	"github.com/erazemk/rezervator/internal/intent"
	"github.com/erazemk/rezervator/internal/model"
	"github.com/erazemk/rezervator/internal/session"
	"github.com/erazemk/rezervator/internal/workflow"
)

const usage = `Type a message, or:
  #N          choose option N
  YYYY-MM-DD  pick a date from the calendar
  < / >       previous / next month
  @path       send the image at path
  !token      send a raw selection token
  quit        leave`

// Console relays lines between a terminal and the sessions.
type Console struct {
	sessions  *session.Manager
	requester model.Requester
	in        io.Reader
	out       io.Writer

	// Selections offered by the last replies.
	options []workflow.Option
	dates   map[string]string
	nav     map[string]string
}

// New creates a Console for requester.
func New(sessions *session.Manager, requester model.Requester, in io.Reader, out io.Writer) *Console {
	return &Console{sessions: sessions, requester: requester, in: in, out: out}
}

// Run reads lines until EOF, "quit" or ctx is done.
func (c *Console) Run(ctx context.Context) error {
	fmt.Fprintln(c.out, usage)
	c.show(c.sessions.Handle(ctx, c.requester, intent.Text("/start")))

	scanner := bufio.NewScanner(c.in)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	for {
		fmt.Fprint(c.out, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "quit", "exit":
			return nil
		}

		in, err := c.parse(line)
		if err != nil {
			fmt.Fprintf(c.out, "⚠️ %v\n", err)
			continue
		}
		c.show(c.sessions.Handle(ctx, c.requester, in))
		if ctx.Err() != nil {
			return nil
		}
	}
	return scanner.Err()
}

func (c *Console) parse(line string) (intent.Intent, error) {
	switch {
	case strings.HasPrefix(line, "#"):
		n, err := strconv.Atoi(line[1:])
		if err != nil || n < 1 || n > len(c.options) {
			return intent.Intent{}, fmt.Errorf("no option %s", line)
		}
		return intent.ParseToken(c.options[n-1].Token)
	case line == "<" || line == ">":
		token, ok := c.nav[line]
		if !ok {
			return intent.Intent{}, fmt.Errorf("no calendar to navigate")
		}
		return intent.ParseToken(token)
	case strings.HasPrefix(line, "!"):
		return intent.ParseToken(line[1:])
	case strings.HasPrefix(line, "@"):
		data, err := os.ReadFile(line[1:])
		if err != nil {
			return intent.Intent{}, fmt.Errorf("reading image: %w", err)
		}
		return intent.Image(data), nil
	}
	if token, ok := c.dates[line]; ok {
		return intent.ParseToken(token)
	}
	return intent.Text(line), nil
}

func (c *Console) show(replies []workflow.Reply) {
	c.options, c.dates, c.nav = nil, nil, nil
	for _, r := range replies {
		if r.Alert {
			fmt.Fprintf(c.out, "[!] %s\n", r.Text)
		} else {
			fmt.Fprintln(c.out, r.Text)
		}
		if r.Image != nil {
			fmt.Fprintf(c.out, "[image, %d bytes]\n", len(r.Image))
		}
		if r.Calendar != nil {
			c.showCalendar(r.Calendar)
		}
		for _, o := range r.Options {
			c.options = append(c.options, o)
			fmt.Fprintf(c.out, "  [%d] %s\n", len(c.options), o.Label)
		}
	}
}

func (c *Console) showCalendar(g *calendar.Grid) {
	c.dates = make(map[string]string)
	c.nav = make(map[string]string)

	// Title, weekday header, weeks, navigation.
	fmt.Fprintf(c.out, "  %s\n", g.Rows[0][0].Label)
	for _, row := range g.Rows[1 : len(g.Rows)-1] {
		var b strings.Builder
		for _, cell := range row {
			fmt.Fprintf(&b, "%3s", cell.Label)
		}
		fmt.Fprintf(c.out, " %s\n", b.String())
	}
	for _, token := range g.Dates() {
		in, err := intent.ParseToken(token)
		if err == nil {
			c.dates[in.Date.String()] = token
		}
	}

	navRow := g.Rows[len(g.Rows)-1]
	c.nav["<"] = navRow[0].Token
	c.nav[">"] = navRow[2].Token
	in, err := intent.ParseToken(navRow[1].Token)
	if err == nil {
		c.dates["today"] = navRow[1].Token
		fmt.Fprintf(c.out, "  < previous month, > next month, today = %s\n", in.Date)
	}
}
