// Package intent turns raw transport input into typed intents. Selection
// buttons carry short string tokens; everything that parses them lives here
// so the workflows only ever see Intent values.
package intent

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/erazemk/rezervator/internal/model"
)

// Kind classifies an Intent.
type Kind int

const (
	KindText     Kind = iota // free text
	KindImage                // image payload
	KindCommand              // menu action or slash command
	KindCategory             // category selected
	KindItem                 // item selected
	KindReturn               // reservation selected for return
	KindDelete               // item selected for deletion
	KindDate                 // calendar date selected
	KindNavigate             // calendar month navigation
	KindSkip                 // optional step skipped
	KindCancel               // abort the active workflow
	KindMode                 // view mode chosen
	KindNoop                 // inert button, e.g. a calendar header
)

var kindNames = [...]string{
	"text", "image", "command", "category", "item", "return", "delete",
	"date", "navigate", "skip", "cancel", "mode", "noop",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Purpose tells which calendar a date or navigation token belongs to.
type Purpose string

const (
	PurposeStart Purpose = "start"
	PurposeEnd   Purpose = "end"
	PurposeCheck Purpose = "check"
)

// Mode selects how an item is looked up for viewing.
type Mode string

const (
	ModeCategory Mode = "category"
	ModeSearch   Mode = "search"
)

// Command names a top-level action.
type Command string

const (
	CmdStart     Command = "start"
	CmdHelp      Command = "help"
	CmdAddItem   Command = "add"
	CmdReserve   Command = "reserve"
	CmdReturn    Command = "return"
	CmdDelete    Command = "delete"
	CmdStock     Command = "stock"
	CmdStockOn   Command = "stock_on"
	CmdView      Command = "view"
	CmdMine      Command = "my"
	CmdReminders Command = "reminders"
	CmdNotifyAll Command = "notify_all"
)

// Intent is one classified inbound event.
type Intent struct {
	Kind    Kind
	Text    string     // KindText
	Image   []byte     // KindImage
	Command Command    // KindCommand
	ID      int64      // KindCategory, KindItem, KindReturn, KindDelete
	Purpose Purpose    // KindDate, KindNavigate
	Date    model.Date // KindDate
	Year    int        // KindNavigate
	Month   time.Month // KindNavigate
	Mode    Mode       // KindMode
}

// ErrMalformed is wrapped by ParseToken for tokens it cannot read.
var ErrMalformed = errors.New("malformed token")

// MenuItem is a main-menu entry: the label shown on the button and the
// command it triggers.
type MenuItem struct {
	Label   string
	Command Command
}

// Menu is the main menu in display order.
var Menu = []MenuItem{
	{"📥 Add item", CmdAddItem},
	{"📦 Reserve", CmdReserve},
	{"↩️ Return reservation", CmdReturn},
	{"🗑️ Delete item", CmdDelete},
	{"📊 Current stock", CmdStock},
	{"📅 Stock on date", CmdStockOn},
	{"👀 View item", CmdView},
	{"📋 My reservations", CmdMine},
}

var menuByLabel = func() map[string]Command {
	m := make(map[string]Command, len(Menu))
	for _, item := range Menu {
		m[item.Label] = item.Command
	}
	return m
}()

// Text classifies a free-text message. Slash commands and main-menu labels
// become KindCommand; "/cancel" becomes KindCancel.
func Text(s string) Intent {
	trimmed := strings.TrimSpace(s)
	if cmd, ok := menuByLabel[trimmed]; ok {
		return Intent{Kind: KindCommand, Command: cmd}
	}
	if strings.HasPrefix(trimmed, "/") && len(trimmed) > 1 {
		name, _, _ := strings.Cut(trimmed[1:], " ")
		name, _, _ = strings.Cut(name, "@") // "/help@somebot"
		if name == "cancel" {
			return Intent{Kind: KindCancel}
		}
		return Intent{Kind: KindCommand, Command: Command(strings.ToLower(name))}
	}
	return Intent{Kind: KindText, Text: s}
}

// Image wraps an image payload.
func Image(data []byte) Intent {
	return Intent{Kind: KindImage, Image: data}
}

// ParseToken parses a selection token produced by one of the token
// constructors in this package.
func ParseToken(token string) (Intent, error) {
	head, rest, _ := strings.Cut(token, ":")
	switch head {
	case "skip":
		return Intent{Kind: KindSkip}, nil
	case "cancel":
		return Intent{Kind: KindCancel}, nil
	case "noop":
		return Intent{Kind: KindNoop}, nil
	case "cmd":
		if rest == "" {
			break
		}
		return Intent{Kind: KindCommand, Command: Command(rest)}, nil
	case "mode":
		switch Mode(rest) {
		case ModeCategory, ModeSearch:
			return Intent{Kind: KindMode, Mode: Mode(rest)}, nil
		}
	case "cat", "item", "ret", "del":
		id, err := strconv.ParseInt(rest, 10, 64)
		if err != nil || id <= 0 {
			break
		}
		return Intent{Kind: idKinds[head], ID: id}, nil
	case "date":
		purpose, value, ok := strings.Cut(rest, ":")
		if !ok || !validPurpose(Purpose(purpose)) {
			break
		}
		d, err := model.ParseDate(value)
		if err != nil {
			break
		}
		return Intent{Kind: KindDate, Purpose: Purpose(purpose), Date: d}, nil
	case "nav":
		purpose, value, ok := strings.Cut(rest, ":")
		if !ok || !validPurpose(Purpose(purpose)) {
			break
		}
		t, err := time.Parse("2006-01", value)
		if err != nil {
			break
		}
		return Intent{Kind: KindNavigate, Purpose: Purpose(purpose), Year: t.Year(), Month: t.Month()}, nil
	}
	return Intent{}, fmt.Errorf("%w: %q", ErrMalformed, token)
}

var idKinds = map[string]Kind{
	"cat":  KindCategory,
	"item": KindItem,
	"ret":  KindReturn,
	"del":  KindDelete,
}

func validPurpose(p Purpose) bool {
	return p == PurposeStart || p == PurposeEnd || p == PurposeCheck
}

// Token constructors. Each returns a string ParseToken reads back.

func CategoryToken(id int64) string { return "cat:" + strconv.FormatInt(id, 10) }
func ItemToken(id int64) string     { return "item:" + strconv.FormatInt(id, 10) }
func ReturnToken(id int64) string   { return "ret:" + strconv.FormatInt(id, 10) }
func DeleteToken(id int64) string   { return "del:" + strconv.FormatInt(id, 10) }
func CommandToken(c Command) string { return "cmd:" + string(c) }
func ModeToken(m Mode) string       { return "mode:" + string(m) }
func DateToken(p Purpose, d model.Date) string {
	return "date:" + string(p) + ":" + d.String()
}
func NavToken(p Purpose, year int, month time.Month) string {
	return fmt.Sprintf("nav:%s:%04d-%02d", p, year, int(month))
}

const (
	SkipToken   = "skip"
	CancelToken = "cancel"
	NoopToken   = "noop"
)
