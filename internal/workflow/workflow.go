// Package workflow implements the multi-step conversations: reserving an
// item, adding stock, checking stock on a date and viewing an item. Each
// conversation is a small state machine fed one intent at a time; nothing is
// written to the store before its final step.
package workflow

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/erazemk/rezervator/internal/blob"
	"github.com/erazemk/rezervator/internal/calendar"
	"github.com/erazemk/rezervator/internal/imaging"
	"github.com/erazemk/rezervator/internal/intent"
	"github.com/erazemk/rezervator/internal/model"
	"github.com/erazemk/rezervator/internal/warehouse"
)

// Option is a selectable button.
type Option struct {
	Label string `json:"label"`
	Token string `json:"token"`
}

// Reply is one outbound message.
type Reply struct {
	Text     string         `json:"text"`
	Options  []Option       `json:"options,omitempty"`
	Calendar *calendar.Grid `json:"calendar,omitempty"`
	Image    []byte         `json:"image,omitempty"`
	// Alert marks a short notice the transport may show as a popup
	// instead of a message.
	Alert bool `json:"alert,omitempty"`
}

// Outcome is the result of feeding one intent to a Flow.
type Outcome struct {
	Replies []Reply
	// Done is set once the flow reached its terminal state.
	Done bool
	// Err is the step error the flow recovered from, for logging.
	Err error
}

// Flow is one running conversation.
type Flow interface {
	// Name identifies the workflow in logs.
	Name() string
	// State names the current state.
	State() string
	// Start enters the first state and returns its prompt.
	Start(ctx context.Context) Outcome
	// Handle feeds the next intent to the current state.
	Handle(ctx context.Context, in intent.Intent) Outcome
}

// Labels are the placeholders used when the requester leaves a field blank.
type Labels struct {
	Event     string
	Requester string
}

// DefaultLabels are used when Deps.Labels is zero.
var DefaultLabels = Labels{Event: "No event", Requester: "User"}

// Deps are the collaborators shared by all flows.
type Deps struct {
	DB        *sql.DB
	Warehouse *warehouse.Service
	Blobs     blob.Store
	Images    imaging.Processor
	Locks     *ItemLocks
	Labels    Labels
	Logger    *slog.Logger
}

func (d *Deps) today() model.Date {
	return d.Warehouse.Today()
}

func (d *Deps) eventLabel(s string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	if d.Labels.Event != "" {
		return d.Labels.Event
	}
	return DefaultLabels.Event
}

// RequesterPlaceholder is the label of requesters without a name.
func (d *Deps) RequesterPlaceholder() string {
	if d.Labels.Requester != "" {
		return d.Labels.Requester
	}
	return DefaultLabels.Requester
}

const (
	msgCancelled = "❌ Operation cancelled."
	msgFailure   = "❌ Something went wrong. Please start again from the menu."
	msgUseButton = "Please choose one of the options above."
)

// Cancelled is the outcome of cancelling any flow.
func Cancelled() Outcome {
	return Outcome{Replies: []Reply{{Text: msgCancelled}}, Done: true}
}

// resolve turns a step error into replies. abort reports whether the flow
// must end.
func (d *Deps) resolve(flow string, replies []Reply, err error) (out Outcome, abort bool) {
	if err == nil {
		return Outcome{Replies: replies}, false
	}

	var we *Error
	if !errors.As(err, &we) {
		we = persistenceError(err)
	}
	out.Err = we

	switch we.Code {
	case ErrCodeValidation:
		out.Replies = append(replies, Reply{Text: "❌ " + we.Message, Alert: we.alert})
		return out, false
	case ErrCodeNotFound:
		d.Logger.Info("workflow target vanished", "flow", flow, "error", we)
		out.Replies = append(replies, Reply{Text: "❌ " + we.Message})
		return out, true
	default:
		d.Logger.Error("workflow step failed", "flow", flow, "error", we)
		out.Replies = append(replies, Reply{Text: msgFailure})
		return out, true
	}
}

func cancelOption() Option {
	return Option{Label: "❌ Cancel", Token: intent.CancelToken}
}

func skipOption() Option {
	return Option{Label: "⏭️ Skip", Token: intent.SkipToken}
}

// parseQuantity reads a positive whole number from a text intent.
func parseQuantity(in intent.Intent) (int, error) {
	if in.Kind != intent.KindText {
		return 0, validationError("Enter a whole number!")
	}
	n, err := strconv.Atoi(strings.TrimSpace(in.Text))
	if err != nil {
		return 0, validationError("Enter a whole number!")
	}
	if n <= 0 {
		return 0, validationError("Quantity must be greater than 0! Try again:")
	}
	if n > model.MaxQuantity {
		return 0, validationError("Quantity cannot exceed %d! Try again:", model.MaxQuantity)
	}
	return n, nil
}

func calendarReply(text string, purpose intent.Purpose, year int, month time.Month, today model.Date) Reply {
	grid := calendar.Render(year, month, purpose, today)
	return Reply{Text: text, Calendar: &grid, Options: []Option{cancelOption()}}
}

func itemOptions(items []model.Item, token func(int64) string, withQuantity bool) []Option {
	options := make([]Option, 0, len(items)+1)
	for _, item := range items {
		label := item.Title()
		if withQuantity {
			label += " (" + strconv.Itoa(item.Quantity) + " pcs.)"
		}
		options = append(options, Option{Label: label, Token: token(item.ID)})
	}
	return append(options, cancelOption())
}

func categoryOptions(categories []model.Category) []Option {
	options := make([]Option, 0, len(categories)+1)
	for _, c := range categories {
		options = append(options, Option{Label: c.Name, Token: intent.CategoryToken(c.ID)})
	}
	return append(options, cancelOption())
}
