package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/erazemk/rezervator/internal/intent"
	"github.com/erazemk/rezervator/internal/store"
	"github.com/erazemk/rezervator/internal/warehouse"
)

// ViewState is a step of the view-item workflow.
type ViewState int

const (
	ViewChooseMode ViewState = iota
	ViewSelectCategory
	ViewEnterSearch
	ViewSelectItem
	ViewTerminal
)

func (s ViewState) String() string {
	switch s {
	case ViewChooseMode:
		return "ChooseMode"
	case ViewSelectCategory:
		return "SelectCategory"
	case ViewEnterSearch:
		return "EnterSearch"
	case ViewSelectItem:
		return "SelectItem"
	case ViewTerminal:
		return "Terminal"
	}
	return fmt.Sprintf("ViewState(%d)", int(s))
}

// ViewFlow finds an item by category or by name and shows its card.
type ViewFlow struct {
	deps  *Deps
	state ViewState
}

// NewViewFlow creates a view-item workflow.
func NewViewFlow(deps *Deps) *ViewFlow {
	return &ViewFlow{deps: deps}
}

func (f *ViewFlow) Name() string  { return "view" }
func (f *ViewFlow) State() string { return f.state.String() }

// Start asks how to look the item up.
func (f *ViewFlow) Start(context.Context) Outcome {
	f.state = ViewChooseMode
	return Outcome{Replies: []Reply{{
		Text: "👀 How do you want to find the item?",
		Options: []Option{
			{Label: "📂 By category", Token: intent.ModeToken(intent.ModeCategory)},
			{Label: "🔍 Search by name", Token: intent.ModeToken(intent.ModeSearch)},
			cancelOption(),
		},
	}}}
}

// Handle feeds the next intent to the current state.
func (f *ViewFlow) Handle(ctx context.Context, in intent.Intent) Outcome {
	if f.state == ViewTerminal {
		return Outcome{Done: true}
	}
	switch in.Kind {
	case intent.KindCancel:
		f.state = ViewTerminal
		return Cancelled()
	case intent.KindNoop:
		return Outcome{}
	}

	var replies []Reply
	var err error
	switch f.state {
	case ViewChooseMode:
		replies, err = f.chooseMode(ctx, in)
	case ViewSelectCategory:
		replies, err = f.selectCategory(ctx, in)
	case ViewEnterSearch:
		replies, err = f.enterSearch(ctx, in)
	case ViewSelectItem:
		replies, err = f.selectItem(ctx, in)
	}

	out, abort := f.deps.resolve(f.Name(), replies, err)
	if abort {
		f.state = ViewTerminal
	}
	out.Done = f.state == ViewTerminal
	return out
}

func (f *ViewFlow) chooseMode(ctx context.Context, in intent.Intent) ([]Reply, error) {
	if in.Kind != intent.KindMode {
		return nil, validationError(msgUseButton)
	}

	if in.Mode == intent.ModeSearch {
		f.state = ViewEnterSearch
		return []Reply{{Text: "🔍 Enter part of the item name:", Options: []Option{cancelOption()}}}, nil
	}

	categories, err := store.ListCategories(ctx, f.deps.DB)
	if err != nil {
		return nil, persistenceError(err)
	}
	f.state = ViewSelectCategory
	return []Reply{{Text: "📂 Choose a category:", Options: categoryOptions(categories)}}, nil
}

func (f *ViewFlow) selectCategory(ctx context.Context, in intent.Intent) ([]Reply, error) {
	if in.Kind != intent.KindCategory {
		return nil, validationError(msgUseButton)
	}
	items, err := store.ListItemsInCategory(ctx, f.deps.DB, in.ID)
	if err != nil {
		return nil, persistenceError(err)
	}
	if len(items) == 0 {
		f.state = ViewTerminal
		return []Reply{{Text: "📭 There are no items in this category."}}, nil
	}

	f.state = ViewSelectItem
	return []Reply{{Text: "📦 Choose an item:", Options: itemOptions(items, intent.ItemToken, true)}}, nil
}

func (f *ViewFlow) enterSearch(ctx context.Context, in intent.Intent) ([]Reply, error) {
	if in.Kind != intent.KindText {
		return nil, validationError("Enter part of the item name as text.")
	}
	query := strings.TrimSpace(in.Text)
	if query == "" || len([]rune(query)) > 100 {
		return nil, validationError("Enter between 1 and 100 characters.")
	}

	items, err := f.deps.Warehouse.FindItems(ctx, query)
	if err != nil {
		return nil, persistenceError(err)
	}
	if len(items) == 0 {
		return nil, validationError("Nothing found for %q. Try another search:", query)
	}

	f.state = ViewSelectItem
	return []Reply{{
		Text:    fmt.Sprintf("🔍 Found %d item(s):", len(items)),
		Options: itemOptions(items, intent.ItemToken, true),
	}}, nil
}

func (f *ViewFlow) selectItem(ctx context.Context, in intent.Intent) ([]Reply, error) {
	if in.Kind != intent.KindItem {
		return nil, validationError(msgUseButton)
	}
	card, err := f.deps.Warehouse.ItemCard(ctx, in.ID)
	if err != nil {
		return nil, persistenceError(err)
	}
	if card == nil {
		return nil, notFoundError("Item not found!")
	}
	if card.ImageErr != nil {
		// Show the card without the photo.
		f.deps.Logger.Warn("showing item without image", "item", card.Item.ID, "error", staleBlobError(card.ImageErr))
	}

	f.state = ViewTerminal
	return []Reply{{Text: warehouse.RenderCard(card), Image: card.Image}}, nil
}
