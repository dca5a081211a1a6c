package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/erazemk/rezervator/internal/intent"
	"github.com/erazemk/rezervator/internal/model"
	"github.com/erazemk/rezervator/internal/store"
)

// ItemState is a step of the add-item workflow.
type ItemState int

const (
	ItemSelectCategory ItemState = iota
	ItemEnterName
	ItemEnterQuantity
	ItemEnterQuantityForExisting
	ItemCaptureImage
	ItemEnterComment
	ItemTerminal
)

func (s ItemState) String() string {
	switch s {
	case ItemSelectCategory:
		return "SelectCategory"
	case ItemEnterName:
		return "EnterName"
	case ItemEnterQuantity:
		return "EnterQuantity"
	case ItemEnterQuantityForExisting:
		return "EnterQuantityForExisting"
	case ItemCaptureImage:
		return "CaptureImage"
	case ItemEnterComment:
		return "EnterComment"
	case ItemTerminal:
		return "Terminal"
	}
	return fmt.Sprintf("ItemState(%d)", int(s))
}

type itemDraft struct {
	category model.Category
	name     string
	existing *model.Item
	quantity int
	image    []byte // processed JPEG, stored only at the final step
}

// ItemFlow adds a new item or more units of an existing one.
type ItemFlow struct {
	deps  *Deps
	state ItemState
	draft itemDraft
}

// NewItemFlow creates an add-item workflow.
func NewItemFlow(deps *Deps) *ItemFlow {
	return &ItemFlow{deps: deps}
}

func (f *ItemFlow) Name() string  { return "item" }
func (f *ItemFlow) State() string { return f.state.String() }

// Start lists the categories.
func (f *ItemFlow) Start(ctx context.Context) Outcome {
	f.state = ItemSelectCategory
	categories, err := store.ListCategories(ctx, f.deps.DB)
	if err != nil {
		return f.finish(nil, persistenceError(err))
	}
	if len(categories) == 0 {
		f.state = ItemTerminal
		return f.finish([]Reply{{Text: "❌ There are no categories yet!"}}, nil)
	}
	return f.finish([]Reply{{
		Text:    "📂 Choose a category:",
		Options: categoryOptions(categories),
	}}, nil)
}

// Handle feeds the next intent to the current state.
func (f *ItemFlow) Handle(ctx context.Context, in intent.Intent) Outcome {
	if f.state == ItemTerminal {
		return Outcome{Done: true}
	}
	switch in.Kind {
	case intent.KindCancel:
		f.state = ItemTerminal
		return Cancelled()
	case intent.KindNoop:
		return Outcome{}
	}

	var replies []Reply
	var err error
	switch f.state {
	case ItemSelectCategory:
		replies, err = f.selectCategory(ctx, in)
	case ItemEnterName:
		replies, err = f.enterName(ctx, in)
	case ItemEnterQuantity:
		replies, err = f.enterQuantity(in)
	case ItemEnterQuantityForExisting:
		replies, err = f.enterQuantityForExisting(ctx, in)
	case ItemCaptureImage:
		replies, err = f.captureImage(in)
	case ItemEnterComment:
		replies, err = f.enterComment(ctx, in)
	}
	return f.finish(replies, err)
}

func (f *ItemFlow) finish(replies []Reply, err error) Outcome {
	out, abort := f.deps.resolve(f.Name(), replies, err)
	if abort {
		f.state = ItemTerminal
	}
	out.Done = f.state == ItemTerminal
	return out
}

func (f *ItemFlow) selectCategory(ctx context.Context, in intent.Intent) ([]Reply, error) {
	if in.Kind != intent.KindCategory {
		return nil, validationError(msgUseButton)
	}
	category, err := store.GetCategory(ctx, f.deps.DB, in.ID)
	if err != nil {
		return nil, persistenceError(err)
	}
	if category == nil {
		return nil, notFoundError("Category not found!")
	}

	f.draft.category = *category
	f.state = ItemEnterName
	return []Reply{{
		Text:    fmt.Sprintf("📂 Category: %s\n\nEnter the item name:", category.Name),
		Options: []Option{cancelOption()},
	}}, nil
}

func (f *ItemFlow) enterName(ctx context.Context, in intent.Intent) ([]Reply, error) {
	if in.Kind != intent.KindText {
		return nil, validationError("Enter the item name as text.")
	}
	name := model.NormalizeName(in.Text)
	if name == "" {
		return nil, validationError("The name cannot be empty! Enter the item name:")
	}

	existing, err := store.FindItemByName(ctx, f.deps.DB, f.draft.category.ID, name)
	if err != nil {
		return nil, persistenceError(err)
	}
	f.draft.name = name

	if existing != nil {
		f.draft.existing = existing
		f.state = ItemEnterQuantityForExisting
		return []Reply{{
			Text: fmt.Sprintf("ℹ️ %s already exists in this category (%d pcs.).\n\nEnter the quantity to add:",
				existing.Name, existing.Quantity),
			Options: []Option{cancelOption()},
		}}, nil
	}

	f.state = ItemEnterQuantity
	return []Reply{{Text: "🔢 Enter the quantity:", Options: []Option{cancelOption()}}}, nil
}

func (f *ItemFlow) enterQuantity(in intent.Intent) ([]Reply, error) {
	n, err := parseQuantity(in)
	if err != nil {
		return nil, err
	}
	f.draft.quantity = n
	f.state = ItemCaptureImage
	return []Reply{{
		Text:    "📸 Send a photo of the item, or press Skip:",
		Options: []Option{skipOption(), cancelOption()},
	}}, nil
}

func (f *ItemFlow) enterQuantityForExisting(ctx context.Context, in intent.Intent) ([]Reply, error) {
	n, err := parseQuantity(in)
	if err != nil {
		return nil, err
	}

	item, err := store.AddItemQuantity(ctx, f.deps.DB, f.draft.existing.ID, n)
	switch {
	case errors.Is(err, store.ErrItemNotFound):
		return nil, notFoundError("Item not found!")
	case errors.Is(err, store.ErrQuantityTooLarge):
		return nil, validationError("The total would exceed %d pcs. Enter a smaller quantity:", model.MaxQuantity)
	case err != nil:
		return nil, persistenceError(err)
	}

	f.deps.Logger.Info("item quantity increased", "item", item.ID, "added", n, "quantity", item.Quantity)
	f.state = ItemTerminal
	return []Reply{{Text: fmt.Sprintf("✅ Quantity updated!\n\n📦 %s: %d pcs.", item.Title(), item.Quantity)}}, nil
}

func (f *ItemFlow) captureImage(in intent.Intent) ([]Reply, error) {
	switch in.Kind {
	case intent.KindSkip:
		f.draft.image = nil
	case intent.KindImage:
		processed, err := f.deps.Images.Process(in.Image)
		if err != nil {
			f.deps.Logger.Warn("rejected item photo", "error", err)
			return nil, validationError("Could not use this photo. Send a JPEG or PNG image, or press Skip.")
		}
		f.draft.image = processed
	default:
		return nil, validationError("Send a photo, or press Skip.")
	}

	f.state = ItemEnterComment
	return []Reply{{
		Text:    "💬 Enter a comment for the item, or press Skip:",
		Options: []Option{skipOption(), cancelOption()},
	}}, nil
}

func (f *ItemFlow) enterComment(ctx context.Context, in intent.Intent) ([]Reply, error) {
	var comment string
	switch in.Kind {
	case intent.KindText:
		comment = strings.TrimSpace(in.Text)
	case intent.KindSkip:
	default:
		return nil, validationError("Enter the comment as text, or press Skip.")
	}

	var ref string
	if f.draft.image != nil {
		var err error
		if ref, err = f.deps.Blobs.Put(ctx, f.draft.image); err != nil {
			return nil, persistenceError(err)
		}
	}

	item, created, err := store.CreateItem(ctx, f.deps.DB, f.draft.category.ID, f.draft.name, f.draft.quantity, ref, comment)
	if ref != "" && (err != nil || !created) {
		// The row does not reference the blob.
		f.dropBlob(ctx, ref)
	}
	switch {
	case errors.Is(err, store.ErrCategoryNotFound):
		return nil, notFoundError("Category not found!")
	case errors.Is(err, store.ErrQuantityTooLarge):
		// The name was taken meanwhile and the merged total is too large.
		f.state = ItemEnterQuantity
		return nil, validationError("The total would exceed %d pcs. Enter a smaller quantity:", model.MaxQuantity)
	case err != nil:
		return nil, persistenceError(err)
	}

	f.state = ItemTerminal
	if !created {
		f.deps.Logger.Info("item quantity increased", "item", item.ID, "added", f.draft.quantity, "quantity", item.Quantity)
		return []Reply{{Text: fmt.Sprintf("✅ Quantity updated!\n\n📦 %s: %d pcs.", item.Title(), item.Quantity)}}, nil
	}

	f.deps.Logger.Info("item created", "item", item.ID, "name", item.Title(), "quantity", item.Quantity)
	text := fmt.Sprintf("✅ Item added!\n\n📂 Category: %s\n📦 Name: %s\n🔢 Quantity: %d pcs.",
		item.CategoryName, item.Name, item.Quantity)
	if item.Comment != "" {
		text += "\n💬 Comment: " + item.Comment
	}
	if item.ImageRef != "" {
		text += "\n📸 Photo saved"
	}
	return []Reply{{Text: text}}, nil
}

func (f *ItemFlow) dropBlob(ctx context.Context, ref string) {
	if err := f.deps.Blobs.Delete(ctx, ref); err != nil {
		f.deps.Logger.Error("failed to delete unused item image", "ref", ref, "error", err)
	}
}
