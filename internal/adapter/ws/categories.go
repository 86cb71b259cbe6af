package ws

import (
	"context"
	"errors"
	"strings"

	"github.com/ptyhub/ptyhub/pkg/hub/models"
	"github.com/ptyhub/ptyhub/pkg/protocol"
)

func (c *Conn) handleCategoryList(ctx context.Context, f *protocol.Frame) {
	cats, err := c.h.store.ListCategories(ctx)
	if err != nil {
		c.sendError(protocol.TypeError, f.ID, "Failed to list categories")
		return
	}

	infos := make([]protocol.CategoryInfo, 0, len(cats))
	for _, cat := range cats {
		infos = append(infos, toCategoryInfo(cat))
	}
	c.sendReply(protocol.TypeCategoryList, f.ID, protocol.CategoryListPayload{Categories: infos})
}

func (c *Conn) handleCategoryCreate(ctx context.Context, f *protocol.Frame) {
	var p protocol.CategoryCreatePayload
	if err := f.DecodePayload(&p); err != nil {
		c.sendError(protocol.TypeError, f.ID, "Invalid category payload")
		return
	}
	name := strings.TrimSpace(p.Name)
	if name == "" {
		c.sendError(protocol.TypeError, f.ID, "Category name cannot be empty")
		return
	}

	cat := &models.Category{Name: name, OwnerID: c.Principal().UserID}
	if _, err := c.h.store.CreateCategory(ctx, cat); err != nil {
		if errors.Is(err, models.ErrDuplicateCategory) {
			c.sendError(protocol.TypeError, f.ID, "Category already exists")
		} else {
			c.sendError(protocol.TypeError, f.ID, "Failed to create category")
		}
		return
	}

	info := toCategoryInfo(cat)
	c.sendReply(protocol.TypeCategoryCreated, f.ID, info)
	c.h.broadcast(protocol.TypeCategoryCreated, info, c.id)
}

func (c *Conn) handleCategoryRename(ctx context.Context, f *protocol.Frame) {
	var p protocol.CategoryRenamePayload
	if err := f.DecodePayload(&p); err != nil || p.CategoryID == "" {
		c.sendError(protocol.TypeError, f.ID, "Invalid category payload")
		return
	}
	name := strings.TrimSpace(p.Name)
	if name == "" {
		c.sendError(protocol.TypeError, f.ID, "Category name cannot be empty")
		return
	}

	if err := c.h.store.RenameCategory(ctx, p.CategoryID, name); err != nil {
		if errors.Is(err, models.ErrCategoryNotFound) {
			c.sendError(protocol.TypeError, f.ID, "Category not found")
		} else {
			c.sendError(protocol.TypeError, f.ID, "Failed to rename category")
		}
		return
	}

	payload := protocol.CategoryRenamePayload{CategoryID: p.CategoryID, Name: name}
	c.sendReply(protocol.TypeCategoryRenamed, f.ID, payload)
	c.h.broadcast(protocol.TypeCategoryRenamed, payload, c.id)
}

// handleCategoryDelete removes a category. Its sessions survive and drop
// back to the uncategorized group, so other clients need the updated
// session list as well as the deletion.
func (c *Conn) handleCategoryDelete(ctx context.Context, f *protocol.Frame) {
	var p protocol.CategoryDeletePayload
	if err := f.DecodePayload(&p); err != nil || p.CategoryID == "" {
		c.sendError(protocol.TypeError, f.ID, "Invalid category payload")
		return
	}

	if err := c.h.store.DeleteCategory(ctx, p.CategoryID); err != nil {
		if errors.Is(err, models.ErrCategoryNotFound) {
			c.sendError(protocol.TypeError, f.ID, "Category not found")
		} else {
			c.sendError(protocol.TypeError, f.ID, "Failed to delete category")
		}
		return
	}

	payload := protocol.CategoryDeletePayload{CategoryID: p.CategoryID}
	c.sendReply(protocol.TypeCategoryDeleted, f.ID, payload)
	c.h.broadcast(protocol.TypeCategoryDeleted, payload, c.id)
}

func (c *Conn) handleCategoryReorder(ctx context.Context, f *protocol.Frame) {
	var p protocol.CategoryReorderPayload
	if err := f.DecodePayload(&p); err != nil || len(p.Order) == 0 {
		c.sendError(protocol.TypeError, f.ID, "Invalid reorder payload")
		return
	}

	if err := c.h.store.ReorderCategories(ctx, p.Order); err != nil {
		if errors.Is(err, models.ErrCategoryNotFound) {
			c.sendError(protocol.TypeError, f.ID, "Category not found")
		} else {
			c.sendError(protocol.TypeError, f.ID, "Failed to reorder categories")
		}
		return
	}

	payload := protocol.CategoryReorderPayload{Order: p.Order}
	c.sendReply(protocol.TypeCategoryReordered, f.ID, payload)
	c.h.broadcast(protocol.TypeCategoryReordered, payload, c.id)
}

func (c *Conn) handleCategoryToggle(ctx context.Context, f *protocol.Frame) {
	var p protocol.CategoryTogglePayload
	if err := f.DecodePayload(&p); err != nil || p.CategoryID == "" {
		c.sendError(protocol.TypeError, f.ID, "Invalid toggle payload")
		return
	}

	if err := c.h.store.ToggleCategory(ctx, p.CategoryID, p.Collapsed); err != nil {
		if errors.Is(err, models.ErrCategoryNotFound) {
			c.sendError(protocol.TypeError, f.ID, "Category not found")
		} else {
			c.sendError(protocol.TypeError, f.ID, "Failed to toggle category")
		}
		return
	}

	payload := protocol.CategoryTogglePayload{CategoryID: p.CategoryID, Collapsed: p.Collapsed}
	c.sendReply(protocol.TypeCategoryToggled, f.ID, payload)
	c.h.broadcast(protocol.TypeCategoryToggled, payload, c.id)
}

func (c *Conn) handlePreferencesGet(ctx context.Context, f *protocol.Frame) {
	prefs, err := c.h.store.GetPreferences(ctx, c.Principal().UserID)
	if err != nil {
		c.sendError(protocol.TypeError, f.ID, "Failed to load preferences")
		return
	}
	c.sendReply(protocol.TypePreferences, f.ID, toPreferencesInfo(prefs))
}

func (c *Conn) handlePreferencesSet(ctx context.Context, f *protocol.Frame) {
	var p protocol.PreferencesSetPayload
	if err := f.DecodePayload(&p); err != nil {
		c.sendError(protocol.TypeError, f.ID, "Invalid preferences payload")
		return
	}

	prefs := &models.NotificationPreferences{
		UserID:            c.Principal().UserID,
		BrowserEnabled:    p.BrowserEnabled,
		VisualEnabled:     p.VisualEnabled,
		NotifyOnInput:     p.NotifyOnInput,
		NotifyOnCompleted: p.NotifyOnCompleted,
	}
	if err := c.h.store.UpsertPreferences(ctx, prefs); err != nil {
		c.sendError(protocol.TypeError, f.ID, "Failed to save preferences")
		return
	}

	c.sendReply(protocol.TypePreferencesUpdated, f.ID, toPreferencesInfo(prefs))
}

// handleNotificationDismiss drops the pending badge for a session so it
// stops appearing in session.list replies. The reply echoes the request
// type as a bare acknowledgement.
func (c *Conn) handleNotificationDismiss(f *protocol.Frame) {
	var p protocol.NotificationDismissPayload
	if err := f.DecodePayload(&p); err != nil || p.SessionID == "" {
		c.sendError(protocol.TypeError, f.ID, "Invalid dismiss payload")
		return
	}

	c.h.bus.Clear(p.SessionID)
	c.sendReply(protocol.TypeNotificationDismiss, f.ID, protocol.SessionRefPayload{SessionID: p.SessionID})
}

func toCategoryInfo(cat *models.Category) protocol.CategoryInfo {
	return protocol.CategoryInfo{
		ID:        cat.ID,
		Name:      cat.Name,
		SortOrder: cat.SortOrder,
		Collapsed: cat.Collapsed,
		CreatedAt: cat.CreatedAt,
	}
}

func toPreferencesInfo(prefs *models.NotificationPreferences) protocol.PreferencesInfo {
	return protocol.PreferencesInfo{
		BrowserEnabled:    prefs.BrowserEnabled,
		VisualEnabled:     prefs.VisualEnabled,
		NotifyOnInput:     prefs.NotifyOnInput,
		NotifyOnCompleted: prefs.NotifyOnCompleted,
	}
}
