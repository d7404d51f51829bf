package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophjournal/internal/client/models"
	"github.com/dmitrijs2005/gophjournal/internal/client/session"
)

const timeLayout = "2006-01-02 15:04"

// Add prompts for a title, a multi-line text and tags, and stores the entry.
func (a *App) Add(ctx context.Context) error {
	if !a.isLoggedIn() {
		return session.ErrNoActiveSession
	}

	title, err := getSimpleText(a.reader, "Title", a.out)
	if err != nil {
		return err
	}
	text, err := GetMultiline(a.reader, "Text", a.out)
	if err != nil {
		return err
	}
	tags, err := getSimpleText(a.reader, "Tags (comma separated, optional)", a.out)
	if err != nil {
		return err
	}

	view, err := a.entries.Add(ctx, models.Note{Title: title, Text: text, Tags: models.TagsFromString(tags)})
	if err != nil {
		return err
	}

	a.notify.Printf("Added %s\n", view.ID)
	return nil
}

// List prints one line per entry and reports unreadable entries.
func (a *App) List(ctx context.Context) error {
	res, err := a.entries.List(ctx)
	if err != nil {
		return err
	}

	if len(res.Notes) == 0 && len(res.Failures) == 0 {
		a.notify.Printf("No entries\n")
		return nil
	}

	for _, n := range res.Notes {
		a.notify.Printf("%s  %s  %s%s\n", n.ID, n.CreatedAt.Local().Format(timeLayout), n.Note.Title, formatTags(n.Note.Tags))
	}
	for _, f := range res.Failures {
		a.notify.Errorf("%s  unreadable: %v", f.RecordID, f.Err)
	}
	return nil
}

// Show prints one entry in full.
func (a *App) Show(ctx context.Context, id string) error {
	v, err := a.entries.Get(ctx, id)
	if err != nil {
		return err
	}

	a.notify.Printf("Title:   %s\n", v.Note.Title)
	a.notify.Printf("Created: %s\n", v.CreatedAt.Local().Format(timeLayout))
	if !v.UpdatedAt.Equal(v.CreatedAt) {
		a.notify.Printf("Updated: %s\n", v.UpdatedAt.Local().Format(timeLayout))
	}
	if len(v.Note.Tags) > 0 {
		a.notify.Printf("Tags:    %s\n", strings.Join(v.Note.Tags, ", "))
	}
	a.notify.Printf("\n%s\n", v.Note.Text)
	return nil
}

// Delete removes one entry.
func (a *App) Delete(ctx context.Context, id string) error {
	if err := a.entries.Delete(ctx, id); err != nil {
		return err
	}
	a.notify.Printf("Deleted %s\n", id)
	return nil
}

func formatTags(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	return fmt.Sprintf(" [%s]", strings.Join(tags, ", "))
}
