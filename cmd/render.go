package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bloggera/bloggera/internal/domain"
	"github.com/bloggera/bloggera/internal/richtext"
	"github.com/bloggera/bloggera/internal/toggle"
	"github.com/bloggera/bloggera/internal/views"
)

// renderCards writes feed cards as a table, or encodes them for json/yaml.
func renderCards(title string, cards []views.Card, canLoadMore bool) error {
	if ok, err := printer.Encode(struct {
		Posts       []views.Card `json:"posts" yaml:"posts"`
		CanLoadMore bool         `json:"canLoadMore" yaml:"canLoadMore"`
	}{cards, canLoadMore}); ok {
		return err
	}

	printer.Header(title)
	if len(cards) == 0 {
		printer.Info("No posts")
		return nil
	}

	table := printer.NewTable("ID", "TITLE", "AUTHOR", "LIKES", "", "EXCERPT")
	for _, c := range cards {
		table.AddRow(
			c.PostID,
			printer.Bold(c.Title),
			c.AuthorUsername,
			strconv.Itoa(c.LikeCount),
			printer.LikeMark(c.ViewerHasLiked),
			c.Excerpt,
		)
	}
	if err := table.Render(); err != nil {
		return err
	}
	if canLoadMore {
		printer.Print("%s", printer.Dim(fmt.Sprintf("%d posts shown, more available", len(cards))))
	} else {
		printer.Print("%s", printer.Dim(fmt.Sprintf("%d posts, end of feed", len(cards))))
	}
	return nil
}

func renderPost(snap views.PostSnapshot) error {
	if ok, err := printer.Encode(snap); ok {
		return err
	}
	p := snap.Post
	if p == nil {
		return nil
	}

	printer.Header(p.Title)
	printer.Print("by %s  %s %d", p.AuthorUsername, printer.LikeMark(snap.Liked), snap.Likes)
	if len(p.Categories) > 0 {
		printer.Print("%s", printer.Dim(strings.Join(p.Categories, ", ")))
	}
	if p.ImageURL != "" {
		printer.Print("image: %s", p.ImageURL)
	}
	printer.Print("")
	printer.Print("%s", richtext.PlainText(p.HTMLContent))

	if len(p.Comments) > 0 {
		printer.Header(fmt.Sprintf("Comments (%d)", len(p.Comments)))
		for _, c := range p.Comments {
			author := c.AuthorUsername
			if author == "" {
				author = c.AuthorUserID
			}
			printer.Print("%s: %s", printer.Bold(author), c.Text)
		}
	}
	return nil
}

func renderCategories(cats []domain.Category) error {
	if ok, err := printer.Encode(cats); ok {
		return err
	}
	table := printer.NewTable("ID", "NAME", "DESCRIPTION")
	for _, c := range cats {
		table.AddRow(c.ID, c.Name, c.Description)
	}
	return table.Render()
}

// toggleOutcome is what like and follow report after the request settles.
type toggleOutcome struct {
	ID        string `json:"id" yaml:"id"`
	Active    bool   `json:"active" yaml:"active"`
	Count     int    `json:"count" yaml:"count"`
	Committed bool   `json:"committed" yaml:"committed"`
}

func renderToggle(id string, state toggle.State, mark func(bool) string) error {
	out := toggleOutcome{ID: id, Active: state.Active, Count: state.Count, Committed: true}
	if ok, err := printer.Encode(out); ok {
		return err
	}
	printer.Success("%s %s (%d)", id, mark(state.Active), state.Count)
	return nil
}
