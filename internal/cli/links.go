package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/sakif/linkstash/internal/model"
	"github.com/sakif/linkstash/internal/repository"
	"github.com/sakif/linkstash/internal/service"
	"github.com/sakif/linkstash/internal/view"
)

const maxTitleWidth = 60

func newAddCommand(rt *runtime) *cobra.Command {
	var (
		in    service.SaveLinkInput
		fetch bool
	)
	cmd := &cobra.Command{
		Use:   "add URL",
		Short: "Save a link",
		Example: `  linkstash add https://go.dev/blog
  linkstash add https://youtu.be/xyz --type video --tag talks --title "GopherCon keynote"
  linkstash add https://example.com --fetch`,
		Args: cobra.ExactArgs(1),
		RunE: rt.run(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			in.URL = args[0]

			link, err := rt.app.Links.Save(ctx, in)
			if err != nil {
				return err
			}

			if fetch {
				link, err = rt.fetchMetadata(ctx, link)
				if err != nil {
					return err
				}
			}

			if rt.asJSON {
				return printJSON(cmd.OutOrStdout(), link)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s  %s\n", link.ID, link.DisplayTitle())
			return nil
		}),
	}
	cmd.Flags().StringVar(&in.Title, "title", "", "link title")
	cmd.Flags().StringVar(&in.Description, "desc", "", "link description")
	cmd.Flags().StringVar(&in.Type, "type", "", "link type: "+typeList())
	cmd.Flags().StringSliceVar(&in.Tags, "tag", nil, "tag name (repeatable)")
	cmd.Flags().BoolVar(&fetch, "fetch", false, "fetch the page now and fill in missing title, description and image")
	return cmd
}

// fetchMetadata runs one enrichment job in the foreground.
func (rt *runtime) fetchMetadata(ctx context.Context, link *model.Link) (*model.Link, error) {
	if rt.app.Enricher == nil {
		return link, fmt.Errorf("metadata fetching is disabled (enrich.enabled=false)")
	}
	changed, err := rt.app.Enricher.Process(ctx, link.ID)
	if err != nil {
		return link, fmt.Errorf("fetching metadata: %w", err)
	}
	if !changed {
		return link, nil
	}
	return rt.app.Links.Get(ctx, link.ID)
}

func newListCommand(rt *runtime) *cobra.Command {
	var (
		favorite, archived, completed bool
		tagName, typ, sort            string
		f                             repository.LinkFilter
	)
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List links",
		Example: `  linkstash list
  linkstash list --favorite --sort title
  linkstash list --archived=false --tag reading --query golang`,
		Args: cobra.NoArgs,
		RunE: rt.run(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			flags := cmd.Flags()

			if flags.Changed("favorite") {
				f.Favorite = repository.Bool(favorite)
			}
			if flags.Changed("archived") {
				f.Archived = repository.Bool(archived)
			}
			if flags.Changed("completed") {
				f.Completed = repository.Bool(completed)
			}
			if typ != "" {
				parsed, ok := model.ParseLinkType(typ)
				if !ok {
					return fmt.Errorf("unknown link type %q (want one of %s)", typ, typeList())
				}
				f.Type = parsed
			}
			f.Sort = repository.LinkSort(sort)

			if tagName != "" {
				tag, err := rt.app.Tags.Find(ctx, tagName)
				if err != nil {
					return err
				}
				f.TagID = tag.ID
			}

			page, err := rt.app.Links.List(ctx, f)
			if err != nil {
				return err
			}
			if rt.asJSON {
				return printJSON(cmd.OutOrStdout(), page)
			}
			return renderLinks(cmd.OutOrStdout(), page)
		}),
	}

	flags := cmd.Flags()
	flags.BoolVar(&favorite, "favorite", false, "only favorites (--favorite=false for the rest)")
	flags.BoolVar(&archived, "archived", false, "only archived links")
	flags.BoolVar(&completed, "completed", false, "only completed links")
	flags.StringVar(&tagName, "tag", "", "only links with this tag")
	flags.StringVar(&typ, "type", "", "only links of this type")
	flags.StringVarP(&f.Query, "query", "q", "", "search title, URL and description")
	flags.StringVar(&sort, "sort", "newest", "newest, oldest, title or completed")
	flags.IntVar(&f.Limit, "limit", repository.DefaultListLimit, "page size")
	flags.IntVar(&f.Offset, "offset", 0, "skip this many links")
	return cmd
}

func renderLinks(w io.Writer, page *service.LinkPage) error {
	if len(page.Links) == 0 {
		_, err := fmt.Fprintln(w, "no links")
		return err
	}

	t := newTable(w, "ID", "TITLE", "TYPE", "STATUS", "FLAGS", "TAGS", "SAVED")
	for _, item := range view.NewLinkItems(page.Links, view.Callbacks{}) {
		link := item.Link()
		t.addRow(
			item.ID,
			truncate(item.Title, maxTitleWidth),
			string(link.Type),
			item.StatusLabel,
			flagString(item),
			strings.Join(item.Tags, ", "),
			item.CreatedLabel,
		)
	}
	if err := t.render(); err != nil {
		return err
	}

	shown := page.Offset + len(page.Links)
	_, err := fmt.Fprintf(w, "%d-%d of %d\n", page.Offset+1, shown, page.Total)
	return err
}

func flagString(item view.LinkItem) string {
	var flags []string
	if item.Favorite {
		flags = append(flags, "fav")
	}
	if item.Archived {
		flags = append(flags, "archived")
	}
	return strings.Join(flags, ",")
}

func newShowCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show one link",
		Args:  cobra.ExactArgs(1),
		RunE: rt.run(func(cmd *cobra.Command, args []string) error {
			link, err := rt.app.Links.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if rt.asJSON {
				return printJSON(cmd.OutOrStdout(), link)
			}
			return renderLink(cmd.OutOrStdout(), link)
		}),
	}
}

func renderLink(w io.Writer, link *model.Link) error {
	item := view.NewLinkItem(*link, view.Callbacks{})

	t := newTable(w, "FIELD", "VALUE")
	t.addRow("id", link.ID)
	t.addRow("title", item.Title)
	t.addRow("url", link.URL)
	if link.Description != "" {
		t.addRow("description", truncate(link.Description, 200))
	}
	if link.PreviewImageURL != "" {
		t.addRow("image", link.PreviewImageURL)
	}
	t.addRow("type", string(link.Type))
	t.addRow("status", item.StatusLabel)
	if item.CompletedLabel != "" {
		t.addRow("completed", item.CompletedLabel)
	}
	t.addRow("favorite", yesNo(link.IsFavorite))
	t.addRow("archived", yesNo(link.IsArchived))
	t.addRow("tags", strings.Join(item.Tags, ", "))
	t.addRow("saved", item.CreatedLabel)
	return t.render()
}

type toggleFunc func(ctx context.Context, id string) (*model.Link, error)

func (rt *runtime) toggleFavorite(ctx context.Context, id string) (*model.Link, error) {
	return rt.app.Links.ToggleFavorite(ctx, id)
}

func (rt *runtime) toggleArchive(ctx context.Context, id string) (*model.Link, error) {
	return rt.app.Links.ToggleArchive(ctx, id)
}

func (rt *runtime) toggleStatus(ctx context.Context, id string) (*model.Link, error) {
	return rt.app.Links.ToggleStatus(ctx, id)
}

// newToggleCommand builds fav, archive and done, which differ only in the
// service call.
func newToggleCommand(rt *runtime, use, short string, fn toggleFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: rt.run(func(cmd *cobra.Command, args []string) error {
			link, err := fn(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if rt.asJSON {
				return printJSON(cmd.OutOrStdout(), link)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  favorite=%s archived=%s status=%s\n",
				link.ID, yesNo(link.IsFavorite), yesNo(link.IsArchived), link.StatusLabel())
			return nil
		}),
	}
}

func newRemoveCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:     "rm ID",
		Aliases: []string{"delete"},
		Short:   "Delete a link (its tags are kept)",
		Args:    cobra.ExactArgs(1),
		RunE: rt.run(func(cmd *cobra.Command, args []string) error {
			if err := rt.app.Links.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		}),
	}
}

func typeList() string {
	types := model.LinkTypes()
	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, strings.ToLower(string(t)))
	}
	return strings.Join(names, ", ")
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
