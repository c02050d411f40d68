package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// newTagCommand groups per-link tag edits: tag add / tag rm.
func newTagCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Attach or detach a link's tags",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add LINK_ID NAME",
		Short: "Tag a link, creating the tag if needed",
		Args:  cobra.ExactArgs(2),
		RunE: rt.run(func(cmd *cobra.Command, args []string) error {
			link, err := rt.app.Links.AddTag(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if rt.asJSON {
				return printJSON(cmd.OutOrStdout(), link)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s tags: %v\n", link.ID, link.TagNames())
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rm LINK_ID TAG_ID",
		Short: "Remove a tag from a link (the tag itself is kept)",
		Args:  cobra.ExactArgs(2),
		RunE: rt.run(func(cmd *cobra.Command, args []string) error {
			link, err := rt.app.Links.RemoveTag(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if rt.asJSON {
				return printJSON(cmd.OutOrStdout(), link)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s tags: %v\n", link.ID, link.TagNames())
			return nil
		}),
	})

	return cmd
}

// newTagsCommand lists tags; "tags prune" deletes unused ones.
func newTagsCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "List tags with their link counts",
		Args:  cobra.NoArgs,
		RunE: rt.run(func(cmd *cobra.Command, args []string) error {
			tags, err := rt.app.Tags.List(cmd.Context())
			if err != nil {
				return err
			}
			if rt.asJSON {
				return printJSON(cmd.OutOrStdout(), tags)
			}
			if len(tags) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no tags")
				return nil
			}
			t := newTable(cmd.OutOrStdout(), "ID", "NAME", "LINKS")
			for _, tag := range tags {
				t.addRow(tag.ID, tag.Name, strconv.Itoa(tag.LinkCount))
			}
			return t.render()
		}),
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "prune",
		Short: "Delete tags no link uses",
		Args:  cobra.NoArgs,
		RunE: rt.run(func(cmd *cobra.Command, args []string) error {
			n, err := rt.app.Tags.Prune(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pruned %d tag(s)\n", n)
			return nil
		}),
	})

	return cmd
}
