package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newProfileCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Look up GitHub and HackerNews profiles",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "github LOGIN",
		Short: "Show a GitHub user's profile",
		Args:  cobra.ExactArgs(1),
		RunE: rt.run(func(cmd *cobra.Command, args []string) error {
			p, err := rt.app.Accounts.GitHubProfile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if rt.asJSON {
				return printJSON(cmd.OutOrStdout(), p)
			}
			t := newTable(cmd.OutOrStdout(), "FIELD", "VALUE")
			t.addRow("login", p.Login)
			t.addRow("name", p.DisplayName())
			if p.Bio != "" {
				t.addRow("bio", p.Bio)
			}
			t.addRow("public repos", strconv.Itoa(p.PublicRepos))
			t.addRow("followers", strconv.Itoa(p.Followers))
			t.addRow("following", strconv.Itoa(p.Following))
			return t.render()
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "hn USERNAME",
		Aliases: []string{"hackernews"},
		Short:   "Show a HackerNews user's profile",
		Args:    cobra.ExactArgs(1),
		RunE: rt.run(func(cmd *cobra.Command, args []string) error {
			p, err := rt.app.Accounts.HackerNewsProfile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if rt.asJSON {
				return printJSON(cmd.OutOrStdout(), p)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  karma %d\n", p.Username, p.Karma)
			return nil
		}),
	})

	return cmd
}
