package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sakif/linkstash/internal/auth"
)

// newHashPassphraseCommand prints the bcrypt hash to put in
// auth.passphrase_hash. The passphrase is read from stdin so it stays out of
// shell history.
func newHashPassphraseCommand() *cobra.Command {
	var cost int
	cmd := &cobra.Command{
		Use:         "hash-passphrase",
		Short:       "Hash a login passphrase read from stdin",
		Example:     `  printf '%s' 'my secret' | linkstash hash-passphrase`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"offline": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return errors.New("no passphrase on stdin")
			}
			passphrase := strings.TrimRight(line, "\r\n")

			hash, err := auth.NewPassphraseHasherWithCost(cost).Hash(passphrase)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
	cmd.Flags().IntVar(&cost, "cost", auth.DefaultCost, "bcrypt cost")
	return cmd
}
