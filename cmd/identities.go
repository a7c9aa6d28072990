package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/vetdocs/triage/internal/identity"
	"github.com/vetdocs/triage/internal/router"
)

var identitiesCmd = &cobra.Command{
	Use:   "identities",
	Short: "Manage known veteran identities",
}

// -- identities list --

var identitiesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known veteran identities",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		names, err := st.ListIdentities(ctx)
		if err != nil {
			return eris.Wrap(err, "identities list")
		}

		if len(names) == 0 {
			fmt.Fprintln(os.Stderr, "No identities registered.")
			return nil
		}

		for _, n := range names {
			fmt.Fprintln(os.Stdout, n)
		}
		return nil
	},
}

// -- identities add --

var identitiesAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Register a veteran identity",
	Long:  "Sanitizes the given name and registers it so future documents group under it.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		if !identity.IsValidHumanName(args[0]) {
			return eris.Errorf("%q does not look like a person's name", args[0])
		}

		name := identity.Sanitize(args[0])
		if name == identity.UnknownVeteran {
			return eris.Errorf("%q cannot be sanitized into a folder name", args[0])
		}

		if err := st.RegisterIdentity(ctx, name); err != nil {
			return eris.Wrap(err, "identities add")
		}

		fmt.Fprintln(os.Stdout, name)
		return nil
	},
}

// -- identities scan --

var identitiesScanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Register identities found in existing veteran folders",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		fileRouter := router.New(cfg.Router.BaseDir, cfg.Pipeline.HighConfidenceThreshold, cfg.Pipeline.LowConfidenceThreshold)
		names, err := fileRouter.ListVeteranFolders()
		if err != nil {
			return eris.Wrap(err, "scan veteran folders")
		}

		var added int
		for _, n := range names {
			if n == identity.UnknownVeteran {
				continue
			}
			if err := st.RegisterIdentity(ctx, n); err != nil {
				return eris.Wrapf(err, "register %s", n)
			}
			added++
		}

		fmt.Fprintf(os.Stdout, "Registered %d identities from %s\n", added, cfg.Router.BaseDir)
		return nil
	},
}

func init() {
	identitiesCmd.AddCommand(identitiesListCmd)
	identitiesCmd.AddCommand(identitiesAddCmd)
	identitiesCmd.AddCommand(identitiesScanCmd)
	rootCmd.AddCommand(identitiesCmd)
}
