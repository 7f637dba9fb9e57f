package main

import (
	"github.com/jrsteele09/go-entra-webapp/server"
	"github.com/spf13/cobra"
)

type RootOpts struct {
	envFiles []string
}

func NewRootCmd() *cobra.Command {
	opts := &RootOpts{}
	rootCmd := &cobra.Command{
		Use:          "entra-webapp",
		Args:         cobra.NoArgs,
		Short:        "Web application signing users in with Microsoft Entra ID",
		SilenceUsage: true,
		Long: `Web application signing users in with Microsoft Entra ID

	Settings are read from the environment and an optional .env file.

	# Run the authorization-code flow locally
	AZURE_CLIENT_ID=... AZURE_CLIENT_SECRET=... AZURE_TENANT_ID=... ./entra-webapp serve

	# Run behind App Service authentication, trusting X-MS-CLIENT-PRINCIPAL-* headers
	./entra-webapp proxy
`,
	}
	rootCmd.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", nil, "env files to load instead of ./.env")

	rootCmd.AddCommand(newModeCmd(opts, server.ModeSignIn,
		"Sign users in with the authorization-code flow and keep server-side sessions"))
	rootCmd.AddCommand(newModeCmd(opts, server.ModeProxy,
		"Trust the identity forwarded by App Service authentication headers"))

	return rootCmd
}

func newModeCmd(opts *RootOpts, mode server.Mode, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(mode),
		Args:  cobra.NoArgs,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), mode, opts.envFiles)
		},
	}
}
