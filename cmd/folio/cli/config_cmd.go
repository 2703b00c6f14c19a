package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/folio-cms/folio/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage Folio configuration",
		Long:  "Initialize a default configuration file or display the current effective configuration.",
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())

	return cmd
}

// ---------- config init ----------

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a default folio.yaml configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigInit(cmd.OutOrStdout(), force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing config file")

	return cmd
}

func runConfigInit(stdout io.Writer, force bool) error {
	path := config.DefaultFileName
	if err := config.WriteDefault(path, force); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Created %s\n", path)
	fmt.Fprintln(stdout, "Set auth.admin_password before the first 'folio serve'.")
	return nil
}

// ---------- config show ----------

func newConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the current effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd.OutOrStdout())
		},
	}

	return cmd
}

func runConfigShow(stdout io.Writer) error {
	if _, err := loadConfig(); err != nil {
		return err
	}

	configFile := viper.ConfigFileUsed()
	if configFile != "" {
		fmt.Fprintf(stdout, "Config file: %s\n", configFile)
	} else {
		fmt.Fprintln(stdout, "Config file: (none found, using defaults)")
	}
	fmt.Fprintln(stdout)

	out, err := config.MarshalSettings(viper.AllSettings())
	if err != nil {
		return err
	}
	_, err = stdout.Write(out)
	return err
}
