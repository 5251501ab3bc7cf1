package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/physics91/ai-code-review-mcp-sub000/internal/backend"
	"github.com/physics91/ai-code-review-mcp-sub000/internal/config"
)

var backendsCmd = &cobra.Command{
	Use:   "backends",
	Short: "Backend management",
}

var backendsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List supported backends and their configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(nil)
		if err != nil {
			return err
		}
		for _, name := range backend.ProfileNames() {
			profile, err := backend.ProfileFor(name)
			if err != nil {
				return err
			}
			bc := cfg.Backends[name]
			fmt.Fprintf(os.Stdout, "%s:\n", name)
			fmt.Fprintf(os.Stdout, "  command: %s\n", effectivePath(profile, bc))
			if bc.Model != "" {
				fmt.Fprintf(os.Stdout, "  model: %s\n", bc.Model)
			}
			fmt.Fprintf(os.Stdout, "  timeout: %s\n", effectiveTimeout(profile, bc))
			fmt.Fprintln(os.Stdout)
		}
		return nil
	},
}

var backendsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate backend executable paths",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(nil)
		if err != nil {
			return err
		}
		failed := false
		for _, name := range backend.ProfileNames() {
			profile, err := backend.ProfileFor(name)
			if err != nil {
				return err
			}
			bc := cfg.Backends[name]
			client := backend.New(profile, backend.Options{CLIPath: bc.Path})
			if err := client.ValidatePath(); err != nil {
				fmt.Fprintf(os.Stdout, "%s: FAIL (%v)\n", name, err)
				failed = true
				continue
			}
			fmt.Fprintf(os.Stdout, "%s: OK (%s)\n", name, effectivePath(profile, bc))
		}
		if failed {
			exitCode = ExitSecurityErr
		}
		return nil
	},
}

func effectivePath(profile backend.Profile, bc config.BackendConfig) string {
	if bc.Path != "" {
		return bc.Path
	}
	return profile.Command
}

func effectiveTimeout(profile backend.Profile, bc config.BackendConfig) string {
	if bc.TimeoutSeconds > 0 {
		return bc.Timeout().String()
	}
	return profile.Timeout.String()
}

func init() {
	backendsCmd.AddCommand(backendsListCmd)
	backendsCmd.AddCommand(backendsCheckCmd)
}
