package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newHealthCmd() *cobra.Command {
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result HealthResult

			deadline := time.Now().Add(wait)
			for {
				err := client.Get("/api/v1/health", &result)
				if err == nil {
					break
				}
				if time.Now().After(deadline) {
					if wait > 0 {
						return fmt.Errorf("server not healthy after %s: %w", wait, err)
					}
					return err
				}
				time.Sleep(250 * time.Millisecond)
			}

			NewOutput(cfg.Output).Print(result)
			return nil
		},
	}

	cmd.Flags().DurationVar(&wait, "wait", 0, "Keep retrying until the server is healthy or this long has passed")

	return cmd
}
