package cmd

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

// NewUnmountCommand triggers the §4.8 unmount barrier against a running
// "serve" instance's admin HTTP surface.
func NewUnmountCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "unmount [device]",
		Short: "Trigger the unmount barrier for a device against a running server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := fmt.Sprintf("http://%s/admin/unmount/%s", addr, args[0])
			client := &http.Client{Timeout: 20 * time.Second}
			resp, err := client.Post(url, "application/json", nil)
			if err != nil {
				return fmt.Errorf("fseventsctl: unmount request failed: %w", err)
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)
			fmt.Printf("%s: %s\n", resp.Status, string(body))
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("fseventsctl: unmount returned %s", resp.Status)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:9470", "admin HTTP address of the running server")

	return cmd
}
