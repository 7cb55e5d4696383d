package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/durablenotes/durablenotes/internal/client"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show admin aggregate statistics",
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	c := client.New()
	if !c.Healthy() {
		return fmt.Errorf("no durablenotes server reachable (is 'durablenotes serve' running?)")
	}

	data, err := c.Get("/api/admin/stats")
	if err != nil {
		return err
	}

	var stats struct {
		TotalUsers    int   `json:"totalUsers"`
		TotalNotes    int64 `json:"totalNotes"`
		ArchivedNotes int64 `json:"archivedNotes"`
		ActiveActors  int   `json:"activeActors"`
	}
	if err := json.Unmarshal(data, &stats); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}

	fmt.Printf("users:          %d\n", stats.TotalUsers)
	fmt.Printf("notes (total):  %d\n", stats.TotalNotes)
	fmt.Printf("notes archived: %d\n", stats.ArchivedNotes)
	fmt.Printf("actors live:    %d\n", stats.ActiveActors)
	return nil
}
