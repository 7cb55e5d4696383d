package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/durablenotes/durablenotes/internal/client"
	"github.com/durablenotes/durablenotes/internal/note"
)

var (
	composeSpace  string
	composeIntent string
	listSpace     string
	listAll       bool
)

var composeCmd = &cobra.Command{
	Use:   "compose [content]",
	Short: "Capture a note through a running server",
	Args:  cobra.ExactArgs(1),
	RunE:  runCompose,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List your notes with their current lifecycle status",
	RunE:  runList,
}

func init() {
	composeCmd.Flags().StringVar(&composeSpace, "space", "main", "space to file the note under")
	composeCmd.Flags().StringVar(&composeIntent, "intent", "thinking", "intent tag: thinking|planning|building|writing|shared")
	listCmd.Flags().StringVar(&listSpace, "space", "", "only show one space")
	listCmd.Flags().BoolVar(&listAll, "all", false, "include archived notes")
}

func runCompose(cmd *cobra.Command, args []string) error {
	if !note.ValidIntent(composeIntent) {
		return fmt.Errorf("unknown intent %q", composeIntent)
	}

	c := client.New()
	if !c.Healthy() {
		return fmt.Errorf("no durablenotes server reachable (is 'durablenotes serve' running?)")
	}

	body, _ := json.Marshal(map[string]string{
		"space":   composeSpace,
		"content": args[0],
		"intent":  composeIntent,
	})
	data, err := c.Post("/api/notes", body)
	if err != nil {
		return err
	}

	var created note.Note
	if err := json.Unmarshal(data, &created); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	fmt.Printf("captured %s [%s] in %s\n", created.ID, created.Status, created.Space)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	c := client.New()
	if !c.Healthy() {
		return fmt.Errorf("no durablenotes server reachable (is 'durablenotes serve' running?)")
	}

	path := "/api/notes"
	if listSpace != "" {
		path += "?space=" + listSpace
	}
	data, err := c.Get(path)
	if err != nil {
		return err
	}

	var resp struct {
		Notes []note.Note `json:"notes"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}

	shown := 0
	for _, n := range resp.Notes {
		if !listAll && n.Status == note.StatusArchived {
			continue
		}
		ts := time.Unix(int64(n.CreatedAt), 0).Format("2006-01-02 15:04")
		fmt.Printf("%s  %-8s  %-9s  %s\n", ts, n.Status, n.Intent, oneLine(n.Content))
		shown++
	}
	if shown == 0 {
		fmt.Fprintln(os.Stderr, "no notes")
	}
	return nil
}

// oneLine truncates content for terminal display.
func oneLine(s string) string {
	const max = 72
	out := make([]rune, 0, max)
	for _, r := range s {
		if r == '\n' || r == '\r' {
			r = ' '
		}
		out = append(out, r)
		if len(out) == max {
			return string(out) + "…"
		}
	}
	return string(out)
}
