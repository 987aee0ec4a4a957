package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/polychat-ai/polychat/internal/config"
	"github.com/polychat-ai/polychat/internal/session"
	"github.com/polychat-ai/polychat/internal/storage"
)

var sessionsDataDir string

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List stored sessions",
	Long: `List the sessions in the storage directory, with message counts and
collaboration scores.`,
	RunE: runSessions,
}

func init() {
	sessionsCmd.Flags().StringVar(&sessionsDataDir, "data-dir", "", "Session storage directory (overrides config)")
}

func runSessions(cmd *cobra.Command, args []string) error {
	workDir, err := os.Getwd()
	if err != nil {
		return err
	}

	cfg, err := config.Load(workDir)
	if err != nil {
		return err
	}
	if sessionsDataDir != "" {
		cfg.DataDir = sessionsDataDir
	}

	store := storage.New(cfg.DataDir)
	sessions, err := store.ListSessions(context.Background())
	if err != nil {
		return err
	}

	if len(sessions) == 0 {
		fmt.Println("no sessions")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tAGENTS\tMESSAGES\tSCORE\tUPDATED")
	for _, s := range sessions {
		report := session.AnalyzeCollaboration(s)
		updated := time.UnixMilli(s.UpdatedAt).Format("2006-01-02 15:04")
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.0f\t%s\n",
			s.ID, s.Title, len(s.AgentIDs), len(s.Messages), report.CollaborationScore, updated)
	}
	return w.Flush()
}
