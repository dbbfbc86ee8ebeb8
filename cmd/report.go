package cmd

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/spigell/hh-screener/internal/conversation"
	"github.com/spigell/hh-screener/internal/screening"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Fetch analytics from a running hh-screener api and print a CSV report",
	Run: func(cmd *cobra.Command, _ []string) {
		report(cmd)
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringP("server", "u", "http://localhost:8080", "base url of a running hh-screener api")
	reportCmd.Flags().StringP("token", "t", "", "bearer token for the api")
}

func report(cmd *cobra.Command) {
	logger, err := newLogger()
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	base := cmd.Flag("server").Value.String()
	token := cmd.Flag("token").Value.String()

	snapshot, err := fetchAnalytics(base, token)
	if err != nil {
		logger.Fatal("fetching analytics", zap.Error(err))
	}

	if err := writeAnalyticsCSV(os.Stdout, snapshot); err != nil {
		logger.Fatal("writing report", zap.Error(err))
	}
}

func fetchAnalytics(base, token string) (*screening.AnalyticsSnapshot, error) {
	req, err := http.NewRequest(http.MethodGet, base+"/api/analytics", nil)
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s from %s", resp.Status, base)
	}

	var snapshot screening.AnalyticsSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return nil, fmt.Errorf("decoding analytics: %w", err)
	}

	return &snapshot, nil
}

func writeAnalyticsCSV(out io.Writer, snapshot *screening.AnalyticsSnapshot) error {
	w := csv.NewWriter(out)

	records := [][]string{
		{"metric", "value"},
		{"processed_messages", fmt.Sprint(snapshot.Processed)},
		{"security_events", fmt.Sprint(snapshot.SecurityEvents)},
		{"smoothed_confidence", fmt.Sprintf("%.3f", snapshot.SmoothedConfidence)},
	}

	intentions := make([]string, 0, len(snapshot.Intentions))
	for in := range snapshot.Intentions {
		intentions = append(intentions, string(in))
	}
	sort.Strings(intentions)
	for _, in := range intentions {
		records = append(records, []string{
			"intention:" + in,
			fmt.Sprint(snapshot.Intentions[conversation.Intention(in)]),
		})
	}

	return w.WriteAll(records)
}
