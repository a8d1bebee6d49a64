// cmd/tools/seed-refresh/fetch.go
package main

import (
	"context"
	"fmt"
	"time"

	"astroscope/internal/common/database"
	"astroscope/internal/common/logger"
	"astroscope/internal/llis"
	"astroscope/internal/models"
	"astroscope/pkg/seedfile"

	"github.com/spf13/cobra"
)

// DefaultTopics are the queries the corpus is built from.
var DefaultTopics = []string{
	"Apollo", "Mars Lander", "Thermal", "Communications Failure", "Propulsion",
	"Cryogenic Valve Failures", "ISS", "Shuttle", "Hubble", "Rover",
}

var (
	fetchTopics []string
	fetchDelay  time.Duration
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Query the live search for each topic and write the seed file",
	RunE:  runFetch,
}

func init() {
	fetchCmd.Flags().StringSliceVar(&fetchTopics, "topic", DefaultTopics, "topics to query (repeatable)")
	fetchCmd.Flags().DurationVar(&fetchDelay, "delay", 500*time.Millisecond, "pause between requests")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger()

	transport, err := database.NewLLISTransport(cfg.LLIS, nil)
	if err != nil {
		return err
	}
	client := llis.NewClient(cfg.LLIS, transport, log)

	lessons := collect(cmd.Context(), client, fetchTopics, fetchDelay, log)
	if len(lessons) == 0 {
		return fmt.Errorf("no lessons fetched; keeping existing seed file %s", seedPath)
	}

	sf := &seedfile.SeedFile{
		GeneratedAt:  time.Now().UTC().Format(time.RFC3339),
		TotalLessons: len(lessons),
		Lessons:      lessons,
	}
	if err := seedfile.Save(seedPath, sf); err != nil {
		return err
	}

	fmt.Printf("Wrote %d lessons to %s\n", len(lessons), seedPath)
	return nil
}

type searcher interface {
	Search(ctx context.Context, query string) ([]models.LessonRecord, error)
}

// collect queries every topic once, keeping the first record seen per id.
// Failed topics are logged and skipped.
func collect(ctx context.Context, s searcher, topics []string, delay time.Duration, log logger.Logger) []models.LessonRecord {
	seen := make(map[int]bool)
	var out []models.LessonRecord

	for i, topic := range topics {
		if i > 0 && delay > 0 {
			select {
			case <-ctx.Done():
				return out
			case <-time.After(delay):
			}
		}

		records, err := s.Search(ctx, topic)
		if err != nil {
			log.Warn("topic fetch failed", map[string]interface{}{"topic": topic, "error": err.Error()})
			continue
		}

		added := 0
		for _, r := range records {
			if seen[r.ID] {
				continue
			}
			seen[r.ID] = true
			out = append(out, r)
			added++
		}
		log.Info("topic fetched", map[string]interface{}{"topic": topic, "hits": len(records), "new": added})
	}
	return out
}
