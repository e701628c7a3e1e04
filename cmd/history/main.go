package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"scenario-lab/repositories"
	"strings"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/mama165/sdk-go/database"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
)

func main() {
	dbPath := flag.String("db", database.DefaultPath, "Path to the history badger DB")
	limit := flag.Int("limit", 20, "Number of runs to list, 0 lists everything")
	id := flag.String("id", "", "Print the failed scenarios of a single run")
	prune := flag.Int("prune", -1, "Keep only the newest N runs")
	indexPath := flag.String("index", "", "Path to the failure search index")
	search := flag.String("search", "", "Search the failure messages of stored runs, requires -index")
	flag.Parse()

	if *search != "" && *indexPath == "" {
		log.Fatal("-search requires -index")
	}

	db, err := openDB(*dbPath, *prune < 0)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	repository := repositories.NewHistoryRepository(db, logs.GetLoggerFromString("ERROR"), 0)

	switch {
	case *prune >= 0:
		pruned, err := repository.Prune(*prune)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("%d run(s) pruned\n", pruned)
	case *id != "":
		runID, err := uuid.Parse(*id)
		if err != nil {
			log.Fatal(err)
		}
		run, err := repository.GetRun(runID)
		if err != nil {
			log.Fatal(err)
		}
		printRuns([]repositories.RunRecord{run})
		for _, name := range run.FailedCases {
			fmt.Println("  ✗", name)
		}
	case *search != "":
		reader, err := bluge.OpenReader(bluge.DefaultConfig(*indexPath))
		if err != nil {
			log.Fatal("Error while opening the search index: ", err)
		}
		defer reader.Close()
		hits, total, err := repositories.SearchFailures(context.Background(), reader, *search, *limit)
		if err != nil {
			log.Fatal(err)
		}
		printHits(repository, hits, total)
	default:
		runs, err := repository.ListRuns(*limit)
		if err != nil {
			log.Fatal(err)
		}
		printRuns(runs)
	}
}

func printRuns(runs []repositories.RunRecord) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Run", "Name", "Started", "Duration", "Progress", "Result", "Total", "Failures", "Errors", "Ignored", "Peak RSS"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for _, run := range runs {
		table.Append([]string{
			run.ID.String()[:8],
			run.Name,
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			run.Duration.Round(time.Millisecond).String(),
			string(run.Progress),
			string(run.Result),
			fmt.Sprint(run.Counts.Total),
			fmt.Sprint(run.Counts.Failures),
			fmt.Sprint(run.Counts.Errors),
			fmt.Sprint(run.Counts.Ignored),
			fmt.Sprintf("%.1f MiB", float64(run.RSSBytes)/(1<<20)),
		})
	}
	table.Render()
}

// printHits skips failures of runs that were pruned from the history since they were indexed.
func printHits(repository repositories.HistoryRepository, hits []repositories.FailureHit, total uint64) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Run", "Started", "Case", "Outcome", "Message"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)

	shown := 0
	for _, hit := range hits {
		run, err := repository.GetRun(hit.RunID)
		if err != nil {
			continue
		}
		shown++
		table.Append([]string{
			hit.RunID.String()[:8],
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			hit.Case,
			string(hit.Outcome),
			strings.SplitN(hit.Message, "\n", 2)[0],
		})
	}
	table.Render()
	fmt.Printf("%d of %d matching failure(s) shown\n", shown, total)
}

func openDB(path string, readOnly bool) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(readOnly).
		WithLogger(nil).
		WithBypassLockGuard(readOnly)

	db, err := badger.Open(opts)
	if err != nil && readOnly && strings.Contains(err.Error(), "Log truncate required") {
		// A run interrupted mid-write leaves the value log untruncated: open once in write mode to repair it.
		repaired, repairErr := badger.Open(badger.DefaultOptions(path).WithLogger(nil))
		if repairErr != nil {
			return nil, fmt.Errorf("repair failed: %w", repairErr)
		}
		_ = repaired.Close()
		return badger.Open(opts)
	}
	return db, err
}
