package repositories

import (
	"context"
	"fmt"
	"log/slog"
	"scenario-lab/domain"

	"github.com/blugelabs/bluge"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

const (
	fieldRun     = "run"
	fieldCase    = "case"
	fieldOutcome = "outcome"
	fieldMessage = "message"
)

// FailureHit is one failed case matching a search.
type FailureHit struct {
	RunID   uuid.UUID
	Case    string
	Outcome domain.Outcome
	Message string
}

// FailureIndex keeps the failure messages of stored runs in a bluge index.
type FailureIndex struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewFailureIndex(writer *bluge.Writer, log *slog.Logger) FailureIndex {
	return FailureIndex{writer: writer, log: log}
}

// Index adds every failure of a run, one document per case.
// The document id is "{run}/{case}" so indexing the same run twice replaces it.
func (f FailureIndex) Index(run RunRecord) error {
	if len(run.Failures) == 0 {
		return nil
	}
	batch := bluge.NewBatch()
	for _, failure := range run.Failures {
		doc := bluge.NewDocument(run.ID.String()+"/"+failure.Case).
			AddField(bluge.NewKeywordField(fieldRun, run.ID.String()).StoreValue()).
			AddField(bluge.NewKeywordField(fieldCase, failure.Case).StoreValue()).
			AddField(bluge.NewKeywordField(fieldOutcome, string(failure.Outcome)).StoreValue()).
			AddField(bluge.NewTextField(fieldMessage, failure.Message).StoreValue())
		batch.Update(doc.ID(), doc)
	}
	if err := f.writer.Batch(batch); err != nil {
		return fmt.Errorf("indexing failures of run %s: %w", run.ID, err)
	}
	f.log.Debug(fmt.Sprintf("Indexed %d failure(s) of run %s", len(run.Failures), run.ID))
	return nil
}

// Search matches text against the indexed failure messages.
func (f FailureIndex) Search(ctx context.Context, text string, limit int) ([]FailureHit, uint64, error) {
	reader, err := f.writer.Reader()
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = reader.Close() }()
	return SearchFailures(ctx, reader, text, limit)
}

// SearchFailures returns at most limit hits, best match first, and the total number of matches.
func SearchFailures(ctx context.Context, reader *bluge.Reader, text string, limit int) ([]FailureHit, uint64, error) {
	query := bluge.NewMatchQuery(text).SetField(fieldMessage)
	request := bluge.NewTopNSearch(lo.Ternary(limit > 0, limit, 10), query).WithStandardAggregations()

	matches, err := reader.Search(ctx, request)
	if err != nil {
		return nil, 0, fmt.Errorf("searching failures: %w", err)
	}

	var hits []FailureHit
	match, err := matches.Next()
	for err == nil && match != nil {
		var hit FailureHit
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case fieldRun:
				hit.RunID, _ = uuid.ParseBytes(value)
			case fieldCase:
				hit.Case = string(value)
			case fieldOutcome:
				hit.Outcome = domain.Outcome(value)
			case fieldMessage:
				hit.Message = string(value)
			}
			return true
		})
		if err != nil {
			return nil, 0, err
		}
		hits = append(hits, hit)
		match, err = matches.Next()
	}
	if err != nil {
		return nil, 0, err
	}
	return hits, matches.Aggregations().Count(), nil
}
