//go:generate go run go.uber.org/mock/mockgen -source=history.go -destination=../mocks/mock_history_repository.go -package=mocks
package repositories

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"scenario-lab/domain"
	"scenario-lab/errors"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	runPrefix   = "run:"
	indexPrefix = "idx:run:"
)

type IHistoryRepository interface {
	StoreRun(run RunRecord) error
	GetRun(id uuid.UUID) (RunRecord, error)
	ListRuns(limit int) ([]RunRecord, error)
	Prune(keep int) (int, error)
}

// RunRecord is the summary of a finished run kept in the history.
type RunRecord struct {
	ID          uuid.UUID
	Name        string
	StartedAt   time.Time
	Duration    time.Duration
	Progress    domain.ProgressState
	Result      domain.Result
	Counts      domain.Counts
	FailedCases []string
	Failures    []CaseFailure
	RSSBytes    uint64
	CPUPercent  float64
}

// CaseFailure is the first line of why a case failed, kept for searching the history.
type CaseFailure struct {
	Case    string
	Outcome domain.Outcome
	Message string
}

// FromSession summarizes a session into a record.
func FromSession(session *domain.RunSession) RunRecord {
	return RunRecord{
		ID:        session.ID,
		Name:      session.Name,
		StartedAt: session.StartedAt(),
		Duration:  session.Duration(),
		Progress:  session.Progress(),
		Result:    session.Result(),
		Counts:    session.Counts(),
		FailedCases: lo.Map(session.FailedCases(), func(c domain.TestCase, _ int) string {
			return c.QualifiedName()
		}),
		Failures: lo.Map(session.FailedCases(), func(c domain.TestCase, _ int) CaseFailure {
			failure := CaseFailure{Case: c.QualifiedName(), Outcome: c.Outcome}
			if c.Trace != nil {
				failure.Message = c.Trace.Message
			}
			return failure
		}),
	}
}

type HistoryRepository struct {
	db      *badger.DB
	log     *slog.Logger
	maxRuns int
}

// NewHistoryRepository keeps at most maxRuns runs, zero keeps everything.
func NewHistoryRepository(db *badger.DB, log *slog.Logger, maxRuns int) HistoryRepository {
	return HistoryRepository{db: db, log: log, maxRuns: maxRuns}
}

// StoreRun persists a run in BadgerDB.
// The key is formatted as "run:{started_at_padded}:{uuid}" so that a prefix
// scan returns runs in chronological order, and a secondary "idx:run:{uuid}"
// key points back to it for lookups by id.
func (h HistoryRepository) StoreRun(run RunRecord) error {
	key := runKey(run)
	s, err := toStruct(run)
	if err != nil {
		return fmt.Errorf("encoding run %s: %w", run.ID, err)
	}
	bytes, err := proto.Marshal(s)
	if err != nil {
		return err
	}
	err = h.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(key), bytes); err != nil {
			return err
		}
		return txn.Set([]byte(indexPrefix+run.ID.String()), []byte(key))
	})
	if err != nil {
		return err
	}
	if h.maxRuns > 0 {
		pruned, err := h.Prune(h.maxRuns)
		if err != nil {
			return err
		}
		if pruned > 0 {
			h.log.Debug(fmt.Sprintf("Pruned %d run(s) from history", pruned))
		}
	}
	return nil
}

func (h HistoryRepository) GetRun(id uuid.UUID) (RunRecord, error) {
	var record RunRecord
	err := h.db.View(func(txn *badger.Txn) error {
		idx, err := txn.Get([]byte(indexPrefix + id.String()))
		if err != nil {
			return err
		}
		key, err := idx.ValueCopy(nil)
		if err != nil {
			return err
		}
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			record, err = decode(val)
			return err
		})
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return RunRecord{}, fmt.Errorf("%w: %s", errors.ErrRunNotFound, id)
	}
	return record, err
}

// ListRuns returns the newest runs first, limit <= 0 returns all of them.
func (h HistoryRepository) ListRuns(limit int) ([]RunRecord, error) {
	var records []RunRecord
	err := h.db.View(func(txn *badger.Txn) error {
		it := newestFirst(txn)
		defer it.Close()

		prefix := []byte(runPrefix)
		for it.Seek(seekNewest()); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(records) == limit {
				break
			}
			err := it.Item().Value(func(val []byte) error {
				record, err := decode(val)
				if err != nil {
					return err
				}
				records = append(records, record)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return records, err
}

// LastFailedCases returns the failed case names of the newest stored run, if any.
func LastFailedCases(repository IHistoryRepository) ([]string, error) {
	runs, err := repository.ListRuns(1)
	if err != nil || len(runs) == 0 {
		return nil, err
	}
	return runs[0].FailedCases, nil
}

// Prune deletes everything but the keep newest runs and returns how many were removed.
func (h HistoryRepository) Prune(keep int) (int, error) {
	var stale [][]byte
	err := h.db.View(func(txn *badger.Txn) error {
		it := newestFirst(txn)
		defer it.Close()

		prefix := []byte(runPrefix)
		seen := 0
		for it.Seek(seekNewest()); it.ValidForPrefix(prefix); it.Next() {
			seen++
			if seen > keep {
				stale = append(stale, it.Item().KeyCopy(nil))
			}
		}
		return nil
	})
	if err != nil || len(stale) == 0 {
		return 0, err
	}

	err = h.db.Update(func(txn *badger.Txn) error {
		for _, key := range stale {
			if err := txn.Delete(key); err != nil {
				return err
			}
			id := string(key[strings.LastIndex(string(key), ":")+1:])
			if err := txn.Delete([]byte(indexPrefix + id)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(stale), nil
}

// runKey clamps a start before the epoch, or a zero time, to 0 so that the padded
// timestamp always sorts as a number.
func runKey(run RunRecord) string {
	nanos := int64(0)
	if !run.StartedAt.IsZero() {
		nanos = max(run.StartedAt.UnixNano(), 0)
	}
	return fmt.Sprintf("%s%019d:%s", runPrefix, nanos, run.ID)
}

func newestFirst(txn *badger.Txn) *badger.Iterator {
	options := badger.DefaultIteratorOptions
	options.Reverse = true
	return txn.NewIterator(options)
}

// seekNewest points after the greatest possible padded timestamp.
func seekNewest() []byte {
	return []byte(runPrefix + "9999999999999999999~")
}

func toStruct(run RunRecord) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"id":          run.ID.String(),
		"name":        run.Name,
		"started_at":  run.StartedAt.UTC().Format(time.RFC3339Nano),
		"duration":    run.Duration.String(),
		"progress":    string(run.Progress),
		"result":      string(run.Result),
		"total":       run.Counts.Total,
		"started":     run.Counts.Started,
		"ignored":     run.Counts.Ignored,
		"failures":    run.Counts.Failures,
		"errors":      run.Counts.Errors,
		"rss_bytes":   run.RSSBytes,
		"cpu_percent": run.CPUPercent,
		"failed_cases": lo.Map(run.FailedCases, func(name string, _ int) any {
			return name
		}),
		"failures": lo.Map(run.Failures, func(f CaseFailure, _ int) any {
			return map[string]any{"case": f.Case, "outcome": string(f.Outcome), "message": f.Message}
		}),
	})
}

func decode(val []byte) (RunRecord, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(val, &s); err != nil {
		return RunRecord{}, err
	}
	fields := s.GetFields()
	str := func(name string) string { return fields[name].GetStringValue() }
	num := func(name string) int { return int(fields[name].GetNumberValue()) }

	id, err := uuid.Parse(str("id"))
	if err != nil {
		return RunRecord{}, err
	}
	startedAt, err := time.Parse(time.RFC3339Nano, str("started_at"))
	if err != nil {
		return RunRecord{}, err
	}
	duration, err := time.ParseDuration(str("duration"))
	if err != nil {
		return RunRecord{}, err
	}

	return RunRecord{
		ID:        id,
		Name:      str("name"),
		StartedAt: startedAt,
		Duration:  duration,
		Progress:  domain.ProgressState(str("progress")),
		Result:    domain.Result(str("result")),
		Counts: domain.Counts{
			Total:    num("total"),
			Started:  num("started"),
			Ignored:  num("ignored"),
			Failures: num("failures"),
			Errors:   num("errors"),
		},
		FailedCases: lo.Map(fields["failed_cases"].GetListValue().GetValues(), func(v *structpb.Value, _ int) string {
			return v.GetStringValue()
		}),
		Failures: lo.Map(fields["failures"].GetListValue().GetValues(), func(v *structpb.Value, _ int) CaseFailure {
			f := v.GetStructValue().GetFields()
			return CaseFailure{
				Case:    f["case"].GetStringValue(),
				Outcome: domain.Outcome(f["outcome"].GetStringValue()),
				Message: f["message"].GetStringValue(),
			}
		}),
		RSSBytes:   uint64(fields["rss_bytes"].GetNumberValue()),
		CPUPercent: fields["cpu_percent"].GetNumberValue(),
	}, nil
}
