package repositories

import (
	"log/slog"
	"scenario-lab/domain"
	"scenario-lab/errors"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func openDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func record(name string, at time.Time) RunRecord {
	return RunRecord{
		ID:          uuid.New(),
		Name:        name,
		StartedAt:   at,
		Duration:    1500 * time.Millisecond,
		Progress:    domain.ProgressCompleted,
		Result:      domain.ResultFailure,
		Counts:      domain.Counts{Total: 14, Started: 14, Failures: 9},
		FailedCases: []string{"tests1::should_fail", "tests1::should_fail_with_message"},
		Failures: []CaseFailure{
			{Case: "tests1::should_fail", Outcome: domain.OutcomeEqualityFailure, Message: "assertion `left == right` failed"},
			{Case: "tests1::should_fail_with_message", Outcome: domain.OutcomeBooleanFailureWithMessage, Message: "value is FALSE"},
		},
		RSSBytes:    42 << 20,
		CPUPercent:  12.5,
	}
}

func Test_Store_And_Get_Run(t *testing.T) {
	req := require.New(t)
	repository := NewHistoryRepository(openDB(t), slog.Default(), 0)

	// Given a stored run
	run := record("nightly", time.Now().UTC())
	req.NoError(repository.StoreRun(run))

	// When fetching it by id
	fetched, err := repository.GetRun(run.ID)

	// Then every field survives the round trip
	req.NoError(err)
	req.Equal(run, fetched)
}

func Test_Get_Unknown_Run(t *testing.T) {
	req := require.New(t)
	repository := NewHistoryRepository(openDB(t), slog.Default(), 0)

	_, err := repository.GetRun(uuid.New())

	req.ErrorIs(err, errors.ErrRunNotFound)
}

func Test_List_Runs_Newest_First_With_Limit(t *testing.T) {
	req := require.New(t)
	repository := NewHistoryRepository(openDB(t), slog.Default(), 0)

	// Given three runs one minute apart
	at := time.Now().UTC()
	runs := []RunRecord{
		record("first", at),
		record("second", at.Add(time.Minute)),
		record("third", at.Add(2*time.Minute)),
	}
	for _, run := range runs {
		req.NoError(repository.StoreRun(run))
	}

	// When listing all of them
	all, err := repository.ListRuns(0)
	req.NoError(err)

	// Then the newest comes first
	req.Len(all, 3)
	req.Equal("third", all[0].Name)
	req.Equal("first", all[2].Name)

	// And a limit keeps only the newest
	limited, err := repository.ListRuns(2)
	req.NoError(err)
	req.Len(limited, 2)
	req.Equal("second", limited[1].Name)
}

func Test_Store_Run_Prunes_Oldest(t *testing.T) {
	req := require.New(t)
	repository := NewHistoryRepository(openDB(t), slog.Default(), 2)

	at := time.Now().UTC()
	oldest := record("oldest", at)
	req.NoError(repository.StoreRun(oldest))
	req.NoError(repository.StoreRun(record("middle", at.Add(time.Minute))))
	req.NoError(repository.StoreRun(record("newest", at.Add(2*time.Minute))))

	runs, err := repository.ListRuns(0)
	req.NoError(err)
	req.Len(runs, 2)
	req.Equal("newest", runs[0].Name)

	_, err = repository.GetRun(oldest.ID)
	req.ErrorIs(err, errors.ErrRunNotFound)
}

func Test_Prune_Returns_Removed_Count(t *testing.T) {
	req := require.New(t)
	repository := NewHistoryRepository(openDB(t), slog.Default(), 0)

	at := time.Now().UTC()
	for i := range 5 {
		req.NoError(repository.StoreRun(record("run", at.Add(time.Duration(i)*time.Second))))
	}

	pruned, err := repository.Prune(3)
	req.NoError(err)
	req.Equal(2, pruned)

	pruned, err = repository.Prune(3)
	req.NoError(err)
	req.Zero(pruned)
}

func Test_From_Session(t *testing.T) {
	req := require.New(t)

	// Given a session with one failing case
	session := domain.NewRunSession("unit")
	passing := session.AddCase("tests1", "should_pass")
	failing := session.AddCase("tests1", "should_fail")
	at := time.Now()
	session.Start(at)
	session.CaseStarted(passing, at)
	session.CaseEnded(passing, domain.CaseReport{Outcome: domain.OutcomePass})
	session.CaseStarted(failing, at)
	session.CaseEnded(failing, domain.CaseReport{
		Outcome: domain.OutcomeExplicitFailure,
		Trace:   &domain.FailureTrace{Message: "Make this test fail"},
	})
	session.Finish(at.Add(time.Second), false)

	// When summarizing it
	run := FromSession(session)

	// Then
	req.Equal(session.ID, run.ID)
	req.Equal("unit", run.Name)
	req.Equal(domain.ResultFailure, run.Result)
	req.Equal(domain.ProgressCompleted, run.Progress)
	req.Equal(2, run.Counts.Total)
	req.Equal(1, run.Counts.Failures)
	req.Equal([]string{"tests1::should_fail"}, run.FailedCases)
	req.Equal([]CaseFailure{{
		Case:    "tests1::should_fail",
		Outcome: domain.OutcomeExplicitFailure,
		Message: "Make this test fail",
	}}, run.Failures)
}

func Test_Run_Without_Start_Time_Sorts_As_Oldest(t *testing.T) {
	req := require.New(t)
	repository := NewHistoryRepository(openDB(t), slog.Default(), 0)

	// Given a run imported without timestamp and one before the epoch
	undated := record("undated", time.Time{})
	ancient := record("ancient", time.Date(1960, 1, 1, 0, 0, 0, 0, time.UTC))
	recent := record("recent", time.Now().UTC())

	// Then their keys stay zero padded numbers
	req.Equal("run:0000000000000000000:"+undated.ID.String(), runKey(undated))
	req.Equal("run:0000000000000000000:"+ancient.ID.String(), runKey(ancient))

	// When storing them
	for _, run := range []RunRecord{undated, recent, ancient} {
		req.NoError(repository.StoreRun(run))
	}

	// Then the dated run is still the newest and every run can be fetched
	runs, err := repository.ListRuns(0)
	req.NoError(err)
	req.Len(runs, 3)
	req.Equal("recent", runs[0].Name)
	fetched, err := repository.GetRun(undated.ID)
	req.NoError(err)
	req.Equal("undated", fetched.Name)
	req.True(fetched.StartedAt.IsZero())
}

func Test_Last_Failed_Cases(t *testing.T) {
	req := require.New(t)
	repository := NewHistoryRepository(openDB(t), slog.Default(), 0)

	// Given an empty history
	failed, err := LastFailedCases(repository)
	req.NoError(err)
	req.Empty(failed)

	// When two runs are stored
	at := time.Now().UTC()
	older := record("older", at)
	newer := record("newer", at.Add(time.Minute))
	newer.FailedCases = []string{"tests2::it_fails_on_result"}
	req.NoError(repository.StoreRun(newer))
	req.NoError(repository.StoreRun(older))

	// Then only the newest run counts
	failed, err = LastFailedCases(repository)
	req.NoError(err)
	req.Equal([]string{"tests2::it_fails_on_result"}, failed)
}
