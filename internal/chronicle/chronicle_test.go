package chronicle_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/senate/internal/chronicle"
	"github.com/ashita-ai/senate/internal/model"
)

func newTestChronicle(t *testing.T, secured bool) *chronicle.Chronicle {
	t.Helper()
	dir := t.TempDir()
	store, err := chronicle.NewJSONStore(filepath.Join(dir, "precedents.json"), filepath.Join(dir, "appeals.json"))
	require.NoError(t, err)
	return chronicle.New(store, secured)
}

func TestGetWriterHandle_OnlyELDER(t *testing.T) {
	ch := newTestChronicle(t, true)

	_, err := ch.GetWriterHandle("attacker")
	require.Error(t, err)
	var accessErr *chronicle.AccessError
	assert.ErrorAs(t, err, &accessErr)

	handle, err := ch.GetWriterHandle("elder")
	require.NoError(t, err, "caller comparison is case-insensitive")
	assert.True(t, handle.CanWrite())
}

func TestWritePrecedent_SecuredRejectsReaderHandle(t *testing.T) {
	ch := newTestChronicle(t, true)
	reader := ch.GetReaderHandle("anyone")

	_, err := ch.WritePrecedent(context.Background(), model.PrecedentRecord{CaseID: "CASE-1"}, reader)
	require.Error(t, err)
	var accessErr *chronicle.AccessError
	assert.ErrorAs(t, err, &accessErr)
}

func TestWritePrecedent_UnsecuredAllowsReaderHandle(t *testing.T) {
	ch := newTestChronicle(t, false)
	reader := ch.GetReaderHandle("anyone")

	caseID, err := ch.WritePrecedent(context.Background(), model.PrecedentRecord{CaseID: "CASE-1"}, reader)
	require.NoError(t, err)
	assert.Equal(t, "CASE-1", caseID)
}

func TestWritePrecedentAndGetCaseByID(t *testing.T) {
	ch := newTestChronicle(t, true)
	writer, err := ch.GetWriterHandle("ELDER")
	require.NoError(t, err)

	precedent := model.PrecedentRecord{
		CaseID:   "CASE-1",
		Question: "write a sorting function",
		Verdict:  model.PrecedentVerdict{Ruling: "APPROVED"},
	}
	_, err = ch.WritePrecedent(context.Background(), precedent, writer)
	require.NoError(t, err)

	got, err := ch.GetCaseByID(context.Background(), "CASE-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "write a sorting function", got.Question)
}

func TestGetCaseByID_Absent(t *testing.T) {
	ch := newTestChronicle(t, true)
	got, err := ch.GetCaseByID(context.Background(), "CASE-MISSING")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRetrievePrecedent_KeywordOverlap(t *testing.T) {
	ch := newTestChronicle(t, true)
	writer, err := ch.GetWriterHandle("ELDER")
	require.NoError(t, err)

	_, err = ch.WritePrecedent(context.Background(), model.PrecedentRecord{
		CaseID: "CASE-1", Question: "write a sorting function in Go",
	}, writer)
	require.NoError(t, err)
	_, err = ch.WritePrecedent(context.Background(), model.PrecedentRecord{
		CaseID: "CASE-2", Question: "delete the production database",
	}, writer)
	require.NoError(t, err)

	matches, err := ch.RetrievePrecedent(context.Background(), "sorting algorithm")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "CASE-1", matches[0].CaseID)
}

func TestRetrievePrecedent_EmptyQueryReturnsNoMatches(t *testing.T) {
	ch := newTestChronicle(t, true)
	matches, err := ch.RetrievePrecedent(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestPersistAppeal_LinksIntoOriginalHistory(t *testing.T) {
	ch := newTestChronicle(t, true)
	writer, err := ch.GetWriterHandle("ELDER")
	require.NoError(t, err)

	_, err = ch.WritePrecedent(context.Background(), model.PrecedentRecord{
		CaseID: "CASE-1", Question: "q", Verdict: model.PrecedentVerdict{Ruling: "NULL_VERDICT"},
	}, writer)
	require.NoError(t, err)

	_, err = ch.PersistAppeal(context.Background(), model.AppealRecord{
		AppealID: "APPEAL-1", OriginalCaseID: "CASE-1",
	}, writer)
	require.NoError(t, err)

	got, err := ch.GetCaseByID(context.Background(), "CASE-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []string{"APPEAL-1"}, got.AppealHistory)

	appeals, err := ch.GetAppealsForCase(context.Background(), "CASE-1")
	require.NoError(t, err)
	assert.Len(t, appeals, 1)

	count, err := ch.GetAppealCount(context.Background(), "CASE-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCitePrecedent_AbsentCaseReturnsNil(t *testing.T) {
	ch := newTestChronicle(t, true)
	citation, err := ch.CitePrecedent(context.Background(), "CASE-MISSING")
	require.NoError(t, err)
	assert.Nil(t, citation)
}

func TestCitePrecedent_IncludesAppealCount(t *testing.T) {
	ch := newTestChronicle(t, true)
	writer, err := ch.GetWriterHandle("ELDER")
	require.NoError(t, err)

	_, err = ch.WritePrecedent(context.Background(), model.PrecedentRecord{
		CaseID: "CASE-1", Question: "q", Verdict: model.PrecedentVerdict{Ruling: "APPROVED"},
	}, writer)
	require.NoError(t, err)
	_, err = ch.PersistAppeal(context.Background(), model.AppealRecord{AppealID: "APPEAL-1", OriginalCaseID: "CASE-1"}, writer)
	require.NoError(t, err)

	citation, err := ch.CitePrecedent(context.Background(), "CASE-1")
	require.NoError(t, err)
	require.NotNil(t, citation)
	assert.Equal(t, 1, citation.AppealCount)
	assert.Equal(t, "APPROVED", citation.Ruling)
}

// TestNoDestructiveOperations documents, rather than merely asserts, that the
// Store interface carries no update/delete/modify/remove/expunge method for
// precedents, null-verdicts, or appeals. It is a compile-time fact (the
// absence of such a method) made visible as a test a reader can find.
func TestNoDestructiveOperations(t *testing.T) {
	var _ chronicle.Store = (*chronicle.JSONStore)(nil)
	// If this package ever grows an UpdatePrecedent/DeletePrecedent/etc.
	// method on Store, this test's documentation goes stale — that is the
	// point: a reviewer adding one should find and reconsider this test.
}

func TestPersistenceError_Unwraps(t *testing.T) {
	dir := t.TempDir()
	// A path inside a nonexistent directory makes every durable write fail.
	store, err := chronicle.NewJSONStore(filepath.Join(dir, "missing", "p.json"), filepath.Join(dir, "missing", "a.json"))
	require.NoError(t, err, "NewJSONStore only fails to load, not to later write")
	ch := chronicle.New(store, true)
	writer, err := ch.GetWriterHandle("ELDER")
	require.NoError(t, err)

	_, err = ch.WritePrecedent(context.Background(), model.PrecedentRecord{CaseID: "CASE-1"}, writer)
	require.Error(t, err)
	var persistErr *chronicle.PersistenceError
	assert.ErrorAs(t, err, &persistErr)
	assert.True(t, errors.Is(err, persistErr.Err))
}
