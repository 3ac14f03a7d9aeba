package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/senate/internal/model"
)

func TestSenateRecord_LastVote(t *testing.T) {
	r := &model.SenateRecord{}
	_, ok := r.LastVote()
	assert.False(t, ok, "empty record has no last vote")

	r.Votes = append(r.Votes, model.Vote{Agent: model.AgentPreChecker, Verdict: model.VerdictAuthorize})
	r.Votes = append(r.Votes, model.Vote{Agent: model.AgentFinalJudge, Verdict: model.VerdictVeto})

	last, ok := r.LastVote()
	require.True(t, ok)
	assert.Equal(t, model.AgentFinalJudge, last.Agent)
	assert.Equal(t, model.VerdictVeto, last.Verdict)
}

func TestChronicleHandle_ReaderNeverWrites(t *testing.T) {
	h := model.NewReaderHandle("anyone")
	assert.False(t, h.CanWrite())
	assert.True(t, h.CanRead())
	assert.Equal(t, "anyone", h.Owner())
}

func TestChronicleHandle_WriterCanWrite(t *testing.T) {
	h := model.MintWriterHandle("ELDER")
	assert.True(t, h.CanWrite())
	assert.True(t, h.CanRead())
	assert.Equal(t, "ELDER", h.Owner())
}
