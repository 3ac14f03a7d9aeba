package senate_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/senate/internal/model"
	"github.com/ashita-ai/senate/internal/reasoner"
	"github.com/ashita-ai/senate/internal/senate"
)

func TestConveneCrucible_RunsAllThreeStrategiesConcurrently(t *testing.T) {
	fake := newScriptedReasoner().
		on(reasoner.RoleForge, map[string]any{"code": "a", "intermediate_representation": "ir-a"}).
		on(reasoner.RoleForge, map[string]any{"code": "b", "intermediate_representation": "ir-b"}).
		on(reasoner.RoleForge, map[string]any{"code": "c", "intermediate_representation": "ir-c"})
	sen := senate.New(fake)

	variants := sen.ConveneCrucible(context.Background(), "write a parser", false)

	require.Len(t, variants, 3)
	assert.Equal(t, 3, fake.countOf(reasoner.RoleForge))
	strategies := map[senate.CrucibleStrategy]bool{}
	for _, v := range variants {
		strategies[v.Strategy] = true
		assert.NoError(t, v.Err)
		assert.True(t, v.RosettaValid)
	}
	assert.True(t, strategies[senate.StrategySpeed])
	assert.True(t, strategies[senate.StrategySafety])
	assert.True(t, strategies[senate.StrategyClarity])
}

func TestConveneCrucible_RosettaMismatchRejectsVariant(t *testing.T) {
	fake := newScriptedReasoner().
		on(reasoner.RoleForge, map[string]any{"code": "a", "intermediate_representation": "ir-a", "rosetta_signature": "not-the-real-hash"}).
		on(reasoner.RoleForge, map[string]any{"code": "b", "intermediate_representation": "ir-b"}).
		on(reasoner.RoleForge, map[string]any{"code": "c", "intermediate_representation": "ir-c"})
	sen := senate.New(fake)

	variants := sen.ConveneCrucible(context.Background(), "write a parser", false)

	var mismatched int
	for _, v := range variants {
		if v.Err != nil {
			mismatched++
			assert.False(t, v.RosettaValid)
		}
	}
	assert.Equal(t, 1, mismatched, "exactly one variant carried a tampered rosetta_signature")
}

func TestSelectChampion_UsesArbiterRole(t *testing.T) {
	fake := newScriptedReasoner().on(reasoner.RoleArbiter, map[string]any{"strategy": "CLARITY"})
	sen := senate.New(fake)

	variants := []senate.CrucibleVariant{
		{Strategy: senate.StrategySpeed, Proposal: "speedy"},
		{Strategy: senate.StrategySafety, Proposal: "safe"},
		{Strategy: senate.StrategyClarity, Proposal: "clear"},
	}

	champion, ok := sen.SelectChampion(context.Background(), variants)

	require.True(t, ok)
	assert.Equal(t, senate.StrategyClarity, champion.Strategy)
	assert.Equal(t, 1, fake.countOf(reasoner.RoleArbiter))
}

func TestSelectChampion_FallsBackToStaticOrderWhenArbiterFails(t *testing.T) {
	fake := newScriptedReasoner() // no arbiter script queued; scriptedReasoner's default reply has no "strategy" field
	sen := senate.New(fake)

	variants := []senate.CrucibleVariant{
		{Strategy: senate.StrategySpeed, Proposal: "speedy"},
		{Strategy: senate.StrategyClarity, Proposal: "clear"},
	}

	champion, ok := sen.SelectChampion(context.Background(), variants)

	require.True(t, ok)
	assert.Equal(t, senate.StrategyClarity, champion.Strategy, "SAFETY is absent, so CLARITY beats SPEED in the static order")
}

func TestSelectChampion_SkipsErroredAndEmptyVariants(t *testing.T) {
	sen := senate.New(newScriptedReasoner())

	variants := []senate.CrucibleVariant{
		{Strategy: senate.StrategySafety, Err: assertErr},
		{Strategy: senate.StrategyClarity, Proposal: ""},
		{Strategy: senate.StrategySpeed, Proposal: "only viable one"},
	}

	champion, ok := sen.SelectChampion(context.Background(), variants)

	require.True(t, ok)
	assert.Equal(t, senate.StrategySpeed, champion.Strategy)
}

func TestConveneWithCrucible_AttachesChampionStrategyToMetadata(t *testing.T) {
	longCode := "def f():\n    return 1\n" + string(make([]rune, 200))
	fake := newScriptedReasoner().
		on(reasoner.RolePreCheck, map[string]any{"verdict": "ALLOW", "reason": "fine"}).
		on(reasoner.RoleForge, map[string]any{"code": longCode, "intermediate_representation": "ir-1"}).
		on(reasoner.RoleForge, map[string]any{"code": longCode, "intermediate_representation": "ir-2"}).
		on(reasoner.RoleForge, map[string]any{"code": longCode, "intermediate_representation": "ir-3"}).
		on(reasoner.RoleArbiter, map[string]any{"strategy": "SAFETY"}).
		on(reasoner.RoleAdversary, map[string]any{"raw_output": "No issues found."}).
		on(reasoner.RoleFinal, map[string]any{"verdict": "AUTHORIZE", "reason": "fine"})
	sen := senate.New(fake)

	record := sen.ConveneWithCrucible(context.Background(), "write a parser", nil)

	assert.Equal(t, model.StateAuthorized, record.State)
	assert.Equal(t, "SAFETY", record.Metadata["crucible_strategy"])
}

var assertErr = &testError{"boom"}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }
