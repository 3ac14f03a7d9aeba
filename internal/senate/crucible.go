package senate

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ashita-ai/senate/internal/reasoner"
)

// CrucibleStrategy is one of the three forge variants the crucible runs
// concurrently, each nudging the forger's system prompt toward a different
// optimization target.
type CrucibleStrategy string

const (
	StrategySpeed   CrucibleStrategy = "SPEED"
	StrategySafety  CrucibleStrategy = "SAFETY"
	StrategyClarity CrucibleStrategy = "CLARITY"
)

// crucibleOrder is the champion-selection preference when variants tie on
// other merit: SAFETY beats CLARITY beats SPEED.
var crucibleOrder = []CrucibleStrategy{StrategySafety, StrategyClarity, StrategySpeed}

// CrucibleVariant is one forged proposal plus the strategy that produced it.
// Signature is this package's own Rosetta self-signature over Code+IR; if
// the forger also returned its own "rosetta_signature" field, RosettaValid
// reports whether the two agree. A mismatch rejects the variant before the
// adversary ever sees it, independent of and prior to the binding rule.
type CrucibleVariant struct {
	Strategy     CrucibleStrategy
	Proposal     string
	Code         string
	IR           string
	Signature    string
	RosettaValid bool
	Err          error
}

// ConveneCrucible is an optional extension to the single-path forge stage:
// it runs all three strategies concurrently against the Reasoner and
// returns every variant, in strategy order, regardless of individual
// failures. It does not replace Convene's forge step; a caller that wants
// the crucible instead of the single forge call invokes this directly and
// picks a champion via SelectChampion before handing the winning proposal
// to the rest of the pipeline.
func (s *Senate) ConveneCrucible(ctx context.Context, intent string, governanceMode bool) []CrucibleVariant {
	variants := make([]CrucibleVariant, len(crucibleOrder))
	g, gctx := errgroup.WithContext(ctx)

	for i, strategy := range crucibleOrder {
		i, strategy := i, strategy
		g.Go(func() error {
			result, err := s.reason.Think(gctx, reasoner.RoleForge,
				forgeSystemPrompt+" Optimize this variant for "+string(strategy)+".",
				intent, reasoner.Options{GovernanceMode: governanceMode})
			variant := CrucibleVariant{Strategy: strategy, Err: err}
			if err == nil {
				variant.Proposal = extractProposal(result)
				variant.Code = reasoner.AsString(result, "code")
				variant.IR = reasoner.AsString(result, "intermediate_representation")
				variant.Signature = rosettaSignature(variant.Code, variant.IR)
				variant.RosettaValid = true
				if providerSig := reasoner.AsString(result, "rosetta_signature"); providerSig != "" {
					variant.RosettaValid = verifyRosetta(variant.Code, variant.IR, providerSig)
					if !variant.RosettaValid {
						variant.Err = errRosettaMismatch
					}
				}
			}
			variants[i] = variant
			return nil // per-variant errors are carried in the slice, not failed fast
		})
	}
	_ = g.Wait() // errors are collected per-variant; Wait's error is always nil here

	return variants
}

// errRosettaMismatch marks a crucible variant whose forger-supplied
// signature doesn't match the recomputed content hash of its own code and
// intermediate representation: ROSETTA_MISMATCH, an immediate adversary-stage
// rejection independent of the binding rule.
var errRosettaMismatch = fmt.Errorf("ROSETTA_MISMATCH")

// SelectChampion asks the Reasoner's arbiter role to pick the best of the
// valid, non-errored variants given their adversary-readiness, falling back
// to the static SAFETY > CLARITY > SPEED preference (never a panic) if the
// arbiter call fails or returns an unrecognized strategy. The fallback is
// silent: nothing is logged.
func (s *Senate) SelectChampion(ctx context.Context, variants []CrucibleVariant) (CrucibleVariant, bool) {
	candidates := validCandidates(variants)
	if len(candidates) == 0 {
		return CrucibleVariant{}, false
	}
	if len(candidates) == 1 {
		return candidates[0], true
	}

	result, err := s.reason.Think(ctx, reasoner.RoleArbiter, arbiterSystemPrompt,
		describeCandidates(candidates), reasoner.Options{})
	if err == nil {
		if chosen := reasoner.AsString(result, "strategy"); chosen != "" {
			for _, v := range candidates {
				if strings.EqualFold(string(v.Strategy), chosen) {
					return v, true
				}
			}
		}
	}

	return staticChampion(candidates)
}

func validCandidates(variants []CrucibleVariant) []CrucibleVariant {
	var out []CrucibleVariant
	for _, v := range variants {
		if v.Err == nil && v.Proposal != "" {
			out = append(out, v)
		}
	}
	return out
}

// staticChampion is the fallback used when the arbiter is unavailable: the
// first candidate in SAFETY, CLARITY, SPEED order.
func staticChampion(candidates []CrucibleVariant) (CrucibleVariant, bool) {
	byStrategy := make(map[CrucibleStrategy]CrucibleVariant, len(candidates))
	for _, v := range candidates {
		byStrategy[v.Strategy] = v
	}
	for _, strategy := range crucibleOrder {
		if v, ok := byStrategy[strategy]; ok {
			return v, true
		}
	}
	return candidates[0], true
}

func describeCandidates(candidates []CrucibleVariant) string {
	var b strings.Builder
	b.WriteString("Select the best variant by strategy name. Prefer SAFETY over SPEED on a tie, and CLARITY when performance is comparable.\n")
	for _, v := range candidates {
		fmt.Fprintf(&b, "- %s: %s\n", v.Strategy, preview(v.Proposal, 200))
	}
	return b.String()
}

const arbiterSystemPrompt = `You are the arbiter. Respond with a JSON object containing "strategy" (SPEED, SAFETY, or CLARITY) naming the best candidate.`
