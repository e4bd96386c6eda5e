package activities

import (
	"context"
	"fmt"
	"strings"

	"automata/internal/config"
	"automata/internal/core"
	"automata/internal/logging"
	"automata/internal/pack"
	"automata/internal/types"
)

// prompt asks the user to retype a line. An answer within the sampled
// number of mistakes completes it; a wrong answer replicates it. A tracked
// prompt accepts only the exact text, typed without a wrong keystroke.
type prompt struct {
	presented
	inst     *core.Instance
	rnd      *types.Rand
	mistakes types.Range
	pres     Presentation
}

func promptFactory(deps Deps, ac config.ActivityConfig) core.Factory {
	return func(env core.Env, inst *core.Instance) (core.Activity, error) {
		rnd := env.Rand()
		content := env.Content()
		if content == nil {
			return nil, ErrNoContent
		}
		text, ok := content.Choose(pack.Prompts, rnd)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNoContent, pack.Prompts)
		}
		// The background image is decoration; a pack without images still
		// prompts.
		background, _ := content.Choose(pack.Images, rnd)

		return &prompt{
			presented: presented{display: deps.Display},
			inst:      inst,
			rnd:       rnd,
			mistakes:  mistakes(ac),
			pres: Presentation{
				InstanceID: inst.ID(),
				Kind:       inst.Kind().Name,
				Content:    background,
				Text:       text,
				Alpha:      alpha(ac, rnd),
				Input:      true,
				Track:      trackGate(ac).Fires(rnd),
			},
		}, nil
	}
}

func (p *prompt) Start(context.Context) error {
	p.pres.Deadline = p.inst.Deadline()
	return p.present(p.pres, instanceEvents{inst: p.inst, onAnswer: p.answer})
}

// answer checks one attempt. The tolerance is resampled per attempt.
func (p *prompt) answer(attempt string) {
	if p.pres.Track {
		if attempt == p.pres.Text {
			p.inst.Complete()
			return
		}
		logging.ActivityDebug("prompt/%s: tracked answer does not match", shortID(p.inst.ID()))
		return
	}
	allowed := p.mistakes.Sample(p.rnd)
	if Accepts(p.pres.Text, attempt, allowed) {
		p.inst.Complete()
		return
	}
	logging.ActivityDebug("prompt/%s: wrong answer (allowed %d mistakes)", shortID(p.inst.ID()), allowed)
	p.inst.Replicate()
}

// Typed is the verdict on the input of a tracked prompt so far.
type Typed int

const (
	// TypedPrefix: the input is a prefix of the text; keep typing.
	TypedPrefix Typed = iota

	// TypedWrong: the last keystroke diverged; the input is wiped.
	TypedWrong

	// TypedExact: the whole text was typed.
	TypedExact
)

// CheckTyped compares the input of a tracked prompt with want.
func CheckTyped(want, typed string) Typed {
	switch {
	case typed == want:
		return TypedExact
	case strings.HasPrefix(want, typed):
		return TypedPrefix
	default:
		return TypedWrong
	}
}

// Accepts reports whether attempt matches want within allowed edits, with
// surrounding whitespace ignored.
func Accepts(want, attempt string, allowed int) bool {
	return Distance(strings.TrimSpace(want), strings.TrimSpace(attempt)) <= allowed
}

// Distance is the Levenshtein distance between a and b, counted in runes.
func Distance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}
