package activities

import (
	"context"
	"fmt"

	"automata/internal/config"
	"automata/internal/core"
	"automata/internal/pack"
)

// popup shows an image or gif that replicates and denies on dismissal.
type popup struct {
	presented
	inst *core.Instance
	pres Presentation
}

func popupFactory(category string) func(Deps, config.ActivityConfig) core.Factory {
	return func(deps Deps, ac config.ActivityConfig) core.Factory {
		return func(env core.Env, inst *core.Instance) (core.Activity, error) {
			rnd := env.Rand()
			content := env.Content()
			if content == nil {
				return nil, ErrNoContent
			}
			ref, ok := content.Choose(category, rnd)
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrNoContent, category)
			}

			pres := Presentation{
				InstanceID: inst.ID(),
				Kind:       inst.Kind().Name,
				Content:    ref,
				Censor:     censorGate(ac).Fires(rnd),
				Alpha:      alpha(ac, rnd),
			}
			if ac.Button {
				pres.Button = "close"
				if label, ok := content.Choose(pack.Buttons, rnd); ok {
					pres.Button = label
				}
			}

			return &popup{
				presented: presented{display: deps.Display},
				inst:      inst,
				pres:      pres,
			}, nil
		}
	}
}

func (p *popup) Start(context.Context) error {
	p.pres.Deadline = p.inst.Deadline()
	return p.present(p.pres, instanceEvents{inst: p.inst})
}
