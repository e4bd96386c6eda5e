package activities

import (
	"context"

	"automata/internal/core"
	"automata/internal/logging"
	"automata/internal/platform"
	"automata/internal/types"
)

// panicActivity asks for the panic password while holding the exclusive
// lock. The right password shuts the process down; a wrong one queues a
// random launch and keeps asking.
type panicActivity struct {
	presented
	env      core.Env
	inst     *core.Instance
	guardian *platform.Guardian
}

func panicFactory(deps Deps) core.Factory {
	return func(env core.Env, inst *core.Instance) (core.Activity, error) {
		return &panicActivity{
			presented: presented{display: deps.Display},
			env:       env,
			inst:      inst,
			guardian:  deps.Guardian,
		}, nil
	}
}

func (p *panicActivity) Start(context.Context) error {
	if !p.guardian.HasPassword() {
		logging.ActivityWarn("panic password is not set, stopping")
		p.env.RequestShutdown()
		return nil
	}
	return p.present(Presentation{
		InstanceID: p.inst.ID(),
		Kind:       core.PanicKind,
		Text:       "Password (escape to cancel)",
		Alpha:      100,
		Input:      true,
		Secret:     true,
		Deadline:   p.inst.Deadline(),
	}, instanceEvents{
		inst:      p.inst,
		onAnswer:  p.answer,
		onDismiss: p.cancel,
	})
}

func (p *panicActivity) answer(password string) {
	if p.guardian.Verify(password) {
		logging.Activity("panic password accepted, shutting down")
		p.inst.Complete()
		p.env.RequestShutdown()
		return
	}
	logging.ActivityWarn("panic password is incorrect")
	p.env.Dispatch("", types.SourceManual)
}

func (p *panicActivity) cancel() {
	p.inst.Stop(types.StopCancelled)
}
