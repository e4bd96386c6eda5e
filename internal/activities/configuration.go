package activities

import (
	"context"

	"automata/internal/config"
	"automata/internal/core"
	"automata/internal/types"
)

// configuration holds the exclusive lock while the user edits the config
// file, so no activity launches against a half-written configuration.
// Submitting reloads; dismissing cancels.
type configuration struct {
	presented
	env  core.Env
	inst *core.Instance
	path string
}

func configurationFactory(deps Deps, _ config.ActivityConfig) core.Factory {
	return func(env core.Env, inst *core.Instance) (core.Activity, error) {
		path := deps.ConfigPath
		if path == "" {
			path = config.DefaultPath()
		}
		return &configuration{
			presented: presented{display: deps.Display},
			env:       env,
			inst:      inst,
			path:      path,
		}, nil
	}
}

func (c *configuration) Start(context.Context) error {
	return c.present(Presentation{
		InstanceID: c.inst.ID(),
		Kind:       c.inst.Kind().Name,
		Content:    c.path,
		Text:       "Edit the configuration, then submit to reload",
		Alpha:      100,
		Input:      true,
	}, instanceEvents{
		inst:      c.inst,
		onAnswer:  c.submit,
		onDismiss: c.cancel,
	})
}

func (c *configuration) submit(string) {
	if c.inst.Complete() {
		c.env.RequestReload()
	}
}

func (c *configuration) cancel() {
	c.inst.Stop(types.StopCancelled)
}
