package tengo

import (
	"github.com/d5/tengo/v2"
	"vesta/vesta"
)

// compile builds a script with the event variable and every module of Modules importable
func compile(source string) (*tengo.Compiled, error) {
	script := tengo.NewScript([]byte(source))
	script.SetImports(Modules())
	if err := script.Add("event", emptyEvent); err != nil {
		return nil, err
	}
	return script.Compile()
}

// run binds event and runs the compiled script until it returns or ctx is done
func run(ctx vesta.Context, compiled *tengo.Compiled, event *vesta.Event) error {
	tengoEvent, err := toTengoEvent(event)
	if err != nil {
		return err
	}
	if err = compiled.Set("event", tengoEvent); err != nil {
		return err
	}
	return compiled.RunContext(ctx.Ctx())
}
