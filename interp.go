package fiddle

import (
	"fmt"
	"os"
	"reflect"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/tangent-vector/fiddle/fiddlehost"
)

// Engine owns the single process-lifetime embedded interpreter. Every file a
// Dispatcher processes Eval's its generated program into the same Engine, so
// top-level declarations from one file (helpers loaded via -I) stay visible
// to later files; input order is observable.
type Engine struct {
	interp *interp.Interpreter
}

// NewEngine creates an Engine with an optional include directory (-I), used
// to resolve helper ".go" files templates may import.
func NewEngine(includePath string) (*Engine, error) {
	opts := interp.Options{}
	if includePath != "" {
		opts.GoPath = includePath
	}
	i := interp.New(opts)
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, &InterpError{Err: fmt.Errorf("loading standard library symbols: %w", err)}
	}
	if err := i.Use(fiddlehostExports); err != nil {
		return nil, &InterpError{Err: fmt.Errorf("loading fiddlehost symbols: %w", err)}
	}
	return &Engine{interp: i}, nil
}

// fiddlehostExports registers the fiddlehost package with the interpreter as
// if it had been compiled and linked in, so generated programs can
// `import "fiddlehost"` and call Raw/Splice/Quote.
var fiddlehostExports = interp.Exports{
	"fiddlehost/fiddlehost": map[string]reflect.Value{
		"Raw":         reflect.ValueOf(fiddlehost.Raw),
		"Splice":      reflect.ValueOf(fiddlehost.Splice),
		"Quote":       reflect.ValueOf(fiddlehost.Quote),
		"FiddleWrite": reflect.ValueOf(fiddlehost.FiddleWrite),
		"CheckJSON":   reflect.ValueOf(fiddlehost.CheckJSON),
		"CheckHTML":   reflect.ValueOf(fiddlehost.CheckHTML),
		"CheckText":   reflect.ValueOf(fiddlehost.CheckText),
	},
}

// Run loads program (the full generated Go source for one file), then calls
// its Generate function with sink installed as the current fiddlehost
// output. A load failure or a runtime panic inside Generate is fatal to the
// whole run.
func (e *Engine) Run(program string, sink fiddlehost.Sink) (err error) {
	if _, loadErr := e.interp.Eval(program); loadErr != nil {
		return &InterpError{Err: fmt.Errorf("loading generated program: %w", loadErr)}
	}

	v, lookupErr := e.interp.Eval("main.Generate")
	if lookupErr != nil {
		return &InterpError{Err: fmt.Errorf("resolving Generate: %w", lookupErr)}
	}
	generate, ok := v.Interface().(func())
	if !ok {
		return &InterpError{Err: fmt.Errorf("Generate has unexpected type %s", v.Type())}
	}

	prev := fiddlehost.Use(sink)
	defer fiddlehost.Use(prev)

	defer func() {
		if r := recover(); r != nil {
			err = &InterpError{Err: fmt.Errorf("panic running generated program: %v", r)}
		}
	}()
	generate()
	return nil
}

// dumpProgram writes program to "dump.go" in the current working directory,
// overwriting any previous contents: a way to inspect exactly what was
// generated and run, without affecting the actual run (a write failure here
// is logged, not fatal).
func dumpProgram(program string) error {
	return os.WriteFile("dump.go", []byte(program), 0o644)
}
