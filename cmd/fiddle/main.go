// Command fiddle expands embedded meta-code templates in source files: a
// template is a region of Go code between marker lines (or, for ".skub"
// files, between "[[[skub:" and "]]]" delimiters) that is compiled and run
// to produce the text that follows it (up to "[[[end]]]" for ".skub" files).
//
// Usage:
//
//	fiddle [-I dir] [-o path] [--] file...
//
// -I names an include directory used to resolve helper ".go" files templates
// import; -o overrides the output path for every input (with several inputs,
// each writes over the last); "--" ends option parsing, so that any remaining
// arguments are always treated as input paths. Repeating -I or -o keeps the
// last value.
package main

import (
	"fmt"
	"os"

	"github.com/tangent-vector/fiddle"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "fiddle: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var includePath string
	var outputPath string
	var inputPaths []string

	i := 0
	for i < len(args) {
		arg := args[i]
		i++

		if arg == "--" {
			break
		}
		if arg == "" || arg[0] != '-' {
			inputPaths = append(inputPaths, arg)
			continue
		}

		switch {
		case len(arg) > 1 && arg[1] == 'I':
			path := arg[2:]
			if path == "" {
				var err error
				path, i, err = readArg(arg, args, i)
				if err != nil {
					return err
				}
			}
			includePath = path

		case arg == "-o":
			path, next, err := readArg(arg, args, i)
			if err != nil {
				return err
			}
			outputPath = path
			i = next

		default:
			return fmt.Errorf("unknown option %q", arg)
		}
	}
	inputPaths = append(inputPaths, args[i:]...)

	engine, err := fiddle.NewEngine(includePath)
	if err != nil {
		return err
	}

	d := &fiddle.Dispatcher{Engine: engine, OutputOverride: outputPath}
	for _, path := range inputPaths {
		if err := d.ProcessFile(path); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}

	for _, diag := range d.Diagnostics {
		fmt.Fprintln(os.Stderr, diag)
	}

	return nil
}

// readArg returns the value for a flag that takes a separate argument
// (e.g. "-o path" as opposed to the jammed "-Ipath" form), advancing past
// it, or an error if no argument follows.
func readArg(flag string, args []string, i int) (value string, next int, err error) {
	if i >= len(args) {
		return "", i, fmt.Errorf("option %q requires an argument", flag)
	}
	return args[i], i + 1, nil
}
