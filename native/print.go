package native

import (
	"github.com/npillmayer/ovm"
)

var newline = []byte{'\n'}

// printFunc writes its first argument, which must be a string, verbatim,
// including NUL bytes, followed by a newline. Further arguments are ignored.
// It returns None.
func printFunc(env Env, args []ovm.Handle) ([]ovm.Handle, ovm.Why) {
	if len(args) == 0 {
		return nil, ovm.WhyException
	}
	s, ok := env.Heap().LookupStr(args[0])
	if !ok {
		tracer().Debugf("print: argument %v is not a string", args[0])
		return nil, ovm.WhyException
	}
	w := env.Stdout()
	if _, err := w.Write(s); err != nil {
		tracer().Errorf("print: %v", err)
		return nil, ovm.WhyException
	}
	if _, err := w.Write(newline); err != nil {
		tracer().Errorf("print: %v", err)
		return nil, ovm.WhyException
	}
	return []ovm.Handle{ovm.None}, ovm.WhyNot
}
