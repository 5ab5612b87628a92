package edgelog

import (
	stderrs "errors"
	"fmt"
	"runtime"
	"strings"

	smerrors "github.com/Station-Manager/errors"
	"github.com/rs/zerolog"
)

const packagePath = "github.com/Station-Manager/edgelog"

// parseLevel parses a string log level into a zerolog.Level.
// Returns zerolog.NoLevel and an error if parsing fails.
func parseLevel(level string) (zerolog.Level, error) {
	l, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.NoLevel, err
	}
	return l, nil
}

// buildErrorChain walks an error's cause chain and returns:
//   - chain: outermost -> innermost error messages
//   - ops: operation identifiers for DetailedError links ("" if not available)
//   - root: the innermost error message
//   - rootOp: the innermost operation identifier if available
//
// DetailedError.Cause() is preferred over errors.Unwrap. Depth is capped and
// repeated messages stop the walk.
func buildErrorChain(err error) (chain []string, ops []string, root string, rootOp string) {
	const maxDepth = 50
	visited := 0
	seen := map[string]bool{}

	for err != nil && visited < maxDepth {
		visited++

		if dErr, ok := smerrors.AsDetailedError(err); ok && dErr != nil {
			chain = append(chain, dErr.Error())
			ops = append(ops, string(dErr.Op()))
			err = dErr.Cause()
			continue
		}

		msg := err.Error()
		if seen[msg] {
			break
		}
		seen[msg] = true
		chain = append(chain, msg)
		ops = append(ops, emptyString)
		err = stderrs.Unwrap(err)
	}

	if len(chain) > 0 {
		root = chain[len(chain)-1]
	}
	if len(ops) > 0 {
		rootOp = ops[len(ops)-1]
	}
	return
}

// joinChain returns a single string for the error chain separated by " -> ".
func joinChain(chain []string) string {
	if len(chain) == 0 {
		return emptyString
	}
	return strings.Join(chain, " -> ")
}

// errorFields decomposes err into plain fields that survive JSON encoding.
func errorFields(err error) Fields {
	f := Fields{
		"message": err.Error(),
		"name":    errorName(err),
		"stack":   errorStack(err),
	}

	chain, ops, root, rootOp := buildErrorChain(err)
	if len(chain) > 1 {
		f["error_chain"] = chain
		f["error_root"] = root
		f["error_history"] = joinChain(chain)
	}
	for _, op := range ops {
		if op != emptyString {
			f["error_ops"] = ops
			break
		}
	}
	if rootOp != emptyString {
		f["error_root_op"] = rootOp
	}
	return f
}

func errorName(err error) string {
	if dErr, ok := smerrors.AsDetailedError(err); ok && dErr != nil {
		if op := string(dErr.Op()); op != emptyString {
			return op
		}
	}
	return fmt.Sprintf("%T", err)
}

// errorStack prefers a stack carried by the error itself (errors that print
// one with %+v), falling back to the stack of the logging call site.
func errorStack(err error) string {
	if _, ok := err.(fmt.Formatter); ok {
		if s := fmt.Sprintf("%+v", err); s != err.Error() {
			return s
		}
	}
	return callerStack()
}

func callerStack() string {
	pcs := make([]uintptr, 64)
	n := runtime.Callers(2, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	var b strings.Builder
	skipping := true
	for {
		frame, more := frames.Next()
		if skipping && isInternalFrame(frame) {
			if !more {
				break
			}
			continue
		}
		skipping = false
		fmt.Fprintf(&b, "%s\n\t%s:%d\n", frame.Function, frame.File, frame.Line)
		if !more {
			break
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func isInternalFrame(frame runtime.Frame) bool {
	if strings.HasSuffix(frame.File, "_test.go") {
		return false
	}
	return strings.HasPrefix(frame.Function, packagePath+".")
}
