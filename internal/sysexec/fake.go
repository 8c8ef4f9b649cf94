package sysexec

import (
	"context"
	"strings"
)

// Call is one recorded invocation
type Call struct {
	Name  string
	Args  []string
	Input string
}

// String joins the command and its arguments with single spaces
func (c Call) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Reply is what a Fake returns for a matched command
type Reply struct {
	Out []byte
	Err error
}

// Fake records commands instead of running them. Replies are looked up by
// the longest registered prefix of the command line; unmatched commands
// succeed with empty output.
type Fake struct {
	Calls   []Call
	replies map[string][]Reply
}

// NewFake creates an empty recorder
func NewFake() *Fake {
	return &Fake{replies: make(map[string][]Reply)}
}

// On registers replies for commands starting with prefix. When several
// replies are registered they are consumed in order, the last one sticks.
func (f *Fake) On(prefix string, replies ...Reply) *Fake {
	f.replies[prefix] = append(f.replies[prefix], replies...)
	return f
}

// Output is shorthand for a successful reply
func Output(s string) Reply {
	return Reply{Out: []byte(s)}
}

// Fail is shorthand for a failing reply
func Fail(err error) Reply {
	return Reply{Err: err}
}

// Run records the call
func (f *Fake) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return f.record(Call{Name: name, Args: args})
}

// RunInput records the call along with its stdin
func (f *Fake) RunInput(ctx context.Context, input []byte, name string, args ...string) ([]byte, error) {
	return f.record(Call{Name: name, Args: args, Input: string(input)})
}

func (f *Fake) record(c Call) ([]byte, error) {
	f.Calls = append(f.Calls, c)
	line := c.String()

	best := ""
	for prefix := range f.replies {
		if strings.HasPrefix(line, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best == "" {
		return nil, nil
	}

	queue := f.replies[best]
	r := queue[0]
	if len(queue) > 1 {
		f.replies[best] = queue[1:]
	}
	return r.Out, r.Err
}

// Lines returns every recorded call as a space-joined command line
func (f *Fake) Lines() []string {
	lines := make([]string, 0, len(f.Calls))
	for _, c := range f.Calls {
		lines = append(lines, c.String())
	}
	return lines
}

// Reset forgets recorded calls but keeps replies
func (f *Fake) Reset() {
	f.Calls = nil
}
