package launcher

import (
	"fmt"

	"github.com/mattn/go-shellwords"
)

// ParseExtraArgs turns the free-form extra arguments field into an argument list,
// following shell quoting rules. Environment variables and backticks are not expanded.
func ParseExtraArgs(s string) ([]string, error) {
	args, err := shellwords.NewParser().Parse(s)
	if err != nil {
		return nil, &ValidationError{Field: "extra_args", Message: fmt.Sprintf("cannot parse %q: %s", s, err)}
	}
	if args == nil {
		args = make([]string, 0)
	}
	return args, nil
}
