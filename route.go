package weave

import (
	"fmt"
	"strings"
)

// Route pairs a source location with the destination that requests
// matching it are sent to. Routes are immutable once parsed.
type Route struct {
	Src  *SrcLocation
	Dest *DestLocation
}

func (r *Route) String() string {
	return fmt.Sprintf("%s to %s", r.Src, r.Dest)
}

// FromArgs scans the leading "SRC to DEST [and SRC to DEST]*" route
// declarations out of args, returning the routes in declaration order
// along with the args it did not consume. Declaration order is
// significant: it is the tie-break order for the Matcher.
//
// Scanning stops at the first arg that does not parse as a source
// location. A source location that is not followed by the word "to"
// and a parsable destination is an error, as is an "and" with no
// route after it; no partial route is ever returned.
func FromArgs(args []string) ([]*Route, []string, error) {
	var (
		routes      []*Route
		expectsMore bool
	)
	for len(args) > 0 {
		src, err := ParseSrcLocation(args[0])
		if err != nil {
			break
		}

		// The next arg after the source location must be the word "to".
		if len(args) < 2 || strings.TrimSpace(args[1]) != "to" {
			return nil, nil, fmt.Errorf("expecting the word 'to' after the location '%s'", args[0])
		}

		if len(args) < 3 {
			return nil, nil, fmt.Errorf("expecting a destination location to be provided after '%s to'", args[0])
		}

		dest, err := ParseDestLocation(args[2])
		if err != nil {
			return nil, nil, fmt.Errorf("error parsing '%s': %w", args[2], err)
		}

		routes = append(routes, &Route{Src: src, Dest: dest})
		args = args[3:]
		expectsMore = false

		if len(args) > 0 && strings.TrimSpace(args[0]) == "and" {
			args = args[1:]
			expectsMore = true
			continue
		}

		break
	}

	if expectsMore {
		return nil, nil, fmt.Errorf("'and' not followed by a subsequent route")
	}

	return routes, args, nil
}
