package chunk

import "errors"

// ErrBrokenChain is returned when a supersession walk references a chunk
// id that Resolver cannot find. The original behavior silently treated
// broken chains as valid heads; this redesign surfaces the break instead
// of swallowing it.
var ErrBrokenChain = errors.New("chunk: broken supersession chain")

// ErrCycle is returned when a supersession walk revisits an id already
// seen in the current walk, indicating the DAG invariant (I2) has been
// violated.
var ErrCycle = errors.New("chunk: cycle detected in supersession chain")

// Resolver looks up a chunk's immediate successor id given its own id.
// ok is false when id cannot be found at all (a broken chain); a head
// chunk is reported as ("", true) — found, with no successor.
type Resolver func(id string) (supersededBy string, ok bool)

// Head walks the supersession chain starting at id using resolve,
// returning the id of the current head. It uses an iterative walk with
// a visited set so it terminates on a cycle rather than recursing
// forever, and reports ErrBrokenChain if an intermediate id is missing
// from the store entirely (as opposed to simply having no successor).
func Head(id string, resolve Resolver) (string, error) {
	visited := make(map[string]struct{})
	current := id
	for {
		if _, seen := visited[current]; seen {
			return "", ErrCycle
		}
		visited[current] = struct{}{}

		next, ok := resolve(current)
		if !ok {
			return "", ErrBrokenChain
		}
		if next == "" {
			return current, nil
		}
		current = next
	}
}
