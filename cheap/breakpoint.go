package cheap

import "runtime"

// breakpoint stops the process in an attached debugger. Only reached in
// debug mode when the catch pointer matches.
func breakpoint() {
	runtime.Breakpoint()
}
