package bridge

import "time"

// StartProfiling broadcasts startProfiling to every connected peer.
func (b *Bridge) StartProfiling() {
	b.broadcast("startProfiling", nil)
}

// StopProfilingAndCollect broadcasts stopProfiling and then waits out the
// grace window to let trailing profilingData messages arrive before the
// orchestrator finalizes the session (§4.4, §5's "profile-stop suspends
// for the configured grace window").
func (b *Bridge) StopProfilingAndCollect() {
	b.broadcast("stopProfiling", nil)
	time.Sleep(b.profileStopGrace)
}
