package dispatchsvc

import (
	"time"

	"github.com/hapticbridge/hapticbridge/internal/mapstore"
)

// activePlayback is a live instance of a discrete preset. Created on
// trigger, removed on natural completion or cancellation. Owned by the
// engine for its whole lifetime. The scheduler and contribution table key
// everything else off the id.
type activePlayback struct {
	id     uint64
	preset string
	input  mapstore.LogicalInput
}

// padPress is a gamepad button held down on behalf of a preset, either
// latched by a while-held binding or awaiting a scheduled tap release.
type padPress struct {
	preset string
	button string
}

// contribution is one playback's claim on a vest node: an intensity that
// is live until the step duration elapses.
type contribution struct {
	pid       uint64
	intensity float64
	until     time.Time
}

// deviceState is the single process-wide output state. Mutated only by
// the engine goroutine; the preset in-use probe reads refcounts through a
// separate atomic map on the engine.
type deviceState struct {
	playbacks map[uint64]*activePlayback
	// nodes holds the live contributions per vest node; the effective
	// intensity at any instant is the maximum of the live contributions.
	nodes map[int][]contribution
	// lastAxis remembers the last value sent per output axis for
	// idempotent resend.
	lastAxis map[string]float64
	// lastSent suppresses resends that would repeat the exact stimulus the
	// node is already executing.
	lastSent map[int]sentStimulus
	// reported tracks targets whose delivery failure was already logged
	// this session.
	reported map[string]struct{}
}

type sentStimulus struct {
	intensity float64
	until     time.Time
}

func newDeviceState() *deviceState {
	return &deviceState{
		playbacks: make(map[uint64]*activePlayback),
		nodes:     make(map[int][]contribution),
		lastAxis:  make(map[string]float64),
		lastSent:  make(map[int]sentStimulus),
		reported:  make(map[string]struct{}),
	}
}

// addContribution registers a claim and returns the live set for the node.
func (d *deviceState) addContribution(node int, c contribution, now time.Time) []contribution {
	live := pruneContributions(d.nodes[node], now)
	live = append(live, c)
	d.nodes[node] = live
	return live
}

// dropPlayback removes all of a playback's contributions. It returns the
// nodes where a dropped contribution was still live; already-expired
// claims need no stop command.
func (d *deviceState) dropPlayback(pid uint64, now time.Time) []int {
	var affected []int
	for node, contribs := range d.nodes {
		kept := contribs[:0]
		live := false
		for _, c := range contribs {
			if c.pid == pid {
				if c.until.After(now) {
					live = true
				}
				continue
			}
			kept = append(kept, c)
		}
		if len(kept) != len(contribs) {
			d.nodes[node] = kept
		}
		if live {
			affected = append(affected, node)
		}
	}
	return affected
}

// liveContributions prunes expired claims and returns what remains.
func (d *deviceState) liveContributions(node int, now time.Time) []contribution {
	live := pruneContributions(d.nodes[node], now)
	if len(live) == 0 {
		delete(d.nodes, node)
	} else {
		d.nodes[node] = live
	}
	return live
}

func pruneContributions(contribs []contribution, now time.Time) []contribution {
	live := contribs[:0]
	for _, c := range contribs {
		if c.until.After(now) {
			live = append(live, c)
		}
	}
	return live
}

// maxIntensity returns the effective intensity and the next instant at
// which it may change (the earliest expiry among live contributions).
func maxIntensity(live []contribution) (float64, time.Time) {
	var max float64
	var next time.Time
	for _, c := range live {
		if c.intensity > max {
			max = c.intensity
		}
		if next.IsZero() || c.until.Before(next) {
			next = c.until
		}
	}
	return max, next
}
