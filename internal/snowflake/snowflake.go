package snowflake

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"
)

// ErrClockRegression is returned when the wall clock reports an earlier
// millisecond than one already used. The generator refuses to mint any
// further ids once this happens: proceeding could repeat a timestamp and
// therefore an id.
var ErrClockRegression = errors.New("snowflake: clock moved backwards")

const (
	// epoch is 2021-01-01T00:00:00Z in Unix milliseconds. Ids order by
	// mint time relative to this point.
	epoch int64 = 1609459200000

	instanceBits = 10
	sequenceBits = 12

	maxInstance = -1 ^ (-1 << instanceBits)
	maxSequence = -1 ^ (-1 << sequenceBits)

	timestampShift = instanceBits + sequenceBits
	instanceShift  = sequenceBits
)

// Generator mints unique string ids with no external coordinator. Each id
// packs a millisecond timestamp, the instance discriminator and a
// per-millisecond sequence counter into a single int64.
//
// Safe for concurrent use.
type Generator struct {
	mu         sync.Mutex
	now        func() time.Time
	instance   int64
	lastMillis int64
	sequence   int64
	failed     bool
}

// New returns a generator for the given instance discriminator.
func New(instance int64) (*Generator, error) {
	if instance < 0 || instance > maxInstance {
		return nil, fmt.Errorf("snowflake: instance id %d out of range [0, %d]", instance, maxInstance)
	}
	return &Generator{
		now:        time.Now,
		instance:   instance,
		lastMillis: -1,
	}, nil
}

// Next returns a previously unused id. Calls within the same millisecond
// consume the sequence counter; when it wraps, Next blocks until the clock
// reaches the next millisecond. A backwards clock fails the generator
// permanently with ErrClockRegression.
func (g *Generator) Next() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.failed {
		return "", ErrClockRegression
	}

	millis := g.now().UnixMilli()
	if millis < g.lastMillis {
		g.failed = true
		return "", ErrClockRegression
	}

	if millis == g.lastMillis {
		g.sequence = (g.sequence + 1) & maxSequence
		if g.sequence == 0 {
			// Sequence exhausted for this millisecond; wait the
			// clock out rather than reuse a slot.
			for millis <= g.lastMillis {
				millis = g.now().UnixMilli()
				if millis < g.lastMillis {
					g.failed = true
					return "", ErrClockRegression
				}
			}
		}
	} else {
		g.sequence = 0
	}

	g.lastMillis = millis

	id := (millis-epoch)<<timestampShift |
		g.instance<<instanceShift |
		g.sequence

	return strconv.FormatInt(id, 10), nil
}
