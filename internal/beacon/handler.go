package beacon

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/elvisdt/HT-MONITOR-BLE/internal/utils"
)

// Sink receives every accepted, novel record after it was printed.
type Sink interface {
	Publish(obs Observation, rec Record) error
}

// Options configures a Pipeline.
type Options struct {
	CompanyID       uint16
	Decode          DecodeConfig
	Names           NameFilter
	Format          FormatOptions
	DedupOnSequence bool
	EmitRejections  bool
}

// DefaultOptions matches the tablet app: company 0xFFFF, strict payload,
// dedup on, rejections shown, raw hex shown.
func DefaultOptions() Options {
	return Options{
		CompanyID:       DefaultCompanyID,
		Decode:          DefaultDecodeConfig(),
		Names:           NameFilter{Target: DefaultTargetName, Mode: MatchPrefix},
		Format:          FormatOptions{ShowRaw: true},
		DedupOnSequence: true,
		EmitRejections:  true,
	}
}

// Stats is a point-in-time copy of the pipeline counters.
type Stats struct {
	Received       uint64 `json:"received"`
	Ignored        uint64 `json:"ignored"`
	Filtered       uint64 `json:"filtered"`
	Rejected       uint64 `json:"rejected"`
	Duplicates     uint64 `json:"duplicates"`
	Accepted       uint64 `json:"accepted"`
	Overflow       uint64 `json:"overflow"`
	DevicesTracked int    `json:"devices_tracked"`
}

type counters struct {
	received   atomic.Uint64
	ignored    atomic.Uint64
	filtered   atomic.Uint64
	rejected   atomic.Uint64
	duplicates atomic.Uint64
	accepted   atomic.Uint64
	overflow   atomic.Uint64
}

// Pipeline turns scanner events into output lines: select payload, gate on
// name, decode, dedup, print. Each event runs straight through once.
type Pipeline struct {
	opts      Options
	formatter Formatter
	state     *ObservationState
	sinks     []Sink
	logger    *slog.Logger
	now       func() time.Time

	outMu sync.Mutex
	out   io.Writer

	stats counters
}

// NewPipeline creates a pipeline writing lines to out.
// If logger is nil, slog.Default() is used.
func NewPipeline(opts Options, out io.Writer, logger *slog.Logger, sinks ...Sink) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		opts:      opts,
		formatter: NewFormatter(opts.Format),
		state:     NewObservationState(),
		sinks:     sinks,
		logger:    logger,
		now:       time.Now,
		out:       out,
	}
}

// Handle processes a single advertisement. Data problems are resolved here;
// the only errors returned are contract violations and output failures.
func (p *Pipeline) Handle(adv Advertisement) error {
	if err := adv.Validate(); err != nil {
		return err
	}
	p.stats.received.Add(1)

	payload, ok := adv.ManufacturerData[p.opts.CompanyID]
	if !ok {
		p.stats.ignored.Add(1)
		return nil
	}

	name := adv.DisplayName()
	if !p.opts.Names.Matches(name) {
		p.stats.filtered.Add(1)
		p.logger.Debug("ble: name filtered", "addr", adv.Address, "name", name)
		return nil
	}

	seenAt := adv.SeenAt
	if seenAt.IsZero() {
		seenAt = p.now()
	}
	obs := Observation{
		Name:    name,
		Address: adv.Address,
		RSSI:    adv.RSSI,
		Payload: payload,
		SeenAt:  seenAt,
	}

	rec, err := Decode(payload, p.opts.Decode)
	if err != nil {
		p.stats.rejected.Add(1)
		if !p.opts.EmitRejections {
			p.logger.Debug("ble: payload rejected", "addr", adv.Address, "len", len(payload), "error", err)
			return nil
		}
		return p.writeLine(p.formatter.FormatRejected(obs, err))
	}

	if p.opts.DedupOnSequence && !p.state.IsNovel(adv.Address, rec.Seq) {
		p.stats.duplicates.Add(1)
		return nil
	}
	p.stats.accepted.Add(1)

	if err := p.writeLine(p.formatter.FormatAccepted(obs, rec)); err != nil {
		return err
	}

	for _, s := range p.sinks {
		if err := s.Publish(obs, rec); err != nil {
			p.logger.Warn("ble: failed to forward record",
				"addr", adv.Address,
				"tablet_id", rec.TabletID,
				"seq", rec.Seq,
				"error", err,
			)
		}
	}
	p.logger.Debug("ble: record accepted",
		"addr", adv.Address,
		"company", utils.CompanyID(p.opts.CompanyID),
		"tablet_id", rec.TabletID,
		"seq", rec.Seq,
	)
	return nil
}

// RecordOverflow counts an event the scanner had to drop before it reached
// the pipeline.
func (p *Pipeline) RecordOverflow() {
	p.stats.overflow.Add(1)
}

// Stats returns the current counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Received:       p.stats.received.Load(),
		Ignored:        p.stats.ignored.Load(),
		Filtered:       p.stats.filtered.Load(),
		Rejected:       p.stats.rejected.Load(),
		Duplicates:     p.stats.duplicates.Load(),
		Accepted:       p.stats.accepted.Load(),
		Overflow:       p.stats.overflow.Load(),
		DevicesTracked: p.state.Len(),
	}
}

func (p *Pipeline) writeLine(line string) error {
	p.outMu.Lock()
	defer p.outMu.Unlock()
	if _, err := fmt.Fprintln(p.out, line); err != nil {
		return fmt.Errorf("write observation: %w", err)
	}
	return nil
}
