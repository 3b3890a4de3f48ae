package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/jeremytregunna/aodkit/pkg/aod"
	"github.com/jeremytregunna/aodkit/pkg/common/iterator/filtered"
	"github.com/jeremytregunna/aodkit/pkg/config"
	"github.com/jeremytregunna/aodkit/pkg/output"
	"github.com/jeremytregunna/aodkit/pkg/task"
)

// session holds the browser state: a fixed set of generated events, the
// current event and a view over its tracks.
type session struct {
	cfg     *config.Config
	task    *task.AOD2MuonAOD
	handler *output.Memory
	out     io.Writer

	events  []*aod.Event
	current int
	view    *filtered.Iterable[*aod.Track]
	all     bool
}

func newSession(ctx context.Context, cfg *config.Config, t *task.AOD2MuonAOD, events []*aod.Event, out io.Writer) (*session, error) {
	handler := output.NewMemory(cfg.Snapshot().OutputCapacity)
	if err := t.UserCreateOutputObjects(ctx, handler); err != nil {
		return nil, err
	}

	s := &session{
		cfg:     cfg,
		task:    t,
		handler: handler,
		out:     out,
		events:  events,
		current: -1,
	}
	if len(events) > 0 {
		s.selectEvent(0)
	}
	return s, nil
}

func (s *session) prompt() string {
	if s.current < 0 {
		return "aod> "
	}
	mode := "ACC"
	if s.all {
		mode = "ALL"
	}
	return fmt.Sprintf("aod:%d[%s]> ", s.current, mode)
}

func (s *session) selectEvent(n int) {
	s.current = n
	s.view = s.task.Replicator().SelectTracks(s.events[n])
	if s.all {
		s.view.SetUseAccepted(false)
	}
}

// execute runs one command line and reports whether the session should end
func (s *session) execute(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}
	cmd := strings.ToUpper(parts[0])

	if strings.HasPrefix(cmd, ".") {
		switch strings.ToLower(cmd) {
		case ".help":
			fmt.Fprint(s.out, helpText)
		case ".exit":
			return true
		case ".stats":
			s.printStats()
		case ".config":
			data, err := json.MarshalIndent(s.cfg.Snapshot(), "", "  ")
			if err != nil {
				fmt.Fprintf(s.out, "Error: %s\n", err)
				break
			}
			fmt.Fprintln(s.out, string(data))
		default:
			fmt.Fprintf(s.out, "Unknown command: %s\n", parts[0])
		}
		return false
	}

	switch cmd {
	case "EVENT":
		if len(parts) != 2 {
			fmt.Fprintln(s.out, "Error: EVENT requires an event number")
			return false
		}
		n, err := strconv.Atoi(parts[1])
		if err != nil || n < 0 || n >= len(s.events) {
			fmt.Fprintf(s.out, "Error: event number must be in [0, %d)\n", len(s.events))
			return false
		}
		s.selectEvent(n)
		s.printEvent()

	case "NEXT":
		if s.current+1 >= len(s.events) {
			fmt.Fprintln(s.out, "No more events")
			return false
		}
		s.selectEvent(s.current + 1)
		s.printEvent()

	case "MODE":
		if len(parts) != 2 {
			fmt.Fprintln(s.out, "Error: MODE requires ALL or ACCEPTED")
			return false
		}
		switch strings.ToUpper(parts[1]) {
		case "ALL":
			s.all = true
		case "ACCEPTED":
			s.all = false
		default:
			fmt.Fprintf(s.out, "Error: unknown mode %s\n", parts[1])
			return false
		}
		if s.view != nil {
			s.view.SetUseAccepted(!s.all)
		}
		fmt.Fprintf(s.out, "Mode set to %s\n", strings.ToUpper(parts[1]))

	case "SIZE", "AT", "SCAN", "RSCAN", "FINGERPRINT", "OUTPUT":
		if s.view == nil {
			fmt.Fprintln(s.out, "No event selected")
			return false
		}
		s.executeView(ctx, cmd, parts[1:])

	default:
		fmt.Fprintf(s.out, "Unknown command: %s\n", parts[0])
	}
	return false
}

func (s *session) executeView(ctx context.Context, cmd string, args []string) {
	switch cmd {
	case "SIZE":
		fmt.Fprintf(s.out, "%d of %d tracks\n", s.view.Size(), len(s.events[s.current].Tracks))

	case "AT":
		if len(args) != 1 {
			fmt.Fprintln(s.out, "Error: AT requires a position")
			return
		}
		pos, err := strconv.Atoi(args[0])
		if err != nil {
			fmt.Fprintf(s.out, "Error: invalid position %s\n", args[0])
			return
		}
		t, ok := s.view.At(pos)
		if !ok {
			fmt.Fprintln(s.out, "(null)")
			return
		}
		s.printTrack(pos, t)

	case "SCAN":
		n := 0
		for it, end := s.view.Begin(), s.view.End(); it.NotEqual(end); it.Next() {
			t, _ := it.Value()
			s.printTrack(it.Position(), t)
			n++
		}
		fmt.Fprintf(s.out, "%d entries\n", n)

	case "RSCAN":
		n := 0
		for it, end := s.view.RBegin(), s.view.REnd(); it.NotEqual(end); it.Next() {
			t, _ := it.Value()
			s.printTrack(it.Position(), t)
			n++
		}
		fmt.Fprintf(s.out, "%d entries\n", n)

	case "FINGERPRINT":
		fmt.Fprintf(s.out, "%016x (%d source positions)\n", s.view.Fingerprint(), s.view.AcceptedSet().GetCardinality())

	case "OUTPUT":
		if err := s.task.UserExec(ctx, s.events[s.current]); err != nil {
			fmt.Fprintf(s.out, "Error: %s\n", err)
			return
		}
		reduced, ok := s.handler.Pop()
		if !ok {
			fmt.Fprintln(s.out, "No output")
			return
		}
		fmt.Fprintf(s.out, "Reduced event %d: %d tracks, %d vertices, %d tracklets, %d MC particles\n",
			reduced.Header.EventNumber, len(reduced.Tracks), len(reduced.Vertices),
			len(reduced.Tracklets), len(reduced.MCParticles))
		for i, t := range reduced.Tracks {
			s.printTrack(i, t)
		}
	}
}

func (s *session) printEvent() {
	ev := s.events[s.current]
	fmt.Fprintf(s.out, "Event %d (run %d): %d tracks, %d muon, %d vertices, %d MC particles\n",
		ev.Header.EventNumber, ev.Header.RunNumber, len(ev.Tracks), ev.MuonTracks(),
		len(ev.Vertices), len(ev.MCParticles))
}

func (s *session) printTrack(pos int, t *aod.Track) {
	if t == nil {
		fmt.Fprintf(s.out, "  [%d] (null)\n", pos)
		return
	}
	fmt.Fprintf(s.out, "  [%d] track %d: pt=%.3f eta=%.3f phi=%.3f q=%+d muon=%v rabs=%.1f mc=%d\n",
		pos, t.ID, t.Pt(), t.Eta(), t.Phi(), t.Charge, t.Muon, t.RAbs, t.LabelMC)
}

func (s *session) printStats() {
	stats := s.task.Stats().GetStats()
	for _, key := range slices.Sorted(maps.Keys(stats)) {
		switch v := stats[key].(type) {
		case map[string]uint64:
			if len(v) == 0 {
				continue
			}
			fmt.Fprintf(s.out, "%s:\n", key)
			for _, sub := range slices.Sorted(maps.Keys(v)) {
				fmt.Fprintf(s.out, "  %s: %d\n", sub, v[sub])
			}
		case map[string]interface{}:
			fmt.Fprintf(s.out, "%s:\n", key)
			for _, sub := range slices.Sorted(maps.Keys(v)) {
				fmt.Fprintf(s.out, "  %s: %v\n", sub, v[sub])
			}
		default:
			if strings.HasPrefix(key, "last_") {
				continue
			}
			fmt.Fprintf(s.out, "%s: %v\n", key, v)
		}
	}

	sum := s.task.Summary()
	fmt.Fprintf(s.out, "events: %d processed, %d written, %d skipped, %d failed\n",
		sum.Processed, sum.Written, sum.Skipped, sum.Failed)
}
