// Package proctree terminates the foreground launcher and everything it
// started.
//
// The process table is read once per request. Between that snapshot and
// the signals a process may exit, reparent or have its pid reused, so the
// tree is best effort: a true descendant can be missed and, in the worst
// case, an unrelated process that inherited a recycled pid is signaled.
package proctree

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/prometheus/procfs"
	"golang.org/x/sys/unix"
)

// Marker appears in the command line of the launcher script the frontend
// runs for every game or app.
const Marker = "/tmp/cmd_to_run.sh"

// Process is one row of a snapshot.
type Process struct {
	PID     int
	PPID    int
	Cmdline []string
}

// Snapshot is a point-in-time view of the process table, keyed by pid.
type Snapshot map[int]Process

// Source takes snapshots.
type Source interface {
	Snapshot() (Snapshot, error)
}

// ProcFS takes snapshots from a procfs mount.
type ProcFS struct {
	fs procfs.FS
}

// NewProcFS opens the procfs mounted at mount (normally /proc).
func NewProcFS(mount string) (*ProcFS, error) {
	fs, err := procfs.NewFS(mount)
	if err != nil {
		return nil, fmt.Errorf("opening procfs at %s: %w", mount, err)
	}
	return &ProcFS{fs: fs}, nil
}

// Snapshot lists every process. Processes that exit while being read are
// left out.
func (p *ProcFS) Snapshot() (Snapshot, error) {
	procs, err := p.fs.AllProcs()
	if err != nil {
		return nil, fmt.Errorf("listing processes: %w", err)
	}
	snap := make(Snapshot, len(procs))
	for _, pr := range procs {
		stat, err := pr.Stat()
		if err != nil {
			continue
		}
		cmd, err := pr.CmdLine()
		if err != nil {
			continue
		}
		snap[pr.PID] = Process{PID: pr.PID, PPID: stat.PPID, Cmdline: cmd}
	}
	return snap, nil
}

// PIDs returns all pids in ascending order.
func (s Snapshot) PIDs() []int {
	pids := make([]int, 0, len(s))
	for pid := range s {
		pids = append(pids, pid)
	}
	sort.Ints(pids)
	return pids
}

// FindMarker returns the lowest pid with a command-line argument
// containing marker.
func (s Snapshot) FindMarker(marker string) (int, bool) {
	for _, pid := range s.PIDs() {
		for _, arg := range s[pid].Cmdline {
			if strings.Contains(arg, marker) {
				return pid, true
			}
		}
	}
	return 0, false
}

// Tree returns root and all of its descendants in ascending pid order.
// It walks a worklist instead of recursing, so depth is bounded only by
// the snapshot size.
func (s Snapshot) Tree(root int) []int {
	children := make(map[int][]int, len(s))
	for _, pid := range s.PIDs() {
		p := s[pid]
		if p.PPID != pid {
			children[p.PPID] = append(children[p.PPID], pid)
		}
	}

	seen := map[int]bool{root: true}
	tree := []int{root}
	for work := []int{root}; len(work) > 0; {
		parent := work[len(work)-1]
		work = work[:len(work)-1]
		for _, child := range children[parent] {
			if seen[child] {
				continue
			}
			seen[child] = true
			tree = append(tree, child)
			work = append(work, child)
		}
	}
	sort.Ints(tree)
	return tree
}

// SignalFunc delivers a termination request to one pid.
type SignalFunc func(pid int) error

// SigTerm sends SIGTERM.
func SigTerm(pid int) error {
	return unix.Kill(pid, unix.SIGTERM)
}

// Terminator signals the process tree rooted at a marker process.
type Terminator struct {
	Source Source
	Signal SignalFunc
}

// New returns a Terminator that reads mount and sends SIGTERM.
func New(mount string) (*Terminator, error) {
	src, err := NewProcFS(mount)
	if err != nil {
		return nil, err
	}
	return &Terminator{Source: src, Signal: SigTerm}, nil
}

// Terminate signals the marker process and all its descendants and
// returns the pids signaled. No matching process is not an error: nothing
// is signaled. Processes gone by the time they are signaled are skipped;
// any other signal failures are joined into the returned error.
func (t *Terminator) Terminate(marker string) ([]int, error) {
	snap, err := t.Source.Snapshot()
	if err != nil {
		return nil, err
	}
	root, ok := snap.FindMarker(marker)
	if !ok {
		return nil, nil
	}

	var (
		signaled []int
		errs     []error
	)
	for _, pid := range snap.Tree(root) {
		if err := t.Signal(pid); err != nil {
			if errors.Is(err, unix.ESRCH) {
				continue
			}
			errs = append(errs, fmt.Errorf("signaling %d: %w", pid, err))
			continue
		}
		signaled = append(signaled, pid)
	}
	return signaled, errors.Join(errs...)
}
