package ui

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/progress"

	"github.com/kiyo-e/pairlane/internal/files"
)

// PeerProgress renders one progress line per receiver. Rows are updated
// from transfer goroutines and rendered from the command loop's redraw
// ticker, so the model carries its own lock.
type PeerProgress struct {
	mu   sync.Mutex
	rows map[string]*progressRow
	bar  progress.Model
}

type progressRow struct {
	label    string
	total    int64
	current  int64
	complete bool
}

// NewPeerProgress creates an empty progress board.
func NewPeerProgress() *PeerProgress {
	bar := progress.New(
		progress.WithGradient(ProgressStart, ProgressEnd),
		progress.WithWidth(30),
		progress.WithoutPercentage(),
	)
	return &PeerProgress{
		rows: make(map[string]*progressRow),
		bar:  bar,
	}
}

// Track registers a receiver. The label is a short peer handle.
func (p *PeerProgress) Track(peerID string, total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rows[peerID] = &progressRow{label: shortPeer(peerID), total: total}
}

// Update records transferred bytes for a receiver.
func (p *PeerProgress) Update(peerID string, current int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if row, ok := p.rows[peerID]; ok {
		row.current = current
	}
}

// Complete marks a receiver finished.
func (p *PeerProgress) Complete(peerID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if row, ok := p.rows[peerID]; ok {
		row.complete = true
		row.current = row.total
	}
}

// Drop removes a departed receiver from the board; rows of completed
// transfers are kept.
func (p *PeerProgress) Drop(peerID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if row, ok := p.rows[peerID]; ok && !row.complete {
		delete(p.rows, peerID)
	}
}

// Lines returns the number of rendered rows, for cursor math.
func (p *PeerProgress) Lines() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.rows)
}

// View renders the board, one line per receiver, in stable order.
func (p *PeerProgress) View() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	ids := make([]string, 0, len(p.rows))
	for id := range p.rows {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	for _, id := range ids {
		row := p.rows[id]
		percent := 1.0
		if row.total > 0 {
			percent = float64(row.current) / float64(row.total)
			if percent > 1 {
				percent = 1
			}
		}
		status := MutedStyle.Render(files.FormatSize(row.current))
		if row.complete {
			status = SuccessStyle.Render("done")
		}
		fmt.Fprintf(&b, "%s %s  %s %s\n",
			IconPeer,
			BoldStyle.Render(row.label),
			p.bar.ViewAs(percent),
			status,
		)
	}
	return b.String()
}

// shortPeer trims a uuid-ish cid down to something readable in a row.
func shortPeer(peerID string) string {
	if len(peerID) > 8 {
		return peerID[:8]
	}
	return peerID
}
