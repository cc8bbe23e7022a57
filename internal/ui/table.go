package ui

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
)

// TransferSummary is the final stats block shown after a transfer.
type TransferSummary struct {
	Status    string
	File      string
	TotalSize string
	Receivers int
	Duration  string
	Speed     string
}

// RenderTransferSummary prints the summary as a rounded table.
func RenderTransferSummary(title string, s TransferSummary) {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetTitle(title)
	t.AppendRows([]table.Row{
		{"Status", s.Status},
		{"File", s.File},
		{"Size", s.TotalSize},
	})
	if s.Receivers > 0 {
		t.AppendRow(table.Row{"Receivers", s.Receivers})
	}
	if s.Duration != "" {
		t.AppendRow(table.Row{"Duration", s.Duration})
	}
	if s.Speed != "" {
		t.AppendRow(table.Row{"Speed", s.Speed})
	}
	fmt.Println(t.Render())
}

// RenderRoomInfo prints the room id and the shareable link.
func RenderRoomInfo(roomID, link string, encrypted bool) {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendRows([]table.Row{
		{IconRoom + " Room", BoldStyle.Render(roomID)},
		{IconLink + " Link", link},
	})
	if encrypted {
		t.AppendRow(table.Row{IconLock + " E2E", "enabled (key in URL fragment)"})
	}
	fmt.Println(t.Render())
}
