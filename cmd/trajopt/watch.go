package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/arnewlabs/trajopt/internal/store"
)

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(14)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

// watchModel steps a stored trajectory knot by knot in a bubbletea
// program, the playback analog of the teacher's internal/viz live
// simulation view: here the "simulation" is already computed (a solved
// trajectory), and the model animates through it rather than stepping
// dynamics forward each tick.
type watchModel struct {
	runID   string
	model   string
	names   []string
	cols    map[string][]float64
	knot    int
	total   int
	running bool
}

type watchTick struct{}

func watchTickCmd() tea.Cmd {
	return tea.Tick(watchFrameInterval, func(time.Time) tea.Msg { return watchTick{} })
}

const watchFrameInterval = 66700 * time.Microsecond // ~15fps

func (m watchModel) Init() tea.Cmd {
	return watchTickCmd()
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case " ":
			m.running = !m.running
			return m, nil
		case "left":
			if m.knot > 0 {
				m.knot--
			}
			return m, nil
		case "right":
			if m.knot < m.total-1 {
				m.knot++
			}
			return m, nil
		}
	case watchTick:
		if m.running && m.knot < m.total-1 {
			m.knot++
		}
		return m, watchTickCmd()
	}
	return m, nil
}

func (m watchModel) View() string {
	s := headerStyle.Render(fmt.Sprintf("trajopt watch — run %s (%s)", m.runID, m.model))
	s += "\n"
	s += labelStyle.Render("knot") + valueStyle.Render(fmt.Sprintf("%d / %d", m.knot, m.total-1)) + "\n"
	state := "paused"
	if m.running {
		state = "playing"
	}
	s += labelStyle.Render("state") + valueStyle.Render(state) + "\n\n"

	for _, name := range m.names {
		data := m.cols[name]
		if len(data) < 2 {
			continue
		}
		end := m.knot + 1
		if end > len(data) {
			end = len(data)
		}
		if end < 2 {
			continue
		}
		graph := asciigraph.Plot(data[:end],
			asciigraph.Height(6),
			asciigraph.Width(70),
			asciigraph.Caption(name),
		)
		s += graphStyle.Render(graph) + "\n"
	}

	s += helpStyle.Render("space: play/pause   ←/→: step   q: quit")
	return s
}

func watchRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := store.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	cols, err := st.LoadTrajectory(runID)
	if err != nil {
		return err
	}
	if len(cols) == 0 {
		return fmt.Errorf("no data to watch")
	}

	names := sortedColumnNames(cols)
	total := 0
	for _, n := range names {
		if len(cols[n]) > total {
			total = len(cols[n])
		}
	}

	m := watchModel{
		runID:   runID,
		model:   meta.Model,
		names:   names,
		cols:    cols,
		total:   total,
		running: true,
	}
	p := tea.NewProgram(m)
	_, err = p.Run()
	return err
}
