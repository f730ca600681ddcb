package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/vinayprograms/beaconkit/listener"
	"github.com/vinayprograms/beaconkit/logging"
	"github.com/vinayprograms/beaconkit/shutdown"
	"github.com/vinayprograms/beaconkit/track"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run a listener session with a live terminal view",
	Long: `Run a listener session like listen, but render the session live in the
terminal: processed beacons, the publisher's current state, and progress
through the state cycle.

Keyboard shortcuts:
  Q / Ctrl+C - end the session and print the summary

Examples:
  beaconkit watch
  beaconkit watch --max-messages 20`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().IntVar(&listenPort, "port", 0, "broadcast port to bind")
	watchCmd.Flags().StringVar(&listenClientID, "client-id", "", "client id used in acknowledgments")
	watchCmd.Flags().Float64Var(&listenMaxRuntime, "max-runtime", 0, "seconds before the session exits (0 keeps the config value)")
	watchCmd.Flags().IntVar(&listenMaxMessages, "max-messages", 0, "beacon count before the session exits")
}

type watchTickMsg time.Time

type sessionDoneMsg struct {
	summary *listener.Summary
	err     error
}

type watchModel struct {
	lst     *listener.Listener
	trk     *track.Tracker
	cancel  context.CancelFunc
	start   time.Time
	done    chan sessionDoneMsg
	summary *listener.Summary
	err     error
	ending  bool
}

func watchTick() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return watchTickMsg(t)
	})
}

func waitSession(done chan sessionDoneMsg) tea.Cmd {
	return func() tea.Msg {
		return <-done
	}
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(watchTick(), waitSession(m.done))
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.ending = true
			m.cancel()
			return m, nil
		}
		return m, nil

	case watchTickMsg:
		return m, watchTick()

	case sessionDoneMsg:
		m.summary = msg.summary
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

var (
	watchTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)
	watchStateStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42"))
	watchDimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

func (m watchModel) View() string {
	var s strings.Builder

	s.WriteString(watchTitleStyle.Render("beaconkit session"))
	s.WriteString("\n\n")

	elapsed := time.Since(m.start).Truncate(100 * time.Millisecond)
	phase := m.lst.Phase().String()
	if m.ending {
		phase = "EXITING"
	}
	s.WriteString(fmt.Sprintf("  client    %s\n", m.lst.ClientID()))
	s.WriteString(fmt.Sprintf("  phase     %s\n", phase))
	s.WriteString(fmt.Sprintf("  elapsed   %s\n", elapsed))
	s.WriteString(fmt.Sprintf("  messages  %d (last id %d)\n", m.lst.MessagesReceived(), m.lst.LastProcessedID()))

	state := m.trk.Current()
	inLoop, pos, total := m.trk.LoopProgress()
	s.WriteString(fmt.Sprintf("  state     %s\n", watchStateStyle.Render(string(state))))
	if inLoop {
		s.WriteString(fmt.Sprintf("  cycle     %d complete, %d/%d through the next\n", m.trk.LoopCount(), pos, total))
	} else {
		s.WriteString(fmt.Sprintf("  cycle     %d complete\n", m.trk.LoopCount()))
	}
	s.WriteString("\n")

	records := m.lst.Records()
	if len(records) == 0 {
		s.WriteString(watchDimStyle.Render("  waiting for beacons...") + "\n")
	} else {
		show := records
		if len(show) > 8 {
			show = show[len(show)-8:]
		}
		for _, rec := range show {
			line := fmt.Sprintf("  #%-4d %-12s %s  from %s:%d",
				rec.MessageID, rec.State, rec.ReceiveTime.Format("15:04:05.000"), rec.ServerIP, rec.ServerPort)
			s.WriteString(line + "\n")
		}
	}

	s.WriteString("\n")
	s.WriteString(watchDimStyle.Render("  q: end session and print summary"))
	s.WriteString("\n")
	return s.String()
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if listenPort != 0 {
		cfg.Listener.Port = listenPort
	}
	if listenClientID != "" {
		cfg.Listener.ClientID = listenClientID
	}
	if listenMaxRuntime > 0 {
		cfg.Listener.MaxRuntimeSeconds = listenMaxRuntime
	}
	if listenMaxMessages > 0 {
		cfg.Listener.MaxMessages = listenMaxMessages
	}

	// The terminal is the UI; keep log lines out of it.
	logging.SetDefaultLevel(logging.LevelError)

	coord := shutdown.NewCoordinator(0)
	ctx, cancel := context.WithCancel(coord.Context(context.Background()))
	defer cancel()
	defer coord.ShutdownWithTimeout(0)

	lst, trk, err := buildListener(cfg, coord)
	if err != nil {
		return err
	}

	done := make(chan sessionDoneMsg, 1)
	model := watchModel{
		lst:    lst,
		trk:    trk,
		cancel: cancel,
		start:  time.Now(),
		done:   done,
	}

	go func() {
		summary, err := lst.Run(ctx)
		done <- sessionDoneMsg{summary: summary, err: err}
	}()

	program := tea.NewProgram(model)
	final, err := program.Run()
	if err != nil {
		return err
	}

	m := final.(watchModel)
	if m.err != nil {
		return m.err
	}
	if m.summary != nil {
		out, err := json.MarshalIndent(m.summary, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, string(out))
	}
	return nil
}
