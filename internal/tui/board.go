// Package tui provides the live task board for kestrel watch.
package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kestreldev/kestrel/internal/registry"
	"github.com/kestreldev/kestrel/internal/watch"
	"github.com/kestreldev/kestrel/pkg/models"
)

// RefreshMsg is sent when the registry document changed on disk.
type RefreshMsg struct{}

// tickMsg drives the fallback poll in case a change notification is missed.
type tickMsg time.Time

// Board is the bubbletea model for the live task board. It re-reads the
// registry on every change notification; the registry itself stays the
// single source of truth.
type Board struct {
	reg     *registry.Registry
	watcher *watch.Watcher
	refresh time.Duration

	tasks []*models.Task
	stats models.Stats
	err   error

	spin   spinner.Model
	width  int
	height int

	titleStyle   lipgloss.Style
	headerStyle  lipgloss.Style
	queuedStyle  lipgloss.Style
	runningStyle lipgloss.Style
	doneStyle    lipgloss.Style
	failedStyle  lipgloss.Style
	blockedStyle lipgloss.Style
	mutedStyle   lipgloss.Style
}

// NewBoard creates a board for the given registry. The watcher may be nil;
// the board then falls back to polling alone.
func NewBoard(reg *registry.Registry, watcher *watch.Watcher, refresh time.Duration) *Board {
	if refresh <= 0 {
		refresh = 2 * time.Second
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return &Board{
		reg:     reg,
		watcher: watcher,
		refresh: refresh,
		spin:    sp,

		titleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Padding(0, 1),
		headerStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true),
		queuedStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")), // Gray
		runningStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("34")), // Green
		doneStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("28")), // Dark green
		failedStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")), // Red
		blockedStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")), // Orange
		mutedStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),
	}
}

// Init implements tea.Model.
func (b *Board) Init() tea.Cmd {
	b.reload()
	cmds := []tea.Cmd{b.spin.Tick, b.tick()}
	if b.watcher != nil {
		cmds = append(cmds, b.waitForChange())
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (b *Board) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return b, tea.Quit
		}
	case tea.WindowSizeMsg:
		b.width = msg.Width
		b.height = msg.Height
	case RefreshMsg:
		b.reload()
		return b, b.waitForChange()
	case tickMsg:
		b.reload()
		return b, b.tick()
	case spinner.TickMsg:
		var cmd tea.Cmd
		b.spin, cmd = b.spin.Update(msg)
		return b, cmd
	}
	return b, nil
}

// waitForChange blocks on the watcher's change channel.
func (b *Board) waitForChange() tea.Cmd {
	return func() tea.Msg {
		<-b.watcher.Changes()
		return RefreshMsg{}
	}
}

func (b *Board) tick() tea.Cmd {
	return tea.Tick(b.refresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// reload re-reads tasks and stats from the registry snapshot.
func (b *Board) reload() {
	b.tasks = b.reg.List(models.TaskFilter{})
	b.stats = b.reg.Stats()
	sort.Slice(b.tasks, func(i, j int) bool {
		if b.tasks[i].State != b.tasks[j].State {
			return stateRank(b.tasks[i].State) < stateRank(b.tasks[j].State)
		}
		return b.tasks[i].ID < b.tasks[j].ID
	})
}

// stateRank orders the board: active work first, terminal states last.
func stateRank(s models.TaskState) int {
	switch s {
	case models.TaskRunning:
		return 0
	case models.TaskQueued:
		return 1
	case models.TaskBlocked:
		return 2
	case models.TaskFailed:
		return 3
	case models.TaskCompleted:
		return 4
	default:
		return 5
	}
}

// View implements tea.Model.
func (b *Board) View() string {
	var sb strings.Builder

	sb.WriteString(b.titleStyle.Render("kestrel watch"))
	sb.WriteString("  ")
	sb.WriteString(b.spin.View())
	sb.WriteString(b.headerStyle.Render(fmt.Sprintf(" %d tasks · %d running · %d queued · %d blocked",
		b.stats.Total,
		b.stats.ByState[models.TaskRunning],
		b.stats.ByState[models.TaskQueued],
		b.stats.ByState[models.TaskBlocked])))
	sb.WriteString("\n\n")

	if len(b.tasks) == 0 {
		sb.WriteString(b.mutedStyle.Render("  no tasks"))
		sb.WriteString("\n")
	}
	for _, t := range b.tasks {
		sb.WriteString("  ")
		sb.WriteString(b.stateBadge(t.State))
		sb.WriteString(" ")
		sb.WriteString(t.ID)
		sb.WriteString("  ")
		sb.WriteString(truncate(t.Description, 60))
		if len(t.BlockedBy) > 0 && t.State == models.TaskBlocked {
			sb.WriteString(b.mutedStyle.Render(fmt.Sprintf("  (blocked by %s)", strings.Join(t.BlockedBy, ", "))))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(b.mutedStyle.Render("  q to quit"))
	sb.WriteString("\n")
	return sb.String()
}

// stateBadge renders a fixed-width colored state marker.
func (b *Board) stateBadge(s models.TaskState) string {
	label := fmt.Sprintf("%-9s", s)
	switch s {
	case models.TaskQueued:
		return b.queuedStyle.Render(label)
	case models.TaskRunning:
		return b.runningStyle.Render(label)
	case models.TaskCompleted:
		return b.doneStyle.Render(label)
	case models.TaskFailed, models.TaskCancelled:
		return b.failedStyle.Render(label)
	case models.TaskBlocked:
		return b.blockedStyle.Render(label)
	default:
		return label
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
