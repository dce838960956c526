package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// TaskSnapshot is the minimal view of an in-flight analysis task a watch
// program needs to render; cmd/atlasforge maps model.AnalysisTask into this
// so internal/progressui has no import-time dependency on internal/model.
type TaskSnapshot struct {
	ID             string
	State          string
	CurrentChapter int
	ChaptersDone   int
	ChaptersTotal  int
	ChaptersFailed int
	ETA            time.Duration
	Terminal       bool // true once the task has reached a state with no further transitions
}

type tickMsg time.Time

// TaskWatcher polls for the latest TaskSnapshot. Returning (zero, false)
// leaves the last rendered snapshot on screen.
type TaskWatcher func() (TaskSnapshot, bool)

// taskWatchModel is a bubbletea Model driving a one-task live progress view,
// grounded on the teacher's chat.Model spinner-tick pattern
// (cmd/nerd/chat/model.go: spinner.Model field, spinner.TickMsg case,
// re-issuing m.spinner.Tick after every Update) adapted from a chat REPL's
// continuous tick to a fixed polling interval against a store-backed task.
type taskWatchModel struct {
	watch    TaskWatcher
	interval time.Duration
	styles   Styles
	spinner  spinner.Model
	snapshot TaskSnapshot
	resize   *ResizeDebouncer
	barWidth int
	done     bool
}

// defaultBarWidth is used until the first WindowSizeMsg arrives.
const defaultBarWidth = 30

// NewTaskWatchProgram builds a bubbletea program that polls watch every
// interval and renders a spinner, a progress bar, and the chapter/ETA
// counters until the task reaches a terminal state. The progress bar width
// is debounced against terminal resize events via ResizeDebouncer, so a
// burst of resize events (e.g. dragging a terminal window) reflows once
// rather than on every intermediate frame.
func NewTaskWatchProgram(watch TaskWatcher, interval time.Duration) *tea.Program {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	m := taskWatchModel{
		watch:    watch,
		interval: interval,
		styles:   DefaultStyles(),
		spinner:  sp,
		resize:   NewResizeDebouncer(DefaultResizeDuration),
		barWidth: defaultBarWidth,
	}
	return tea.NewProgram(m)
}

func (m taskWatchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.tick())
}

func (m taskWatchModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m taskWatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Every resize fires its own WindowSizeMsg; ResizeDebouncer folds a burst
	// of them (e.g. a dragged terminal edge) into one reflow after the
	// quiet period the bar width is recomputed from below.
	if w, h := m.resize.GetLastSize(); w > 0 {
		m.barWidth = clampBarWidth(w, h)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize.Resize(msg.Width, msg.Height, func(int, int) {})
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			m.resize.Cancel()
			return m, tea.Quit
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tickMsg:
		snap, ok := m.watch()
		if ok {
			m.snapshot = snap
		}
		if m.snapshot.Terminal {
			m.done = true
			m.resize.Cancel()
			return m, tea.Quit
		}
		return m, m.tick()
	}
	return m, nil
}

// clampBarWidth leaves room for the surrounding status text on narrow
// terminals and caps growth on very wide ones.
func clampBarWidth(termWidth, _ int) int {
	w := termWidth - 60
	if w < 10 {
		return 10
	}
	if w > 60 {
		return 60
	}
	return w
}

func (m taskWatchModel) View() string {
	if m.snapshot.ID == "" {
		return m.styles.Muted.Render("waiting for task...") + "\n"
	}

	ratio := 0.0
	if m.snapshot.ChaptersTotal > 0 {
		ratio = float64(m.snapshot.ChaptersDone) / float64(m.snapshot.ChaptersTotal)
	}
	barWidth := m.barWidth
	if barWidth <= 0 {
		barWidth = defaultBarWidth
	}
	filled := int(ratio * float64(barWidth))
	bar := m.styles.ProgressBar.Render(repeat("#", filled) + repeat("-", barWidth-filled))

	status := m.spinner.View()
	if m.done {
		status = m.styles.Success.Render("done")
	}

	return fmt.Sprintf("%s task %s [%s] chapter %d  %s  %d/%d done (%d failed)  eta %s\n",
		status,
		m.snapshot.ID,
		bar,
		m.snapshot.CurrentChapter,
		m.styles.Bold.Render(m.snapshot.State),
		m.snapshot.ChaptersDone, m.snapshot.ChaptersTotal, m.snapshot.ChaptersFailed,
		m.snapshot.ETA.Round(time.Second),
	)
}

func repeat(s string, n int) string {
	if n <= 0 {
		return ""
	}
	out := make([]byte, 0, len(s)*n)
	for i := 0; i < n; i++ {
		out = append(out, s...)
	}
	return string(out)
}
