// Package ui is the terminal front end: it wires user input to the
// task store and renders the filtered, sorted projection.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"taskmaster/internal/config"
	"taskmaster/internal/ics"
	"taskmaster/internal/models"
	"taskmaster/internal/nlp"
	"taskmaster/internal/reminder"
	"taskmaster/internal/tracker"
	"taskmaster/internal/view"
)

type mode int

const (
	modeList mode = iota
	modeAdd
	modeEdit
)

const toastTTL = 5 * time.Second

type toast struct {
	id    int
	text  string
	level string // "info", "success", "error", "warning"
}

// Messages flowing back into the update loop.
type (
	refreshMsg     struct{}
	loadDoneMsg    struct{ err error }
	createDoneMsg  struct {
		task models.Task
		err  error
	}
	updateDoneMsg  struct{ err error }
	removeDoneMsg  struct {
		title string
		err   error
	}
	undoDoneMsg    struct {
		task models.Task
		err  error
	}
	clearedMsg     struct{ count int }
	exportDoneMsg  struct {
		path string
		err  error
	}
	nlpTickMsg     struct {
		seq  int
		text string
	}
	toastExpireMsg struct{ id int }
	celebrateMsg   struct{ task models.Task }
	reminderMsg    struct{ task models.Task }
)

// Model is the Bubble Tea model for the whole client.
type Model struct {
	store     *tracker.Store
	extractor *nlp.Extractor
	cfg       config.Config
	logger    *log.Logger

	state  view.State
	mode   mode
	cursor int

	titleInput textinput.Model
	dueInput   textinput.Model
	priority   string
	dueEdited  bool   // user touched the due field; NLP must not overwrite
	nlpSeq     int    // debounce generation; stale ticks are discarded
	nlpPreview string
	editingID  string

	toasts      []toast
	nextToastID int
	toastTTL    time.Duration
	status      string
	celebration string
	width       int
}

// New builds the initial model. The store should not be loaded yet;
// Init issues the first load.
func New(store *tracker.Store, extractor *nlp.Extractor, cfg config.Config, logger *log.Logger) Model {
	ti := textinput.New()
	ti.Placeholder = "Task title (try \"pay rent tomorrow at 5pm\")"
	ti.CharLimit = 256
	ti.Width = 48

	di := textinput.New()
	di.Placeholder = "Due (2006-01-02T15:04)"
	di.CharLimit = 32
	di.Width = 24

	state := view.State{
		Filter: view.FilterMode(cfg.DefaultFilter),
		Sort:   view.SortKey(cfg.DefaultSort),
		Dark:   cfg.DarkMode,
	}
	if state.Filter == "" {
		state.Filter = view.FilterAll
	}
	if state.Sort == "" {
		state.Sort = view.SortCreatedDesc
	}

	return Model{
		store:      store,
		extractor:  extractor,
		cfg:        cfg,
		logger:     logger,
		state:      state,
		titleInput: ti,
		dueInput:   di,
		priority:   cfg.DefaultPriority,
		toastTTL:   toastTTL,
		status:     "Loading tasks...",
	}
}

// Run starts the program and wires the store and scheduler callbacks to
// the update loop.
func Run(store *tracker.Store, sched *reminder.Scheduler, cfg config.Config, logger *log.Logger) error {
	m := New(store, nlp.NewExtractor(), cfg, logger)
	p := tea.NewProgram(m, tea.WithAltScreen())

	store.OnChange = func() { p.Send(refreshMsg{}) }
	store.OnCompleted = func(t models.Task) { p.Send(celebrateMsg{task: t}) }
	sched.OnAlert = func(t models.Task) { p.Send(reminderMsg{task: t}) }

	sched.Start()
	defer sched.Stop()

	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadCmd(), textinput.Blink)
}

// --- Commands ---

func (m Model) loadCmd() tea.Cmd {
	store := m.store
	return func() tea.Msg {
		return loadDoneMsg{err: store.Load(context.Background())}
	}
}

func (m Model) createCmd(draft models.Draft) tea.Cmd {
	store, def := m.store, m.cfg.DefaultPriority
	return func() tea.Msg {
		task, err := store.Create(context.Background(), draft, def)
		return createDoneMsg{task: task, err: err}
	}
}

func (m Model) updateCmd(id string, patch models.TaskPatch) tea.Cmd {
	store := m.store
	return func() tea.Msg {
		return updateDoneMsg{err: store.Update(context.Background(), id, patch)}
	}
}

func (m Model) removeCmd(id, title string) tea.Cmd {
	store := m.store
	return func() tea.Msg {
		return removeDoneMsg{title: title, err: store.Remove(context.Background(), id)}
	}
}

func (m Model) undoCmd() tea.Cmd {
	store := m.store
	return func() tea.Msg {
		task, err := store.Undo(context.Background())
		return undoDoneMsg{task: task, err: err}
	}
}

func (m Model) clearCompletedCmd() tea.Cmd {
	store := m.store
	return func() tea.Msg {
		return clearedMsg{count: store.ClearCompleted(context.Background())}
	}
}

func (m Model) exportCmd(task models.Task) tea.Cmd {
	dir := m.cfg.ExportDir
	return func() tea.Msg {
		path, err := ics.WriteFile(task, dir, time.Now())
		return exportDoneMsg{path: path, err: err}
	}
}

func (m Model) nlpDebounceCmd(seq int, text string) tea.Cmd {
	delay := time.Duration(m.cfg.NLPDebounceMillis) * time.Millisecond
	if delay <= 0 {
		delay = nlp.DefaultDebounce
	}
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return nlpTickMsg{seq: seq, text: text}
	})
}

func (m Model) expireToastCmd(id int) tea.Cmd {
	return tea.Tick(m.toastTTL, func(time.Time) tea.Msg {
		return toastExpireMsg{id: id}
	})
}

// --- Update ---

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		m.celebration = ""
		switch m.mode {
		case modeAdd:
			return m.updateAddMode(msg)
		case modeEdit:
			return m.updateEditMode(msg)
		default:
			return m.updateListMode(msg.String())
		}

	case refreshMsg:
		m.cursor = clampCursor(m.cursor, len(m.visible()))
		return m, nil

	case loadDoneMsg:
		if msg.err != nil {
			return m.pushToast("Error loading tasks", "error")
		}
		m.status = readyStatus(m.cfg.Keys)
		return m, nil

	case createDoneMsg:
		if msg.err != nil {
			return m.failedAction(msg.err, "Error creating task")
		}
		m = m.resetAddForm()
		m.mode = modeList
		m.status = readyStatus(m.cfg.Keys)
		return m.pushToast(fmt.Sprintf("Added %q", msg.task.Title), "success")

	case updateDoneMsg:
		if msg.err != nil {
			return m.failedAction(msg.err, "Error updating task")
		}
		return m, nil

	case removeDoneMsg:
		if msg.err != nil {
			return m.failedAction(msg.err, "Error deleting task")
		}
		return m.pushToast(fmt.Sprintf("Task deleted — press %s to undo", m.cfg.Keys.Undo), "info")

	case undoDoneMsg:
		switch {
		case errors.Is(msg.err, tracker.ErrNothingToUndo):
			return m.pushToast("Nothing to undo", "info")
		case errors.Is(msg.err, tracker.ErrUndoExpired):
			return m.pushToast("Undo window has expired", "warning")
		case msg.err != nil:
			return m.failedAction(msg.err, "Error restoring task")
		}
		return m.pushToast(fmt.Sprintf("Restored %q", msg.task.Title), "success")

	case clearedMsg:
		if msg.count == 0 {
			return m.pushToast("No completed tasks to clear", "info")
		}
		return m.pushToast(fmt.Sprintf("Cleared %d completed", msg.count), "info")

	case exportDoneMsg:
		if msg.err != nil {
			return m.failedAction(msg.err, "Error exporting event")
		}
		return m.pushToast("Event exported to "+msg.path, "success")

	case nlpTickMsg:
		if msg.seq != m.nlpSeq || m.mode != modeAdd {
			return m, nil // superseded by newer input
		}
		return m.runNLP(msg.text), nil

	case toastExpireMsg:
		for i, t := range m.toasts {
			if t.id == msg.id {
				m.toasts = append(m.toasts[:i], m.toasts[i+1:]...)
				break
			}
		}
		return m, nil

	case celebrateMsg:
		m.celebration = fmt.Sprintf("🎉 %q done!", msg.task.Title)
		return m.pushToast("Task completed. Nice work!", "success")

	case reminderMsg:
		return m.pushToast(fmt.Sprintf("Reminder: %s (due %s)", msg.task.Title,
			msg.task.DueAt.Format("15:04")), "warning")
	}
	return m, nil
}

func (m Model) updateListMode(key string) (tea.Model, tea.Cmd) {
	k := m.cfg.Keys
	visible := m.visible()

	switch key {
	case "ctrl+c", k.Quit:
		return m, tea.Quit

	case k.Down, "down":
		if len(visible) > 0 {
			m.cursor = clampCursor(m.cursor+1, len(visible))
		}
	case k.Up, "up":
		if m.cursor > 0 {
			m.cursor = clampCursor(m.cursor-1, len(visible))
		}

	case k.Add:
		m.mode = modeAdd
		m = m.resetAddForm()
		m.titleInput.Focus()
		m.status = "Add mode: type a title, tab to the due field, enter to save"
		return m, textinput.Blink

	case k.Toggle:
		task, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m, m.updateCmd(task.ID, models.PatchCompleted(!task.Completed))

	case k.Delete:
		task, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m, m.removeCmd(task.ID, task.Title)

	case k.Undo:
		return m, m.undoCmd()

	case k.Edit:
		task, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.mode = modeEdit
		m.editingID = task.ID
		m.titleInput.SetValue(task.Title)
		m.titleInput.Focus()
		m.status = "Edit title: enter to save, esc to cancel"
		return m, textinput.Blink

	case k.Reminder:
		return m.toggleReminder()

	case k.Calendar:
		task, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m, m.exportCmd(task)

	case k.Filter:
		m.state.Filter = nextFilter(m.state.Filter)
		m.cursor = 0
	case k.Sort:
		m.state.Sort = nextSort(m.state.Sort)
	case k.Theme:
		m.state.Dark = !m.state.Dark

	case k.ClearDone:
		return m, m.clearCompletedCmd()
	}
	return m, nil
}

func (m Model) updateAddMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.cfg.Keys
	switch msg.String() {
	case k.Cancel:
		m.mode = modeList
		m = m.resetAddForm()
		m.status = readyStatus(k)
		return m, nil

	case k.NextField, k.PrevField:
		if m.titleInput.Focused() {
			m.titleInput.Blur()
			m.dueInput.Focus()
		} else {
			m.dueInput.Blur()
			m.titleInput.Focus()
		}
		return m, textinput.Blink

	case k.PriorityUp:
		m.priority = nextPriority(m.priority)
		return m, nil

	case k.Confirm:
		return m.submitDraft()
	}

	var cmd tea.Cmd
	if m.titleInput.Focused() {
		before := m.titleInput.Value()
		m.titleInput, cmd = m.titleInput.Update(msg)
		if m.titleInput.Value() != before {
			m.nlpSeq++
			return m, tea.Batch(cmd, m.nlpDebounceCmd(m.nlpSeq, m.titleInput.Value()))
		}
		return m, cmd
	}

	before := m.dueInput.Value()
	m.dueInput, cmd = m.dueInput.Update(msg)
	if m.dueInput.Value() != before {
		m.dueEdited = true // explicit edits win over NLP suggestions
	}
	return m, cmd
}

func (m Model) updateEditMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.cfg.Keys
	switch msg.String() {
	case k.Cancel:
		m.mode = modeList
		m.editingID = ""
		m.titleInput.SetValue("")
		m.titleInput.Blur()
		m.status = readyStatus(k)
		return m, nil

	case k.Confirm:
		title := strings.TrimSpace(m.titleInput.Value())
		id := m.editingID
		m.mode = modeList
		m.editingID = ""
		m.titleInput.SetValue("")
		m.titleInput.Blur()
		m.status = readyStatus(k)
		if title == "" {
			return m.pushToast("Title cannot be empty", "error")
		}
		return m, m.updateCmd(id, models.PatchTitle(title))
	}

	var cmd tea.Cmd
	m.titleInput, cmd = m.titleInput.Update(msg)
	return m, cmd
}

func (m Model) submitDraft() (tea.Model, tea.Cmd) {
	draft := models.Draft{
		Title:         m.titleInput.Value(),
		Priority:      m.priority,
		DueAt:         m.dueInput.Value(),
		NLPSourceText: m.titleInput.Value(),
	}

	// Validate before the command so focus can return to the offending
	// field; the store validates again before any network call.
	if _, err := draft.Assemble(m.cfg.DefaultPriority); err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			if verr.Field == "dueAt" {
				m.titleInput.Blur()
				m.dueInput.Focus()
			} else {
				m.dueInput.Blur()
				m.titleInput.Focus()
			}
			model, cmd := m.pushToast(verr.Message, "error")
			return model, tea.Batch(cmd, textinput.Blink)
		}
		return m.failedAction(err, "Invalid task")
	}

	return m, m.createCmd(draft)
}

func (m Model) toggleReminder() (tea.Model, tea.Cmd) {
	task, ok := m.selected()
	if !ok {
		return m, nil
	}
	now := time.Now()

	if task.HasArmedReminder(now) {
		model, cmd := m.pushToast("Reminder removed", "info")
		return model, tea.Batch(cmd, m.updateCmd(task.ID, models.PatchReminder(nil)))
	}

	if task.DueAt.IsZero() {
		return m.pushToast("Set a due date first to add a reminder", "error")
	}
	lead := time.Duration(m.cfg.ReminderLeadMinutes) * time.Minute
	at := models.NewTimestamp(task.DueAt.Add(-lead))
	if at.Before(now) {
		return m.pushToast("Task is already due or in the past!", "warning")
	}

	model, cmd := m.pushToast(fmt.Sprintf("Reminder set for %d mins before due", m.cfg.ReminderLeadMinutes), "success")
	return model, tea.Batch(cmd, m.updateCmd(task.ID, models.PatchReminder(&at)))
}

func (m Model) runNLP(text string) Model {
	res, ok := m.extractor.Extract(text, time.Now())
	if !ok {
		m.nlpPreview = ""
		return m
	}
	m.nlpPreview = "Detected: " + res.Time.Format("Mon Jan 2, 15:04")
	if !m.dueEdited {
		m.dueInput.SetValue(res.Time.Format("2006-01-02T15:04"))
	}
	return m
}

func (m Model) failedAction(err error, fallback string) (tea.Model, tea.Cmd) {
	m.logger.Error("action failed", "err", err)
	message := fallback
	if err != nil && err.Error() != "" {
		message = err.Error()
	}
	return m.pushToast(message, "error")
}

func (m Model) pushToast(text, level string) (Model, tea.Cmd) {
	m.nextToastID++
	m.toasts = append(m.toasts, toast{id: m.nextToastID, text: text, level: level})
	return m, m.expireToastCmd(m.nextToastID)
}

func (m Model) resetAddForm() Model {
	m.titleInput.SetValue("")
	m.dueInput.SetValue("")
	m.dueInput.Blur()
	m.priority = m.cfg.DefaultPriority
	m.dueEdited = false
	m.nlpPreview = ""
	m.nlpSeq++
	return m
}

// --- Projections ---

func (m Model) visible() []models.Task {
	filtered := view.Filter(m.store.Tasks(), m.state.Filter, time.Now())
	return view.Sort(filtered, m.state.Sort)
}

func (m Model) selected() (models.Task, bool) {
	visible := m.visible()
	if len(visible) == 0 {
		return models.Task{}, false
	}
	return visible[clampCursor(m.cursor, len(visible))], true
}

// --- View ---

func (m Model) View() string {
	st := newStyles(m.state.Dark)
	now := time.Now()
	var b strings.Builder

	b.WriteString(st.title.Render("TaskMaster"))
	b.WriteString("\n")
	b.WriteString(m.renderProgress(st))
	b.WriteString("\n")
	b.WriteString(st.faint.Render(fmt.Sprintf("filter: %s • sort: %s", m.state.Filter, m.state.Sort)))
	b.WriteString("\n\n")

	visible := m.visible()
	if len(visible) == 0 {
		b.WriteString(st.faint.Render(emptyMessage(m.state.Filter)))
		b.WriteString("\n")
	} else {
		for i, t := range visible {
			b.WriteString(m.renderTask(st, t, i == clampCursor(m.cursor, len(visible)), now))
			b.WriteString("\n")
		}
	}

	if m.mode == modeAdd {
		b.WriteString("\n")
		b.WriteString(st.label.Render("New task"))
		b.WriteString("\n")
		b.WriteString(m.titleInput.View())
		b.WriteString("\n")
		b.WriteString(m.dueInput.View())
		b.WriteString("  priority: " + st.priority(m.priority).Render(m.priority) +
			" (" + m.cfg.Keys.PriorityUp + ")")
		b.WriteString("\n")
		if m.nlpPreview != "" {
			b.WriteString(st.nlp.Render(m.nlpPreview))
			b.WriteString("\n")
		}
	}
	if m.mode == modeEdit {
		b.WriteString("\n")
		b.WriteString(st.label.Render("Edit title"))
		b.WriteString("\n")
		b.WriteString(m.titleInput.View())
		b.WriteString("\n")
	}

	for _, t := range m.toasts {
		b.WriteString(st.toast(t.level).Render(t.text))
		b.WriteString("\n")
	}
	if m.celebration != "" {
		b.WriteString(st.celebrate.Render(m.celebration))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(st.faint.Render(m.status))
	b.WriteString("\n")
	b.WriteString(st.faint.Render(renderHelp(m.cfg.Keys)))
	return b.String()
}

func (m Model) renderProgress(st styles) string {
	p := view.ComputeProgress(m.store.Tasks())
	const barWidth = 24
	filled := barWidth * p.Percent / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
	return fmt.Sprintf("%s %d/%d  %s",
		st.bar.Render(bar), p.CompletedCount, p.TotalCount, st.faint.Render(p.Message()))
}

func (m Model) renderTask(st styles, t models.Task, selected bool, now time.Time) string {
	cursor := " "
	if selected && m.mode == modeList {
		cursor = ">"
	}

	checkbox := "[ ]"
	if t.Completed {
		checkbox = "[x]"
	}

	badge := t.Priority
	badgeStyle := st.priority(t.Priority)
	if t.IsOverdue(now) {
		badge = "overdue"
		badgeStyle = st.overdue
	}

	title := t.Title
	if t.Completed {
		title = st.done.Render(title)
	}

	line := fmt.Sprintf("%s %s %s %s  %s", cursor, checkbox, badgeStyle.Render(badge), title,
		st.faint.Render(t.DueAt.Format("Jan 2 15:04")))
	if t.HasArmedReminder(now) {
		line += " " + st.bell.Render("🔔")
	}
	return line
}

func emptyMessage(f view.FilterMode) string {
	switch f {
	case view.FilterCompleted:
		return "No completed tasks yet."
	case view.FilterFailed:
		return "No failed tasks! Great job keeping up!"
	default:
		return "No tasks found. Add one!"
	}
}

func readyStatus(k config.Keymap) string {
	return fmt.Sprintf("Press '%s' to add, '%s' to toggle, '%s' to delete.", k.Add, k.Toggle, k.Delete)
}

func renderHelp(k config.Keymap) string {
	return fmt.Sprintf("%s/%s move • %s add • %s toggle • %s delete • %s undo • %s edit • %s reminder • %s calendar • %s filter • %s sort • %s theme • %s clear done • %s quit",
		k.Up, k.Down, k.Add, k.Toggle, k.Delete, k.Undo, k.Edit, k.Reminder, k.Calendar, k.Filter, k.Sort, k.Theme, k.ClearDone, k.Quit)
}

func nextFilter(f view.FilterMode) view.FilterMode {
	switch f {
	case view.FilterAll:
		return view.FilterActive
	case view.FilterActive:
		return view.FilterCompleted
	case view.FilterCompleted:
		return view.FilterFailed
	default:
		return view.FilterAll
	}
}

func nextSort(s view.SortKey) view.SortKey {
	switch s {
	case view.SortCreatedDesc:
		return view.SortCreatedAsc
	case view.SortCreatedAsc:
		return view.SortPriority
	case view.SortPriority:
		return view.SortDueDate
	default:
		return view.SortCreatedDesc
	}
}

func nextPriority(p string) string {
	switch p {
	case models.PriorityLow:
		return models.PriorityMedium
	case models.PriorityMedium:
		return models.PriorityHigh
	default:
		return models.PriorityLow
	}
}

func clampCursor(cur, n int) int {
	if n <= 0 {
		return 0
	}
	if cur < 0 {
		return 0
	}
	if cur >= n {
		return n - 1
	}
	return cur
}
