// Package ui is the terminal front end: it lists the active profile's
// bindings and drives profile and binding edits.
package ui

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"autokeybind/internal/capture"
	"autokeybind/internal/profile"
)

// Store is the profile store as the UI uses it.
type Store interface {
	Active() string
	SetActive(name string) error
	Profiles() []string
	Bindings(name string) (map[string]profile.Binding, error)
	SetBindingKind(name, key string, kind profile.ActionKind) error
	DeleteBinding(name, key string) error
	ClearBindings(name string) error
	CreateProfile(name string) error
	RenameProfile(oldName, newName string) error
	DeleteProfile(name string) error
}

// Capture arms and cancels click capture.
type Capture interface {
	Arm(key string, kind profile.ActionKind) error
	ArmUpdate(name, key string) error
	Cancel()
	Armed() (bool, capture.Pending)
}

// Recorder records the combo for a new binding.
type Recorder interface {
	Start()
	Stop() string
	Combo() string
}

// Messages posted from outside the event loop.
type (
	// StoreChanged means profiles, bindings or the active profile changed.
	StoreChanged struct{}

	// CaptureChanged reports capture mode being armed or disarmed.
	CaptureChanged struct {
		Armed   bool
		Pending capture.Pending
	}

	// CaptureDone carries the outcome of a captured click.
	CaptureDone struct {
		Result capture.Result
	}

	// Recorded carries the combo recorded for a new binding.
	Recorded struct {
		Combo string
	}

	// Triggered reports a binding that fired.
	Triggered struct {
		Combo   string
		Binding profile.Binding
	}

	// Quit closes the UI, e.g. when the tray asked to exit.
	Quit struct{}
)

type mode int

const (
	modeBrowse mode = iota
	modeRecording
	modeForm
	modeError
)

// Model is the bubbletea model.
type Model struct {
	store   Store
	capture Capture
	rec     Recorder
	onQuit  func()

	mode   mode
	keys   []string
	binds  map[string]profile.Binding
	cursor int

	armed    bool
	armedKey string

	form     *huh.Form
	onSubmit func() error

	errMsg string
	status string
	width  int
}

// NewModel creates the UI model. onQuit runs when the user quits from the UI.
func NewModel(s Store, c Capture, r Recorder, onQuit func()) *Model {
	m := &Model{
		store:   s,
		capture: c,
		rec:     r,
		onQuit:  onQuit,
	}
	m.refresh()
	return m
}

func (m *Model) Init() tea.Cmd {
	return nil
}

// refresh reloads the bindings of the active profile.
func (m *Model) refresh() {
	binds, err := m.store.Bindings(m.store.Active())
	if err != nil {
		binds = map[string]profile.Binding{}
	}
	m.binds = binds
	m.keys = m.keys[:0]
	for k := range binds {
		m.keys = append(m.keys, k)
	}
	sort.Strings(m.keys)
	if m.cursor >= len(m.keys) {
		m.cursor = len(m.keys) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.armed, _ = m.capture.Armed()
}

func (m *Model) selected() (string, bool) {
	if len(m.keys) == 0 {
		return "", false
	}
	return m.keys[m.cursor], true
}

func (m *Model) fail(err error) {
	m.errMsg = err.Error()
	m.mode = modeError
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case StoreChanged:
		m.refresh()
		return m, nil

	case CaptureChanged:
		m.armed = msg.Armed
		m.armedKey = msg.Pending.Key
		return m, nil

	case CaptureDone:
		m.armed = false
		if msg.Result.Err != nil {
			m.fail(msg.Result.Err)
		} else {
			m.status = Success(fmt.Sprintf("%s set to %s in %s", msg.Result.Key, msg.Result.Binding, msg.Result.Profile))
		}
		m.refresh()
		return m, nil

	case Recorded:
		if m.mode != modeRecording {
			return m, nil
		}
		m.mode = modeBrowse
		if strings.TrimSpace(msg.Combo) == "" {
			m.fail(profile.ErrEmptyCombo)
			return m, nil
		}
		return m, m.openKindForm(msg.Combo)

	case Triggered:
		m.status = fmt.Sprintf("%s → %s", msg.Combo, msg.Binding)
		return m, nil

	case Quit:
		m.capture.Cancel()
		return m, tea.Quit

	case tea.WindowSizeMsg:
		m.width = msg.Width
	}

	switch m.mode {
	case modeForm:
		return m.updateForm(msg)
	case modeError:
		if k, ok := msg.(tea.KeyMsg); ok {
			switch k.String() {
			case "enter", "esc", " ":
				m.errMsg = ""
				m.mode = modeBrowse
			}
		}
		return m, nil
	case modeRecording:
		if k, ok := msg.(tea.KeyMsg); ok && k.String() == "esc" {
			m.rec.Stop()
			m.mode = modeBrowse
			m.status = Muted("recording cancelled")
		}
		return m, nil
	}

	if k, ok := msg.(tea.KeyMsg); ok {
		return m.handleKey(k)
	}
	return m, nil
}

func (m *Model) handleKey(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	active := m.store.Active()

	switch k.String() {
	case "q", "ctrl+c":
		m.capture.Cancel()
		if m.onQuit != nil {
			m.onQuit()
		}
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.keys)-1 {
			m.cursor++
		}

	case "esc":
		if m.armed {
			m.capture.Cancel()
			m.status = Muted("capture cancelled")
		}

	case "a":
		if m.armed {
			m.status = Warning("finish or cancel the current capture first")
			return m, nil
		}
		m.rec.Start()
		m.mode = modeRecording

	case "u":
		key, ok := m.selected()
		if !ok {
			return m, nil
		}
		if err := m.capture.ArmUpdate(active, key); err != nil {
			m.fail(err)
			return m, nil
		}
		m.armed, m.armedKey = true, key

	case "t":
		key, ok := m.selected()
		if !ok {
			return m, nil
		}
		kind := m.binds[key].Kind
		return m, m.openForm(huh.NewSelect[profile.ActionKind]().
			Title("Action for "+key).
			Options(kindOptions()...).
			Value(&kind), func() error {
			return m.store.SetBindingKind(active, key, kind)
		})

	case "d", "delete":
		key, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m, m.confirm("Delete binding "+key+"?", func() error {
			return m.store.DeleteBinding(active, key)
		})

	case "r":
		return m, m.confirm("Remove every binding from "+active+"?", func() error {
			return m.store.ClearBindings(active)
		})

	case "p":
		name := active
		opts := make([]huh.Option[string], 0)
		for _, p := range m.store.Profiles() {
			opts = append(opts, huh.NewOption(p, p))
		}
		return m, m.openForm(huh.NewSelect[string]().
			Title("Switch profile").
			Options(opts...).
			Value(&name), func() error {
			return m.store.SetActive(name)
		})

	case "n":
		name := ""
		return m, m.openForm(huh.NewInput().
			Title("New profile name").
			Value(&name), func() error {
			return m.store.CreateProfile(name)
		})

	case "e":
		name := active
		return m, m.openForm(huh.NewInput().
			Title("Rename "+active).
			Value(&name), func() error {
			return m.store.RenameProfile(active, name)
		})

	case "x":
		return m, m.confirm("Delete profile "+active+"?", func() error {
			return m.store.DeleteProfile(active)
		})
	}
	return m, nil
}

func kindOptions() []huh.Option[profile.ActionKind] {
	kinds := profile.Kinds()
	opts := make([]huh.Option[profile.ActionKind], len(kinds))
	for i, k := range kinds {
		opts[i] = huh.NewOption(string(k), k)
	}
	return opts
}

// openKindForm asks for the action of a freshly recorded combo, then arms
// capture.
func (m *Model) openKindForm(combo string) tea.Cmd {
	kind := profile.DefaultKind
	return m.openForm(huh.NewSelect[profile.ActionKind]().
		Title("Action for "+combo).
		Description("After choosing, click where the action should happen").
		Options(kindOptions()...).
		Value(&kind), func() error {
		if err := m.capture.Arm(combo, kind); err != nil {
			return err
		}
		m.armed, m.armedKey = true, combo
		return nil
	})
}

func (m *Model) confirm(title string, fn func() error) tea.Cmd {
	ok := false
	return m.openForm(huh.NewConfirm().
		Title(title).
		Affirmative("Yes").
		Negative("No").
		Value(&ok), func() error {
		if !ok {
			return nil
		}
		return fn()
	})
}

func (m *Model) openForm(field huh.Field, onSubmit func() error) tea.Cmd {
	m.form = huh.NewForm(huh.NewGroup(field)).
		WithTheme(customTheme()).
		WithShowHelp(false)
	m.onSubmit = onSubmit
	m.mode = modeForm
	return m.form.Init()
}

func (m *Model) closeForm() {
	m.form = nil
	m.onSubmit = nil
	m.mode = modeBrowse
}

func (m *Model) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok && k.String() == "esc" {
		m.closeForm()
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		submit := m.onSubmit
		m.closeForm()
		if submit != nil {
			if err := submit(); err != nil {
				m.fail(err)
			}
		}
		m.refresh()
		return m, nil
	case huh.StateAborted:
		m.closeForm()
		return m, nil
	}
	return m, cmd
}

func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("AutoKeybind"))
	b.WriteString("\n")
	b.WriteString(StatusBarStyle.Render("Active Profile: " + m.store.Active()))
	b.WriteString("\n\n")

	switch m.mode {
	case modeForm:
		b.WriteString(m.form.View())
		b.WriteString("\n")
		b.WriteString(Muted("enter confirm • esc cancel"))
		return b.String()
	case modeError:
		b.WriteString(ErrorBoxStyle.Render(Error(m.errMsg) + "\n\n" + Muted("press enter to continue")))
		return b.String()
	}

	b.WriteString(BoxStyle.Render(m.bindingList()))
	b.WriteString("\n")

	switch {
	case m.mode == modeRecording:
		b.WriteString(WarningStyle.Render("Recording: press the key combination, then release it (esc to cancel)"))
		if combo := m.rec.Combo(); combo != "" {
			b.WriteString("  " + ComboStyle.Render(combo))
		}
	case m.armed:
		b.WriteString(WarningStyle.Render(fmt.Sprintf("Click where %s should act (esc to cancel)", ComboStyle.Render(m.armedKey))))
	case m.status != "":
		b.WriteString(m.status)
	}
	b.WriteString("\n\n")
	b.WriteString(m.help())
	return b.String()
}

func (m *Model) bindingList() string {
	if len(m.keys) == 0 {
		return Muted("No bindings yet. Press a to add one.")
	}

	width := 0
	for _, k := range m.keys {
		if w := lipgloss.Width(k); w > width {
			width = w
		}
	}

	lines := make([]string, len(m.keys))
	for i, k := range m.keys {
		b := m.binds[k]
		cursor := "  "
		combo := ComboStyle.Render(fmt.Sprintf("%-*s", width, k))
		if i == m.cursor {
			cursor = SelectedStyle.Render("> ")
		}
		lines[i] = fmt.Sprintf("%s%s  %-24s %s", cursor, combo, b.Kind, Muted(b.Coords.String()))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) help() string {
	add := "a add"
	if m.armed {
		add = MutedStyle.Strikethrough(true).Render("a add")
	}
	return Muted(strings.Join([]string{
		add, "u move", "t action", "d delete", "r reset",
		"p switch", "n new", "e rename", "x delete profile", "q quit",
	}, " • "))
}
