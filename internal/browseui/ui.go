// Package browseui implements the interactive remote file browser using
// Bubble Tea. It drives the file operations facade over one session.
package browseui

import (
	"fmt"
	"path"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"connectix/internal/fileops"
	"connectix/internal/fsutil"
)

// state represents the current screen in the browser.
type state int

const (
	stateBrowse state = iota
	stateMkdir
	stateConfirmDelete
	statePreview
)

// Model holds all UI state for the file browser.
type Model struct {
	facade *fileops.Facade
	token  string
	host   string

	st  state
	err string
	cwd string

	entries []fileops.FileInfo
	lst     list.Model

	mkdirName textinput.Model

	previewPath string
	preview     string
}

// New constructs a browser model rooted at start.
func New(facade *fileops.Facade, token, host, start string) Model {
	lst := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	lst.Title = start

	name := textinput.New()
	name.Placeholder = "directory name"
	name.Prompt = "Name: "

	if start == "" {
		start = "/"
	}
	return Model{
		facade:    facade,
		token:     token,
		host:      host,
		st:        stateBrowse,
		cwd:       fsutil.CleanRemote(start),
		lst:       lst,
		mkdirName: name,
	}
}

// Init loads the starting directory.
func (m Model) Init() tea.Cmd {
	return listCmd(m.facade, m.token, m.cwd)
}

type errMsg string
type entriesMsg []fileops.FileInfo
type previewMsg string
type okMsg struct{}

// Update routes messages based on UI state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.lst.SetSize(msg.Width-4, msg.Height-6)
		return m, nil
	case errMsg:
		m.err = string(msg)
		return m, nil
	case entriesMsg:
		m.entries = []fileops.FileInfo(msg)
		items := make([]list.Item, 0, len(m.entries))
		for _, e := range m.entries {
			items = append(items, entryItem(e))
		}
		m.lst.SetItems(items)
		m.lst.Title = m.cwd
		m.err = ""
		return m, nil
	case previewMsg:
		m.preview = string(msg)
		m.st = statePreview
		m.err = ""
		return m, nil
	case okMsg:
		m.err = ""
		return m, listCmd(m.facade, m.token, m.cwd)
	}

	switch m.st {
	case stateBrowse:
		return m.updateBrowse(msg)
	case stateMkdir:
		return m.updateMkdir(msg)
	case stateConfirmDelete:
		return m.updateConfirmDelete(msg)
	case statePreview:
		if k, ok := msg.(tea.KeyMsg); ok {
			switch k.String() {
			case "esc", "q":
				m.st = stateBrowse
				return m, nil
			}
		}
		return m, nil
	default:
		return m, nil
	}
}

// updateBrowse handles input on the directory listing.
func (m Model) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.lst, cmd = m.lst.Update(msg)
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			return m, listCmd(m.facade, m.token, m.cwd)
		case "enter":
			e, ok := m.selected()
			if !ok {
				return m, nil
			}
			if e.Kind == fileops.KindDirectory {
				m.cwd = e.Path
				return m, listCmd(m.facade, m.token, m.cwd)
			}
			m.previewPath = e.Path
			return m, previewCmd(m.facade, m.token, e.Path)
		case "backspace", "left":
			if m.cwd != "/" {
				m.cwd = path.Dir(m.cwd)
				return m, listCmd(m.facade, m.token, m.cwd)
			}
			return m, nil
		case "n":
			m.st = stateMkdir
			m.err = ""
			m.mkdirName.SetValue("")
			m.mkdirName.Focus()
			return m, nil
		case "d":
			if _, ok := m.selected(); !ok {
				return m, nil
			}
			m.st = stateConfirmDelete
			m.err = ""
			return m, nil
		case "g":
			e, ok := m.selected()
			if !ok || e.Kind != fileops.KindFile {
				return m, nil
			}
			return m, downloadCmd(m.facade, m.token, e.Path, e.Name)
		}
	}
	return m, cmd
}

// updateMkdir handles input while naming a new directory.
func (m Model) updateMkdir(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "esc":
			m.st = stateBrowse
			return m, nil
		case "enter":
			name := strings.TrimSpace(m.mkdirName.Value())
			m.st = stateBrowse
			if name == "" {
				return m, nil
			}
			return m, mkdirCmd(m.facade, m.token, fsutil.JoinRemote(m.cwd, name))
		}
	}
	var cmd tea.Cmd
	m.mkdirName, cmd = m.mkdirName.Update(msg)
	return m, cmd
}

// updateConfirmDelete handles the delete confirmation prompt.
func (m Model) updateConfirmDelete(msg tea.Msg) (tea.Model, tea.Cmd) {
	e, ok := m.selected()
	if !ok {
		m.st = stateBrowse
		return m, nil
	}
	if k, keyOK := msg.(tea.KeyMsg); keyOK {
		switch k.String() {
		case "y":
			m.st = stateBrowse
			return m, deleteCmd(m.facade, m.token, e)
		case "n", "esc":
			m.st = stateBrowse
			return m, nil
		}
	}
	return m, nil
}

// View renders the current screen as a string.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString("connectix browse")
	if m.host != "" {
		b.WriteString(" (" + m.host + ")")
	}
	b.WriteString("\n\n")

	switch m.st {
	case stateBrowse:
		b.WriteString(m.lst.View())
		b.WriteString("\n")
		b.WriteString("Keys: enter=open backspace=up n=mkdir d=delete g=download r=refresh q=quit\n")
	case stateMkdir:
		b.WriteString("Create directory in " + m.cwd + "\n\n")
		b.WriteString(m.mkdirName.View())
		b.WriteString("\n\nEnter=create  esc=back\n")
	case stateConfirmDelete:
		e, _ := m.selected()
		b.WriteString(fmt.Sprintf("Delete %s %q? (y/n)\n", e.Kind, e.Path))
	case statePreview:
		b.WriteString(m.previewPath + "\n\n")
		b.WriteString(m.preview)
		b.WriteString("\n\nesc=back\n")
	}

	if m.err != "" {
		b.WriteString("\nError: " + m.err + "\n")
	}
	return b.String()
}

type entryItem fileops.FileInfo

func (e entryItem) Title() string { return e.Name }
func (e entryItem) Description() string {
	if e.Kind == fileops.KindDirectory {
		return fmt.Sprintf("%s %s", e.Permissions, string(e.Kind))
	}
	return fmt.Sprintf("%s %s %s", e.Permissions, fsutil.FormatSize(e.Size), e.MIME)
}
func (e entryItem) FilterValue() string { return e.Name }

// selected returns the currently highlighted entry.
func (m *Model) selected() (fileops.FileInfo, bool) {
	if m.lst.SelectedItem() == nil {
		return fileops.FileInfo{}, false
	}
	if it, ok := m.lst.SelectedItem().(entryItem); ok {
		return fileops.FileInfo(it), true
	}
	return fileops.FileInfo{}, false
}

func listCmd(f *fileops.Facade, token, dir string) tea.Cmd {
	return func() tea.Msg {
		entries, err := f.List(token, dir)
		if err != nil {
			return errMsg(err.Error())
		}
		return entriesMsg(entries)
	}
}

// previewBytes caps how much of a file the preview screen loads.
const previewBytes = 4 << 10

func previewCmd(f *fileops.Facade, token, p string) tea.Cmd {
	return func() tea.Msg {
		text, err := f.ReadText(token, p)
		if err != nil {
			return errMsg(err.Error())
		}
		if len(text) > previewBytes {
			text = text[:previewBytes] + "\n... (truncated)"
		}
		return previewMsg(text)
	}
}

func mkdirCmd(f *fileops.Facade, token, p string) tea.Cmd {
	return func() tea.Msg {
		if err := f.Mkdir(token, p); err != nil {
			return errMsg(err.Error())
		}
		return okMsg{}
	}
}

func deleteCmd(f *fileops.Facade, token string, e fileops.FileInfo) tea.Cmd {
	return func() tea.Msg {
		if err := f.Delete(token, e.Path); err != nil {
			return errMsg(err.Error())
		}
		return okMsg{}
	}
}

func downloadCmd(f *fileops.Facade, token, remote, local string) tea.Cmd {
	return func() tea.Msg {
		if _, err := f.Download(token, remote, local); err != nil {
			return errMsg(err.Error())
		}
		return okMsg{}
	}
}
