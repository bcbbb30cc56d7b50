package ui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nconklindev/treegrid/internal/converter"
	"github.com/nconklindev/treegrid/internal/types"
)

type state int

const (
	stateFilePicker state = iota
	stateReview
	stateProcessing
	stateComplete
	stateError
)

// Output extensions offered for each direction.
var (
	treeOutputs  = []string{".json", ".yaml"}
	tableOutputs = []string{".xlsx", ".csv", ".tsv"}
)

const (
	previewCellWidth = 16
	visiblePaths     = 10
)

type Model struct {
	state        state
	opts         converter.Options
	filepicker   filepicker.Model
	selectedFile string
	fileData     *types.FileData
	outputIndex  int
	cursor       int
	result       *types.ConversionResult
	err          error
	width        int
	height       int
	progress     progress.Model
	progressChan chan float64
	resultChan   chan conversionResultMsg
}

type conversionResultMsg struct {
	result *types.ConversionResult
	err    error
}

type fileLoadedMsg struct {
	data *types.FileData
	err  error
}

type conversionCompleteMsg struct {
	result *types.ConversionResult
	err    error
}

type progressMsg float64

type waitForProgressMsg struct{}

// InitialModel starts in the file picker with the given conversion options.
func InitialModel(opts converter.Options) Model {
	fp := filepicker.New()
	fp.AllowedTypes = []string{".csv", ".tsv", ".txt", ".xlsx", ".xlsm", ".json", ".yaml", ".yml"}
	fp.CurrentDirectory, _ = os.Getwd()

	fp.Styles.Cursor = lipgloss.NewStyle().Foreground(accent)
	fp.Styles.Symlink = lipgloss.NewStyle().Foreground(warm)
	fp.Styles.Directory = lipgloss.NewStyle().Foreground(warm)
	fp.Styles.File = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF"))
	fp.Styles.Permission = lipgloss.NewStyle().Foreground(muted)
	fp.Styles.Selected = lipgloss.NewStyle().Foreground(accent).Bold(true)
	fp.Styles.FileSize = lipgloss.NewStyle().Foreground(muted)

	return Model{
		state:      stateFilePicker,
		opts:       opts,
		filepicker: fp,
		progress:   progress.New(progress.WithGradient("#2EC4B6", "#CBF3F0")),
	}
}

func (m Model) Init() tea.Cmd {
	return m.filepicker.Init()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		height := msg.Height - 14
		if height < 5 {
			height = 5
		}
		m.filepicker.SetHeight(height)
		m.progress.Width = min(60, max(20, msg.Width-12))
		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case stateFilePicker:
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			}

		case stateReview:
			return m.updateReview(msg)

		case stateComplete, stateError:
			switch msg.String() {
			case "ctrl+c", "q", "enter", "esc":
				return m, tea.Quit
			}
		}

	case fileLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.state = stateError
			return m, nil
		}
		m.fileData = msg.data
		m.cursor = 0
		m.outputIndex = 0
		m.state = stateReview
		return m, nil

	case conversionCompleteMsg:
		if msg.err != nil {
			m.err = msg.err
			m.state = stateError
			return m, nil
		}
		m.result = msg.result
		m.state = stateComplete
		return m, nil

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		return m, cmd

	case progressMsg:
		if m.state == stateProcessing {
			cmd := m.progress.SetPercent(float64(msg))
			return m, tea.Batch(cmd, waitForProgress(m.progressChan, m.resultChan))
		}
		return m, nil

	case waitForProgressMsg:
		return m, waitForProgress(m.progressChan, m.resultChan)
	}

	if m.state == stateFilePicker {
		var cmd tea.Cmd
		m.filepicker, cmd = m.filepicker.Update(msg)

		if didSelect, path := m.filepicker.DidSelectFile(msg); didSelect {
			m.selectedFile = path
			return m, m.loadFile(path)
		}
		return m, cmd
	}

	return m, nil
}

func (m Model) updateReview(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "esc":
		m.state = stateFilePicker
		m.fileData = nil
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.fileData.ColumnPaths)-1 {
			m.cursor++
		}
	case "f":
		m.outputIndex = (m.outputIndex + 1) % len(m.outputs())
	case "m":
		if !m.fileData.Table {
			m.opts.Layout.MergeHeaders = !m.opts.Layout.MergeHeaders
		}
	case "s":
		if !m.fileData.Table {
			m.opts.Separate = !m.opts.Separate
		}
	case "enter":
		m.state = stateProcessing
		return m.convertFile()
	}
	return m, nil
}

func (m Model) outputs() []string {
	if m.fileData != nil && m.fileData.Table {
		return treeOutputs
	}
	return tableOutputs
}

// outputFile names the conversion target next to the selected file.
func (m Model) outputFile() string {
	base := strings.TrimSuffix(m.selectedFile, filepath.Ext(m.selectedFile))
	return base + m.outputs()[m.outputIndex]
}

func (m Model) loadFile(path string) tea.Cmd {
	opts := m.opts
	return func() tea.Msg {
		data, err := converter.Inspect(path, opts)
		return fileLoadedMsg{data: data, err: err}
	}
}

func (m Model) convertFile() (Model, tea.Cmd) {
	m.progressChan = make(chan float64, 100)
	m.resultChan = make(chan conversionResultMsg, 1)

	progressChan := m.progressChan
	resultChan := m.resultChan
	inputFile := m.selectedFile
	outputFile := m.outputFile()
	opts := m.opts

	cmd := tea.Batch(
		func() tea.Msg {
			go func() {
				result, err := converter.Convert(inputFile, outputFile, opts, progressChan)
				resultChan <- conversionResultMsg{result: result, err: err}
				close(progressChan)
				close(resultChan)
			}()
			return waitForProgressMsg{}
		},
		m.progress.Init(),
	)

	return m, cmd
}

func waitForProgress(progressChan chan float64, resultChan chan conversionResultMsg) tea.Cmd {
	return func() tea.Msg {
		if progressChan == nil {
			return nil
		}

		p, ok := <-progressChan
		if !ok {
			res, ok := <-resultChan
			if ok {
				return conversionCompleteMsg(res)
			}
			return nil
		}
		return progressMsg(p)
	}
}

func (m Model) View() string {
	switch m.state {
	case stateFilePicker:
		return m.viewFilePicker()
	case stateReview:
		return m.viewReview()
	case stateProcessing:
		return m.viewProcessing()
	case stateComplete:
		return m.viewComplete()
	case stateError:
		return m.viewError()
	}
	return ""
}

func (m Model) viewFilePicker() string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render("treegrid"))
	s.WriteString("\n")
	s.WriteString(SubtitleStyle.Render("Pick a table (CSV, TSV, XLSX) or a tree (JSON, YAML) to convert"))
	s.WriteString("\n\n")
	s.WriteString(m.filepicker.View())
	s.WriteString("\n\n")
	s.WriteString(HelpStyle.Render("Press q to quit"))

	return s.String()
}

func (m Model) viewReview() string {
	var s strings.Builder

	direction := "tree → table"
	if m.fileData.Table {
		direction = "table → tree"
	}
	s.WriteString(TitleStyle.Render("Review " + direction))
	s.WriteString("\n")
	s.WriteString(SubtitleStyle.Render(fmt.Sprintf("File: %s • %d header row(s) • %d data row(s)",
		filepath.Base(m.selectedFile), m.fileData.HeaderRows, m.fileData.DataRows)))
	s.WriteString("\n")

	if len(m.fileData.Preview) > 0 {
		s.WriteString(PreviewStyle.Render(strings.TrimRight(m.fileData.Preview.Preview(0, previewCellWidth), "\n")))
		s.WriteString("\n\n")
	}

	s.WriteString(fmt.Sprintf("Columns (%d):\n", len(m.fileData.ColumnPaths)))
	start := 0
	if m.cursor >= visiblePaths {
		start = m.cursor - visiblePaths + 1
	}
	end := min(len(m.fileData.ColumnPaths), start+visiblePaths)
	for i := start; i < end; i++ {
		line := "  " + m.fileData.ColumnPaths[i]
		if i == m.cursor {
			line = SelectedStyle.Render("> " + m.fileData.ColumnPaths[i])
		} else {
			line = PathStyle.Render(line)
		}
		s.WriteString(line)
		s.WriteString("\n")
	}
	s.WriteString("\n")

	s.WriteString(OptionStyle.Render(fmt.Sprintf("Output: %s", filepath.Base(m.outputFile()))))
	s.WriteString("\n")
	help := "↑/↓: scroll • f: output format • enter: convert • esc: back • q: quit"
	if !m.fileData.Table {
		s.WriteString(OptionStyle.Render(fmt.Sprintf("Merge headers: %s  Separate cells: %s",
			checkbox(m.opts.Layout.MergeHeaders), checkbox(m.opts.Separate))))
		s.WriteString("\n")
		help = "↑/↓: scroll • f: output format • m: merge headers • s: separate cells • enter: convert • esc: back • q: quit"
	}
	s.WriteString(HelpStyle.Render(help))

	return BoxStyle.Render(s.String())
}

func checkbox(on bool) string {
	if on {
		return "[x]"
	}
	return "[ ]"
}

func (m Model) viewProcessing() string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render("Converting..."))
	s.WriteString("\n\n")
	s.WriteString(fmt.Sprintf("%s → %s", filepath.Base(m.selectedFile), filepath.Base(m.outputFile())))
	s.WriteString("\n\n")
	s.WriteString(m.progress.View())

	return BoxStyle.Render(s.String())
}

func (m Model) viewComplete() string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render("✓ Conversion Complete!"))
	s.WriteString("\n\n")

	maxPathLen := m.width - 20
	if maxPathLen < 30 {
		maxPathLen = 30
	}

	s.WriteString(fmt.Sprintf("Input:  %s\n", shorten(m.result.InputFile, maxPathLen)))
	s.WriteString(SuccessStyle.Render(fmt.Sprintf("Output: %s", shorten(m.result.OutputFile, maxPathLen))))
	s.WriteString("\n\n")
	s.WriteString(fmt.Sprintf("Columns: %d\n", len(m.result.ColumnsFound)))
	s.WriteString(fmt.Sprintf("Data rows: %d\n", m.result.RowsProcessed))
	if m.result.Warnings > 0 {
		s.WriteString(WarningStyle.Render(fmt.Sprintf("Warnings: %d (see log)", m.result.Warnings)))
		s.WriteString("\n")
	}
	s.WriteString(HelpStyle.Render("Press any key to exit"))

	return BoxStyle.Render(s.String())
}

func shorten(path string, maxLen int) string {
	if len(path) > maxLen {
		return "..." + path[len(path)-maxLen+3:]
	}
	return path
}

func (m Model) viewError() string {
	var s strings.Builder

	s.WriteString(ErrorStyle.Render("✗ Error"))
	s.WriteString("\n\n")
	s.WriteString(m.err.Error())
	s.WriteString("\n\n")
	s.WriteString(HelpStyle.Render("Press any key to exit"))

	return BoxStyle.Render(s.String())
}
