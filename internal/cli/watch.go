package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/pikchr/pkg/errors"
	"github.com/matzehuels/pikchr/pkg/pikchr"
	"github.com/matzehuels/pikchr/pkg/pipeline"
)

const defaultPollInterval = 500 * time.Millisecond

// watchCommand creates the watch command.
func (c *CLI) watchCommand() *cobra.Command {
	var (
		output   string
		interval time.Duration
		noCache  bool
		opts     renderOpts
	)

	cmd := &cobra.Command{
		Use:   "watch FILE",
		Short: "Re-render a pikchr file to SVG whenever it changes",
		Long: `Watch FILE and re-render it to SVG every time its modification time
changes. The latest status, diagram size and any error are shown until
q or ctrl+c is pressed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			popts, err := opts.pipelineOptions(cmd, cfg)
			if err != nil {
				return err
			}
			popts.Formats = []string{errors.FormatSVG}

			if output == "" {
				output = basePath("", args[0]) + "." + errors.FormatSVG
			}

			runner, err := c.newRunner(cmd.Context(), cfg, noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			m := newWatchModel(cmd.Context(), runner, args[0], output, popts, interval)
			p := tea.NewProgram(m, tea.WithContext(cmd.Context()), tea.WithOutput(uiOut))
			_, err = p.Run()
			return err
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output SVG file (default FILE with .svg extension)")
	cmd.Flags().DurationVar(&interval, "interval", defaultPollInterval, "how often to check the file for changes")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the artifact cache")
	cmd.Flags().BoolVar(&opts.dark, "dark", false, "use the dark-mode color scheme")
	cmd.Flags().StringVar(&opts.class, "class", "", "CSS class added to the <svg> element")

	return cmd
}

// =============================================================================
// watchModel - bubbletea model
// =============================================================================

// tickMsg asks the model to poll the input file.
type tickMsg time.Time

// renderedMsg carries the outcome of one render.
type renderedMsg struct {
	modTime  time.Time
	result   *pipeline.Result
	err      error
	duration time.Duration
}

// watchModel polls a file's modification time and re-renders on change.
type watchModel struct {
	ctx      context.Context
	runner   *pipeline.Runner
	input    string
	output   string
	opts     pipeline.Options
	interval time.Duration

	modTime   time.Time
	statErr   error
	rendering bool
	renders   int
	result    *pipeline.Result
	err       error
	duration  time.Duration
	updated   time.Time
}

func newWatchModel(ctx context.Context, runner *pipeline.Runner, input, output string, opts pipeline.Options, interval time.Duration) watchModel {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return watchModel{
		ctx:      ctx,
		runner:   runner,
		input:    input,
		output:   output,
		opts:     opts,
		interval: interval,
	}
}

func (m watchModel) Init() tea.Cmd {
	return m.tick(0)
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "r":
			// Forget the last modification time so the next poll renders.
			m.modTime = time.Time{}
		}

	case tickMsg:
		if m.rendering {
			return m, nil
		}
		info, err := os.Stat(m.input)
		if err != nil {
			m.statErr = err
			return m, m.tick(m.interval)
		}
		m.statErr = nil
		if m.renders > 0 && info.ModTime().Equal(m.modTime) {
			return m, m.tick(m.interval)
		}
		m.rendering = true
		return m, m.render(info.ModTime())

	case renderedMsg:
		m.rendering = false
		m.renders++
		m.modTime = msg.modTime
		m.err = msg.err
		m.duration = msg.duration
		m.updated = time.Now()
		if msg.err == nil {
			m.result = msg.result
		}
		return m, m.tick(m.interval)
	}
	return m, nil
}

func (m watchModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Watching " + m.input))
	b.WriteString("\n")
	b.WriteString(StyleDim.Render("r re-render  q quit"))
	b.WriteString("\n\n")

	switch err := m.currentErr(); {
	case err != nil:
		b.WriteString(styleIconError.Render(iconError) + " " + StyleError.Render(strings.TrimRight(errors.UserMessage(err), "\n")))
	case m.result == nil:
		b.WriteString(StyleDim.Render("rendering..."))
	default:
		b.WriteString(styleIconSuccess.Render(iconSuccess) + " " + StyleValue.Render(m.output))
		b.WriteString("\n  " + statsLine(m.result.Width, m.result.Height, m.result.CacheHit))
	}
	b.WriteString("\n")

	if m.renders > 0 {
		b.WriteString(StyleDim.Render(fmt.Sprintf("\n%d renders · last %s at %s",
			m.renders, m.duration.Round(time.Millisecond), m.updated.Format("15:04:05"))))
		b.WriteString("\n")
	}
	return b.String()
}

// currentErr is the error to display: a failed stat outranks the last render.
func (m watchModel) currentErr() error {
	if m.statErr != nil {
		return m.statErr
	}
	return m.err
}

// tick schedules the next poll.
func (m watchModel) tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// render reads the input, runs it through the pipeline and writes the SVG.
func (m watchModel) render(modTime time.Time) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		data, err := os.ReadFile(m.input)
		if err != nil {
			return renderedMsg{modTime: modTime, err: err, duration: time.Since(start)}
		}
		res, err := m.runner.Execute(m.ctx, pikchr.DecodeSource(data), m.opts)
		if err == nil {
			err = writeArtifact(m.output, res.Artifacts[errors.FormatSVG])
		}
		return renderedMsg{modTime: modTime, result: res, err: err, duration: time.Since(start)}
	}
}
