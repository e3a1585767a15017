// locsheet is a localization sheet manager: browse, edit and export
// .strings, .properties, .po, .arb and Android strings.xml translations.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/minios-linux/locsheet/config"
	"github.com/minios-linux/locsheet/exporter"
	"github.com/minios-linux/locsheet/i18n"
	"github.com/minios-linux/locsheet/index"
	"github.com/minios-linux/locsheet/langmeta"
	"github.com/minios-linux/locsheet/provider"
	"github.com/minios-linux/locsheet/session"
	"github.com/minios-linux/locsheet/store"
	"github.com/minios-linux/locsheet/watch"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Terminal styles. lipgloss drops the colors when stderr is not a terminal.
var (
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("4")).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, infoStyle.Render("[INFO]")+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, successStyle.Render("[OK]")+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, warningStyle.Render("[WARN]")+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, errorStyle.Render("[ERROR]")+" "+format+"\n", args...)
}

// ---------------------------------------------------------------------------
// Global flags
// ---------------------------------------------------------------------------

var (
	rootDir    string
	configPath string
	verbose    bool
	uiLang     string
)

// logger is handed to every library package. It discards until the root
// command's pre-run replaces it.
var logger = slog.New(slog.DiscardHandler)

func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := charmlog.WarnLevel
	if debug {
		level = charmlog.DebugLevel
	}
	h := charmlog.NewWithOptions(w, charmlog.Options{
		Level:           level,
		Prefix:          "locsheet",
		ReportTimestamp: debug,
		TimeFormat:      "15:04:05",
	})
	return slog.New(h)
}

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "locsheet",
		Short: i18n.T("Manage localization files and export them to a spreadsheet"),
		Long: i18n.T(`locsheet: localization sheet manager.

Scans a project for Apple .strings tables, Java .properties bundles,
gettext .po catalogs, Flutter .arb files and Android strings.xml
resources, groups them by file, and
lets you inspect coverage, edit keys and export every group to an .xlsx
workbook.

Commands:
  status      Show groups, languages and translation coverage
  list        List keys of a group, optionally filtered
  add         Add an untranslated key to every language of a group
  set         Set the value of a key in one language
  delete      Delete a key from every language of a group
  export      Export all groups to an .xlsx workbook
  watch       Report missing translations whenever files change`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if uiLang != "" {
				i18n.Init(uiLang)
			}
			logger = newLogger(os.Stderr, verbose)
		},
	}

	// Global persistent flags, inherited by all subcommands
	pf := root.PersistentFlags()
	pf.StringVar(&rootDir, "root", ".", i18n.T("Project root directory"))
	pf.StringVar(&configPath, "config", "", i18n.T("Config file (default: <root>/.locsheet.yaml)"))
	pf.BoolVarP(&verbose, "verbose", "v", false, i18n.T("Print debug logs"))
	pf.StringVar(&uiLang, "ui-lang", "", i18n.T("Language of locsheet's own messages"))

	root.AddCommand(
		newStatusCmd(),
		newListCmd(),
		newAddCmd(),
		newSetCmd(),
		newDeleteCmd(),
		newExportCmd(),
		newWatchCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	i18n.Init("")
	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// Project: config, provider and session wired together
// ---------------------------------------------------------------------------

type project struct {
	cfg     *config.File
	root    string
	formats []provider.Format
	sess    *session.Session
	queue   *session.Queue
}

func openProject() (*project, error) {
	var (
		cfg *config.File
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadPath(configPath)
	} else {
		cfg, err = config.Load(rootDir)
	}
	if err != nil {
		return nil, err
	}

	root, err := cfg.ScanRoot(rootDir)
	if err != nil {
		return nil, fmt.Errorf("resolving root: %w", err)
	}
	formats, err := cfg.ProviderFormats()
	if err != nil {
		return nil, err
	}

	prov := provider.New(provider.WithFormats(formats...), provider.WithLogger(logger))
	sess := session.New(prov,
		session.WithLogger(logger),
		session.WithBaseLanguage(cfg.BaseLanguage),
		session.WithPreferredGroup(cfg.PreferredGroup),
		session.WithExportOptions(cfg.ExportOptions()),
	)
	return &project{
		cfg:     cfg,
		root:    root,
		formats: formats,
		sess:    sess,
		queue:   session.NewQueue(4),
	}, nil
}

// load scans the project and waits for the session to install the result.
func (p *project) load(ctx context.Context) (session.LoadResult, error) {
	var res session.LoadResult
	p.sess.Load(ctx, p.root, p.queue, func(r session.LoadResult) { res = r })
	if err := p.queue.Next(ctx); err != nil {
		return session.LoadResult{}, err
	}
	if res.Err != nil {
		return res, fmt.Errorf("scanning %s: %w", p.root, res.Err)
	}
	if res.Empty() {
		return res, fmt.Errorf("%s: %w", p.root, store.ErrEmptyDataset)
	}
	return res, nil
}

// selectGroup switches to group, or keeps the group chosen by load when
// group is empty.
func (p *project) selectGroup(group string) error {
	if group == "" || group == p.sess.SelectedGroup() {
		return nil
	}
	_, err := p.sess.SelectGroupAndGetLanguages(group)
	return err
}

func (p *project) close() {
	p.sess.Close()
}

// openAndLoad is the common prologue of commands working on one group.
func openAndLoad(ctx context.Context, group string) (*project, error) {
	p, err := openProject()
	if err != nil {
		return nil, err
	}
	if _, err := p.load(ctx); err != nil {
		p.close()
		return nil, err
	}
	if err := p.selectGroup(group); err != nil {
		p.close()
		return nil, err
	}
	return p, nil
}

// optionalString returns a pointer to the flag's value when it was given.
func optionalString(flags *pflag.FlagSet, name string) *string {
	if !flags.Changed(name) {
		return nil
	}
	v, err := flags.GetString(name)
	if err != nil {
		return nil
	}
	return &v
}

func addGroupFlag(flags *pflag.FlagSet, group *string) {
	flags.StringVarP(group, "group", "g", "", i18n.T("Group to work on (default: the preferred group)"))
}

// ---------------------------------------------------------------------------
// version
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: i18n.T("Show version information"),
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "locsheet version %s\n", version)
			fmt.Fprintf(out, "  commit:    %s\n", commit)
			fmt.Fprintf(out, "  built:     %s\n", date)
			fmt.Fprintf(out, "  ui langs:  %s\n", strings.Join(append([]string{"en"}, i18n.Available()...), ", "))
		},
	}
}

// ---------------------------------------------------------------------------
// status
// ---------------------------------------------------------------------------

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: i18n.T("Show groups, languages and translation coverage"),
		Long: i18n.T(`Show the detected localization groups and, for each group, how many
keys every language translates. Does not modify any files.`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openAndLoad(cmd.Context(), "")
			if err != nil {
				return err
			}
			defer p.close()
			return runStatus(cmd.OutOrStdout(), p)
		},
	}
}

func runStatus(out io.Writer, p *project) error {
	cfgDesc := p.cfg.Path()
	if cfgDesc == "" {
		cfgDesc = i18n.T("none (defaults)")
	}
	names := make([]string, len(p.formats))
	for i, f := range p.formats {
		names[i] = f.Name
	}

	fmt.Fprintf(out, "\n%s\n", titleStyle.Render(i18n.T("Project")))
	fmt.Fprintln(out, strings.Repeat("─", 60))
	fmt.Fprintf(out, "  %-10s %s\n", i18n.T("Root:"), p.root)
	fmt.Fprintf(out, "  %-10s %s\n", i18n.T("Config:"), cfgDesc)
	fmt.Fprintf(out, "  %-10s %s\n", i18n.T("Formats:"), strings.Join(names, ", "))
	fmt.Fprintf(out, "  %-10s %d\n", i18n.T("Groups:"), len(p.sess.Groups()))

	selected := p.sess.SelectedGroup()
	for _, g := range p.sess.Groups() {
		if _, err := p.sess.SelectGroupAndGetLanguages(g.Name); err != nil {
			logWarning(i18n.T("Skipping %s: %v"), g.Name, err)
			continue
		}
		fmt.Fprintf(out, "\n%s\n", titleStyle.Render(g.Name))
		fmt.Fprintln(out, strings.Repeat("─", 60))
		printCoverage(out, p.sess.Coverage(), p.cfg.Export.DisplayLocale)
	}
	fmt.Fprintln(out)

	return p.selectGroup(selected)
}

func printCoverage(out io.Writer, stats []index.LanguageStats, displayLocale string) {
	width := 0
	titles := make([]string, len(stats))
	for i, s := range stats {
		titles[i] = langmeta.Title(s.Language, displayLocale)
		width = max(width, len([]rune(titles[i])))
	}
	for i, s := range stats {
		pad := strings.Repeat(" ", width-len([]rune(titles[i])))
		fmt.Fprintf(out, "  %s%s  %s  %d/%d\n", titles[i], pad, progressBar(s.Percent(), 20), s.Translated, s.Total)
	}
}

func progressBar(percent float64, width int) string {
	percent = math.Max(0, math.Min(100, percent))
	filled := int(math.Round(percent * float64(width) / 100))
	style := errorStyle
	switch {
	case percent >= 100:
		style = successStyle
	case percent >= 50:
		style = warningStyle
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return fmt.Sprintf("%s %3.0f%%", style.Render(bar), percent)
}

// ---------------------------------------------------------------------------
// list
// ---------------------------------------------------------------------------

type listArgs struct {
	group  string
	mode   index.Mode
	search string
}

func newListCmd() *cobra.Command {
	var a listArgs
	cmd := &cobra.Command{
		Use:   "list",
		Short: i18n.T("List keys of a group"),
		Long: i18n.T(`List the keys of a group with their value in every language.

--filter missing keeps keys some language lacks or leaves empty.
--search matches keys and values, ignoring case and diacritics.`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openAndLoad(cmd.Context(), a.group)
			if err != nil {
				return err
			}
			defer p.close()
			runList(cmd.OutOrStdout(), p.sess, a)
			return nil
		},
	}
	addGroupFlag(cmd.Flags(), &a.group)
	cmd.Flags().Var(&a.mode, "filter", i18n.T("Rows to show: all or missing"))
	cmd.Flags().StringVarP(&a.search, "search", "s", "", i18n.T("Only keys whose key or value contains this text"))
	return cmd
}

func runList(out io.Writer, sess *session.Session, a listArgs) {
	sess.Filter(a.mode, a.search)
	langs := sess.Languages()
	width := 0
	for _, l := range langs {
		width = max(width, len(l))
	}

	for row := range sess.RowCount() {
		key, _ := sess.Key(row)
		fmt.Fprintln(out, titleStyle.Render(key))
		if msg, ok := sess.Message(row); ok && msg != "" {
			fmt.Fprintf(out, "  %s\n", mutedStyle.Render("# "+msg))
		}
		slots, _ := sess.Slots(row)
		for i, slot := range slots {
			fmt.Fprintf(out, "  %-*s  %s\n", width, langs[i], cellText(slot))
		}
	}
	logInfo(i18n.N("%d key in %s", "%d keys in %s", sess.RowCount()), sess.RowCount(), sess.SelectedGroup())
}

func cellText(slot index.Slot) string {
	if slot.State != index.Present {
		return warningStyle.Render("<" + slot.State.String() + ">")
	}
	if slot.Entry.Value == "" {
		return warningStyle.Render(`""`)
	}
	return slot.Entry.Value
}

// ---------------------------------------------------------------------------
// add / set / delete
// ---------------------------------------------------------------------------

func newAddCmd() *cobra.Command {
	var group string
	cmd := &cobra.Command{
		Use:   "add KEY",
		Short: i18n.T("Add an untranslated key to every language of a group"),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openAndLoad(cmd.Context(), group)
			if err != nil {
				return err
			}
			defer p.close()

			key := args[0]
			if _, ok := p.sess.RowForKey(key); ok {
				return fmt.Errorf(i18n.T("key %q already exists in %s"), key, p.sess.SelectedGroup())
			}
			if err := p.sess.AddLocalizationKey(key, optionalString(cmd.Flags(), "message")); err != nil {
				return err
			}
			logSuccess(i18n.T("Added %q to %s (%s)"), key, p.sess.SelectedGroup(), strings.Join(p.sess.Languages(), ", "))
			return nil
		},
	}
	addGroupFlag(cmd.Flags(), &group)
	cmd.Flags().StringP("message", "m", "", i18n.T("Comment shown to translators"))
	return cmd
}

type setArgs struct {
	group string
	lang  string
	value string
}

func newSetCmd() *cobra.Command {
	var a setArgs
	cmd := &cobra.Command{
		Use:   "set KEY",
		Short: i18n.T("Set the value of a key in one language"),
		Long: i18n.T(`Set the value of KEY in the language given by --lang. The key is
created in that language when missing. --message replaces its comment.`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openAndLoad(cmd.Context(), a.group)
			if err != nil {
				return err
			}
			defer p.close()
			return runSet(p.sess, args[0], a, optionalString(cmd.Flags(), "message"))
		},
	}
	addGroupFlag(cmd.Flags(), &a.group)
	cmd.Flags().StringVarP(&a.lang, "lang", "l", "", i18n.T("Language to write"))
	cmd.Flags().StringVar(&a.value, "value", "", i18n.T("New value"))
	cmd.Flags().StringP("message", "m", "", i18n.T("Comment shown to translators"))
	_ = cmd.MarkFlagRequired("lang")
	return cmd
}

func runSet(sess *session.Session, key string, a setArgs, message *string) error {
	if !slices.Contains(sess.Languages(), a.lang) {
		return fmt.Errorf("language %q in %s: %w", a.lang, sess.SelectedGroup(), store.ErrNotFound)
	}
	if err := sess.UpdateLocalization(a.lang, key, a.value, message); err != nil {
		return err
	}
	logSuccess(i18n.T("Set %q in %s/%s"), key, sess.SelectedGroup(), a.lang)
	return nil
}

func newDeleteCmd() *cobra.Command {
	var group string
	cmd := &cobra.Command{
		Use:     "delete KEY",
		Aliases: []string{"rm"},
		Short:   i18n.T("Delete a key from every language of a group"),
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openAndLoad(cmd.Context(), group)
			if err != nil {
				return err
			}
			defer p.close()

			key := args[0]
			if _, ok := p.sess.RowForKey(key); !ok {
				return fmt.Errorf("key %q in %s: %w", key, p.sess.SelectedGroup(), store.ErrNotFound)
			}
			if err := p.sess.DeleteLocalization(key); err != nil {
				return err
			}
			logSuccess(i18n.T("Deleted %q from %s"), key, p.sess.SelectedGroup())
			return nil
		},
	}
	addGroupFlag(cmd.Flags(), &group)
	return cmd
}

// ---------------------------------------------------------------------------
// export
// ---------------------------------------------------------------------------

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export FILE.xlsx",
		Short: i18n.T("Export all groups to an .xlsx workbook"),
		Long: i18n.T(`Write one sheet per group. The first column holds the keys, the
remaining columns one language each, master language first.`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openAndLoad(cmd.Context(), "")
			if err != nil {
				return err
			}
			defer p.close()
			return runExport(cmd.Context(), p, args[0])
		},
	}
}

func runExport(ctx context.Context, p *project, dest string) error {
	if filepath.Ext(dest) == "" {
		dest += ".xlsx"
	}
	var exportErr error
	p.sess.Export(dest, p.queue, session.ExportHandler{
		Done: func(rep exporter.Report) {
			logSuccess(i18n.T("Exported %d sheets, %d rows to %s"), rep.Sheets, rep.Rows, rep.Path)
		},
		Failed: func(err error) { exportErr = err },
	})
	if err := p.queue.Next(ctx); err != nil {
		return err
	}
	return exportErr
}

// ---------------------------------------------------------------------------
// watch
// ---------------------------------------------------------------------------

func newWatchCmd() *cobra.Command {
	var (
		group    string
		debounce time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: i18n.T("Report missing translations whenever files change"),
		Long: i18n.T(`Load the project, print the missing translations of a group and
reload every time a localization file changes. Stop with Ctrl+C.`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			p, err := openAndLoad(ctx, group)
			if err != nil {
				return err
			}
			defer p.close()
			return runWatch(ctx, cmd.OutOrStdout(), p, debounce)
		},
	}
	addGroupFlag(cmd.Flags(), &group)
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, i18n.T("Wait this long for changes to settle"))
	return cmd
}

func runWatch(ctx context.Context, out io.Writer, p *project, debounce time.Duration) error {
	w, err := watch.New(p.root,
		watch.WithDebounce(debounce),
		watch.WithFilter(localizationFilter(p.root, p.formats)),
		watch.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	defer w.Close()

	printMissing(out, p.sess)
	logInfo(i18n.T("Watching %s"), p.root)

	reload := func() {
		p.sess.Load(ctx, p.root, p.queue, func(r session.LoadResult) {
			switch {
			case errors.Is(r.Err, context.Canceled):
			case r.Err != nil:
				logError(i18n.T("Reload failed: %v"), r.Err)
			case r.Empty():
				logWarning(i18n.T("No localization files left in %s"), p.root)
			default:
				printMissing(out, p.sess)
			}
		})
	}
	go func() {
		err := w.Run(ctx, func(paths []string) {
			for _, path := range paths {
				logger.Debug("changed", "path", path)
			}
			p.queue.Resume(reload)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logError(i18n.T("Watching stopped: %v"), err)
		}
	}()

	if err := p.queue.Run(ctx); !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// localizationFilter accepts paths a configured format recognises.
func localizationFilter(root string, formats []provider.Format) func(string) bool {
	return func(path string) bool {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return false
		}
		for _, f := range formats {
			if _, ok := f.Match(rel); ok {
				return true
			}
		}
		return false
	}
}

func printMissing(out io.Writer, sess *session.Session) {
	sess.Filter(index.Missing, "")
	fmt.Fprintf(out, "\n%s  %s\n", titleStyle.Render(sess.SelectedGroup()), mutedStyle.Render(time.Now().Format("15:04:05")))
	for _, s := range sess.Coverage() {
		if s.Missing == 0 {
			fmt.Fprintf(out, "  %-12s %s\n", s.Language, successStyle.Render(i18n.T("complete")))
			continue
		}
		fmt.Fprintf(out, "  %-12s %s\n", s.Language, warningStyle.Render(fmt.Sprintf(i18n.N("%d missing", "%d missing", s.Missing), s.Missing)))
	}
	for row := range sess.RowCount() {
		key, _ := sess.Key(row)
		fmt.Fprintf(out, "    %s\n", key)
	}
}
