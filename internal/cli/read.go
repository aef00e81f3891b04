package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mrlokans/reader/internal/config"
	"github.com/mrlokans/reader/internal/dictionary"
	"github.com/mrlokans/reader/internal/gateway"
	"github.com/mrlokans/reader/internal/history"
	"github.com/mrlokans/reader/internal/notify"
	"github.com/mrlokans/reader/internal/preferences"
	"github.com/mrlokans/reader/internal/renderer/paged"
	"github.com/mrlokans/reader/internal/session"
)

// ReadCommand opens a plain-text book in an interactive reading session
type ReadCommand struct {
	DocumentID       string
	BookPath         string
	ServerURL        string
	PreferencesPath  string
	PreferencesStore string
	NoDictionary     bool
	NoFontControl    bool

	In  io.Reader
	Out io.Writer

	// Config is loaded from the environment when nil
	Config *config.Config
}

// NewReadCommand creates a new ReadCommand
func NewReadCommand() *ReadCommand {
	return &ReadCommand{In: os.Stdin, Out: os.Stdout}
}

// ParseFlags parses command line flags
func (cmd *ReadCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("read", flag.ExitOnError)

	fs.StringVar(&cmd.DocumentID, "id", "", "Document ID used to sync the reading position (sync is disabled if empty)")
	fs.StringVar(&cmd.BookPath, "book", "", "Path to a plain-text book; lines starting with '# ' start a chapter")
	fs.StringVar(&cmd.ServerURL, "server", "", "History server base URL (overrides HISTORY_BASE_URL)")
	fs.StringVar(&cmd.PreferencesPath, "prefs", "", "Path to the preferences database (overrides PREFERENCES_PATH)")
	fs.StringVar(&cmd.PreferencesStore, "prefs-backend", "", "Preferences backend: sqlite or bolt (overrides PREFERENCES_BACKEND)")
	fs.BoolVar(&cmd.NoDictionary, "no-dictionary", false, "Disable dictionary lookups")
	fs.BoolVar(&cmd.NoFontControl, "no-font", false, "Disable font size control")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s read -book <file> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Read a book page by page. The reading position is restored from and\n")
		fmt.Fprintf(os.Stderr, "saved to the history server when -id is given.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nType 'help' inside the session for the list of commands.\n")
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.BookPath == "" {
		return errors.New("-book is required")
	}
	return nil
}

// reader is the state of one interactive session.
type reader struct {
	out      io.Writer
	ctrl     *session.Controller
	renderer *paged.Renderer
	store    *history.Store
	notifier *notify.LogNotifier
	columns  int
	rows     int
}

// Run executes the read command
func (cmd *ReadCommand) Run() error {
	cfg := cmd.Config
	if cfg == nil {
		cfg = config.NewConfig()
	}
	cmd.applyOverrides(cfg)

	f, err := os.Open(cmd.BookPath)
	if err != nil {
		return fmt.Errorf("failed to open book: %w", err)
	}
	book, err := paged.ParseText(titleFromPath(cmd.BookPath), f)
	f.Close()
	if err != nil {
		return fmt.Errorf("failed to parse book: %w", err)
	}

	prefStore, err := preferences.Open(preferences.Backend(cfg.Preferences.Backend), cfg.Preferences.Path)
	if err != nil {
		return fmt.Errorf("failed to open preferences: %w", err)
	}
	defer prefStore.Close()

	var dict dictionary.Client
	if cfg.Reader.EnableDictionary {
		dict, err = dictionary.NewClient(cfg.Dictionary.Provider, cfg.Dictionary.URL)
		if err != nil {
			return fmt.Errorf("failed to create dictionary client: %w", err)
		}
	}

	notifier := notify.NewLogNotifier()
	store, err := newStore(cfg, cmd.DocumentID, notifier)
	if err != nil {
		return err
	}

	r := &reader{
		out:      cmd.Out,
		renderer: paged.New(book),
		store:    store,
		notifier: notifier,
		columns:  paged.DefaultColumns,
		rows:     paged.DefaultRows,
	}
	r.ctrl = session.New(r.renderer, store, session.Options{
		EnableDictionary:  cfg.Reader.EnableDictionary,
		EnableFontControl: cfg.Reader.EnableFontControl,
		Preferences:       preferences.New(prefStore),
		Dictionary:        dict,
		Notifier:          notifier,
		ResizeQuiet:       cfg.Reader.ResizeQuiet,
		FontInputWait:     cfg.Reader.FontDebounce,
		LookupWait:        cfg.Reader.LookupDebounce,
		OnLookup:          r.printDefinition,
	})
	r.renderer.SetListener(r.ctrl)
	defer r.ctrl.Close()

	fmt.Fprintf(cmd.Out, "📖 %s\n", book.Title)
	if store == nil {
		fmt.Fprintln(cmd.Out, "ℹ️  Position sync disabled (no -id)")
	}

	if err := r.ctrl.Start(context.Background()); err != nil {
		return fmt.Errorf("failed to open book: %w", err)
	}
	r.printPage()

	return r.loop(cmd.In)
}

func (cmd *ReadCommand) applyOverrides(cfg *config.Config) {
	if cmd.ServerURL != "" {
		cfg.History.BaseURL = cmd.ServerURL
	}
	if cmd.PreferencesPath != "" {
		cfg.Preferences.Path = cmd.PreferencesPath
	}
	if cmd.PreferencesStore != "" {
		cfg.Preferences.Backend = cmd.PreferencesStore
	}
	if cmd.NoDictionary {
		cfg.Reader.EnableDictionary = false
	}
	if cmd.NoFontControl {
		cfg.Reader.EnableFontControl = false
	}
}

// newStore builds the position store for documentID from cfg. It returns a
// nil store when documentID is empty.
func newStore(cfg *config.Config, documentID string, notifier notify.Notifier) (*history.Store, error) {
	schedule, err := cfg.History.Schedule()
	if err != nil {
		return nil, err
	}

	var opts []gateway.Option
	if cfg.History.RequestTimeout > 0 {
		opts = append(opts, gateway.WithTimeout(cfg.History.RequestTimeout))
	}

	return history.New(documentID, gateway.New(cfg.History.BaseURL, opts...), notifier, history.Config{
		Schedule:          schedule,
		UpdateWait:        cfg.History.UpdateDebounce,
		LoadNoticeTimeout: cfg.Notice.Timeout,
	}), nil
}

func (r *reader) loop(in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(r.out, "> ")
		if !scanner.Scan() {
			break
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "q" || fields[0] == "quit" {
			break
		}
		if err := r.exec(fields[0], fields[1:]); err != nil {
			fmt.Fprintf(r.out, "❌ %v\n", err)
		}
	}
	return scanner.Err()
}

func (r *reader) exec(name string, args []string) error {
	switch name {
	case "n", "next":
		return r.turn(r.ctrl.Next())
	case "p", "prev":
		return r.turn(r.ctrl.Prev())
	case "left":
		return r.turn(r.ctrl.HandleKey(session.KeyLeft))
	case "right":
		return r.turn(r.ctrl.HandleKey(session.KeyRight))
	case "click":
		x, y, err := twoInts(args)
		if err != nil {
			return err
		}
		if err := r.ctrl.HandleClick(float64(x), float64(y), float64(r.columns), float64(r.rows)); err != nil {
			return err
		}
		r.printPage()
	case "toc":
		current := r.ctrl.CurrentChapter()
		for i, ch := range r.ctrl.Chapters() {
			marker := " "
			if ch.Href == current {
				marker = "*"
			}
			fmt.Fprintf(r.out, "%s %d. %s\n", marker, i+1, ch.Label)
		}
	case "goto":
		chapters := r.ctrl.Chapters()
		n, err := oneInt(args)
		if err != nil {
			return err
		}
		if n < 1 || n > len(chapters) {
			return fmt.Errorf("no chapter %d", n)
		}
		return r.turn(r.ctrl.SelectChapter(chapters[n-1].Href))
	case "font":
		n, err := oneInt(args)
		if err != nil {
			return err
		}
		if err := r.ctrl.SetFontSize(n); err != nil {
			return err
		}
		r.printPage()
	case "zoom":
		return r.zoom(args)
	case "resize":
		cols, rows, err := twoInts(args)
		if err != nil {
			return err
		}
		if err := r.renderer.SetViewport(cols, rows); err != nil {
			return err
		}
		r.columns, r.rows = cols, rows
		fmt.Fprintln(r.out, "↔️  Resized; the page settles shortly")
	case "def":
		if len(args) == 0 {
			return errors.New("usage: def <text>")
		}
		r.ctrl.Select(strings.Join(args, " "))
	case "more":
		if !r.ctrl.Definitions().Next() {
			return errors.New("no more meanings")
		}
		r.printMeaning()
	case "back":
		if !r.ctrl.Definitions().Prev() {
			return errors.New("no previous meaning")
		}
		r.printMeaning()
	case "page":
		r.printPage()
	case "retry":
		if !r.notifier.Retry() {
			return errors.New("nothing to retry")
		}
		fmt.Fprintln(r.out, "🔄 Save requested")
	case "status":
		r.printStatus()
	case "help":
		printReadHelp(r.out)
	default:
		return fmt.Errorf("unknown command %q (try 'help')", name)
	}
	return nil
}

func (r *reader) turn(err error) error {
	if err != nil {
		return err
	}
	r.printPage()
	return nil
}

func (r *reader) zoom(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: zoom in|out [ticks]")
	}
	ticks := 1
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid ticks %q", args[1])
		}
		ticks = n
	}

	var (
		scale float64
		err   error
	)
	switch args[0] {
	case "in":
		scale, err = r.ctrl.ZoomIn(ticks)
	case "out":
		scale, err = r.ctrl.ZoomOut(ticks)
	default:
		return errors.New("usage: zoom in|out [ticks]")
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "🔍 Scale %.1f\n", scale)
	return nil
}

func (r *reader) printPage() {
	loc := r.renderer.Location()
	fmt.Fprintf(r.out, "\n[%s] page %d/%d\n%s\n\n", loc.Label, loc.Page, loc.Pages, r.renderer.Page())
}

func (r *reader) printDefinition(text string, pager *dictionary.Pager) {
	fmt.Fprintf(r.out, "\n📚 %s (%d meanings)\n", text, pager.Len())
	r.printMeaning()
}

func (r *reader) printMeaning() {
	p := r.ctrl.Definitions()
	if m, ok := p.Current(); ok {
		fmt.Fprintf(r.out, "  %d. %s\n", p.Index()+1, m.Text)
	}
}

func (r *reader) printStatus() {
	loc := r.renderer.Location()
	fmt.Fprintf(r.out, "Session:  %s (%s)\n", r.ctrl.ID(), r.ctrl.State())
	fmt.Fprintf(r.out, "Location: %s\n", loc.Position)
	if r.store == nil {
		fmt.Fprintln(r.out, "Sync:     disabled")
		return
	}
	version := "none"
	if v, ok := r.store.Version(); ok {
		version = strconv.FormatInt(v, 10)
	}
	fmt.Fprintf(r.out, "Stored:   %s (version %s, unsaved: %v)\n", r.store.CurrentPosition(), version, r.store.Dirty())
}

func printReadHelp(w io.Writer) {
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  n, next / p, prev     Turn the page")
	fmt.Fprintln(w, "  left / right          Arrow keys (respect right-to-left books)")
	fmt.Fprintln(w, "  click <x> <y>         Click in the viewport")
	fmt.Fprintln(w, "  toc / goto <n>        List chapters / jump to chapter n")
	fmt.Fprintln(w, "  font <50-200>         Set the font size in percent")
	fmt.Fprintln(w, "  zoom in|out [ticks]   Zoom the page")
	fmt.Fprintln(w, "  resize <cols> <rows>  Resize the viewport")
	fmt.Fprintln(w, "  def <text>            Look up a definition; more / back to page through it")
	fmt.Fprintln(w, "  page / status         Show the page / the session state")
	fmt.Fprintln(w, "  retry                 Retry a failed save now")
	fmt.Fprintln(w, "  q, quit               Leave (unsaved positions are not flushed)")
}

func oneInt(args []string) (int, error) {
	if len(args) != 1 {
		return 0, errors.New("expected one number")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", args[0])
	}
	return n, nil
}

func twoInts(args []string) (int, int, error) {
	if len(args) != 2 {
		return 0, 0, errors.New("expected two numbers")
	}
	a, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid number %q", args[0])
	}
	b, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid number %q", args[1])
	}
	return a, b, nil
}

func titleFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
