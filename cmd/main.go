// AutoKeybind - binds key combinations to mouse actions at recorded screen
// positions.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"autokeybind/internal/action"
	"autokeybind/internal/autostart"
	"autokeybind/internal/capture"
	"autokeybind/internal/config"
	"autokeybind/internal/hotkey"
	"autokeybind/internal/input"
	"autokeybind/internal/keys"
	"autokeybind/internal/osutils"
	"autokeybind/internal/profile"
	"autokeybind/internal/tray"
	"autokeybind/internal/ui"
)

var (
	version      = "0.1.0"
	showVer      = flag.Bool("version", false, "Show version")
	cfgPath      = flag.String("config", "", "Path to the settings file")
	profilesPath = flag.String("profiles", "", "Path to the profiles file (overrides settings)")
	headless     = flag.Bool("headless", false, "Run without the terminal UI")
	listBinds    = flag.Bool("list", false, "List profiles and bindings")
	autoStart    = flag.String("autostart", "", "Start on login: on or off")
	bindCombo    = flag.String("bind", "", "Bind a key combination (e.g. ctrl+a) and exit; needs -at")
	bindAt       = flag.String("at", "", "Screen coordinate for -bind as x,y")
	bindKind     = flag.String("kind", string(profile.DefaultKind), "Action kind for -bind")
	unbindCombo  = flag.String("unbind", "", "Remove a key binding and exit")
	profileName  = flag.String("profile", "", "Profile for -bind/-unbind (default: active)")
)

var logLevel = new(slog.LevelVar)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Printf("autokeybind version %s\n", version)
		return
	}

	oneShot := *listBinds || *autoStart != "" || *bindCombo != "" || *unbindCombo != ""
	withUI := !*headless && !oneShot &&
		term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))

	// Initialize config
	cfgMgr, err := config.NewManager(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize config: %v\n", err)
		os.Exit(1)
	}
	logFile := setupLogging(filepath.Dir(cfgMgr.Path()), withUI)
	if logFile != nil {
		defer logFile.Close()
	}
	if err := cfgMgr.Load(); err != nil {
		slog.Warn("[main] failed to load settings, using defaults", "error", err)
	}
	applyLogLevel(cfgMgr.Get())

	// Handle --autostart flag
	if *autoStart != "" {
		if err := handleAutostart(cfgMgr, *autoStart); err != nil {
			fmt.Fprintf(os.Stderr, "autostart: %v\n", err)
			os.Exit(1)
		}
		return
	}

	store := openStore(cfgMgr)

	// Handle --list flag
	if *listBinds {
		ui.PrintProfiles(os.Stdout, store)
		return
	}

	// Handle --bind / --unbind flags
	if *bindCombo != "" || *unbindCombo != "" {
		if err := handleBind(store); err != nil {
			fmt.Fprintf(os.Stderr, "bind: %v\n", err)
			os.Exit(1)
		}
		return
	}

	runService(cfgMgr, store, withUI)
}

func handleBind(store *profile.Store) error {
	name := *profileName
	if name == "" {
		name = store.Active()
	}

	if *unbindCombo != "" {
		combo, err := keys.ParseCombo(*unbindCombo)
		if err != nil {
			return err
		}
		if err := store.DeleteBinding(name, combo); err != nil {
			return err
		}
		fmt.Printf("%s: removed %s\n", name, combo)
		return nil
	}

	combo, err := keys.ParseCombo(*bindCombo)
	if err != nil {
		return err
	}
	if *bindAt == "" {
		return fmt.Errorf("-at is required with -bind")
	}
	at, err := profile.ParseCoord(*bindAt)
	if err != nil {
		return err
	}
	kind := profile.ActionKind(*bindKind)
	if !kind.Valid() {
		return fmt.Errorf("unknown action kind %q", *bindKind)
	}
	if err := store.SetBinding(name, combo, kind, at); err != nil {
		return err
	}
	fmt.Printf("%s: %s -> %s\n", name, combo, profile.Binding{Coords: at, Kind: kind})
	return nil
}

// setupLogging installs the default slog logger. While the terminal UI owns
// the screen, logs go to a file next to the settings.
func setupLogging(dir string, toFile bool) *os.File {
	var w io.Writer = os.Stderr
	var f *os.File
	if toFile {
		if err := os.MkdirAll(dir, 0755); err == nil {
			f, err = os.OpenFile(filepath.Join(dir, "autokeybind.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err == nil {
				w = f
			}
		}
		if f == nil {
			w = io.Discard
		}
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel})))
	return f
}

func applyLogLevel(cfg config.Config) {
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		slog.Warn("[main] bad log level", "error", err)
		return
	}
	logLevel.Set(level)
}

func handleAutostart(cfgMgr *config.Manager, v string) error {
	var on bool
	switch v {
	case "on", "true", "1":
		on = true
	case "off", "false", "0":
		on = false
	default:
		return fmt.Errorf("want on or off, got %q", v)
	}
	if err := autostart.Set(on); err != nil {
		return err
	}
	if err := cfgMgr.Update(func(c *config.Config) { c.StartOnBoot = on }); err != nil {
		return err
	}
	fmt.Printf("Start on login: %v\n", autostart.IsEnabled())
	return nil
}

// openStore loads the profiles and restores the active profile remembered
// in the settings.
func openStore(cfgMgr *config.Manager) *profile.Store {
	path := cfgMgr.ProfilesPath()
	if *profilesPath != "" {
		path = *profilesPath
	}

	store := profile.NewStore(path)
	if err := store.Load(); err != nil {
		slog.Error("[main] failed to write profiles file", "path", path, "error", err)
	}
	if name := cfgMgr.Get().ActiveProfile; name != "" {
		if err := store.SetActive(name); err != nil {
			slog.Warn("[main] remembered profile is gone", "profile", name)
		}
	}
	return store
}

func runService(cfgMgr *config.Manager, store *profile.Store, withUI bool) {
	slog.Info("[main] AutoKeybind starting", "version", version, "profiles", store.Path(), "ui", withUI)
	cfg := cfgMgr.Get()

	executor := action.NewExecutor(action.NewRobotPointer())
	executor.SetSettleDelay(time.Duration(cfg.DragSettleMs) * time.Millisecond)
	executor.Start(cfg.ActionQueueSize)

	engine := hotkey.NewEngine(store, executor)
	mode := capture.NewMode(store)
	rec := capture.NewRecorder()

	listener := input.NewListener(input.NewHookSource())
	listener.OnKey(func(k keys.Key, down bool) {
		rec.UpdateState(k, down)
		engine.UpdateState(k, down)
	})
	listener.OnMouse(func(x, y, button int, pressed bool) {
		mode.HandleClick(x, y, button, pressed)
	})

	// Remember the active profile across runs
	store.RegisterChangeCallback(func() {
		active := store.Active()
		if cfgMgr.Get().ActiveProfile == active {
			return
		}
		if err := cfgMgr.Update(func(c *config.Config) { c.ActiveProfile = active }); err != nil {
			slog.Warn("[main] failed to save active profile", "error", err)
		}
	})

	cfgMgr.RegisterChangeCallback(func(c config.Config) {
		applyLogLevel(c)
		executor.SetSettleDelay(time.Duration(c.DragSettleMs) * time.Millisecond)
		if c.ActiveProfile != "" && c.ActiveProfile != store.Active() {
			if err := store.SetActive(c.ActiveProfile); err != nil {
				slog.Warn("[main] settings name an unknown profile", "profile", c.ActiveProfile)
			}
		}
		syncAutostart(c)
	})
	syncAutostart(cfg)

	watcher, err := config.NewWatcher(cfgMgr)
	if err != nil {
		slog.Warn("[main] settings hot reload disabled", "error", err)
	} else {
		watcher.Start()
	}

	// Tray instance
	t := tray.New("AutoKeybind", "AutoKeybind - key bindings for mouse actions")
	t.SetChoiceMenu("Switch Profile", func(name string) {
		if err := store.SetActive(name); err != nil {
			slog.Warn("[tray] switch failed", "profile", name, "error", err)
		}
	})
	t.AddQuitItem("Quit")

	syncTray := func() { t.SetChoices(store.Profiles(), store.Active()) }
	syncTray()
	store.RegisterChangeCallback(syncTray)

	var prog *tea.Program
	var queue *ui.Queue
	uiDone := make(chan struct{})
	if withUI {
		queue = ui.NewQueue(128)
		model := ui.NewModel(store, mode, rec, t.RequestExit)
		prog = tea.NewProgram(model, tea.WithAltScreen())

		store.RegisterChangeCallback(func() { queue.Post(ui.StoreChanged{}) })
		mode.OnChange(func(armed bool, p capture.Pending) {
			queue.Post(ui.CaptureChanged{Armed: armed, Pending: p})
		})
		mode.OnResult(func(r capture.Result) { queue.Post(ui.CaptureDone{Result: r}) })
		rec.OnComplete(func(combo string) { queue.Post(ui.Recorded{Combo: combo}) })
		engine.OnTrigger(func(combo string, b profile.Binding) {
			queue.Post(ui.Triggered{Combo: combo, Binding: b})
		})

		go queue.Run(prog)
		go func() {
			defer close(uiDone)
			if _, err := prog.Run(); err != nil {
				slog.Error("[main] terminal UI failed", "error", err)
			}
			t.RequestExit()
		}()
	} else {
		engine.OnTrigger(func(combo string, b profile.Binding) {
			slog.Info("[hotkey] triggered", "combo", combo, "binding", b.String())
		})
		mode.OnResult(func(r capture.Result) {
			if r.Err == nil {
				slog.Info("[capture] binding placed", "key", r.Key, "binding", r.Binding.String())
			}
		})
	}

	osutils.LogWarnings()
	if err := listener.Start(); err != nil {
		slog.Error("[main] global input hook unavailable", "error", err)
	}

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
		case <-t.ExitRequested():
		}
		slog.Info("[main] shutting down")

		// Listeners first, so no callback fires against torn-down state.
		listener.StopKeyboard()
		listener.StopMouse()
		if err := listener.Stop(); err != nil {
			slog.Warn("[main] hook stop failed", "error", err)
		}
		engine.Reset()
		mode.Cancel()

		if queue != nil {
			if !queue.QuitAndWait(uiDone, 2*time.Second) {
				slog.Warn("[main] terminal UI did not exit in time")
				prog.Quit()
			}
			queue.Close()
		}
		if watcher != nil {
			watcher.Stop()
		}
		t.Stop()
	}()

	slog.Info("[main] running")
	t.Run()

	executor.Stop()
	slog.Info("[main] stopped")
}

func syncAutostart(c config.Config) {
	if autostart.IsEnabled() == c.StartOnBoot {
		return
	}
	if err := autostart.Set(c.StartOnBoot); err != nil {
		slog.Warn("[main] could not change start on login", "enabled", c.StartOnBoot, "error", err)
	}
}
