// Command minixcompat runs a single MINIX 1.5 a.out binary, translating
// its system calls against the host POSIX environment.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/minix68k/minixcompat/internal/dispatch"
	"github.com/minix68k/minixcompat/internal/emulator"
	"github.com/minix68k/minixcompat/internal/fs"
	"github.com/minix68k/minixcompat/internal/proc"
	"github.com/minix68k/minixcompat/internal/ram"
	"github.com/minix68k/minixcompat/internal/runloop"
)

const (
	exUsage = 64
	exOSErr = 71
)

func main() {
	var debugSyscalls bool
	var debugCPU bool

	root := &cobra.Command{
		Use:   "minixcompat <path> [args...]",
		Short: "Run a MINIX 1.5 a.out binary on a POSIX host",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) < 1 {
				return &usageError{fmt.Errorf("minixcompat: no input file provided")}
			}
			return run(args[0], args[1:], debugSyscalls, debugCPU)
		},
		SilenceUsage: true,
	}
	root.Flags().BoolVar(&debugSyscalls, "debug-syscalls", false, "log each dispatched syscall")
	root.Flags().BoolVar(&debugCPU, "debug-cpu", false, "log each emulator quantum and signal delivery")

	if err := root.Execute(); err != nil {
		if _, ok := err.(*usageError); ok {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(exUsage)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exOSErr)
	}
}

type usageError struct{ error }

func run(guestPath string, guestArgs []string, debugSyscalls, debugCPU bool) error {
	level := slog.LevelWarn
	if debugSyscalls || debugCPU {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	root := os.Getenv("MINIXCOMPAT_DIR")
	if root == "" {
		var err error
		root, err = os.Getwd()
		if err != nil {
			return &usageError{fmt.Errorf("minixcompat: %w", err)}
		}
	}
	pwd := os.Getenv("MINIXCOMPAT_PWD")

	filesystem := fs.New(root, pwd)
	hostPath := filesystem.HostPath(guestPath)
	if _, err := os.Stat(hostPath); err != nil {
		return fmt.Errorf("minixcompat: %s: %w", guestPath, err)
	}

	selfHost := proc.HostID(os.Getpid())
	parentHost := proc.HostID(os.Getppid())

	// No real M68000 core ships with this bridge (see internal/emulator):
	// the translation layer is defined against the Emulator interface and
	// exercised against its conformance double, leaving a real core
	// pluggable here once one exists.
	env := &dispatch.Env{
		RAM:     &ram.RAM{},
		FS:      filesystem,
		Procs:   proc.New(selfHost, parentHost),
		Signals: proc.NewSignals(),
		CPU:     &emulator.Fake{},
		Debug:   debugSyscalls,
	}
	defer env.Signals.Stop()

	argv := append([]string{guestPath}, guestArgs...)

	loop := &runloop.Loop{
		Env:      env,
		HostPath: hostPath,
		Argv:     argv,
		Envp:     os.Environ(),
		Log:      logger,
	}

	status, err := loop.Run()
	if err != nil {
		return fmt.Errorf("minixcompat: %w", err)
	}
	os.Exit(int(status))
	return nil
}
