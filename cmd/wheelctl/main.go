package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/seagrayinc/gowheel/internal/dinput"
	"github.com/seagrayinc/gowheel/pkg/profile"
	"github.com/seagrayinc/gowheel/pkg/wheel"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage: wheelctl <command> [flags]

commands:
  list      enumerate attached wheels
  monitor   poll the first wheel and print shaped input
  rumble    play a short test rumble on the first wheel
`)
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM, syscall.SIGINT,
	)
	defer stop()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	switch os.Args[1] {
	case "list":
		runList(log)
	case "monitor":
		runMonitor(ctx, log, os.Args[2:])
	case "rumble":
		runRumble(ctx, log, os.Args[2:])
	default:
		usage()
	}
}

func runList(log *slog.Logger) {
	backend := dinput.NewBackend(nil, log)
	if err := backend.Initialize(); err != nil {
		log.Error("backend init failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer backend.Shutdown()

	n := backend.EnumerateDevices()
	if n == 0 {
		fmt.Println("no wheels found")
		return
	}
	for i := 0; i < n; i++ {
		desc, ok := backend.Descriptor(i)
		if !ok {
			continue
		}
		fmt.Printf("%d: %s (%04x:%04x) ffb=%v rotation=%v\n",
			desc.Index, desc.Name, desc.VendorID, desc.ProductID,
			desc.SupportsFFB, desc.Caps.MaxRotationDeg)
	}
}

func connect(ctx context.Context, svc *wheel.Service, log *slog.Logger) bool {
	ticker := time.NewTicker(8333 * time.Microsecond)
	defer ticker.Stop()

	deadline := time.Now().Add(10 * time.Second)
	for {
		select {
		case <-ctx.Done():
			return false
		case now := <-ticker.C:
			svc.Tick(now)
			if svc.State() == wheel.Connected {
				return true
			}
			if now.After(deadline) {
				log.Error("no wheel connected within 10s")
				return false
			}
		}
	}
}

func runMonitor(ctx context.Context, log *slog.Logger, args []string) {
	fs := flag.NewFlagSet("monitor", flag.ExitOnError)
	profileDir := fs.String("profiles", "", "profile directory (optional)")
	fs.Parse(args)

	var store *profile.Store
	if *profileDir != "" {
		store = profile.NewStore(*profileDir, log)
	}

	svc := wheel.NewService(dinput.NewBackend(nil, log), store, log)
	if err := svc.Initialize(); err != nil {
		log.Error("init failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer svc.Shutdown()

	svc.OnConnected(func(d dinput.DeviceDescriptor) {
		fmt.Printf("connected: %s\n", d.Name)
	})
	svc.OnDisconnected(func() {
		fmt.Println("disconnected")
	})

	if !connect(ctx, svc, log) {
		return
	}

	ticker := time.NewTicker(8333 * time.Microsecond)
	defer ticker.Stop()
	printAt := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			svc.Tick(now)
			if svc.WasShiftUpPressed() {
				fmt.Println("shift up")
			}
			if svc.WasShiftDownPressed() {
				fmt.Println("shift down")
			}
			if now.After(printAt) {
				in := svc.Input()
				fmt.Printf("steer=%+.3f throttle=%.3f brake=%.3f clutch=%.3f buttons=%08b\n",
					in.Steering, in.Throttle, in.Brake, in.Clutch, in.Buttons)
				printAt = now.Add(250 * time.Millisecond)
			}
		}
	}
}

func runRumble(ctx context.Context, log *slog.Logger, args []string) {
	fs := flag.NewFlagSet("rumble", flag.ExitOnError)
	intensity := fs.Float64("intensity", 0.5, "rumble intensity 0..1")
	duration := fs.Duration("duration", 2*time.Second, "rumble duration")
	fs.Parse(args)

	svc := wheel.NewService(dinput.NewBackend(nil, log), nil, log)
	if err := svc.Initialize(); err != nil {
		log.Error("init failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer svc.Shutdown()

	if !connect(ctx, svc, log) {
		return
	}

	id := svc.TriggerKerbFFB(*intensity, *duration)
	if id == 0 {
		log.Error("wheel does not accept the rumble effect")
		return
	}
	fmt.Printf("rumbling for %v\n", *duration)

	ticker := time.NewTicker(8333 * time.Microsecond)
	defer ticker.Stop()
	end := time.Now().Add(*duration + 250*time.Millisecond)

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			svc.Tick(now)
			if now.After(end) {
				return
			}
		}
	}
}
