// Package main is the entry point for the Mijia thermometer recorder.
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/Sandr0x00/mijia/internal/climate"
	"github.com/Sandr0x00/mijia/internal/config"
	"github.com/Sandr0x00/mijia/internal/ingest"
	"github.com/Sandr0x00/mijia/internal/logging"
	"github.com/Sandr0x00/mijia/internal/mijia"
	"github.com/Sandr0x00/mijia/internal/registry"
	"github.com/Sandr0x00/mijia/internal/scanner"
	"github.com/Sandr0x00/mijia/internal/storage/sqlite"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		showUsage()
		return
	}

	args := os.Args[2:]
	var err error
	switch os.Args[1] {
	case "listen":
		err = listen(args)
	case "replay":
		err = replay(args)
	case "init":
		err = initStores(args)
	case "decode":
		err = decode(args)
	case "latest":
		err = latest(args)
	default:
		showUsage()
		return
	}

	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println("Mijia - Bluetooth thermometer recorder")
	fmt.Printf("Version: %s\n", version)
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  mijia listen [flags]         - Record advertisements until interrupted")
	fmt.Println("  mijia replay [flags] <file>  - Record advertisements from a capture file")
	fmt.Println("  mijia init [flags]           - Create the database of every configured device")
	fmt.Println("  mijia decode <hex>           - Decode a single service data payload")
	fmt.Println("  mijia latest [flags]         - Show the latest stored reading per device")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  --settings <file>   YAML runtime settings (optional)")
	fmt.Println("  --config <file>     Device configuration (default config.json)")
	fmt.Println("  --logs-dir <dir>    Directory holding one database per device")
	fmt.Println("  --capture <file>    listen: also append every advertisement to file")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Println("  MIJIA_DEVICES, MIJIA_LOGS_DIR, MIJIA_LOG_LEVEL")
}

// commonFlags are accepted by every command that touches the stores.
type commonFlags struct {
	settings string
	devices  string
	logsDir  string
}

func newFlagSet(name string) (*pflag.FlagSet, *commonFlags) {
	f := &commonFlags{}
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.StringVar(&f.settings, "settings", "", "YAML runtime settings")
	fs.StringVar(&f.devices, "config", "", "device configuration file")
	fs.StringVar(&f.logsDir, "logs-dir", "", "directory for per-device databases")
	return fs, f
}

// recorder bundles everything a command needs after startup.
type recorder struct {
	settings *config.Settings
	devices  config.Devices
	logger   *logging.Logger
	store    *sqlite.Store
}

func setup(f *commonFlags) (*recorder, error) {
	settings, err := config.LoadSettings(f.settings)
	if err != nil {
		return nil, err
	}
	if f.devices != "" {
		settings.Devices = f.devices
	}
	if f.logsDir != "" {
		settings.LogsDir = f.logsDir
	}

	devices, err := config.LoadDevices(settings.Devices)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(settings.Logging, version)
	if err != nil {
		return nil, err
	}

	store, err := sqlite.NewStore(sqlite.Options{
		Dir:         settings.LogsDir,
		Driver:      settings.Storage.Driver,
		BusyTimeout: settings.Storage.BusyTimeout,
	})
	if err != nil {
		logger.Close()
		return nil, err
	}

	return &recorder{
		settings: settings,
		devices:  devices,
		logger:   logger,
		store:    store,
	}, nil
}

func (r *recorder) controller() *ingest.Controller {
	return ingest.NewController(registry.New(r.devices.IDs()), r.store, ingest.Options{
		Timeout: r.settings.Storage.Timeout,
		Logger:  r.logger.Logger,
	})
}

func (r *recorder) Close() {
	if err := r.store.Close(); err != nil {
		r.logger.Error("failed to close store", "error", err)
	}
	r.logger.Close()
}

func (r *recorder) logStats(c *ingest.Controller) {
	stats := c.Stats()
	r.logger.Info("recorder stopped",
		"stored", stats.Stored,
		"duplicate", stats.Duplicate,
		"malformed", stats.Malformed,
		"failed", stats.Failed,
		"ignored", stats.Ignored,
	)
}

func listen(args []string) error {
	fs, flags := newFlagSet("listen")
	var capturePath string
	fs.StringVar(&capturePath, "capture", "", "append every advertisement to this file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rec, err := setup(flags)
	if err != nil {
		return err
	}
	defer rec.Close()

	// Handle Ctrl+C gracefully
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	controller := rec.controller()
	if failed := controller.Prepare(ctx); failed > 0 {
		fmt.Printf("Warning: %d device database(s) could not be prepared, see log\n", failed)
	}

	dispatcher := ingest.NewDispatcher(ctx, controller, ingest.DefaultQueueSize)
	handle := func(adv mijia.Advertisement) { dispatcher.Submit(adv) }

	if capturePath != "" {
		f, err := os.OpenFile(capturePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0640)
		if err != nil {
			dispatcher.Close()
			return fmt.Errorf("failed to open capture file: %w", err)
		}
		defer f.Close()
		handle = scanner.Capture(f, handle)
	}

	rec.logger.Info("listening", "devices", len(rec.devices), "logs_dir", rec.settings.LogsDir)
	fmt.Printf("Listening for Mijia advertisements from %d device(s)...\n", len(rec.devices))
	fmt.Println("Press Ctrl+C to stop")

	err = scanner.NewRadio(rec.logger.Logger).Run(ctx, handle)
	dispatcher.Close()
	rec.logStats(controller)
	fmt.Println("\nStopping...")
	return err
}

func replay(args []string) error {
	fs, flags := newFlagSet("replay")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		fmt.Println("Usage: mijia replay [flags] <file>")
		return fmt.Errorf("capture file required")
	}

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer f.Close()

	rec, err := setup(flags)
	if err != nil {
		return err
	}
	defer rec.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	controller := rec.controller()
	controller.Prepare(ctx)

	err = scanner.NewReplay(f, rec.logger.Logger).Run(ctx, func(adv mijia.Advertisement) {
		controller.Handle(ctx, adv)
	})
	rec.logStats(controller)

	stats := controller.Stats()
	fmt.Printf("Stored %d, duplicate %d, malformed %d, failed %d, ignored %d\n",
		stats.Stored, stats.Duplicate, stats.Malformed, stats.Failed, stats.Ignored)
	return err
}

func initStores(args []string) error {
	fs, flags := newFlagSet("init")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rec, err := setup(flags)
	if err != nil {
		return err
	}
	defer rec.Close()

	if failed := rec.controller().Prepare(context.Background()); failed > 0 {
		return fmt.Errorf("%d of %d device database(s) failed", failed, len(rec.devices))
	}

	for _, id := range rec.devices.IDs() {
		fmt.Printf("  %s  %s\n", id, rec.store.Path(id))
	}
	return nil
}

func decode(args []string) error {
	if len(args) < 1 {
		fmt.Println("Usage: mijia decode <hex>")
		return fmt.Errorf("payload required")
	}

	data, err := hex.DecodeString(strings.Join(args, ""))
	if err != nil {
		return fmt.Errorf("failed to decode hex: %w", err)
	}

	reading, err := mijia.Decode(data)
	if err != nil {
		return err
	}

	temp := climate.Celsius(reading.TemperatureRaw)
	humidity := climate.RelativeHumidity(reading.HumidityRaw)

	fmt.Printf("  Address:      %s\n", reading.Address)
	fmt.Printf("  Temperature:  %.2f °C (raw %d)\n", temp, reading.TemperatureRaw)
	fmt.Printf("  Humidity:     %.2f %% (raw %d)\n", humidity, reading.HumidityRaw)
	fmt.Printf("  Battery:      %d mV, %d %% (%s)\n", reading.BatteryMV, reading.BatteryPercent, climate.ClassifyBattery(reading.BatteryPercent))
	fmt.Printf("  Counter:      %d\n", reading.Counter)
	fmt.Printf("  Flags:        0x%02x\n", reading.Flags)
	fmt.Printf("  %-13s %.1f °C\n", climate.DewPointLabel(temp)+":", climate.DewPoint(humidity, temp))
	fmt.Printf("  Absolute:     %.1f g/m³\n", climate.AbsoluteHumidity(humidity, temp))
	return nil
}

func latest(args []string) error {
	fs, flags := newFlagSet("latest")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rec, err := setup(flags)
	if err != nil {
		return err
	}
	defer rec.Close()

	ctx, cancel := context.WithTimeout(context.Background(), rec.settings.Storage.Timeout)
	defer cancel()

	now := time.Now()
	for _, id := range rec.devices.IDs() {
		loc := rec.devices[id].Location
		if loc == "" {
			loc = "-"
		}

		event, err := rec.store.Latest(ctx, id)
		if err != nil {
			fmt.Printf("  %s  %-16s  no data (%v)\n", id, loc, err)
			continue
		}

		temp := climate.Celsius(event.TemperatureRaw)
		humidity := climate.RelativeHumidity(event.HumidityRaw)
		stale := ""
		if climate.IsStale(now, event.Timestamp, rec.settings.StaleAfter) {
			stale = " (stale)"
		}

		fmt.Printf("  %s  %-16s  %6.2f °C  %5.1f %%  %s %.1f °C  %.1f g/m³  battery %s  %s%s\n",
			id, loc, temp, humidity,
			climate.DewPointLabel(temp), climate.DewPoint(humidity, temp),
			climate.AbsoluteHumidity(humidity, temp),
			climate.ClassifyBattery(event.BatteryPercent),
			climate.RelativeAge(now, event.Timestamp), stale)
	}
	return nil
}
