package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"compass-tape.klederson.com/internal/app"
	"compass-tape.klederson.com/internal/config"
	"compass-tape.klederson.com/internal/heading"
	"compass-tape.klederson.com/internal/logging"
	"compass-tape.klederson.com/internal/publish"
	"compass-tape.klederson.com/internal/sensor"
	"compass-tape.klederson.com/internal/tape"
	"compass-tape.klederson.com/internal/web"
)

var (
	flagConfig      string
	flagSource      string
	flagSmoothing   float64
	flagInterval    int
	flagVisible     int
	flagNoLabels    bool
	flagWeb         string
	flagMQTTPublish string
	flagLogFile     string
	flagLogLevel    string
	flagDemo        bool

	flagOutput  string
	flagHeading float64
	flagWidth   int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "compass-tape",
		Short: "Compass Tape - Terminal heading tape driven by a magnetometer",
		Long: `Compass Tape turns raw magnetometer samples into a smoothed heading and
shows it on a horizontally scrolling compass tape with a fixed centre needle.

Sources: demo (simulated), ble, mqtt, nmea (serial or replay file) and i2c.
Use --demo for demonstration mode without sensor hardware.`,
		RunE: run,
	}

	f := rootCmd.Flags()
	f.StringVar(&flagConfig, "config", "", "YAML config file")
	f.StringVar(&flagSource, "source", config.SourceDemo, "Sensor source: demo, ble, mqtt, nmea or i2c")
	f.Float64Var(&flagSmoothing, "smoothing", config.DefaultSmoothing, "Smoothing factor in [0, 1] (1 = no smoothing)")
	f.IntVar(&flagInterval, "interval", int(config.DefaultUpdateInterval/time.Millisecond), "Sample interval in milliseconds")
	f.IntVar(&flagVisible, "visible", config.DefaultVisibleDegrees, "Degrees visible across the tape")
	f.BoolVar(&flagNoLabels, "no-labels", false, "Hide numeric degree labels")
	f.StringVar(&flagWeb, "web", "", "Serve JSON, websocket and PNG endpoints on this address (e.g. :8080)")
	f.StringVar(&flagMQTTPublish, "mqtt-publish", "", "Publish readings to this MQTT broker (e.g. tcp://localhost:1883)")
	f.StringVar(&flagLogFile, "log-file", "compass-tape.log", "Log file (empty disables logging)")
	f.StringVar(&flagLogLevel, "log-level", "info", "Log level: debug, info, warn or error")
	f.BoolVar(&flagDemo, "demo", false, "Run in demo mode with a simulated magnetometer (same as --source demo)")

	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Write a PNG of the tape at a fixed heading",
		RunE:  snapshot,
	}
	snapshotCmd.Flags().StringVarP(&flagOutput, "output", "o", "tape.png", "Output PNG file")
	snapshotCmd.Flags().Float64Var(&flagHeading, "heading", 0, "Heading in degrees")
	snapshotCmd.Flags().IntVar(&flagVisible, "visible", config.DefaultVisibleDegrees, "Degrees visible across the tape")
	snapshotCmd.Flags().IntVar(&flagWidth, "width", 0, "Image width in pixels (0 = 4 px per degree)")
	snapshotCmd.Flags().BoolVar(&flagNoLabels, "no-labels", false, "Hide numeric degree labels")
	rootCmd.AddCommand(snapshotCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file and lets explicitly set flags win.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}

	f := cmd.Flags()
	if f.Changed("source") {
		cfg.Source = flagSource
	}
	if flagDemo {
		cfg.Source = config.SourceDemo
	}
	if f.Changed("smoothing") {
		cfg.SmoothingFactor = flagSmoothing
	}
	if f.Changed("interval") {
		cfg.UpdateIntervalMs = flagInterval
	}
	if f.Changed("visible") {
		cfg.VisibleDegrees = flagVisible
	}
	if flagNoLabels {
		cfg.ShowNumericLabels = false
	}
	if f.Changed("web") {
		cfg.Web.Addr = flagWeb
	}
	if f.Changed("mqtt-publish") {
		cfg.Publish.Broker = flagMQTTPublish
	}
	if f.Changed("log-file") {
		cfg.LogFile = flagLogFile
	}
	if f.Changed("log-level") {
		cfg.LogLevel = flagLogLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "\nError: %v\n\n", err)
		return err
	}

	log, closeLog, err := logging.New(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "\nError: %v\n\n", err)
		return err
	}
	defer closeLog()
	log.Infow("starting", "version", config.AppVersion, "source", cfg.Source)

	model := app.New(cfg, sensor.FromConfig(cfg, log), log)

	if cfg.Web.Addr != "" {
		srv := web.NewServer(log)
		if err := srv.Start(cfg.Web.Addr); err != nil {
			fmt.Fprintf(os.Stderr, "\nError: %v\n\n", err)
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
		model.OnHeading(srv.Publish)
	}

	if cfg.Publish.Broker != "" {
		pub := publish.New(cfg, log)
		if err := pub.Connect(); err != nil {
			fmt.Fprintf(os.Stderr, "\nError: %v\n\n", err)
			fmt.Fprintf(os.Stderr, "Is an MQTT broker running at %s?\n", cfg.Publish.Broker)
			return err
		}
		defer pub.Close()
		model.OnHeading(func(r heading.Reading) { pub.Publish(r) })
	}

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithFPS(config.TargetFPS),
	)

	// Start the sensor subscription with a reference to the tea program
	if err := model.Start(p); err != nil {
		fmt.Fprintf(os.Stderr, "\nError: %v\n\n", err)
		printSourceHints(cfg.Source)
		return err
	}
	defer model.Stop()

	_, err = p.Run()
	return err
}

func printSourceHints(source string) {
	fmt.Fprintln(os.Stderr, "The compass source could not be created.")
	fmt.Fprintln(os.Stderr, "Try one of:")
	switch source {
	case config.SourceBLE:
		fmt.Fprintln(os.Stderr, "  check ble.service_uuid and ble.characteristic_uuid in the config file")
		fmt.Fprintln(os.Stderr, "  sudo setcap cap_net_admin+ep ./compass-tape")
	case config.SourceI2C:
		fmt.Fprintln(os.Stderr, "  check i2c.bus and i2c.addr in the config file")
		fmt.Fprintln(os.Stderr, "  add your user to the i2c group")
	case config.SourceNMEA:
		fmt.Fprintln(os.Stderr, "  check nmea.port and add your user to the dialout group")
	}
	fmt.Fprintln(os.Stderr, "  ./compass-tape --demo    (demo mode, no hardware needed)")
}

func snapshot(cmd *cobra.Command, args []string) error {
	if flagVisible < config.MinVisibleDegrees || flagVisible > config.MaxVisibleDegrees {
		return fmt.Errorf("--visible must be between %d and %d", config.MinVisibleDegrees, config.MaxVisibleDegrees)
	}

	out, err := os.Create(flagOutput)
	if err != nil {
		return err
	}

	opts := tape.ImageOptions{
		Width:          flagWidth,
		VisibleDegrees: flagVisible,
		ShowNumeric:    !flagNoLabels,
		Value:          tape.HeadingLabel(flagHeading, true),
	}
	if err := tape.EncodePNG(out, flagHeading, opts); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", flagOutput)
	return nil
}
