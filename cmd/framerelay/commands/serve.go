package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bryanchriswhite/framerelay/internal/api"
	"github.com/bryanchriswhite/framerelay/internal/config"
	"github.com/bryanchriswhite/framerelay/internal/frame"
	"github.com/bryanchriswhite/framerelay/internal/logger"
	"github.com/bryanchriswhite/framerelay/internal/sink"
	"github.com/bryanchriswhite/framerelay/internal/transport"
)

var demoSource bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the FrameRelay dispatcher",
	Long: `Start the FrameRelay output transport with a WebSocket broadcast sink
and the HTTP control API.

Connected websocket clients receive audio chunks and camera frames as
binary messages and transport messages/metrics as JSON.`,
	Example: `  # Start on the default port (8080)
  framerelay serve

  # Start on a custom port with debug logging
  framerelay serve --port 9090 --log-level debug

  # Feed the transport from the built-in tone/test-card source
  framerelay serve --demo`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&demoSource, "demo", false, "feed the transport from a built-in demo source")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to initialize config manager: %w", err)
	}

	// Flag overrides
	if viper.IsSet("server_port") {
		if port := viper.GetInt("server_port"); port > 0 {
			configMgr.SetPort(port)
		}
	}
	if viper.IsSet("log_level") {
		if level := viper.GetString("log_level"); level != "" {
			configMgr.SetLogLevel(level)
		}
	}

	cfg := configMgr.Get()
	logger.Init(cfg.LogLevel, true)
	log := logger.WithComponent("serve")
	log.Info().Str("config", configMgr.GetConfigPath()).Msg("Configuration loaded")

	wsSink := sink.NewWebSocketSink()
	if err := wsSink.Start(); err != nil {
		return fmt.Errorf("failed to start websocket sink: %w", err)
	}
	defer wsSink.Stop()

	emit := func(f frame.Frame, dir frame.Direction) error {
		log.Debug().Str("frame", f.Name()).Stringer("direction", dir).Msg("Frame left the transport")
		return nil
	}

	output := transport.New(transport.Params{
		AudioOutEnabled:    cfg.Transport.AudioOutEnabled,
		AudioOutSampleRate: cfg.Transport.AudioOutSampleRate,
		AudioOutChannels:   cfg.Transport.AudioOutChannels,
		CameraOutEnabled:   cfg.Transport.CameraOutEnabled,
		CameraOutIsLive:    cfg.Transport.CameraOutIsLive,
		CameraOutWidth:     cfg.Transport.CameraOutWidth,
		CameraOutHeight:    cfg.Transport.CameraOutHeight,
		CameraOutFramerate: cfg.Transport.CameraOutFramerate,
		AllowInterruptions: cfg.Transport.AllowInterruptions,
	}, sink.Sinks{
		Audio:   wsSink,
		Camera:  wsSink,
		Message: wsSink,
		Metrics: wsSink,
	}, emit)

	if err := output.Process(frame.NewStart(), frame.Downstream); err != nil {
		return fmt.Errorf("failed to start output transport: %w", err)
	}

	demoCtx, stopDemo := context.WithCancel(context.Background())
	defer stopDemo()
	if demoSource {
		go runDemoSource(demoCtx, output, cfg.Transport)
		log.Info().Msg("Demo source running")
	}

	server := api.NewServer(output, configMgr, wsSink)
	go func() {
		if err := server.Start(cfg.ServerPort); err != nil {
			log.Fatal().Err(err).Msg("API server error")
		}
	}()

	log.Info().
		Int("port", cfg.ServerPort).
		Msg("FrameRelay is running, press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("Shutting down gracefully")
	stopDemo()

	// End drains buffered frames, stops the workers and blocks until
	// they have exited.
	if err := output.Process(frame.NewEnd(), frame.Downstream); err != nil {
		return fmt.Errorf("failed to stop output transport: %w", err)
	}
	output.Cleanup()
	return nil
}
