// Command nfcdemo wires the configuration, logger, transport channel,
// PN532 controller, and DESFire tag layers together and polls for a
// target on an interval, dumping whatever it finds. It is CLI/demo
// scaffolding, not part of the core driver.
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

	"github.com/edgenfc/pn532stack/internal/config"
	"github.com/edgenfc/pn532stack/internal/hal"
	"github.com/edgenfc/pn532stack/internal/logger"
	"github.com/edgenfc/pn532stack/pkg/channel"
	"github.com/edgenfc/pn532stack/pkg/pn532"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (optional)")
	pollInterval := flag.Duration("poll-interval", 2*time.Second, "how often to poll for a target")
	verbose := flag.Bool("v", false, "enable debug logging")
	logFormat := flag.String("log-format", "", "log format: text or json (overrides config file)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	level := cfg.Logger.Level
	if *verbose {
		level = "debug"
	}
	format := cfg.Logger.Format
	if *logFormat != "" {
		format = *logFormat
	}
	if err := logger.Init(logger.Config{Level: level, Format: format}); err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}

	log := logger.Get()

	gpio := openGPIO(log, cfg)
	if gpio != nil {
		defer gpio.Close()
	}
	if gpio != nil && cfg.GPIO.ResetPin >= 0 {
		if err := hal.PulseReset(gpio, cfg.GPIO.ResetPin); err != nil {
			log.Error("reset pn532", "error", err)
			os.Exit(1)
		}
	}

	ch, err := openChannel(cfg)
	if err != nil {
		log.Error("open channel", "error", err)
		os.Exit(1)
	}
	if gpio != nil && cfg.GPIO.IRQPin >= 0 {
		attachIRQHooks(log, ch, gpio, cfg.GPIO.IRQPin)
	}

	ctx := context.Background()
	if err := ch.Wake(ctx); err != nil {
		log.Error("wake", "error", err)
		os.Exit(1)
	}

	ctrl := pn532.NewController(ch)
	if err := ctrl.SAMConfiguration(ctx, pn532.SAMNormal, time.Second, false); err != nil {
		log.Error("sam configuration", "error", err)
		os.Exit(1)
	}

	version, err := ctrl.GetFirmwareVersion(ctx, pn532.DefaultTimeout)
	if err != nil {
		log.Error("get firmware version", "error", err)
		os.Exit(1)
	}
	log.Info("pn532 ready", "ic", version.IC, "fw_version", version.Version, "fw_rev", version.Rev)

	ticker := time.NewTicker(*pollInterval)
	defer ticker.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			pollOnce(ctx, log, ctrl)
		case <-sig:
			log.Info("shutting down")
			return
		}
	}
}

// openGPIO opens the board's native GPIO backend if either control line is
// configured. A platform without a backend (or a reader with both pins
// left at -1) runs with no reset pulse and no IRQ-gated receive, which is
// the documented fallback for "not wired" GPIO lines.
func openGPIO(log *slog.Logger, cfg *config.Config) hal.GPIOProvider {
	if cfg.GPIO.ResetPin < 0 && cfg.GPIO.IRQPin < 0 {
		return nil
	}
	gpio, err := hal.NewProvider()
	if err != nil {
		log.Warn("gpio unavailable, continuing without reset/irq lines", "error", err)
		return nil
	}
	return gpio
}

// attachIRQHooks wires an IRQ-gated receive wait onto ch, if ch exposes a
// Hooks setter. HSU is a Stream channel and has no use for IRQ gating;
// I2C/SPI are Buffered and benefit from it.
func attachIRQHooks(log *slog.Logger, ch channel.Channel, gpio hal.GPIOProvider, irqPin int) {
	setter, ok := ch.(channel.HooksSetter)
	if !ok {
		return
	}
	hooks, err := hal.NewReceiveHooks(gpio, irqPin)
	if err != nil {
		log.Warn("irq gating unavailable", "error", err)
		return
	}
	setter.SetHooks(hooks)
}

func openChannel(cfg *config.Config) (channel.Channel, error) {
	switch cfg.Transport.Mode {
	case "hsu":
		return channel.NewHSU(cfg.Transport.Serial.Port, cfg.Transport.Serial.BaudRate)
	case "i2c":
		return channel.NewI2C(cfg.Transport.I2C.Bus, cfg.Transport.I2C.Address)
	case "spi":
		return channel.NewSPI(cfg.Transport.SPI.Bus, cfg.Transport.SPI.Speed)
	default:
		return nil, fmt.Errorf("unknown transport mode %q", cfg.Transport.Mode)
	}
}

func pollOnce(ctx context.Context, log *slog.Logger, ctrl *pn532.Controller) {
	targets, err := ctrl.InitiatorListPassiveTarget(ctx, pn532.BaudMod106A, pn532.ListPassiveOpts{MaxTargets: 1}, pn532.DefaultTimeout)
	if err != nil {
		log.Debug("poll: no target", "error", err)
		return
	}
	if len(targets) == 0 {
		return
	}
	t := targets[0]
	log.Info("target found", "logical_index", t.LogicalIndex, "nfcid", fmt.Sprintf("%x", t.A106.NFCID))

	if err := ctrl.InitiatorRelease(ctx, t.LogicalIndex, pn532.DefaultTimeout); err != nil {
		log.Debug("release target", "error", err)
	}
}
