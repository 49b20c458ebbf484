package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/motion.report/internal/config"
	"github.com/banshee-data/motion.report/internal/publish"
	"github.com/banshee-data/motion.report/internal/version"
)

func main() {
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, flag.Arg(0), flag.Args()[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Printf("%s: %v", flag.Arg(0), err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, command string, args []string) error {
	switch command {
	case "record":
		return runRecord(ctx, args)
	case "analyze":
		return runAnalyze(ctx, args, os.Stdout)
	case "serve":
		return runServe(ctx, args)
	case "migrate":
		return runMigrate(args, os.Stdout)
	case "version":
		fmt.Println(version.String())
		return nil
	case "help":
		printUsage()
		return nil
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func printUsage() {
	fmt.Println(`motion - motion recognition for a 6-axis inertial sensor

Usage: motion <command> [options]

Commands:
  record     Read the sensor, classify motion and store labelled samples
  analyze    Segment recent history and write the summary and charts
  serve      Serve the HTTP API and charts over stored history
  migrate    Manage database schema migrations
  version    Show motion version
  help       Show this help message

Common Flags:
  --db <path>           SQLite database path (default: motion_data.db)
  --config <file>       Tuning JSON file (default: built-in values)
  --mqtt-broker <url>   Publish changes and summaries to this MQTT broker
  --tz <zone>           IANA timezone for report times (analyze, serve)

Examples:
  # Record from the Arduino on its usual port, serving the API on :8080
  motion record --port /dev/ttyACM0 --listen :8080

  # Record from the simulated sensor
  motion record --mock

  # Summarise the last 30 minutes and write PNG and HTML charts
  motion analyze --minutes 30 --out ./reports

  # Apply pending migrations
  motion migrate up`)
}

// loadTuning reads path, or returns the built-in defaults when path is empty.
func loadTuning(path string) (*config.TuningConfig, error) {
	if path == "" {
		return config.DefaultTuningConfig(), nil
	}
	cfg, err := config.LoadTuningConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load tuning config: %w", err)
	}
	return cfg, nil
}

// loadLocation resolves --tz; empty means the local zone.
func loadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid --tz %q: %w", name, err)
	}
	return loc, nil
}

// mqttFlags registers the publisher flags shared by record and analyze.
type mqttFlags struct {
	broker   *string
	clientID *string
	prefix   *string
	qos      *int
}

func addMQTTFlags(fs *flag.FlagSet) mqttFlags {
	return mqttFlags{
		broker:   fs.String("mqtt-broker", "", "MQTT broker URL, e.g. tcp://localhost:1883 (disabled when empty)"),
		clientID: fs.String("mqtt-client-id", publish.DefaultClientID, "MQTT client ID"),
		prefix:   fs.String("mqtt-topic", publish.DefaultTopicPrefix, "MQTT topic prefix"),
		qos:      fs.Int("mqtt-qos", 0, "MQTT QoS level (0, 1 or 2)"),
	}
}

func (f mqttFlags) publisher() (publish.Publisher, error) {
	if *f.broker == "" {
		return publish.Nop{}, nil
	}
	if *f.qos < 0 || *f.qos > 2 {
		return nil, fmt.Errorf("invalid --mqtt-qos %d: must be 0, 1 or 2", *f.qos)
	}
	p, err := publish.NewMQTTPublisher(publish.MQTTConfig{
		Broker:      *f.broker,
		ClientID:    *f.clientID,
		TopicPrefix: *f.prefix,
		QoS:         byte(*f.qos),
	})
	if err != nil {
		return nil, err
	}
	log.Printf("publishing to MQTT broker %s", *f.broker)
	return p, nil
}
