// Command routeb-client joins a Japanese Route-B low-voltage smart meter
// over a BP35A1-class Wi-SUN module and polls its instantaneous power
// measurement.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/syslog"
	"net"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"kuramo.ch/routeb-client/echonet"
	"kuramo.ch/routeb-client/echonet/classcode"
	"kuramo.ch/routeb-client/echonet/property"
	"kuramo.ch/routeb-client/persist"
	"kuramo.ch/routeb-client/radio"
	"kuramo.ch/routeb-client/serialport"
	"kuramo.ch/routeb-client/transport"
)

const configFileName = "config.toml"
const serialBaud = 115200
const serialReadTimeout = 3 * time.Second

// controllerEOJ identifies this client on the wire: management/operation
// device class group, controller class, instance 1.
var controllerEOJ = echonet.NewEOJ(0x05, 0xFF, 0x01)

// Config holds the knobs a deployment may reasonably want to tune without
// touching code. The Route-B id/password and the serial port name stay out
// of it and come from the environment instead: they're secrets and
// host-local facts, not tuning.
type Config struct {
	EpanCachePath       string `toml:"epan_cache_path"`
	ScanDurationSeconds int    `toml:"scan_duration_seconds"`
	PollIntervalSeconds int    `toml:"poll_interval_seconds"`
	LogMonitoringData   bool   `toml:"log_monitoring_data"`
}

// setupLogger sends log output to both stdout and syslog.
func setupLogger() {
	syslogWriter, err := syslog.New(syslog.LOG_INFO|syslog.LOG_USER, "routeb-client")
	if err != nil {
		log.Printf("warning: could not connect to syslog: %v; logging to stdout only", err)
		return
	}
	log.SetOutput(io.MultiWriter(os.Stdout, syslogWriter))
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}

// loadConfig reads filePath as TOML, filling in defaults for anything
// unset. A missing file is not fatal: every field has a workable default,
// and the values that truly must be supplied (credentials, port name) live
// in the environment instead.
func loadConfig(filePath string) (*Config, error) {
	cfg := Config{
		EpanCachePath:       "epan.json",
		ScanDurationSeconds: 6,
		PollIntervalSeconds: 10,
	}

	data, err := os.ReadFile(filePath)
	if os.IsNotExist(err) {
		log.Printf("no %s found, using defaults", filePath)
		return &cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filePath, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filePath, err)
	}

	if cfg.PollIntervalSeconds <= 0 {
		log.Printf("poll_interval_seconds unset or non-positive in %s, defaulting to 10s", filePath)
		cfg.PollIntervalSeconds = 10
	}
	if cfg.ScanDurationSeconds <= 0 {
		cfg.ScanDurationSeconds = 6
	}
	if cfg.EpanCachePath == "" {
		cfg.EpanCachePath = "epan.json"
	}
	return &cfg, nil
}

func requireEnv(name string) string {
	v := os.Getenv(name)
	if v == "" {
		log.Fatalf("%s must be set", name)
	}
	return v
}

func main() {
	loopCount := flag.Int("loop", -1, "number of poll cycles to run; -1 runs forever")
	flag.Parse()

	setupLogger()

	cfg, err := loadConfig(configFileName)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	log.Printf("config: epan_cache_path=%s scan_duration_seconds=%d poll_interval_seconds=%d log_monitoring_data=%t",
		cfg.EpanCachePath, cfg.ScanDurationSeconds, cfg.PollIntervalSeconds, cfg.LogMonitoringData)

	serialName := requireEnv("SERIAL_PORT")
	routeBID := requireEnv("ROUTEB_ID")
	routeBPassword := requireEnv("ROUTEB_PASSWORD")

	port, err := serialport.Open(serialName, serialBaud, serialReadTimeout)
	if err != nil {
		log.Fatalf("opening serial port %s: %v", serialName, err)
	}
	defer port.Close()

	adapter := radio.NewAdapter(port, log.Printf)
	defer adapter.Close()

	log.Println("detecting module baudrate...")
	if err := adapter.DetectBaudrate(); err != nil {
		log.Fatalf("baudrate detection failed: %v", err)
	}
	if err := adapter.Init(routeBID, routeBPassword); err != nil {
		log.Fatalf("radio init failed: %v", err)
	}

	epan := loadOrScanEpan(adapter, cfg)

	log.Println("joining PAN...")
	ip, err := adapter.Join(epan)
	if err != nil {
		log.Fatalf("join failed: %v", err)
	}
	log.Printf("joined PAN, meter address %s", ip)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pump := transport.NewPump(adapter, log.Printf)
	pump.Start(ctx)

	meterEOJ, err := discoverMeter(ctx, pump)
	if err != nil {
		log.Fatalf("discovering meter object: %v", err)
	}
	log.Printf("smart meter is object %s", meterEOJ)

	poll(ctx, pump, ip, meterEOJ, *loopCount, time.Duration(cfg.PollIntervalSeconds)*time.Second, cfg.LogMonitoringData)
}

// loadOrScanEpan reuses a cached scan result if one is on disk and
// complete, so a restart doesn't need to re-scan; otherwise it scans and
// caches the result for next time.
func loadOrScanEpan(adapter *radio.Adapter, cfg *Config) *radio.Epan {
	if cached, err := persist.Load(cfg.EpanCachePath); err == nil && cached.IsComplete() {
		log.Printf("using cached scan result from %s", cfg.EpanCachePath)
		return &radio.Epan{
			Channel:     cached.Channel,
			ChannelPage: cached.ChannelPage,
			PanID:       cached.PanID,
			MacAddress:  cached.MacAddress,
			LQI:         cached.LQI,
			PairID:      cached.PairID,
		}
	}

	log.Println("no usable cached scan result, scanning for a PAN...")
	epan, err := adapter.Scan(cfg.ScanDurationSeconds)
	if err != nil {
		log.Fatalf("scan failed: %v", err)
	}
	toSave := &persist.Epan{
		Channel:     epan.Channel,
		ChannelPage: epan.ChannelPage,
		PanID:       epan.PanID,
		MacAddress:  epan.MacAddress,
		LQI:         epan.LQI,
		PairID:      epan.PairID,
	}
	if err := persist.Save(cfg.EpanCachePath, toSave); err != nil {
		log.Printf("warning: failed to cache scan result: %v", err)
	}
	return epan
}

// discoverMeter waits for the node profile's instance-list notification and
// returns the first low-voltage smart meter object it names.
func discoverMeter(ctx context.Context, pump *transport.Pump) (echonet.EOJ, error) {
	for {
		resp, err := pump.Responses(ctx)
		if err != nil {
			return echonet.EOJ{}, err
		}
		for _, p := range resp.Properties {
			notify, ok := p.(*property.InstanceListNotify)
			if !ok {
				continue
			}
			for _, obj := range notify.Objects {
				if obj.ClassGroupCode == byte(classcode.HomeEquipmentDevice) && obj.ClassCode == byte(classcode.LowVoltageSmartMeter) {
					return obj, nil
				}
			}
		}
	}
}

// poll repeats a Get request for instantaneous power every interval. A
// ticker drives the cadence rather than re-issuing on each GetRes, since
// this client also answers unsolicited InfC traffic between requests.
func poll(ctx context.Context, pump *transport.Pump, ip net.IP, meter echonet.EOJ, loopCount int, interval time.Duration, logData bool) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for i := 0; loopCount == -1 || i < loopCount; i++ {
		if i > 0 {
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}

		req := transport.Request{
			Dst:        ip,
			Security:   true,
			SEOJ:       controllerEOJ,
			DEOJ:       meter,
			ESV:        echonet.ESVGet,
			Properties: []property.Property{property.NewMomentPower()},
		}

		resp, err := pump.Send(ctx, req, 30*time.Second)
		if err != nil {
			log.Printf("instantaneous power request failed: %v", err)
			continue
		}
		if resp == nil {
			continue
		}
		for _, p := range resp.Properties {
			power, ok := p.(*property.MomentPower)
			if !ok {
				continue
			}
			if !power.Valid {
				log.Println("instantaneous power: no value yet")
				continue
			}
			if logData {
				log.Printf("instantaneous power: %d W", power.Watts)
			}
		}
	}
}
