// Package config holds the command line options of the daemons and the
// TOML file describing the links of one mower.
package config

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

// Config provides the common options of the daemons.
type Config struct {
	// ConfigFile is the TOML file with link definitions.
	ConfigFile string
	// ID identifies the mower, used as the topic prefix.
	ID string
	// MQTTBrokerURL specifies the MQTT broker to use, e.g.
	// mqtt://host:port. Telemetry is disabled when empty.
	MQTTBrokerURL string
	// Shell starts the interactive shell.
	Shell bool
}

var defaultConfig = Config{
	ConfigFile:    "/etc/mowlink/links.toml",
	MQTTBrokerURL: "",
}

func init() {
	if val := os.Getenv("MOWLINK_CONFIG"); val != "" {
		defaultConfig.ConfigFile = val
	}
	if val := os.Getenv("MOWLINK_MQTT_URL"); val != "" {
		defaultConfig.MQTTBrokerURL = val
	}
	defaultConfig.ID = MachineID()
}

// MachineID retrieves the unique ID identifying the machine, or "mower"
// when it is not available.
func MachineID() string {
	id, err := machineid.ID()
	if err != nil {
		glog.Warningf("machine id unavailable: %v", err)
		return "mower"
	}
	return id
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.ConfigFile, "config", defaultConfig.ConfigFile, "Link configuration file")
	flag.StringVar(&defaultConfig.ID, "id", defaultConfig.ID, "Mower ID")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL")
	flag.BoolVar(&defaultConfig.Shell, "shell", defaultConfig.Shell, "Start interactive shell")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Load reads and validates the link file.
func (c *Config) Load() (*File, error) {
	if c.ID == "" {
		return nil, fmt.Errorf("mower id must be specified")
	}
	return LoadFile(c.ConfigFile)
}

// MustLoad loads the link file and fails on error.
func (c *Config) MustLoad() *File {
	f, err := c.Load()
	if err != nil {
		log.Fatalln(err)
	}
	return f
}
