package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"gopkg.in/yaml.v2"
)

const (
	defaultPublishInterval = 20
	defaultFreshThreshold  = 30
	defaultDriftTolerance  = 10
	defaultClientID        = "briya"
	defaultTransportKind   = "mqtt"
	defaultIdentitySource  = "csv"
	defaultIdentityPath    = "res/yandex-vehicles.csv"
	defaultVehicleType     = "trolleybus"
	defaultContentType     = "application/octet-stream"
	defaultExchange        = "amq.topic"
)

type Transport struct {
	Kind     string   `yaml:"kind"`
	Host     string   `yaml:"host"`
	Port     int      `yaml:"port"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	ClientID string   `yaml:"client_id"`
	Topics   []string `yaml:"topics"`
	Exchange string   `yaml:"exchange"`
	URL      string   `yaml:"url"`
}

// Address returns host:port of the broker.
func (t *Transport) Address() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
}

type Yandex struct {
	URL         string `yaml:"url"`
	ClientID    string `yaml:"clid"`
	Compress    bool   `yaml:"compress"`
	ContentType string `yaml:"content_type"`
	VerboseHTTP bool   `yaml:"verbose_http"`
	VehicleType string `yaml:"vehicle_type"`
}

type Identity struct {
	Source     string            `yaml:"source"`
	Path       string            `yaml:"path"`
	Params     map[string]string `yaml:"params"`
	ReloadCron string            `yaml:"reload_cron"`
}

type API struct {
	Listen string `yaml:"listen"`
}

type Settings struct {
	LogLevel           string                       `yaml:"log_level"`
	LogFilePath        string                       `yaml:"log_file_path"`
	LogMaxAgeDays      int                          `yaml:"log_max_age_days"`
	Transport          Transport                    `yaml:"transport"`
	Yandex             Yandex                       `yaml:"yandex"`
	PublishIntervalSec int                          `yaml:"publish_interval_sec"`
	FreshThresholdSec  int                          `yaml:"fresh_threshold_sec"`
	DriftToleranceSec  int                          `yaml:"drift_tolerance_sec"`
	EvictAfterSec      int                          `yaml:"evict_after_sec"`
	Identity           Identity                     `yaml:"identity"`
	Store              map[string]map[string]string `yaml:"storage"`
	API                API                          `yaml:"api"`
}

func (s *Settings) GetPublishInterval() time.Duration {
	return time.Duration(s.PublishIntervalSec) * time.Second
}

func (s *Settings) GetFreshThreshold() time.Duration {
	return time.Duration(s.FreshThresholdSec) * time.Second
}

func (s *Settings) GetDriftTolerance() time.Duration {
	return time.Duration(s.DriftToleranceSec) * time.Second
}

// GetEvictAfter returns 0 when eviction is disabled.
func (s *Settings) GetEvictAfter() time.Duration {
	return time.Duration(s.EvictAfterSec) * time.Second
}

func (s *Settings) GetLogLevel() log.Level {
	var lvl log.Level

	switch s.LogLevel {
	case "DEBUG":
		lvl = log.DebugLevel
	case "INFO":
		lvl = log.InfoLevel
	case "WARN":
		lvl = log.WarnLevel
	case "ERROR":
		lvl = log.ErrorLevel
	default:
		lvl = log.InfoLevel
	}
	return lvl
}

func New(confPath string) (Settings, error) {
	// compress is on unless the file turns it off
	c := Settings{Yandex: Yandex{Compress: true}}
	data, err := os.ReadFile(confPath)
	if err != nil {
		return c, err
	}

	data = []byte(os.ExpandEnv(string(data)))
	if err = yaml.Unmarshal(data, &c); err != nil {
		return c, err
	}

	if c.Yandex.URL == "" {
		return c, fmt.Errorf("yandex.url is required")
	}
	if c.Yandex.ClientID == "" {
		return c, fmt.Errorf("yandex.clid is required")
	}

	applyDefaults(&c)
	return c, nil
}

func applyDefaults(c *Settings) {
	if c.PublishIntervalSec <= 0 {
		if c.PublishIntervalSec < 0 {
			log.Errorf("Invalid publish_interval_sec (%d). Defaulting to %d.", c.PublishIntervalSec, defaultPublishInterval)
		}
		c.PublishIntervalSec = defaultPublishInterval
	}
	if c.FreshThresholdSec <= 0 {
		if c.FreshThresholdSec < 0 {
			log.Errorf("Invalid fresh_threshold_sec (%d). Defaulting to %d.", c.FreshThresholdSec, defaultFreshThreshold)
		}
		c.FreshThresholdSec = defaultFreshThreshold
	}
	if c.DriftToleranceSec <= 0 {
		if c.DriftToleranceSec < 0 {
			log.Errorf("Invalid drift_tolerance_sec (%d). Defaulting to %d.", c.DriftToleranceSec, defaultDriftTolerance)
		}
		c.DriftToleranceSec = defaultDriftTolerance
	}
	if c.EvictAfterSec < 0 {
		log.Errorf("Invalid evict_after_sec (%d). Eviction disabled.", c.EvictAfterSec)
		c.EvictAfterSec = 0
	}
	if c.EvictAfterSec > 0 && c.EvictAfterSec < c.FreshThresholdSec {
		log.Errorf("evict_after_sec (%d) is below fresh_threshold_sec (%d). Using %d.", c.EvictAfterSec, c.FreshThresholdSec, c.FreshThresholdSec)
		c.EvictAfterSec = c.FreshThresholdSec
	}

	if c.Transport.Kind == "" {
		c.Transport.Kind = defaultTransportKind
	}
	if c.Transport.Host == "" {
		c.Transport.Host = "localhost"
	}
	if c.Transport.Port == 0 {
		switch c.Transport.Kind {
		case "nats":
			c.Transport.Port = 4222
		case "rabbitmq":
			c.Transport.Port = 5672
		default:
			c.Transport.Port = 1883
		}
	}
	if c.Transport.ClientID == "" {
		c.Transport.ClientID = defaultClientID
	}
	if c.Transport.Exchange == "" {
		c.Transport.Exchange = defaultExchange
	}

	if c.Yandex.ContentType == "" {
		c.Yandex.ContentType = defaultContentType
	}
	if c.Yandex.VehicleType == "" {
		c.Yandex.VehicleType = defaultVehicleType
	}

	if c.Identity.Source == "" {
		c.Identity.Source = defaultIdentitySource
	}
	if c.Identity.Source == defaultIdentitySource && c.Identity.Path == "" {
		c.Identity.Path = defaultIdentityPath
	}
}
