package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"controlling_pump/internal/logger"
	"controlling_pump/internal/models"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. PUMP_ENGINE_POLL_INTERVAL_MS.
const EnvPrefix = "PUMP"

// Defaults. Flow is measured in L/min over the window between two reads.
const (
	DefaultPort               = "8080"
	DefaultLogLevel           = "info"
	DefaultDBPath             = "pump.db"
	DefaultPollIntervalMs     = 2000
	DefaultBusTimeoutMs       = 1000
	DefaultSensorFaultRetries = 3
	DefaultActuatorRetries    = 3
	DefaultMaxPulseSeconds    = 3600
	DefaultMinFlowToRun       = 0.0
	DefaultMaxTempToRun       = 35.0
	DefaultMinHumidityToRun   = 10.0
	DefaultEventRetentionDays = 30

	DefaultGPIOChip         = "gpiochip0"
	DefaultRelayPin         = 22
	DefaultFlowPin          = 17
	DefaultFlowPulsesPerLPM = 7.5 // YF-S201: f(Hz) = 7.5 * Q(L/min)
	DefaultW1DevicesDir     = "/sys/bus/w1/devices"
	DefaultADS1115Address   = 0x48
	DefaultMoistureDry      = 1023
	DefaultMoistureWet      = 400
	DefaultPWMPin           = -1 // BTS7960 RPWM; -1 runs the motor at full power through the relay
	DefaultPWMFrequencyHz   = 100
	DefaultSpeedPercent     = 100
	maxPWMFrequencyHz       = 1000

	minPollInterval = 100 * time.Millisecond
)

// Thresholds is kept as an alias so callers only import config.
type Thresholds = models.Thresholds

// EngineConfig is loaded once at startup and read-only afterwards.
type EngineConfig struct {
	SimulationMode     bool        `mapstructure:"simulation_mode"`
	PollIntervalMs     int         `mapstructure:"poll_interval_ms"`
	BusTimeoutMs       int         `mapstructure:"bus_timeout_ms"`
	SensorFaultRetries int         `mapstructure:"sensor_fault_retries"`
	ActuatorRetries    int         `mapstructure:"actuator_retries"`
	InitialMode        models.Mode `mapstructure:"initial_mode"`
	MaxPulseSeconds    int         `mapstructure:"max_pulse_seconds"`
	DefaultSpeed       int         `mapstructure:"default_speed_percent"`
	Thresholds         Thresholds  `mapstructure:"thresholds"`
}

// PollInterval returns PollIntervalMs as a duration.
func (c EngineConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// BusTimeout returns BusTimeoutMs as a duration.
func (c EngineConfig) BusTimeout() time.Duration {
	return time.Duration(c.BusTimeoutMs) * time.Millisecond
}

// SensorsConfig enables or disables individual sensors. A disabled sensor is
// always reported absent and its threshold is not evaluated.
type SensorsConfig struct {
	Temperature bool `mapstructure:"temperature"`
	Humidity    bool `mapstructure:"humidity"`
	Flow        bool `mapstructure:"flow"`
}

// Enabled reports whether s is enabled.
func (s SensorsConfig) Enabled(sensor models.Sensor) bool {
	switch sensor {
	case models.SensorTemperature:
		return s.Temperature
	case models.SensorHumidity:
		return s.Humidity
	case models.SensorFlow:
		return s.Flow
	default:
		return false
	}
}

// HardwareConfig describes pin and bus wiring on the board.
type HardwareConfig struct {
	GPIOChip         string  `mapstructure:"gpio_chip"`
	RelayPin         int     `mapstructure:"relay_pin"`
	RelayActiveLow   bool    `mapstructure:"relay_active_low"`
	FlowPin          int     `mapstructure:"flow_pin"`
	FlowPulsesPerLPM float64 `mapstructure:"flow_pulses_per_lpm"`
	W1DevicesDir     string  `mapstructure:"w1_devices_dir"`
	DS18B20ID        string  `mapstructure:"ds18b20_id"`
	ADS1115Address   int     `mapstructure:"ads1115_address"`
	MoistureChannels []int   `mapstructure:"moisture_channels"`
	MoistureDry      float64 `mapstructure:"moisture_dry"`
	MoistureWet      float64 `mapstructure:"moisture_wet"`
	PWMPin           int     `mapstructure:"pwm_pin"`
	PWMFrequencyHz   int     `mapstructure:"pwm_frequency_hz"`
}

// SimulationConfig drives the synthetic sensor.
type SimulationConfig struct {
	Pattern      string   `mapstructure:"pattern"` // fixed | sine | random
	Seed         int64    `mapstructure:"seed"`
	TemperatureC float64  `mapstructure:"temperature_c"`
	HumidityPct  float64  `mapstructure:"humidity_percent"`
	FlowLPM      float64  `mapstructure:"flow_lpm"`
	Amplitude    float64  `mapstructure:"amplitude"` // fraction of the base value, 0..1
	PeriodPolls  int      `mapstructure:"period_polls"`
	Faulty       []string `mapstructure:"faulty"`
}

// MQTTConfig enables the status publisher when Broker is set.
type MQTTConfig struct {
	Broker   string `mapstructure:"broker"`
	Topic    string `mapstructure:"topic"`
	ClientID string `mapstructure:"client_id"`
	QoS      byte   `mapstructure:"qos"`
}

// TracingConfig enables OTLP export when Endpoint is set.
type TracingConfig struct {
	Endpoint    string `mapstructure:"endpoint"`
	ServiceName string `mapstructure:"service_name"`
}

// ScheduleEntry is a recurring timed run.
type ScheduleEntry struct {
	Name    string `mapstructure:"name"`
	Rule    string `mapstructure:"rule"` // RRULE without DTSTART, e.g. FREQ=DAILY;BYHOUR=6;BYMINUTE=0
	Seconds int    `mapstructure:"seconds"`
	Speed   int    `mapstructure:"speed"` // percent, 0 means engine.default_speed_percent
}

// Config is the whole application configuration.
type Config struct {
	Port               string           `mapstructure:"port"`
	LogLevel           string           `mapstructure:"log_level"`
	DBPath             string           `mapstructure:"db_path"`
	Console            bool             `mapstructure:"console"`
	EventRetentionDays int              `mapstructure:"event_retention_days"` // 0 keeps everything
	Engine             EngineConfig     `mapstructure:"engine"`
	Sensors            SensorsConfig    `mapstructure:"sensors"`
	Hardware           HardwareConfig   `mapstructure:"hardware"`
	Simulation         SimulationConfig `mapstructure:"simulation"`
	MQTT               MQTTConfig       `mapstructure:"mqtt"`
	Tracing            TracingConfig    `mapstructure:"tracing"`
	Schedule           []ScheduleEntry  `mapstructure:"schedule"`
}

// BindFlags registers command line flags and binds them into v.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	fs.String("config", "", "path to config file (default configs/config.yml)")
	fs.String("port", DefaultPort, "HTTP listen port")
	fs.String("log_level", DefaultLogLevel, "log level: debug|info|warn|error")
	fs.Bool("console", false, "attach the local operator console to stdin/stdout")
	fs.Bool("simulate", false, "force simulation mode")

	for _, name := range []string{"port", "log_level", "console"} {
		if err := v.BindPFlag(name, fs.Lookup(name)); err != nil {
			return fmt.Errorf("bind flag %q: %w", name, err)
		}
	}
	if err := v.BindPFlag("engine.simulation_mode", fs.Lookup("simulate")); err != nil {
		return fmt.Errorf("bind flag %q: %w", "simulate", err)
	}
	return v.BindPFlag("config", fs.Lookup("config"))
}

// SetDefaults installs every default into v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("port", DefaultPort)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("db_path", DefaultDBPath)
	v.SetDefault("console", false)
	v.SetDefault("event_retention_days", DefaultEventRetentionDays)

	v.SetDefault("engine.simulation_mode", !HardwarePresent(DefaultGPIOChip))
	v.SetDefault("engine.poll_interval_ms", DefaultPollIntervalMs)
	v.SetDefault("engine.bus_timeout_ms", DefaultBusTimeoutMs)
	v.SetDefault("engine.sensor_fault_retries", DefaultSensorFaultRetries)
	v.SetDefault("engine.actuator_retries", DefaultActuatorRetries)
	v.SetDefault("engine.initial_mode", string(models.ModeAuto))
	v.SetDefault("engine.max_pulse_seconds", DefaultMaxPulseSeconds)
	v.SetDefault("engine.default_speed_percent", DefaultSpeedPercent)
	v.SetDefault("engine.thresholds.min_flow_to_run", DefaultMinFlowToRun)
	v.SetDefault("engine.thresholds.max_temp_to_run", DefaultMaxTempToRun)
	v.SetDefault("engine.thresholds.min_humidity_to_run", DefaultMinHumidityToRun)

	v.SetDefault("sensors.temperature", true)
	v.SetDefault("sensors.humidity", true)
	v.SetDefault("sensors.flow", true)

	v.SetDefault("hardware.gpio_chip", DefaultGPIOChip)
	v.SetDefault("hardware.relay_pin", DefaultRelayPin)
	v.SetDefault("hardware.relay_active_low", false)
	v.SetDefault("hardware.flow_pin", DefaultFlowPin)
	v.SetDefault("hardware.flow_pulses_per_lpm", DefaultFlowPulsesPerLPM)
	v.SetDefault("hardware.w1_devices_dir", DefaultW1DevicesDir)
	v.SetDefault("hardware.ds18b20_id", "")
	v.SetDefault("hardware.ads1115_address", DefaultADS1115Address)
	v.SetDefault("hardware.moisture_channels", []int{0, 1, 2, 3})
	v.SetDefault("hardware.moisture_dry", DefaultMoistureDry)
	v.SetDefault("hardware.moisture_wet", DefaultMoistureWet)
	v.SetDefault("hardware.pwm_pin", DefaultPWMPin)
	v.SetDefault("hardware.pwm_frequency_hz", DefaultPWMFrequencyHz)

	v.SetDefault("simulation.pattern", "sine")
	v.SetDefault("simulation.seed", 1)
	v.SetDefault("simulation.temperature_c", 20.0)
	v.SetDefault("simulation.humidity_percent", 55.0)
	v.SetDefault("simulation.flow_lpm", 2.0)
	v.SetDefault("simulation.amplitude", 0.1)
	v.SetDefault("simulation.period_polls", 30)

	v.SetDefault("mqtt.topic", "vattenpump/status")
	v.SetDefault("mqtt.client_id", "vattenpump")
	v.SetDefault("mqtt.qos", 0)

	v.SetDefault("tracing.service_name", "controlling_pump")
}

// Load reads configs/config.yml (or the file named by the "config" key),
// applies PUMP_* environment overrides and validates the result. A missing
// config file is not an error; every key has a default.
func Load(v *viper.Viper) (Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("configs") // configs/config.yml
		v.SetConfigName("config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, &models.Error{Kind: models.KindConfigError, Message: "read config: " + err.Error()}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, &models.Error{Kind: models.KindConfigError, Message: "decode config: " + err.Error()}
	}
	if mode, ok := models.ParseMode(string(cfg.Engine.InitialMode)); ok {
		cfg.Engine.InitialMode = mode
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects threshold and timing values the engine cannot run with.
func (c Config) Validate() error {
	e := c.Engine
	switch {
	case e.PollIntervalMs <= 0 || e.PollInterval() < minPollInterval:
		return configError("engine.poll_interval_ms must be >= %d, got %d", minPollInterval.Milliseconds(), e.PollIntervalMs)
	case e.BusTimeoutMs <= 0:
		return configError("engine.bus_timeout_ms must be > 0, got %d", e.BusTimeoutMs)
	case e.BusTimeoutMs >= e.PollIntervalMs:
		return configError("engine.bus_timeout_ms (%d) must be shorter than engine.poll_interval_ms (%d)", e.BusTimeoutMs, e.PollIntervalMs)
	case e.SensorFaultRetries < 1:
		return configError("engine.sensor_fault_retries must be >= 1, got %d", e.SensorFaultRetries)
	case e.ActuatorRetries < 1:
		return configError("engine.actuator_retries must be >= 1, got %d", e.ActuatorRetries)
	case e.MaxPulseSeconds < 1:
		return configError("engine.max_pulse_seconds must be >= 1, got %d", e.MaxPulseSeconds)
	case e.DefaultSpeed < models.MinSpeed || e.DefaultSpeed > models.MaxSpeed:
		return configError("engine.default_speed_percent must be within %d..%d, got %d", models.MinSpeed, models.MaxSpeed, e.DefaultSpeed)
	}
	if _, ok := models.ParseMode(string(e.InitialMode)); !ok {
		return configError("engine.initial_mode must be AUTO or MANUAL, got %q", e.InitialMode)
	}

	t := e.Thresholds
	for name, val := range map[string]float64{
		"min_flow_to_run":     t.MinFlowToRun,
		"max_temp_to_run":     t.MaxTempToRun,
		"min_humidity_to_run": t.MinHumidityToRun,
	} {
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return configError("engine.thresholds.%s must be a finite number", name)
		}
	}
	if t.MinFlowToRun < 0 {
		return configError("engine.thresholds.min_flow_to_run must be >= 0, got %.2f", t.MinFlowToRun)
	}
	if t.MinHumidityToRun < 0 || t.MinHumidityToRun > 100 {
		return configError("engine.thresholds.min_humidity_to_run must be within 0..100, got %.2f", t.MinHumidityToRun)
	}

	if !logger.ValidLevel(c.LogLevel) {
		return configError("log_level must be debug, info, warn or error, got %q", c.LogLevel)
	}
	if c.EventRetentionDays < 0 {
		return configError("event_retention_days must be >= 0, got %d", c.EventRetentionDays)
	}

	if !e.SimulationMode {
		h := c.Hardware
		if h.FlowPulsesPerLPM <= 0 {
			return configError("hardware.flow_pulses_per_lpm must be > 0, got %.2f", h.FlowPulsesPerLPM)
		}
		if h.MoistureDry <= h.MoistureWet {
			return configError("hardware.moisture_dry (%.0f) must be greater than hardware.moisture_wet (%.0f)", h.MoistureDry, h.MoistureWet)
		}
		if c.Sensors.Humidity && len(h.MoistureChannels) == 0 {
			return configError("hardware.moisture_channels must list at least one channel while sensors.humidity is enabled")
		}
		for _, ch := range h.MoistureChannels {
			if ch < 0 || ch > 3 {
				return configError("hardware.moisture_channels: channel %d out of range 0..3", ch)
			}
		}
		if h.ADS1115Address < 0x48 || h.ADS1115Address > 0x4B {
			return configError("hardware.ads1115_address must be 0x48..0x4B, got %#x", h.ADS1115Address)
		}
		if h.PWMPin >= 0 && (h.PWMFrequencyHz < 1 || h.PWMFrequencyHz > maxPWMFrequencyHz) {
			return configError("hardware.pwm_frequency_hz must be within 1..%d, got %d", maxPWMFrequencyHz, h.PWMFrequencyHz)
		}
	}

	for i, s := range c.Schedule {
		if strings.TrimSpace(s.Rule) == "" {
			return configError("schedule[%d].rule is empty", i)
		}
		if s.Seconds < 1 || s.Seconds > e.MaxPulseSeconds {
			return configError("schedule[%d].seconds must be within 1..%d, got %d", i, e.MaxPulseSeconds, s.Seconds)
		}
		if !models.ValidSpeed(s.Speed) {
			return configError("schedule[%d].speed must be within %d..%d, got %d", i, models.MinSpeed, models.MaxSpeed, s.Speed)
		}
	}
	return nil
}

// HardwarePresent reports whether the GPIO character device exists.
func HardwarePresent(chip string) bool {
	_, err := os.Stat("/dev/" + chip)
	return err == nil
}

func configError(format string, args ...any) *models.Error {
	return models.NewError(models.KindConfigError, format, args...)
}
