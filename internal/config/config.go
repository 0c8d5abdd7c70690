// internal/config/config.go
package config

type Config struct {
	Clock        ClockConfig        `yaml:"clock"`
	Housekeeping HousekeepingConfig `yaml:"housekeeping"`
	Telemetry    TelemetryConfig    `yaml:"telemetry"`
	Priorities   map[string]uint8   `yaml:"priorities"` // absent source = disabled
	Faults       FaultConfig        `yaml:"faults"`
	Modbus       *ModbusConfig      `yaml:"modbus"` // optional: no board when nil
	Metrics      MetricsConfig      `yaml:"metrics"`
	Log          LogConfig          `yaml:"log"`
}

// ---- CLOCK ----

type ClockConfig struct {
	CrystalHz     uint32 `yaml:"crystal_hz"`
	PLLMultiplier uint32 `yaml:"pll_multiplier"`
	PreDivider    uint32 `yaml:"pre_divider"`
	PostDivider   uint32 `yaml:"post_divider"`
}

// ---- HOUSEKEEPING ----

type HousekeepingConfig struct {
	Timer           TimerConfig `yaml:"timer"`
	HandlerBudgetUs int         `yaml:"handler_budget_us"`
	GreenRate       string      `yaml:"green_rate"` // "still", "off", "periodic:<n>"
	RedRate         string      `yaml:"red_rate"`
}

type TimerConfig struct {
	Prescaler uint16 `yaml:"prescaler"`
	Period    uint16 `yaml:"period"`
}

// ---- TELEMETRY ----

type TelemetryConfig struct {
	RateMs     int    `yaml:"rate_ms"`
	Prescaler  uint16 `yaml:"prescaler"`
	DeviceName string `yaml:"device_name"`
}

// ---- FAULTS ----

type FaultConfig struct {
	External    bool `yaml:"external"`    // CN pushbutton
	OverCurrent bool `yaml:"overcurrent"` // FLTA1
}

// ---- MODBUS ----

type ModbusConfig struct {
	Endpoint  string `yaml:"endpoint"` // host:port or rtu:<device>
	UnitID    uint8  `yaml:"unit_id"`
	TimeoutMs int    `yaml:"timeout_ms"`
	BaudRate  int    `yaml:"baud_rate"`

	LedCoil        uint16  `yaml:"led_coil"`
	RateRegister   *uint16 `yaml:"rate_register"`   // optional: controller polling
	StatusRegister *uint16 `yaml:"status_register"` // optional: status block
	FaultInput     *uint16 `yaml:"fault_input"`     // optional: discrete inputs CN, FLTA1
	PollMs         int     `yaml:"poll_ms"`
}

// ---- METRICS / LOG ----

type MetricsConfig struct {
	Listen string `yaml:"listen"` // empty = disabled
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}
