package config

// Stage names of the traffic pipeline, in order.
const (
	StageLocalization = "localization"
	StageCollision    = "collision"
	StageTrafficLight = "traffic_light"
	StageMotion       = "motion"
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Logging: Logging{
			Format: "auto",
			Level:  "info",
		},
		Simulation: Simulation{
			Vehicles:           64,
			Ticks:              20,
			Seed:               1,
			TickTimeoutSeconds: 5,
		},
		Pipeline: Pipeline{
			InputCapacity: 0,
			InputOverflow: "unbounded",
			Stages: []Stage{
				{Name: StageLocalization, PoolSize: 4, Capacity: 256, Overflow: "block"},
				{Name: StageCollision, PoolSize: 2, Capacity: 256, Overflow: "block"},
				{Name: StageTrafficLight, PoolSize: 2, Capacity: 256, Overflow: "block"},
				{Name: StageMotion, PoolSize: 4, Capacity: 0, Overflow: "unbounded"},
			},
		},
		Metrics: Metrics{
			Enabled:   true,
			Namespace: "tmpipe",
		},
	}
}
