package config

// AlertsConfig is the top-level YAML structure.
type AlertsConfig struct {
	Version  string       `yaml:"version"`
	Engine   EngineConf   `yaml:"engine"`
	Triggers []TriggerDef `yaml:"triggers"`
}

// EngineConf holds tunable concurrency settings.
type EngineConf struct {
	EventWorkers    int `yaml:"event_workers"`
	ActionWorkers   int `yaml:"action_workers"`
	QueueDepth      int `yaml:"queue_depth"`
	ActionTimeoutMs int `yaml:"action_timeout_ms"`
}

// TriggerDef is an entry point that filters events by category and data source.
type TriggerDef struct {
	ID            string            `yaml:"id"`
	Description   string            `yaml:"description"`
	Enabled       bool              `yaml:"enabled"`
	Categories    []string          `yaml:"categories"`   // empty = all categories
	DataSources   []string          `yaml:"data_sources"` // empty = all sources
	EventCategory string            `yaml:"event_category"`
	Tags          map[string]string `yaml:"tags"`
	Dampening     DampeningDef      `yaml:"dampening"`
	Children      []NodeRef         `yaml:"children"`
}

// DampeningDef configures strict dampening. Only STRICT is supported.
type DampeningDef struct {
	Type     string `yaml:"type"`
	EvalTrue int    `yaml:"eval_true"`
}

// NodeRef is a discriminated union: exactly one of Condition or Action is set.
type NodeRef struct {
	Condition *ConditionDef `yaml:"condition,omitempty"`
	Action    *ActionDef    `yaml:"action,omitempty"`
}

// ConditionDef holds an expression and nested children.
type ConditionDef struct {
	ID         string    `yaml:"id"`
	Expression string    `yaml:"expression"`
	Children   []NodeRef `yaml:"children"`
}

// ActionDef is a leaf node that specifies an action to execute.
type ActionDef struct {
	ID     string         `yaml:"id"`
	Type   string         `yaml:"type"`
	Params map[string]any `yaml:"params"`
}
