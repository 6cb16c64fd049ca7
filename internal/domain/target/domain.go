package target

import "time"

type Kind string

const (
	KindEndpoint Kind = "endpoint"
	KindDatabase Kind = "database"
)

type Engine string

const (
	EnginePostgres Engine = "postgresql"
	EngineMySQL    Engine = "mysql"
	EngineMongoDB  Engine = "mongodb"
	EngineRedis    Engine = "redis"
	EngineMSSQL    Engine = "mssql"
)

// Key is the scheduling identity of a target. At most one schedule
// entry exists per key; scheduling the same key again replaces it.
type Key struct {
	Kind Kind
	ID   string
}

func (k Key) String() string { return string(k.Kind) + "-" + k.ID }

// Target is the resolved view of a monitored entity that a due-check
// job carries. A job holds everything a probe needs, so workers never
// re-read the registry between scheduling and execution.
type Target interface {
	Key() Key
	Org() string
	CheckInterval() time.Duration
	CheckTimeout() time.Duration
	IsEnabled() bool

	// ProbeName selects the probe implementation from the registry.
	ProbeName() string

	// Label is the human-readable detail used in alert messages
	// (URL for endpoints, engine tag for databases).
	Label() string
}

type Endpoint struct {
	ID             string        `json:"id"`
	OrgID          string        `json:"org_id"`
	URL            string        `json:"url"`
	Method         string        `json:"method"`
	ExpectedStatus int           `json:"expected_status_code"`
	Interval       time.Duration `json:"check_interval"`
	Timeout        time.Duration `json:"timeout"`
	Enabled        bool          `json:"enabled"`
}

func (e *Endpoint) Key() Key                    { return Key{Kind: KindEndpoint, ID: e.ID} }
func (e *Endpoint) Org() string                 { return e.OrgID }
func (e *Endpoint) CheckInterval() time.Duration { return e.Interval }
func (e *Endpoint) CheckTimeout() time.Duration  { return e.Timeout }
func (e *Endpoint) IsEnabled() bool             { return e.Enabled }
func (e *Endpoint) ProbeName() string           { return string(KindEndpoint) }
func (e *Endpoint) Label() string               { return e.URL }

type Database struct {
	ID            string        `json:"id"`
	OrgID         string        `json:"org_id"`
	Engine        Engine        `json:"db_type"`
	ConnectionURL string        `json:"connection_url"`
	Interval      time.Duration `json:"check_interval"`
	Timeout       time.Duration `json:"timeout"`
	Enabled       bool          `json:"enabled"`
}

func (d *Database) Key() Key                    { return Key{Kind: KindDatabase, ID: d.ID} }
func (d *Database) Org() string                 { return d.OrgID }
func (d *Database) CheckInterval() time.Duration { return d.Interval }
func (d *Database) CheckTimeout() time.Duration  { return d.Timeout }
func (d *Database) IsEnabled() bool             { return d.Enabled }
func (d *Database) ProbeName() string           { return string(d.Engine) }
func (d *Database) Label() string               { return string(d.Engine) }
