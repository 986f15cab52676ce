package main

import (
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/golang/glog"

	"github.com/idiap/twister/arduino"
	"github.com/idiap/twister/comm"
	"github.com/idiap/twister/generichttp"
	"github.com/idiap/twister/generichttp/motion"
	"github.com/idiap/twister/server"
	"github.com/idiap/twister/server/middleware/locker"
	"github.com/idiap/twister/twister"
	"github.com/idiap/twister/util"
)

// Config holds the setup of the server.  It is populated by koanf from
// defaults, the config file and TWISTER_ environment variables.
type Config struct {
	// Addr is the address to listen at
	Addr string `yaml:"Addr" koanf:"Addr"`

	// Dummy runs the twister without hardware
	Dummy bool `yaml:"Dummy" koanf:"Dummy"`

	// Port is the serial port of the Arduino.  When empty, the serial ports
	// of the host are scanned for it.
	Port string `yaml:"Port" koanf:"Port"`

	// Endpoint is the path the routes of the twister are served under,
	// ex. Endpoint="/lab/twister" gives /lab/twister/axis/twister/pos
	Endpoint string `yaml:"Endpoint" koanf:"Endpoint"`

	// Limits are software limits in degrees, keyed by axis
	Limits map[string]util.Limiter `yaml:"Limits" koanf:"Limits"`
}

// DefaultConfig is the configuration used when no file is present
func DefaultConfig() Config {
	return Config{
		Addr:     ":8000",
		Endpoint: "twister",
		Limits:   map[string]util.Limiter{}}
}

// Connect returns the twister described by c
func Connect(c Config) (*twister.Twister, error) {
	cfg := arduino.DefaultConfig()
	switch {
	case c.Dummy:
		return twister.NewDummy(cfg), nil
	case c.Port != "":
		return twister.ConnectPort(cfg, comm.SerialOpener(cfg.Baud, cfg.ReadTimeout), c.Port)
	default:
		return twister.Connect(cfg)
	}
}

// BuildMux mounts the HTTP interface of tw on a chi router at c.Endpoint.
// The router also serves /endpoints, which lists every route as JSON.
func BuildMux(c Config, tw *twister.Twister) chi.Router {
	root := chi.NewRouter()
	root.Use(middleware.Logger)
	graph := server.NewGraph()

	httper := twister.NewHTTPTwister(tw)
	limiter := motion.LimitMiddleware{Limits: c.Limits, Mov: tw}
	limiter.Inject(httper)
	stepLimiter := twister.StepLimitMiddleware{Limits: c.Limits, Twister: tw}

	// add a lock interface for this node
	lock := locker.New()
	locker.Inject(httper, lock)

	stem := generichttp.SubMuxSanitize(c.Endpoint)
	graph.Add(stem, httper)

	r := chi.NewRouter()
	r.Use(limiter.Check)
	r.Use(stepLimiter.Check)
	r.Use(lock.Check)
	httper.RT().Bind(r)
	root.Mount(stem, r)
	glog.Infof("twister mounted at %s, %d stems serving", stem, graph.Stems())

	root.Get("/endpoints", graph.HTTPList)
	return root
}
