package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"

	yml "gopkg.in/yaml.v2"
)

var (
	// Version is the version number.  Typically injected via ldflags with git build
	Version = "0.1"

	// ConfigFileName is what it sounds like
	ConfigFileName = "twistersrv.yml"

	// EnvPrefix prefixes the environment variables that override the config file
	EnvPrefix = "TWISTER_"

	k = koanf.New(".")
)

// envKey returns the env provider callback mapping TWISTER_DUMMY to the
// Dummy key already known to ko
func envKey(ko *koanf.Koanf) func(string) string {
	return func(s string) string {
		key := strings.TrimPrefix(s, EnvPrefix)
		for _, known := range ko.Keys() {
			if strings.EqualFold(known, key) {
				return known
			}
		}
		return key
	}
}

// loadConfig loads the defaults, then the file at path if it exists, then the
// environment into ko
func loadConfig(ko *koanf.Koanf, path string) error {
	if err := ko.Load(structs.Provider(DefaultConfig(), "koanf"), nil); err != nil {
		return err
	}
	if err := ko.Load(file.Provider(path), yaml.Parser()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return ko.Load(env.Provider(EnvPrefix, ".", envKey(ko)), nil)
}

func setupconfig() {
	if err := loadConfig(k, ConfigFileName); err != nil {
		glog.Fatalf("error loading config: %v", err)
	}
}

func loadconf() Config {
	c := Config{}
	if err := k.Unmarshal("", &c); err != nil {
		glog.Fatal(err)
	}
	return c
}

func root() {
	str := `twistersrv drives a stepper motor turntable on an Arduino running the
ArduinoPyTwister firmware and exposes an HTTP interface to it.

Usage:
	twistersrv [glog flags] <command>

Commands:
	run
	help
	mkconf
	conf
	version`
	fmt.Println(str)
}

func help() {
	str := `twistersrv is amenable to configuration via its .yml file.  For a primer on YAML, see
https://yaml.org/start.html

Any key may be overridden with an environment variable, e.g. TWISTER_DUMMY=true.

Keys:
- Addr:     address to listen at, ":8000"
- Dummy:    run without hardware, turn commands are only logged
- Port:     serial port of the Arduino, e.g. /dev/ttyACM0 or COM3.  When empty,
            every serial port whose description contains "Arduino" is probed
            for the ArduinoPyTwister firmware
- Endpoint: path the routes are served under, "twister"
- Limits:   software limits in degrees, e.g.
	Limits:
	  twister:
	    Min: -360
	    Max: 360

Logging is controlled with the glog flags, e.g. twistersrv -logtostderr -v 2 run`
	fmt.Println(str)
}

func mkconf() {
	c := loadconf()
	f, err := os.Create(ConfigFileName)
	if err != nil {
		glog.Fatal(err)
	}
	defer f.Close()
	err = yml.NewEncoder(f).Encode(c)
	if err != nil {
		glog.Fatal(err)
	}
}

func printconf() {
	c := loadconf()
	err := yml.NewEncoder(os.Stdout).Encode(c)
	if err != nil {
		glog.Fatal(err)
	}
}

func pversion() {
	fmt.Printf("twistersrv version %v\n", Version)
}

func run() {
	c := loadconf()
	tw, err := Connect(c)
	if err != nil {
		glog.Fatal(err)
	}
	defer tw.Close()

	srv := &http.Server{Addr: c.Addr, Handler: BuildMux(c, tw)}
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt)
		<-sig
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}()
	glog.Infof("now listening for requests at %s", c.Addr)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		glog.Error(err)
	}
}

func main() {
	flag.Parse()
	defer glog.Flush()
	if flag.NArg() == 0 {
		root()
		return
	}
	setupconfig()
	cmd := strings.ToLower(flag.Arg(0))
	switch cmd {
	case "help":
		help()
	case "mkconf":
		mkconf()
	case "conf":
		printconf()
	case "run":
		run()
	case "version":
		pversion()
	default:
		glog.Fatal("unknown command")
	}
}
