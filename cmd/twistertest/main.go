// Command twistertest finds the twister, turns it back and forth and reports
// the angle.  It is a quick check of the wiring and the firmware.
package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/golang/glog"
	"github.com/theckman/yacspin"

	"github.com/idiap/twister/arduino"
	"github.com/idiap/twister/comm"
	"github.com/idiap/twister/twister"
)

var (
	port  = flag.String("port", "", "serial port of the Arduino, probe every Arduino port when empty")
	steps = flag.Int("steps", 200, "steps to turn each way")
	dummy = flag.Bool("dummy", false, "run without hardware")
)

func newSpinner(msg string) *yacspin.Spinner {
	spinner, err := yacspin.New(yacspin.Config{
		Frequency:         100 * time.Millisecond,
		CharSet:           yacspin.CharSets[11],
		Suffix:            " ",
		Message:           msg,
		StopCharacter:     "✓",
		StopColors:        []string{"fgGreen"},
		StopFailCharacter: "✗",
		StopFailColors:    []string{"fgRed"},
	})
	if err != nil {
		glog.Fatal(err)
	}
	return spinner
}

// connect lists the serial ports and connects to the twister while a spinner runs
func connect(cfg arduino.Config, open comm.Opener) (*twister.Twister, error) {
	var (
		msg = "opening " + *port
		do  = func() (*twister.Twister, error) { return twister.ConnectPort(cfg, open, *port) }
	)
	if *port == "" {
		cands, err := arduino.ListPorts()
		if err != nil {
			return nil, err
		}
		for _, c := range cands {
			fmt.Printf("%s\t%s\n", c.Name, c.Description)
		}
		msg = fmt.Sprintf("probing %d Arduino ports", len(arduino.ArduinoPorts(cands)))
		do = func() (*twister.Twister, error) {
			return twister.ConnectWith(cfg, func() ([]arduino.Candidate, error) { return cands, nil }, open)
		}
	}

	spinner := newSpinner(msg)
	spinner.Start()
	tw, err := do()
	if err != nil {
		spinner.StopFailMessage(err.Error())
		spinner.StopFail()
		return nil, err
	}
	id := tw.Identity()
	spinner.StopMessage(id.Name + " " + id.Version)
	spinner.Stop()
	return tw, nil
}

func turn(tw *twister.Twister, n int) {
	angle, err := tw.RotateSteps(n)
	if err != nil {
		glog.Errorf("turn by %d steps: %v", n, err)
	}
	fmt.Printf("turned %d steps, angle is %.3f°\n", n, angle)
}

func main() {
	flag.Parse()
	defer glog.Flush()
	cfg := arduino.DefaultConfig()

	var (
		tw  *twister.Twister
		err error
	)
	if *dummy {
		tw = twister.NewDummy(cfg)
	} else {
		tw, err = connect(cfg, comm.SerialOpener(cfg.Baud, cfg.ReadTimeout))
		if err != nil {
			glog.Fatal(err)
		}
	}
	defer tw.Close()

	turn(tw, -*steps)
	turn(tw, *steps)
}
