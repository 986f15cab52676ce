package arduino

import (
	"strings"
	"time"
	"unicode"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/idiap/twister/comm"
)

const (
	// NoFirmwareName is what a FIR query reports when the board stays silent
	NoFirmwareName = "No Arduino firmware name could be retrieved."

	// NoFirmwareVersion is what a VER query reports when the board stays silent
	NoFirmwareVersion = "No Arduino firmware version could be retrieved."
)

// Reply is the answer to a line query.  A board that says nothing before the
// read timeout is an ordinary outcome while probing ports, so it is a Reply
// with TimedOut set rather than an error.
type Reply struct {
	// Text is the reply with trailing whitespace removed
	Text string

	// TimedOut is true if no reply arrived
	TimedOut bool

	fallback string
}

// String returns Text, or the query's sentinel message if the query timed out
func (r Reply) String() string {
	if r.TimedOut {
		return r.fallback
	}
	return r.Text
}

// Negotiator opens candidate ports and checks they host the right firmware
type Negotiator struct {
	cfg   Config
	open  comm.Opener
	sleep func(time.Duration)
}

// NewNegotiator returns a Negotiator that opens ports with open
func NewNegotiator(cfg Config, open comm.Opener) *Negotiator {
	return &Negotiator{cfg: cfg, open: open, sleep: time.Sleep}
}

// Config returns the configuration of the negotiator
func (n *Negotiator) Config() Config {
	return n.cfg
}

// OpenAndInitialize opens port, discards stale input and waits for the board
// to boot.  Opening the port resets most Arduinos.
func (n *Negotiator) OpenAndInitialize(port string) (comm.Transport, error) {
	conn, err := n.open(port)
	if err != nil {
		var terr *comm.TransportError
		if errors.As(err, &terr) {
			return nil, err
		}
		return nil, &comm.TransportError{Port: port, Err: err}
	}
	if err = conn.Flush(); err != nil {
		conn.Close()
		return nil, &comm.TransportError{Port: port, Err: err}
	}
	glog.Infof("giving the Arduino on %s %v to initialize", port, n.cfg.InitializeDelay)
	n.sleep(n.cfg.InitializeDelay)
	return conn, nil
}

func query(conn comm.Transport, code, fallback string) (Reply, error) {
	silent := Reply{TimedOut: true, fallback: fallback}
	glog.V(2).Infof("Sending message >%s<...", code)
	if _, err := conn.Write([]byte(code)); err != nil {
		return silent, errors.Wrapf(err, "sending %s", code)
	}
	line, err := comm.ReadLine(conn)
	if err != nil {
		return silent, errors.Wrapf(err, "reading reply to %s", code)
	}
	txt := strings.TrimRightFunc(string(line), unicode.IsSpace)
	if txt == "" {
		return silent, nil
	}
	glog.V(2).Infof("Arduino replied >%s<...", txt)
	return Reply{Text: txt, fallback: fallback}, nil
}

// QueryFirmwareName asks the board for its firmware name
func QueryFirmwareName(conn comm.Transport) (Reply, error) {
	return query(conn, FirmwareCode, NoFirmwareName)
}

// QueryFirmwareVersion asks the board for its firmware version
func QueryFirmwareVersion(conn comm.Transport) (Reply, error) {
	return query(conn, VersionCode, NoFirmwareVersion)
}

// Reset asks the board to reset.  The firmware does not reply.
func Reset(conn comm.Transport) error {
	glog.V(2).Infof("Sending message >%s<...", ResetCode)
	_, err := conn.Write([]byte(ResetCode))
	return errors.Wrap(err, "sending reset")
}

// Identify queries the firmware name and, if it matches, the version.  ok is
// true only if both meet the requirements of the negotiator.  Transport
// errors are logged and count as a failed identification.
func (n *Negotiator) Identify(conn comm.Transport) (id Identity, ok bool) {
	name, err := QueryFirmwareName(conn)
	if err != nil {
		glog.Warningf("firmware name query failed: %v", err)
		return id, false
	}
	id.Name = name.String()
	if name.TimedOut || name.Text != n.cfg.FirmwareName {
		glog.Infof("firmware >%s< is not >%s<", id.Name, n.cfg.FirmwareName)
		return id, false
	}
	glog.Infof("Correct Arduino detected, firmware is: %s", id.Name)

	version, err := QueryFirmwareVersion(conn)
	if err != nil {
		glog.Warningf("firmware version query failed: %v", err)
		return id, false
	}
	id.Version = version.String()
	if version.TimedOut {
		glog.Infof("Incorrect Arduino firmware and version >%s< version >%s<", id.Name, id.Version)
		return id, false
	}
	atLeast, err := VersionAtLeast(version.Text, n.cfg.MinimumVersion)
	if err != nil || !atLeast {
		glog.Infof("Incorrect Arduino firmware and version >%s< version >%s<", id.Name, id.Version)
		return id, false
	}
	glog.Infof("Correct Arduino firmware and version >%s< version >%s<", id.Name, id.Version)
	return id, true
}

// Verify is true if the board on conn runs the required firmware at or above
// the minimum version
func (n *Negotiator) Verify(conn comm.Transport) bool {
	_, ok := n.Identify(conn)
	return ok
}

// Found is the result of a successful Scan
type Found struct {
	Port     string
	Identity Identity
}

// Scan probes ports in order and returns the first that passes Verify.
//
// Every port that is opened is closed again before Scan moves on or returns,
// including the one that passed.  Use OpenAndInitialize on Found.Port to get a
// usable connection.  Ports that fail to open are skipped.
func (n *Negotiator) Scan(ports []string) (Found, bool) {
	for _, port := range ports {
		conn, err := n.OpenAndInitialize(port)
		if err != nil {
			glog.Warningf("skipping %s: %v", port, err)
			continue
		}
		id, ok := n.Identify(conn)
		if err := conn.Close(); err != nil {
			glog.Warningf("error closing %s: %v", port, err)
		}
		if ok {
			return Found{Port: port, Identity: id}, true
		}
	}
	return Found{}, false
}

// Query sends an arbitrary command and reads one line of reply
func Query(conn comm.Transport, cmd string) (Reply, error) {
	return query(conn, cmd, "")
}
